package hotspot

import (
	"fmt"
	"strings"
)

// String returns a human-readable summary of a capability probe.
func (c *CapabilitySet) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Interface: %s", c.Interface)
	if c.Phy != "" {
		fmt.Fprintf(&b, " (%s)", c.Phy)
	}
	b.WriteString("\n")

	writeYesNo(&b, "  AP mode", c.SupportsAP)
	writeYesNo(&b, "  2.4 GHz", c.Supports24GHz)
	writeYesNo(&b, "  5 GHz", c.Supports5GHz)
	fmt.Fprintf(&b, "  Current mode: %s\n", c.Mode)

	switch {
	case c.RFKill.Hard:
		b.WriteString("  RFKill: hard-blocked\n")
	case c.RFKill.Soft:
		b.WriteString("  RFKill: soft-blocked\n")
	default:
		b.WriteString("  RFKill: clear\n")
	}

	if len(c.Combinations) == 0 {
		b.WriteString("  Concurrency: not reported\n")
		return b.String()
	}

	b.WriteString("  Concurrency:\n")
	for _, g := range c.Combinations {
		var roles []string
		for _, l := range g.Limits {
			roles = append(roles, fmt.Sprintf("%s <= %d", strings.Join(l.Roles, "/"), l.Max))
		}
		fmt.Fprintf(&b, "    %s, total <= %d", strings.Join(roles, ", "), g.MaxTotal)
		if g.SameChannelOnly() {
			b.WriteString(", same channel only")
		} else if g.MaxChannels > 1 {
			fmt.Fprintf(&b, ", channels <= %d", g.MaxChannels)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeYesNo(b *strings.Builder, name string, v bool) {
	status := "no"
	if v {
		status = "yes"
	}
	fmt.Fprintf(b, "%s: %s\n", name, status)
}

var kindLabels = map[InterfaceKind]string{
	KindBuiltinWifi:     "Built-in Wi-Fi",
	KindUSBWifi:         "USB Wi-Fi Adapter",
	KindEthernet:        "Ethernet",
	KindMobileBroadband: "Mobile Broadband",
	KindPhoneTether:     "Phone (USB Tether)",
	KindVPNTunnel:       "VPN Tunnel",
	KindBridge:          "Bridge",
}

// Label renders an operator-facing line for an interface, folding in probe
// results when available:
//
//	USB Wi-Fi Adapter [AP, 5GHz] -> HomeNet (wlan1)
func (ni NetworkInterface) Label(caps *CapabilitySet) string {
	var b strings.Builder

	label, ok := kindLabels[ni.Kind]
	if !ok {
		label = "Network Interface"
	}
	b.WriteString(label)

	if caps != nil {
		var tags []string
		if caps.SupportsAP {
			tags = append(tags, "AP")
		}
		if caps.Supports5GHz {
			tags = append(tags, "5GHz")
		}
		if caps.RFKill.Blocked() {
			tags = append(tags, "rfkill")
		}
		if len(tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(tags, ", "))
		}
	}

	switch {
	case ni.Connection != "":
		fmt.Fprintf(&b, " -> %s", ni.Connection)
	case !ni.Up:
		b.WriteString(" (down)")
	}

	fmt.Fprintf(&b, " (%s)", ni.Name)
	return b.String()
}

// String summarizes a verdict with remedies for each failing rule.
func (v SafetyVerdict) String() string {
	var b strings.Builder

	if v.Allowed {
		b.WriteString("allowed")
	} else {
		b.WriteString("blocked")
		for _, r := range v.Reasons {
			fmt.Fprintf(&b, "\n  %s: %s", r, r.Remedy())
		}
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "\n  warning: %s", w)
	}
	return b.String()
}
