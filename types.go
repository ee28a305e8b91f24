package hotspot

import "fmt"

// InterfaceKind classifies a network interface by driver/bus metadata and
// naming convention. Classification is a pure function over snapshot data
// (see classifyKind); it is not configurable.
type InterfaceKind int

const (
	// KindUnknown is the fallback when no heuristic matches.
	KindUnknown InterfaceKind = iota
	// KindBuiltinWifi is a PCI(e)-attached wireless adapter.
	KindBuiltinWifi
	// KindUSBWifi is a USB-attached wireless adapter.
	KindUSBWifi
	// KindEthernet is a wired adapter.
	KindEthernet
	// KindMobileBroadband is a WWAN/LTE modem.
	KindMobileBroadband
	// KindPhoneTether is a phone exposing a network interface over USB.
	KindPhoneTether
	// KindVPNTunnel is a tunnel interface (tun/tap/wg/ppp).
	KindVPNTunnel
	// KindBridge is a software bridge.
	KindBridge
)

var kindNames = map[InterfaceKind]string{
	KindUnknown:         "unknown",
	KindBuiltinWifi:     "built-in wifi",
	KindUSBWifi:         "usb wifi",
	KindEthernet:        "ethernet",
	KindMobileBroadband: "mobile broadband",
	KindPhoneTether:     "phone tether",
	KindVPNTunnel:       "vpn tunnel",
	KindBridge:          "bridge",
}

func (k InterfaceKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("InterfaceKind(%d)", k)
}

// IsWifi returns true for wireless adapter kinds.
func (k InterfaceKind) IsWifi() bool {
	return k == KindBuiltinWifi || k == KindUSBWifi
}

// NetworkInterface is one entry of the interface inventory. It is a
// point-in-time snapshot: re-enumerated on every refresh, never persisted.
type NetworkInterface struct {
	// Name is the kernel device name (e.g. "wlan0").
	Name string
	// Kind is the classified interface kind.
	Kind InterfaceKind
	// Up reports the administrative state.
	Up bool
	// Connection is the name of the network the interface is connected to,
	// empty when disconnected.
	Connection string
	// CarriesInternet is true when the kernel's default route egresses here.
	CarriesInternet bool
}

// Band is a Wi-Fi frequency band.
type Band int

const (
	// Band24GHz is the 2.4 GHz band (hostapd/nmcli mode "bg").
	Band24GHz Band = iota
	// Band5GHz is the 5 GHz band (hostapd/nmcli mode "a").
	Band5GHz
)

func (b Band) String() string {
	switch b {
	case Band24GHz:
		return "2.4 GHz"
	case Band5GHz:
		return "5 GHz"
	default:
		return fmt.Sprintf("Band(%d)", b)
	}
}

// NMMode returns the NetworkManager 802-11-wireless.band value for the band.
func (b Band) NMMode() string {
	if b == Band5GHz {
		return "a"
	}
	return "bg"
}

// WifiMode is the current operating mode of a wireless interface.
type WifiMode int

const (
	// ModeUnknown means the mode could not be determined.
	ModeUnknown WifiMode = iota
	// ModeManaged is the ordinary client (station) mode.
	ModeManaged
	// ModeAP is access-point mode.
	ModeAP
	// ModeMonitor is passive monitor mode.
	ModeMonitor
)

func (m WifiMode) String() string {
	switch m {
	case ModeManaged:
		return "managed"
	case ModeAP:
		return "AP"
	case ModeMonitor:
		return "monitor"
	default:
		return "unknown"
	}
}

// RFKillState reports hardware and software radio kill-switch state.
type RFKillState struct {
	Hard bool
	Soft bool
}

// Blocked returns true if the radio is blocked by either switch.
func (s RFKillState) Blocked() bool {
	return s.Hard || s.Soft
}

// RoleLimit is one "#{ roles } <= n" constraint inside a valid-interface
// combination entry reported by the driver.
type RoleLimit struct {
	// Roles are iw role names, e.g. "managed", "AP", "P2P-GO".
	Roles []string
	// Max is the maximum simultaneous interface count for these roles.
	Max int
}

// ConcurrencyGroup is one entry of the radio's combination matrix: a set of
// interface roles the hardware can run simultaneously, with a total count
// and a channel constraint.
type ConcurrencyGroup struct {
	Limits []RoleLimit
	// MaxTotal is the maximum simultaneous interface count over all roles.
	MaxTotal int
	// MaxChannels is the number of distinct channels the combination may
	// occupy (0 when the driver does not report it).
	MaxChannels int
}

// SameChannelOnly reports whether every member of the combination must
// operate on an identical channel.
func (g ConcurrencyGroup) SameChannelOnly() bool {
	return g.MaxChannels == 1
}

// allowsRole reports whether the combination includes the given iw role.
func (g ConcurrencyGroup) allowsRole(role string) bool {
	for _, l := range g.Limits {
		for _, r := range l.Roles {
			if r == role {
				return true
			}
		}
	}
	return false
}

// SupportsConcurrentAPSTA reports whether this combination can run a station
// and an access point at the same time.
func (g ConcurrencyGroup) SupportsConcurrentAPSTA() bool {
	return g.MaxTotal >= 2 && g.allowsRole("managed") && g.allowsRole("AP")
}

// CapabilitySet is the probed capability snapshot of one wireless interface.
// It is derived fresh per decision and never cached across sessions:
// rfkill switches and mode changes can flip at runtime.
type CapabilitySet struct {
	// Interface is the device name the set was probed for.
	Interface string
	// Phy is the underlying physical radio (e.g. "phy0"), empty if unknown.
	Phy string
	// SupportsAP is true when the radio lists AP in its supported modes.
	SupportsAP bool
	// Supports24GHz / Supports5GHz report band capability.
	Supports24GHz bool
	Supports5GHz  bool
	// Mode is the interface's current operating mode.
	Mode WifiMode
	// RFKill is the radio's kill-switch state.
	RFKill RFKillState
	// Combinations is the parsed valid-interface-combinations matrix.
	Combinations []ConcurrencyGroup
}

// SupportsBand reports whether the radio can transmit on the given band.
func (c *CapabilitySet) SupportsBand(b Band) bool {
	if b == Band5GHz {
		return c.Supports5GHz
	}
	return c.Supports24GHz
}

// ConcurrentAPSTA returns the first combination allowing simultaneous
// station and AP operation, if any.
func (c *CapabilitySet) ConcurrentAPSTA() (ConcurrencyGroup, bool) {
	for _, g := range c.Combinations {
		if g.SupportsConcurrentAPSTA() {
			return g, true
		}
	}
	return ConcurrencyGroup{}, false
}

// BlockReason identifies why the safety evaluator refused to start a hotspot.
type BlockReason int

const (
	// BlockRFKillActive: the radio is disabled by a hardware or software switch.
	BlockRFKillActive BlockReason = iota
	// BlockNoAPSupport: the adapter cannot operate in access-point mode.
	BlockNoAPSupport
	// BlockMonitorModeActive: the interface is in monitor mode.
	BlockMonitorModeActive
	// BlockBandUnsupported: the requested band is not supported by the radio.
	BlockBandUnsupported
	// BlockInterfaceDown: the interface is administratively down or missing.
	BlockInterfaceDown
	// BlockSingleAdapterLockout: hotspot and internet source are the same
	// adapter and the radio cannot run STA+AP concurrently. The only
	// overridable reason.
	BlockSingleAdapterLockout
)

var blockReasonNames = map[BlockReason]string{
	BlockRFKillActive:         "rfkill-active",
	BlockNoAPSupport:          "no-ap-support",
	BlockMonitorModeActive:    "monitor-mode-active",
	BlockBandUnsupported:      "band-unsupported",
	BlockInterfaceDown:        "interface-down",
	BlockSingleAdapterLockout: "single-adapter-lockout",
}

func (r BlockReason) String() string {
	if name, ok := blockReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("BlockReason(%d)", r)
}

// Overridable reports whether the operator may force past this reason.
// Only the single-adapter lockout can be overridden.
func (r BlockReason) Overridable() bool {
	return r == BlockSingleAdapterLockout
}

// Remedy returns an operator-facing explanation of how to clear the block.
func (r BlockReason) Remedy() string {
	switch r {
	case BlockRFKillActive:
		return "radio is kill-switched; check the physical Wi-Fi switch or run: rfkill unblock wifi"
	case BlockNoAPSupport:
		return "adapter does not support AP mode; use a different Wi-Fi adapter"
	case BlockMonitorModeActive:
		return "interface is in monitor mode; switch it back to managed mode first"
	case BlockBandUnsupported:
		return "adapter does not support the requested band; select 2.4 GHz instead"
	case BlockInterfaceDown:
		return "interface is down; bring it up or check the driver"
	case BlockSingleAdapterLockout:
		return "the only adapter both provides internet and would host the hotspot; " +
			"connect via ethernet, add a second adapter, or pass --force-single-interface"
	default:
		return "not startable"
	}
}

// SafetyVerdict is the outcome of a safety evaluation.
type SafetyVerdict struct {
	// Allowed is true when the hotspot may be started.
	Allowed bool
	// Reasons lists the failing rules in precedence order. Empty when allowed.
	Reasons []BlockReason
	// Warnings are non-fatal annotations (forced overrides, same-channel
	// constraints) surfaced to the operator.
	Warnings []string
}
