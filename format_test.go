package hotspot

import (
	"strings"
	"testing"
)

func TestCapabilitySetString(t *testing.T) {
	c := &CapabilitySet{
		Interface:     "wlan1",
		Phy:           "phy1",
		SupportsAP:    true,
		Supports24GHz: true,
		Mode:          ModeManaged,
		RFKill:        RFKillState{Soft: true},
		Combinations: []ConcurrencyGroup{{
			Limits:      []RoleLimit{{Roles: []string{"managed"}, Max: 1}, {Roles: []string{"AP"}, Max: 1}},
			MaxTotal:    2,
			MaxChannels: 1,
		}},
	}
	out := c.String()
	for _, want := range []string{
		"Interface: wlan1 (phy1)",
		"AP mode: yes",
		"5 GHz: no",
		"soft-blocked",
		"same channel only",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInterfaceLabel(t *testing.T) {
	tests := []struct {
		name string
		ni   NetworkInterface
		caps *CapabilitySet
		want string
	}{
		{
			"usb adapter with caps",
			NetworkInterface{Name: "wlan1", Kind: KindUSBWifi, Up: true, Connection: "HomeNet"},
			&CapabilitySet{SupportsAP: true, Supports5GHz: true},
			"USB Wi-Fi Adapter [AP, 5GHz] -> HomeNet (wlan1)",
		},
		{
			"down ethernet",
			NetworkInterface{Name: "enp3s0", Kind: KindEthernet},
			nil,
			"Ethernet (down) (enp3s0)",
		},
		{
			"tunnel",
			NetworkInterface{Name: "wg0", Kind: KindVPNTunnel, Up: true, Connection: "office"},
			nil,
			"VPN Tunnel -> office (wg0)",
		},
		{
			"rfkilled builtin",
			NetworkInterface{Name: "wlan0", Kind: KindBuiltinWifi, Up: true},
			&CapabilitySet{SupportsAP: true, RFKill: RFKillState{Hard: true}},
			"Built-in Wi-Fi [AP, rfkill] (wlan0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ni.Label(tt.caps); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSafetyVerdictString(t *testing.T) {
	allowed := SafetyVerdict{Allowed: true}
	if got := allowed.String(); got != "allowed" {
		t.Errorf("got %q", got)
	}

	blocked := SafetyVerdict{Reasons: []BlockReason{BlockRFKillActive}}
	out := blocked.String()
	if !strings.Contains(out, "blocked") || !strings.Contains(out, "rfkill unblock wifi") {
		t.Errorf("blocked verdict missing remedy:\n%s", out)
	}
}
