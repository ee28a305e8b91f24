package hotspot

import (
	"context"
	"fmt"
	"strings"
)

// apConnectionName is the NetworkManager profile owned by this process.
// Using one fixed name makes startup idempotent: a stale profile from a
// crashed run is deleted before a new one is created.
const apConnectionName = "hotspotd-ap"

// APService drives the access-point side of a session. The lifecycle
// controller only sees this interface, so tests swap in a fake.
type APService interface {
	// StartAP creates and activates the AP profile for the session.
	StartAP(ctx context.Context, s *Session) error
	// StopAP deactivates and deletes the AP profile. Missing profiles are
	// not an error.
	StopAP(ctx context.Context) error
	// ActiveSSID reports the SSID currently served on iface, or "".
	ActiveSSID(ctx context.Context, iface string) (string, error)
}

// NMService implements APService over nmcli.
type NMService struct {
	runner Runner
}

// NewNMService returns an APService backed by NetworkManager.
func NewNMService(r Runner) *NMService {
	return &NMService{runner: r}
}

func (n *NMService) StartAP(ctx context.Context, s *Session) error {
	// The Wi-Fi radio must be up before a profile can activate.
	if _, err := n.runner.Run(ctx, "nmcli", "radio", "wifi", "on"); err != nil {
		return &ApplyError{Step: "enable wifi radio", Err: err}
	}

	// Clear any profile left behind by a previous run.
	_, _ = n.runner.Run(ctx, "nmcli", "connection", "delete", apConnectionName)

	if _, err := n.runner.Run(ctx, "nmcli", "connection", "add",
		"type", "wifi",
		"ifname", s.HotspotInterface,
		"con-name", apConnectionName,
		"autoconnect", "no",
		"ssid", s.SSID,
	); err != nil {
		return &ApplyError{Step: "create ap profile", Err: err}
	}

	mods := []string{"connection", "modify", apConnectionName,
		"802-11-wireless.mode", "ap",
		"802-11-wireless.band", s.Band.NMMode(),
		"ipv4.method", "shared",
		"wifi-sec.key-mgmt", "wpa-psk",
		"wifi-sec.psk", s.Password,
	}
	if s.Hidden {
		mods = append(mods, "802-11-wireless.hidden", "yes")
	}
	if s.DNSOverride != "" {
		mods = append(mods,
			"ipv4.dns", s.DNSOverride,
			"ipv4.ignore-auto-dns", "yes",
		)
	}
	if _, err := n.runner.Run(ctx, "nmcli", mods...); err != nil {
		n.cleanup(ctx)
		return &ApplyError{Step: "configure ap profile", Err: err}
	}

	if _, err := n.runner.Run(ctx, "nmcli", "connection", "up", apConnectionName); err != nil {
		n.cleanup(ctx)
		return &ApplyError{Step: "activate ap profile", Err: err}
	}
	return nil
}

func (n *NMService) StopAP(ctx context.Context) error {
	// Down may fail when the profile is already inactive; delete is what
	// matters.
	_, _ = n.runner.Run(ctx, "nmcli", "connection", "down", apConnectionName)
	if out, err := n.runner.Run(ctx, "nmcli", "connection", "delete", apConnectionName); err != nil {
		if strings.Contains(out, "unknown connection") || strings.Contains(out, "not found") {
			return nil
		}
		return fmt.Errorf("delete ap profile: %w", err)
	}
	return nil
}

func (n *NMService) ActiveSSID(ctx context.Context, iface string) (string, error) {
	out, err := n.runner.Run(ctx, "nmcli", "-t", "-f", "active,ssid", "device", "wifi", "list", "ifname", iface)
	if err != nil {
		return "", err
	}
	return parseActiveSSID(out), nil
}

func (n *NMService) cleanup(ctx context.Context) {
	_, _ = n.runner.Run(ctx, "nmcli", "connection", "delete", apConnectionName)
}

// parseActiveSSID extracts the SSID flagged active from terse
// "active:ssid" nmcli output.
func parseActiveSSID(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "yes:")
		if !ok {
			continue
		}
		return rest
	}
	return ""
}
