package hotspot

import (
	"net"
	"time"
)

// MACFilterMode selects allow-list or block-list semantics for the MAC
// filter. The modes are mutually exclusive.
type MACFilterMode int

const (
	// MACModeBlock drops traffic from the listed addresses.
	MACModeBlock MACFilterMode = iota
	// MACModeAllow drops everything except the listed addresses.
	MACModeAllow
)

func (m MACFilterMode) String() string {
	if m == MACModeAllow {
		return "allow"
	}
	return "block"
}

// MACFilter is the per-session client MAC policy. An empty block-mode
// filter is a no-op.
type MACFilter struct {
	Mode  MACFilterMode
	Addrs []string
}

// Session holds the configuration of one hotspot session. At most one
// session exists per host process; the lifecycle controller owns it from
// start request to teardown.
type Session struct {
	SSID     string
	Password string
	// HotspotInterface hosts the AP.
	HotspotInterface string
	// InternetSource is the egress interface; empty when VPNRouting should
	// resolve it or when running isolated (no uplink).
	InternetSource string
	Band           Band
	Hidden         bool
	// DNSOverride pushes a custom resolver to clients when set.
	DNSOverride string
	MACFilter   MACFilter
	// VPNRouting pins egress to a detected VPN tunnel when one is active.
	VPNRouting bool
	// AutoOff stops the hotspot this long after start; zero disables the
	// timer. CLI range is 1 to 120 minutes.
	AutoOff time.Duration
	// ForceSingleInterface overrides the single-adapter lockout (see
	// Evaluate).
	ForceSingleInterface bool
}

const (
	minPasswordLen = 8
	maxPasswordLen = 63
	maxSSIDLen     = 32

	// MinAutoOff and MaxAutoOff bound the auto-off timer.
	MinAutoOff = 1 * time.Minute
	MaxAutoOff = 120 * time.Minute
)

// Validate checks the session configuration. It runs before any probing or
// system mutation, so a bad config never touches the host.
func (s *Session) Validate() error {
	if len(s.SSID) < 1 || len(s.SSID) > maxSSIDLen {
		return &ConfigError{Field: "ssid", Reason: "must be between 1 and 32 characters"}
	}
	if len(s.Password) < minPasswordLen {
		return &ConfigError{Field: "password", Reason: "must be at least 8 characters for WPA2"}
	}
	if len(s.Password) > maxPasswordLen {
		return &ConfigError{Field: "password", Reason: "must not exceed 63 characters"}
	}
	if s.HotspotInterface == "" {
		return &ConfigError{Field: "interface", Reason: "hotspot interface is required"}
	}
	if s.AutoOff != 0 && (s.AutoOff < MinAutoOff || s.AutoOff > MaxAutoOff) {
		return &ConfigError{Field: "timer", Reason: "must be between 1 and 120 minutes"}
	}
	if s.DNSOverride != "" && net.ParseIP(s.DNSOverride) == nil {
		return &ConfigError{Field: "dns", Reason: "not a valid IP address"}
	}
	for _, mac := range s.MACFilter.Addrs {
		if _, err := net.ParseMAC(mac); err != nil {
			return &ConfigError{Field: "mac filter", Reason: "invalid MAC address " + mac}
		}
	}
	return nil
}
