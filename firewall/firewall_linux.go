//go:build linux

package firewall

import "fmt"

// New creates a firewall instance for the configured backend.
func New(cfg *Config) (Firewall, error) {
	switch cfg.Backend {
	case "nftables":
		return NewNftablesFirewall(cfg)
	case "iptables", "":
		return NewIptablesFirewall(cfg)
	default:
		return nil, fmt.Errorf("unknown firewall backend: %s", cfg.Backend)
	}
}
