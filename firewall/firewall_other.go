//go:build !linux

package firewall

import "errors"

// New creates a firewall instance for the configured backend.
// Only Linux has a netfilter to talk to.
func New(cfg *Config) (Firewall, error) {
	return nil, errors.New("firewall requires Linux")
}
