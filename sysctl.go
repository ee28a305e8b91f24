//go:build linux

package hotspot

import (
	"bytes"
	"fmt"
	"os"
)

const ipForwardPath = "/proc/sys/net/ipv4/ip_forward"

// ForwardingControl toggles kernel IPv4 forwarding and remembers the value
// it found, so teardown restores the host's policy instead of forcing it
// off.
type ForwardingControl interface {
	Enable() error
	Restore() error
}

type procForwarding struct {
	path     string
	previous []byte
	touched  bool
}

// NewForwardingControl returns a ForwardingControl backed by procfs.
func NewForwardingControl() ForwardingControl {
	return &procForwarding{path: ipForwardPath}
}

func (p *procForwarding) Enable() error {
	prev, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", p.path, err)
	}
	p.previous = bytes.TrimSpace(prev)
	if string(p.previous) == "1" {
		// Forwarding already on; nothing to restore later.
		return nil
	}
	if err := os.WriteFile(p.path, []byte("1\n"), 0o644); err != nil {
		return fmt.Errorf("enable ip forwarding: %w", err)
	}
	p.touched = true
	return nil
}

func (p *procForwarding) Restore() error {
	if !p.touched {
		return nil
	}
	if err := os.WriteFile(p.path, append(p.previous, '\n'), 0o644); err != nil {
		return fmt.Errorf("restore ip forwarding: %w", err)
	}
	p.touched = false
	return nil
}
