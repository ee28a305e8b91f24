//go:build !linux

package hotspot

// ForwardingControl toggles kernel IPv4 forwarding and remembers the value
// it found, so teardown restores the host's policy instead of forcing it
// off.
type ForwardingControl interface {
	Enable() error
	Restore() error
}

type noForwarding struct{}

// NewForwardingControl returns a ForwardingControl backed by procfs.
func NewForwardingControl() ForwardingControl {
	return noForwarding{}
}

func (noForwarding) Enable() error  { return ErrUnsupportedPlatform }
func (noForwarding) Restore() error { return nil }
