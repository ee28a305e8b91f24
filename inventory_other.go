//go:build !linux

package hotspot

import "context"

// ListInterfaces enumerates network interfaces via NetworkManager.
// On non-Linux platforms it always fails.
func ListInterfaces(_ context.Context, _ Runner) ([]NetworkInterface, error) {
	return nil, ErrUnsupportedPlatform
}
