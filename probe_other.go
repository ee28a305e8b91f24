//go:build !linux

package hotspot

import "context"

// ProbeCapabilities queries a wireless interface's capabilities.
// On non-Linux platforms it always fails.
func ProbeCapabilities(_ context.Context, _ Runner, _ string) (*CapabilitySet, error) {
	return nil, ErrUnsupportedPlatform
}

// ProbeAll probes several interfaces concurrently.
// On non-Linux platforms it always fails.
func ProbeAll(_ context.Context, _ Runner, _ []string) (map[string]*CapabilitySet, error) {
	return nil, ErrUnsupportedPlatform
}

// CountClients returns the number of associated stations.
// On non-Linux platforms the answer is always zero.
func CountClients(_ context.Context, _ Runner, _ string) int {
	return 0
}

// KernelRelease returns the running kernel release string.
// On non-Linux platforms it is empty.
func KernelRelease() string {
	return ""
}
