//go:build linux

package hotspot

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ListInterfaces enumerates network interfaces via NetworkManager and sysfs.
// Read-only; fails only with ErrServiceUnavailable when NetworkManager
// cannot be queried, which is fatal to any subsequent decision.
func ListInterfaces(ctx context.Context, r Runner) ([]NetworkInterface, error) {
	if _, err := exec.LookPath("nmcli"); err != nil {
		return nil, fmt.Errorf("%w: nmcli not found", ErrServiceUnavailable)
	}

	running, err := r.Run(ctx, "nmcli", "-t", "-f", "RUNNING", "general")
	if err != nil || strings.TrimSpace(running) != "running" {
		return nil, ErrServiceUnavailable
	}

	out, err := r.Run(ctx, "nmcli", "-t", "-f", "DEVICE,TYPE,STATE,CONNECTION", "device")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	devices := parseDeviceList(out)
	for i := range devices {
		fillBusInfo(&devices[i])
	}

	// Upstream detection is best-effort; an empty result just leaves every
	// CarriesInternet flag false.
	upstream, _ := DetectUpstream(ctx, r, false)

	inventory := make([]NetworkInterface, 0, len(devices))
	for _, d := range devices {
		inventory = append(inventory, snapshotToInterface(d, upstream))
	}
	return inventory, nil
}

// fillBusInfo resolves bus and driver metadata from sysfs. Missing entries
// (virtual devices have no device link) leave the fields at their zero
// values.
func fillBusInfo(s *deviceSnapshot) {
	devPath, err := filepath.EvalSymlinks("/sys/class/net/" + s.Name + "/device")
	if err == nil {
		s.USB = strings.Contains(devPath, "/usb")
		s.PCI = strings.Contains(devPath, "/pci") && !s.USB
	}

	driverPath, err := filepath.EvalSymlinks("/sys/class/net/" + s.Name + "/device/driver")
	if err == nil {
		s.Driver = filepath.Base(driverPath)
	}
}
