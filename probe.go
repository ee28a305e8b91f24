//go:build linux

package hotspot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// ProbeCapabilities queries a wireless interface's capabilities: rfkill
// state, supported and current modes, band support, and the concurrent
// interface combination matrix. Read-only; never mutates interface mode.
//
// Returns ErrDeviceUnreachable (wrapped) when the interface vanishes
// mid-probe; callers treat that as "assume not capable".
func ProbeCapabilities(ctx context.Context, r Runner, iface string) (*CapabilitySet, error) {
	cs := &CapabilitySet{Interface: iface, Mode: ModeUnknown}

	devInfo, err := r.Run(ctx, "iw", "dev", iface, "info")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnreachable, iface, err)
	}
	cs.Phy, cs.Mode = parseIwDevInfo(devInfo)

	if cs.Phy != "" {
		phyInfo, err := r.Run(ctx, "iw", "phy", cs.Phy, "info")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnreachable, iface, err)
		}
		cs.SupportsAP = parsePhyModes(phyInfo)
		cs.Supports24GHz, cs.Supports5GHz = parsePhyBands(phyInfo)
		cs.Combinations = ParseCombinations(phyInfo)
	}

	// rfkill probing is best-effort: when the tool is missing the state
	// stays unblocked, matching the tool-unavailable behavior of the rest
	// of the probe surface.
	if rfkillOut, err := r.Run(ctx, "rfkill", "list"); err == nil {
		cs.RFKill = rfkillStateFor(parseRFKillList(rfkillOut), cs.Phy)
	}

	return cs, nil
}

// ProbeAll probes several interfaces concurrently. Probes are read-only and
// uncorrelated, so they may overlap. An interface that vanishes mid-probe
// yields an empty (not-capable) capability set instead of failing the
// whole operation.
func ProbeAll(ctx context.Context, r Runner, ifaces []string) (map[string]*CapabilitySet, error) {
	results := make(map[string]*CapabilitySet, len(ifaces))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, iface := range ifaces {
		g.Go(func() error {
			cs, err := ProbeCapabilities(ctx, r, iface)
			if err != nil {
				if errors.Is(err, ErrDeviceUnreachable) {
					cs = &CapabilitySet{Interface: iface, Mode: ModeUnknown}
				} else {
					return err
				}
			}
			mu.Lock()
			results[iface] = cs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CountClients returns the number of stations associated with the AP
// interface. Errors count as zero: the value feeds status reporting only.
func CountClients(ctx context.Context, r Runner, iface string) int {
	out, err := r.Run(ctx, "iw", "dev", iface, "station", "dump")
	if err != nil {
		return 0
	}
	return countStations(out)
}

// KernelRelease returns the running kernel release string for diagnostics.
func KernelRelease() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uname.Release[:])
}
