package hotspot

import "fmt"

// EvaluateRequest bundles the inputs of a safety evaluation. All fields are
// snapshots; Evaluate never consults the system.
type EvaluateRequest struct {
	// HotspotInterface is the adapter that would host the AP.
	HotspotInterface string
	// InternetSource is the intended egress interface, empty when isolated.
	InternetSource string
	// Band is the requested frequency band.
	Band Band
	// Inventory is the current interface inventory.
	Inventory []NetworkInterface
	// Capabilities is the probed capability set of the hotspot interface.
	// Nil means the device vanished mid-probe and counts as not capable.
	Capabilities *CapabilitySet
	// ForceSingleInterface overrides the single-adapter lockout.
	ForceSingleInterface bool
}

// Evaluate reduces inventory and capability snapshots to a go/no-go
// verdict. Rules fire in fixed precedence; every failing rule is reported
// so the operator sees all obstacles at once, with the highest-precedence
// reason first. Only the single-adapter lockout can be overridden, and only
// by an explicit force flag, which converts the block into a warning.
//
// Evaluate is pure: identical inputs always yield the identical verdict.
func Evaluate(req EvaluateRequest) SafetyVerdict {
	var v SafetyVerdict

	caps := req.Capabilities
	if caps == nil {
		caps = &CapabilitySet{Interface: req.HotspotInterface, Mode: ModeUnknown}
	}

	// 1. RFKillActive
	if caps.RFKill.Blocked() {
		v.Reasons = append(v.Reasons, BlockRFKillActive)
	}

	// 2. NoAPSupport
	if !caps.SupportsAP {
		v.Reasons = append(v.Reasons, BlockNoAPSupport)
	}

	// 3. MonitorModeActive
	if caps.Mode == ModeMonitor {
		v.Reasons = append(v.Reasons, BlockMonitorModeActive)
	}

	// 4. BandUnsupported
	if !caps.SupportsBand(req.Band) {
		v.Reasons = append(v.Reasons, BlockBandUnsupported)
	}

	// 5. InterfaceDown (a missing interface counts as down)
	entry, present := findInterface(req.Inventory, req.HotspotInterface)
	if !present || !entry.Up {
		v.Reasons = append(v.Reasons, BlockInterfaceDown)
	}

	// 6. SingleAdapterLockout
	if req.InternetSource != "" && req.InternetSource == req.HotspotInterface &&
		present && entry.Kind.IsWifi() {
		group, ok := caps.ConcurrentAPSTA()
		switch {
		case !ok && req.ForceSingleInterface:
			v.Warnings = append(v.Warnings, fmt.Sprintf(
				"forced: %s will host the hotspot and provide internet on one radio; "+
					"the current connection will drop and may not recover",
				req.HotspotInterface))
		case !ok:
			v.Reasons = append(v.Reasons, BlockSingleAdapterLockout)
		case group.SameChannelOnly():
			v.Warnings = append(v.Warnings, fmt.Sprintf(
				"%s supports STA+AP on the same channel only; the hotspot will follow "+
					"the uplink channel", req.HotspotInterface))
		}
	}

	v.Allowed = len(v.Reasons) == 0
	return v
}
