package hotspot

import "errors"

// ErrNoAPCandidate is returned when no Wi-Fi interface in the inventory can
// serve as the access point.
var ErrNoAPCandidate = errors.New("no AP-capable wifi interface found")

// Selection is the result of automatic interface picking.
type Selection struct {
	// Hotspot is the interface that will serve the access point.
	Hotspot string
	// InternetSource is the interface whose connectivity is shared.
	InternetSource string
	// SingleAdapter is true when Hotspot is also the host's only path to
	// the internet.
	SingleAdapter bool
	Warnings      []string
}

// SelectInterfaces picks a hotspot interface and an internet source without
// user input. USB Wi-Fi adapters with AP support win over built-in chips,
// so the internal adapter can keep its upstream association. Wired,
// mobile-broadband and tethered interfaces that carry internet win as the
// source; a Wi-Fi source is the last resort.
func SelectInterfaces(inv []NetworkInterface, caps map[string]*CapabilitySet) (*Selection, error) {
	hotspot := pickHotspot(inv, caps)
	if hotspot == "" {
		return nil, ErrNoAPCandidate
	}

	sel := &Selection{Hotspot: hotspot}
	sel.InternetSource = pickSource(inv, hotspot)

	if sel.InternetSource == hotspot || (sel.InternetSource == "" && carriesInternet(inv, hotspot)) {
		sel.InternetSource = hotspot
		sel.SingleAdapter = true
		sel.Warnings = append(sel.Warnings,
			"hotspot interface is also the internet source; starting will drop the upstream connection")
	}
	return sel, nil
}

func pickHotspot(inv []NetworkInterface, caps map[string]*CapabilitySet) string {
	var fallback string
	for _, ni := range inv {
		if !ni.Kind.IsWifi() {
			continue
		}
		cs := caps[ni.Name]
		if cs == nil || !cs.SupportsAP {
			continue
		}
		if ni.Kind == KindUSBWifi {
			return ni.Name
		}
		if fallback == "" {
			fallback = ni.Name
		}
	}
	return fallback
}

func pickSource(inv []NetworkInterface, hotspot string) string {
	// Preference order for sharing: wired, mobile broadband, phone tether,
	// then any other connected interface.
	preferred := []InterfaceKind{KindEthernet, KindMobileBroadband, KindPhoneTether}
	for _, kind := range preferred {
		for _, ni := range inv {
			if ni.Name != hotspot && ni.Kind == kind && ni.CarriesInternet {
				return ni.Name
			}
		}
	}
	for _, ni := range inv {
		if ni.Name != hotspot && ni.Kind != KindVPNTunnel && ni.CarriesInternet {
			return ni.Name
		}
	}
	if carriesInternet(inv, hotspot) {
		return hotspot
	}
	return ""
}

func carriesInternet(inv []NetworkInterface, name string) bool {
	ni, ok := findInterface(inv, name)
	return ok && ni.CarriesInternet
}
