package hotspot

import (
	"context"
	"regexp"
	"strings"
)

var routeDevRe = regexp.MustCompile(`\bdev\s+(\S+)`)

// DetectUpstream finds the interface currently providing internet using the
// kernel's routing decision. With excludeVPN set, tunnel interfaces are
// skipped in favor of the underlying physical route. Returns an empty name
// (and no error) when no default route exists.
func DetectUpstream(ctx context.Context, r Runner, excludeVPN bool) (string, error) {
	if !excludeVPN {
		// Trust the kernel: ask it where a public address would egress.
		// This naturally includes an active VPN.
		out, err := r.Run(ctx, "ip", "route", "get", "1.1.1.1")
		if err == nil {
			if dev := parseRouteDev(out); dev != "" {
				return dev, nil
			}
		}
		out, err = r.Run(ctx, "ip", "-4", "route", "show", "default")
		if err != nil {
			return "", nil
		}
		devs := parseRouteDevs(out)
		if len(devs) > 0 {
			return devs[0], nil
		}
		return "", nil
	}

	// excludeVPN: hunt for a physical default route by name prefix.
	out, err := r.Run(ctx, "ip", "-4", "route", "show", "default")
	if err != nil {
		return "", nil
	}
	candidates := parseRouteDevs(out)

	for _, dev := range candidates {
		if !hasVPNPrefix(dev) {
			return dev, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return "", nil
}

// DetectVPNInterface returns the name of the active tunnel interface the
// default route egresses through, or empty when traffic is not VPN-routed.
func DetectVPNInterface(ctx context.Context, r Runner) (string, error) {
	dev, err := DetectUpstream(ctx, r, false)
	if err != nil {
		return "", err
	}
	if dev != "" && hasVPNPrefix(dev) {
		return dev, nil
	}
	return "", nil
}

func parseRouteDev(out string) string {
	m := routeDevRe.FindStringSubmatch(out)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}

func parseRouteDevs(out string) []string {
	var devs []string
	for _, line := range strings.Split(out, "\n") {
		if dev := parseRouteDev(line); dev != "" {
			devs = append(devs, dev)
		}
	}
	return devs
}
