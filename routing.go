package hotspot

import (
	"context"

	"github.com/mintwifi/hotspot/firewall"
)

// RoutingPlan is the ordered rule set that routes AP-subnet traffic out of
// one egress interface. Rules apply in slice order and tear down in reverse.
// The NAT rule is always pinned to the literal egress name, never a
// wildcard: when that interface vanishes, nothing matches and traffic
// drops instead of leaking through another path. Regenerating the plan is
// the only way to move traffic to a new egress.
type RoutingPlan struct {
	// HotspotInterface is the AP-side interface.
	HotspotInterface string
	// Egress is the literal internet-source interface every rule is bound to.
	Egress string
	// VPNPinned is true when Egress was resolved to a VPN tunnel.
	VPNPinned bool
	Rules     []firewall.Rule
}

// BuildPlan generates the routing plan for a session against the current
// inventory. With VPN routing enabled, egress resolves to the active VPN
// tunnel (preferring the session's pinned name while it still exists);
// otherwise the session's internet source is used as-is. Fails with
// ErrNoInternetSource when neither yields an egress interface.
func BuildPlan(s *Session, inv []NetworkInterface) (*RoutingPlan, error) {
	egress, vpn := resolveEgress(s, inv)
	if egress == "" {
		return nil, ErrNoInternetSource
	}

	p := &RoutingPlan{
		HotspotInterface: s.HotspotInterface,
		Egress:           egress,
		VPNPinned:        vpn,
	}

	// NAT: masquerade everything leaving through the egress interface.
	p.Rules = append(p.Rules, firewall.Rule{
		Table:   firewall.TableNAT,
		Chain:   firewall.ChainPostrouting,
		Out:     egress,
		Verdict: firewall.VerdictMasquerade,
	})

	switch s.MACFilter.Mode {
	case MACModeAllow:
		// Allow-list: only listed clients may forward; everything else from
		// the AP side hits the trailing drop.
		for _, mac := range s.MACFilter.Addrs {
			p.Rules = append(p.Rules, firewall.Rule{
				Table:     firewall.TableFilter,
				Chain:     firewall.ChainForward,
				In:        s.HotspotInterface,
				Out:       egress,
				MACSource: mac,
				Verdict:   firewall.VerdictAccept,
			})
		}
	default:
		// Block-list: listed clients are dropped before the general accept.
		for _, mac := range s.MACFilter.Addrs {
			p.Rules = append(p.Rules, firewall.Rule{
				Table:     firewall.TableFilter,
				Chain:     firewall.ChainForward,
				In:        s.HotspotInterface,
				Out:       egress,
				MACSource: mac,
				Verdict:   firewall.VerdictDrop,
			})
		}
		p.Rules = append(p.Rules, firewall.Rule{
			Table:   firewall.TableFilter,
			Chain:   firewall.ChainForward,
			In:      s.HotspotInterface,
			Out:     egress,
			Verdict: firewall.VerdictAccept,
		})
	}

	// Return traffic for established flows.
	p.Rules = append(p.Rules, firewall.Rule{
		Table:     firewall.TableFilter,
		Chain:     firewall.ChainForward,
		In:        egress,
		Out:       s.HotspotInterface,
		ConnState: "RELATED,ESTABLISHED",
		Verdict:   firewall.VerdictAccept,
	})

	// MSS clamping keeps clients working behind PPPoE/VPN uplinks.
	p.Rules = append(p.Rules, firewall.Rule{
		Table:   firewall.TableFilter,
		Chain:   firewall.ChainForward,
		Verdict: firewall.VerdictClampMSS,
	})

	// Default-deny for anything from the AP side that no pinned rule
	// accepted. Scoped to the hotspot interface, not the egress, so it
	// stays in place when the egress vanishes.
	p.Rules = append(p.Rules, firewall.Rule{
		Table:   firewall.TableFilter,
		Chain:   firewall.ChainForward,
		In:      s.HotspotInterface,
		Verdict: firewall.VerdictDrop,
	})

	return p, nil
}

// resolveEgress picks the internet-source interface for the plan.
func resolveEgress(s *Session, inv []NetworkInterface) (name string, vpn bool) {
	if s.VPNRouting {
		// Prefer the session's pinned tunnel while it still exists.
		if s.InternetSource != "" {
			if ni, ok := findInterface(inv, s.InternetSource); ok && ni.Kind == KindVPNTunnel {
				return ni.Name, true
			}
		}
		for _, ni := range inv {
			if ni.Kind == KindVPNTunnel {
				return ni.Name, true
			}
		}
		// No tunnel up: fall back to the configured physical source.
	}
	if s.InternetSource != "" {
		if ni, ok := findInterface(inv, s.InternetSource); ok {
			return s.InternetSource, ni.Kind == KindVPNTunnel
		}
		return s.InternetSource, hasVPNPrefix(s.InternetSource)
	}
	return "", false
}

// Apply installs the plan's rules in order. On failure the already-applied
// prefix is removed in reverse so no partial rule set survives.
func (p *RoutingPlan) Apply(ctx context.Context, fw firewall.Firewall) error {
	for i, rule := range p.Rules {
		if err := fw.AddRule(ctx, rule); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = fw.DeleteRule(ctx, p.Rules[j])
			}
			return &ApplyError{Step: "routing rules", Err: err}
		}
	}
	return nil
}

// Remove tears the plan down in reverse order of application. Errors are
// collected best-effort; the first one is returned after all rules have
// been attempted.
func (p *RoutingPlan) Remove(ctx context.Context, fw firewall.Firewall) error {
	var first error
	for i := len(p.Rules) - 1; i >= 0; i-- {
		if err := fw.DeleteRule(ctx, p.Rules[i]); err != nil && first == nil {
			first = err
		}
	}
	return first
}
