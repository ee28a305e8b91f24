// Package firewall applies routing-plan rules through a pluggable backend:
// iptables command invocation or native nftables netlink. Backends are
// idempotent: adding a rule that is already present is a no-op, so a plan
// can be re-applied without duplicating entries.
package firewall

import "context"

// Verdict is the action a rule takes on matching traffic.
type Verdict string

const (
	VerdictAccept     Verdict = "ACCEPT"
	VerdictDrop       Verdict = "DROP"
	VerdictMasquerade Verdict = "MASQUERADE"
	// VerdictClampMSS rewrites the TCP MSS option to the path MTU on SYN
	// packets, keeping tunneled uplinks usable for clients.
	VerdictClampMSS Verdict = "CLAMPMSS"
)

// Table selects the netfilter table a rule lives in.
type Table string

const (
	TableNAT    Table = "nat"
	TableFilter Table = "filter"
)

// Chain selects the netfilter chain a rule lives in.
type Chain string

const (
	ChainPostrouting Chain = "POSTROUTING"
	ChainForward     Chain = "FORWARD"
)

// Rule is one structured firewall rule. Interface selectors are always
// literal device names; the empty string means "no constraint" and is only
// ever used for the MSS clamp and the fallback drop.
type Rule struct {
	Table Table
	Chain Chain
	// In and Out are literal ingress/egress interface names.
	In  string
	Out string
	// ConnState matches connection-tracking states, e.g. "RELATED,ESTABLISHED".
	ConnState string
	// MACSource matches the client's source MAC address.
	MACSource string
	Verdict   Verdict
}

// IptablesArgs renders the rule's match and target arguments in iptables
// order. The table and chain are composed separately by the backend.
func (r Rule) IptablesArgs() []string {
	var args []string
	if r.In != "" {
		args = append(args, "-i", r.In)
	}
	if r.Out != "" {
		args = append(args, "-o", r.Out)
	}
	if r.Verdict == VerdictClampMSS {
		return append(args,
			"-p", "tcp", "--tcp-flags", "SYN,RST", "SYN",
			"-j", "TCPMSS", "--clamp-mss-to-pmtu")
	}
	if r.MACSource != "" {
		args = append(args, "-m", "mac", "--mac-source", r.MACSource)
	}
	if r.ConnState != "" {
		args = append(args, "-m", "state", "--state", r.ConnState)
	}
	return append(args, "-j", string(r.Verdict))
}

// Runner executes an external command and returns its combined output. It
// matches the root package's runner so the same implementation serves both.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	// Backend is "iptables" (default) or "nftables".
	Backend string
	// Runner executes iptables commands; required for the iptables backend.
	Runner Runner
}

// Firewall is the interface rule application goes through.
type Firewall interface {
	// AddRule installs a rule; installing an already-present rule is a no-op.
	AddRule(ctx context.Context, rule Rule) error

	// DeleteRule removes a rule; removing an absent rule is a no-op.
	DeleteRule(ctx context.Context, rule Rule) error

	// Close releases backend resources.
	Close() error
}
