package firewall

import (
	"context"
	"fmt"
	"sync"
)

// IptablesFirewall implements Firewall by invoking the iptables binary.
// Plan rules never go into the built-in chains directly: each built-in
// chain gets an owned HOTSPOTD_* chain jumped from position 1, so the
// rules outrank terminal REJECT/DROP entries that firewalld or Docker
// leave in FORWARD. Within the owned chain rules are appended, preserving
// plan order. Idempotency relies on `iptables -C`: a rule is only added
// when the check says it is absent, so re-applying a plan duplicates
// nothing.
type IptablesFirewall struct {
	runner Runner

	mu sync.Mutex
	// ready tracks table/chain pairs whose owned chain and jump exist.
	ready map[string]bool
}

// NewIptablesFirewall creates an iptables-backed firewall.
func NewIptablesFirewall(cfg *Config) (*IptablesFirewall, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("iptables backend requires a command runner")
	}
	return &IptablesFirewall{
		runner: cfg.Runner,
		ready:  make(map[string]bool),
	}, nil
}

// ownChain names the chain this process owns inside a built-in chain.
func ownChain(c Chain) string {
	return "HOTSPOTD_" + string(c)
}

// ensureChain creates the owned chain and hooks it into the built-in chain
// at position 1. Both steps tolerate leftovers from a previous run.
func (f *IptablesFirewall) ensureChain(ctx context.Context, table Table, chain Chain) error {
	key := string(table) + "/" + string(chain)
	if f.ready[key] {
		return nil
	}

	own := ownChain(chain)
	if _, err := f.runner.Run(ctx, "iptables", "-t", string(table), "-N", own); err != nil {
		// -N fails when the chain survived a crash; flush it so stale rules
		// cannot shadow the new plan.
		if _, ferr := f.runner.Run(ctx, "iptables", "-t", string(table), "-F", own); ferr != nil {
			return fmt.Errorf("create chain %s: %w", own, err)
		}
	}

	if _, err := f.runner.Run(ctx, "iptables", "-t", string(table), "-C", string(chain), "-j", own); err != nil {
		if _, err := f.runner.Run(ctx, "iptables", "-t", string(table), "-I", string(chain), "1", "-j", own); err != nil {
			return fmt.Errorf("hook chain %s: %w", own, err)
		}
	}

	f.ready[key] = true
	return nil
}

func (f *IptablesFirewall) AddRule(ctx context.Context, rule Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureChain(ctx, rule.Table, rule.Chain); err != nil {
		return err
	}
	if _, err := f.runner.Run(ctx, "iptables", f.args("-C", rule)...); err == nil {
		// Already present.
		return nil
	}
	if _, err := f.runner.Run(ctx, "iptables", f.args("-A", rule)...); err != nil {
		return fmt.Errorf("add rule: %w", err)
	}
	return nil
}

func (f *IptablesFirewall) DeleteRule(ctx context.Context, rule Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.runner.Run(ctx, "iptables", f.args("-C", rule)...); err != nil {
		// Not present.
		return nil
	}
	if _, err := f.runner.Run(ctx, "iptables", f.args("-D", rule)...); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// Close unhooks and deletes the owned chains, best-effort.
func (f *IptablesFirewall) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx := context.Background()
	var first error
	for _, hook := range []struct {
		table Table
		chain Chain
	}{
		{TableNAT, ChainPostrouting},
		{TableFilter, ChainForward},
	} {
		key := string(hook.table) + "/" + string(hook.chain)
		if !f.ready[key] {
			continue
		}
		own := ownChain(hook.chain)
		if _, err := f.runner.Run(ctx, "iptables", "-t", string(hook.table), "-D", string(hook.chain), "-j", own); err != nil && first == nil {
			first = err
		}
		if _, err := f.runner.Run(ctx, "iptables", "-t", string(hook.table), "-F", own); err != nil && first == nil {
			first = err
		}
		if _, err := f.runner.Run(ctx, "iptables", "-t", string(hook.table), "-X", own); err != nil && first == nil {
			first = err
		}
		delete(f.ready, key)
	}
	return first
}

func (f *IptablesFirewall) args(op string, rule Rule) []string {
	args := []string{"-t", string(rule.Table), op, ownChain(rule.Chain)}
	return append(args, rule.IptablesArgs()...)
}
