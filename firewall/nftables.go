//go:build linux

package firewall

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"
)

const nftTableName = "hotspotd"

// NftablesFirewall implements Firewall over netlink using google/nftables.
// All rules live in a dedicated "hotspotd" table, so teardown and crash
// recovery never touch foreign rules. Re-adding a rule already tracked in
// the table is a no-op.
type NftablesFirewall struct {
	conn  *nftables.Conn
	table *nftables.Table
	// chains maps our Chain constants to nftables chains.
	chains map[Chain]*nftables.Chain
	// installed tracks rule identity -> handle rule for idempotent adds.
	installed map[string]*nftables.Rule
	mu        sync.Mutex
}

// NewNftablesFirewall creates the netlink connection and (re)creates the
// dedicated table, discarding any rules a previous process left behind.
func NewNftablesFirewall(cfg *Config) (*NftablesFirewall, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("nftables connection: %w", err)
	}

	f := &NftablesFirewall{
		conn:      conn,
		chains:    make(map[Chain]*nftables.Chain),
		installed: make(map[string]*nftables.Rule),
	}
	if err := f.setup(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *NftablesFirewall) setup() error {
	// Drop a stale table from a previous run; re-applying a plan must not
	// stack rules.
	f.conn.DelTable(&nftables.Table{Family: nftables.TableFamilyIPv4, Name: nftTableName})
	if err := f.conn.Flush(); err != nil && !strings.Contains(err.Error(), "no such file") {
		// ENOENT just means there was nothing to clean.
		return fmt.Errorf("clean stale table: %w", err)
	}

	f.table = f.conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   nftTableName,
	})

	f.chains[ChainPostrouting] = f.conn.AddChain(&nftables.Chain{
		Name:     "postrouting",
		Table:    f.table,
		Type:     nftables.ChainTypeNAT,
		Hooknum:  nftables.ChainHookPostrouting,
		Priority: nftables.ChainPriorityNATSource,
	})
	f.chains[ChainForward] = f.conn.AddChain(&nftables.Chain{
		Name:     "forward",
		Table:    f.table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookForward,
		Priority: nftables.ChainPriorityFilter,
	})

	if err := f.conn.Flush(); err != nil {
		return fmt.Errorf("create table and chains: %w", err)
	}
	return nil
}

func (f *NftablesFirewall) AddRule(ctx context.Context, rule Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ruleKey(rule)
	if _, ok := f.installed[key]; ok {
		return nil
	}

	chain, ok := f.chains[rule.Chain]
	if !ok {
		return fmt.Errorf("unknown chain %q", rule.Chain)
	}

	exprs, err := buildExprs(rule)
	if err != nil {
		return err
	}

	nftRule := f.conn.AddRule(&nftables.Rule{
		Table: f.table,
		Chain: chain,
		Exprs: exprs,
	})
	if err := f.conn.Flush(); err != nil {
		return fmt.Errorf("add rule: %w", err)
	}

	f.installed[key] = nftRule
	return nil
}

func (f *NftablesFirewall) DeleteRule(ctx context.Context, rule Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ruleKey(rule)
	nftRule, ok := f.installed[key]
	if !ok {
		return nil
	}

	if err := f.conn.DelRule(nftRule); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if err := f.conn.Flush(); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	delete(f.installed, key)
	return nil
}

// Close removes the dedicated table; the kernel drops every rule with it.
func (f *NftablesFirewall) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.table != nil {
		f.conn.DelTable(f.table)
		if err := f.conn.Flush(); err != nil && !strings.Contains(err.Error(), "no such file") {
			return fmt.Errorf("delete table: %w", err)
		}
		f.table = nil
		f.installed = make(map[string]*nftables.Rule)
	}
	return nil
}

func ruleKey(rule Rule) string {
	return strings.Join(append([]string{string(rule.Table), string(rule.Chain)}, rule.IptablesArgs()...), "|")
}

// buildExprs translates a structured rule into nftables expressions.
func buildExprs(rule Rule) ([]expr.Any, error) {
	var exprs []expr.Any

	if rule.In != "" {
		exprs = append(exprs,
			&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(rule.In)},
		)
	}
	if rule.Out != "" {
		exprs = append(exprs,
			&expr.Meta{Key: expr.MetaKeyOIFNAME, Register: 1},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(rule.Out)},
		)
	}

	if rule.Verdict == VerdictClampMSS {
		return append(exprs, clampMSSExprs()...), nil
	}

	if rule.MACSource != "" {
		mac, err := net.ParseMAC(rule.MACSource)
		if err != nil {
			return nil, fmt.Errorf("mac source %q: %w", rule.MACSource, err)
		}
		// ether saddr: link-layer header, source address at offset 6.
		exprs = append(exprs,
			&expr.Payload{
				DestRegister: 1,
				Base:         expr.PayloadBaseLLHeader,
				Offset:       6,
				Len:          6,
			},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: mac},
		)
	}

	if rule.ConnState != "" {
		state := ctStateMask(rule.ConnState)
		exprs = append(exprs,
			&expr.Ct{Register: 1, Key: expr.CtKeySTATE},
			&expr.Bitwise{
				SourceRegister: 1,
				DestRegister:   1,
				Len:            4,
				Mask:           binaryutil.NativeEndian.PutUint32(state),
				Xor:            binaryutil.NativeEndian.PutUint32(0),
			},
			&expr.Cmp{Op: expr.CmpOpNeq, Register: 1, Data: binaryutil.NativeEndian.PutUint32(0)},
		)
	}

	exprs = append(exprs, &expr.Counter{})

	switch rule.Verdict {
	case VerdictAccept:
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictAccept})
	case VerdictDrop:
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictDrop})
	case VerdictMasquerade:
		exprs = append(exprs, &expr.Masq{})
	default:
		return nil, fmt.Errorf("unknown verdict %q", rule.Verdict)
	}

	return exprs, nil
}

// clampMSSExprs builds "tcp flags & (syn|rst) == syn tcp option maxseg size
// set rt mtu", the nftables form of TCPMSS --clamp-mss-to-pmtu.
func clampMSSExprs() []expr.Any {
	const (
		tcpFlagSYN = 0x02
		tcpFlagRST = 0x04
	)
	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{unix.IPPROTO_TCP}},
		// TCP flags byte sits at transport-header offset 13.
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseTransportHeader,
			Offset:       13,
			Len:          1,
		},
		&expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            1,
			Mask:           []byte{tcpFlagSYN | tcpFlagRST},
			Xor:            []byte{0x00},
		},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{tcpFlagSYN}},
		&expr.Rt{Register: 1, Key: expr.RtTCPMSS},
		&expr.Byteorder{
			DestRegister:   1,
			SourceRegister: 1,
			Op:             expr.ByteorderHton,
			Len:            2,
			Size:           2,
		},
		// TCP option kind 2 (maxseg), value at option offset 2, 2 bytes.
		&expr.Exthdr{
			Op:             expr.ExthdrOpTcpopt,
			Type:           2,
			Offset:         2,
			Len:            2,
			SourceRegister: 1,
		},
	}
}

func ctStateMask(states string) uint32 {
	var mask uint32
	for _, s := range strings.Split(states, ",") {
		switch strings.TrimSpace(strings.ToUpper(s)) {
		case "NEW":
			mask |= expr.CtStateBitNEW
		case "ESTABLISHED":
			mask |= expr.CtStateBitESTABLISHED
		case "RELATED":
			mask |= expr.CtStateBitRELATED
		case "INVALID":
			mask |= expr.CtStateBitINVALID
		}
	}
	return mask
}

// ifname pads an interface name to IFNAMSIZ for kernel comparison.
func ifname(name string) []byte {
	b := make([]byte, 16)
	copy(b, name)
	return b
}
