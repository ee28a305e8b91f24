//go:build linux

package firewall

import (
	"testing"

	"github.com/google/nftables/expr"
)

func TestCtStateMask(t *testing.T) {
	tests := []struct {
		input string
		want  uint32
	}{
		{"RELATED,ESTABLISHED", expr.CtStateBitRELATED | expr.CtStateBitESTABLISHED},
		{"established", expr.CtStateBitESTABLISHED},
		{" NEW , INVALID ", expr.CtStateBitNEW | expr.CtStateBitINVALID},
		{"bogus", 0},
	}
	for _, tt := range tests {
		if got := ctStateMask(tt.input); got != tt.want {
			t.Errorf("ctStateMask(%q) = %#x, want %#x", tt.input, got, tt.want)
		}
	}
}

func TestIfnamePadding(t *testing.T) {
	b := ifname("wlan1")
	if len(b) != 16 {
		t.Fatalf("len = %d, want 16 (IFNAMSIZ)", len(b))
	}
	if string(b[:5]) != "wlan1" || b[5] != 0 {
		t.Errorf("padding wrong: %v", b)
	}
}

func TestBuildExprs(t *testing.T) {
	t.Run("masquerade", func(t *testing.T) {
		exprs, err := buildExprs(Rule{Out: "wg0", Verdict: VerdictMasquerade})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := exprs[len(exprs)-1].(*expr.Masq); !ok {
			t.Errorf("last expr = %T, want *expr.Masq", exprs[len(exprs)-1])
		}
	})

	t.Run("mac source", func(t *testing.T) {
		exprs, err := buildExprs(Rule{In: "wlan1", MACSource: "aa:bb:cc:dd:ee:ff", Verdict: VerdictDrop})
		if err != nil {
			t.Fatal(err)
		}
		foundPayload := false
		for _, e := range exprs {
			if p, ok := e.(*expr.Payload); ok && p.Base == expr.PayloadBaseLLHeader {
				if p.Offset != 6 || p.Len != 6 {
					t.Errorf("ether saddr at offset %d len %d, want 6/6", p.Offset, p.Len)
				}
				foundPayload = true
			}
		}
		if !foundPayload {
			t.Error("no link-layer payload match built")
		}
	})

	t.Run("invalid mac", func(t *testing.T) {
		if _, err := buildExprs(Rule{MACSource: "nope", Verdict: VerdictDrop}); err == nil {
			t.Fatal("invalid MAC must be rejected")
		}
	})

	t.Run("unknown verdict", func(t *testing.T) {
		if _, err := buildExprs(Rule{Verdict: Verdict("REJECT")}); err == nil {
			t.Fatal("unknown verdict must be rejected")
		}
	})
}

func TestRuleKeyIdentity(t *testing.T) {
	a := Rule{Table: TableNAT, Chain: ChainPostrouting, Out: "wg0", Verdict: VerdictMasquerade}
	b := a
	if ruleKey(a) != ruleKey(b) {
		t.Error("identical rules must share a key")
	}
	b.Out = "enp3s0"
	if ruleKey(a) == ruleKey(b) {
		t.Error("different rules must not collide")
	}
}
