package solidity

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
)

func lowerVault(t *testing.T) *Program {
	t.Helper()
	prog, err := Lower(parseVault(t))
	if err != nil {
		t.Fatalf("Lower() error = %v", err)
	}
	return prog
}

func TestLowerRequireAndCall(t *testing.T) {
	f := lowerVault(t).Lookup("Vault.withdraw")
	if f == nil {
		t.Fatal("Vault.withdraw not lowered")
	}
	g := f.Graph
	if diff := cmp.Diff([]cfg.BlockID{2, 3, 4}, g.Exits); diff != "" {
		t.Errorf("Exits (-want +got):\n%s", diff)
	}
	if r, ok := g.Block(2).Term.(cfg.Revert); !ok || r.Reason != "insufficient" {
		t.Errorf("b2 terminator = %v, want revert \"insufficient\"", g.Block(2).Term)
	}

	var call, write *Instr
	f.Instrs(func(_ *cfg.Block, in *Instr) {
		if in.External != "" {
			call = in
		}
		if len(in.StateWrite) > 0 {
			write = in
		}
	})
	if call == nil || call.Op != OpDeclare || call.Line != 24 {
		t.Fatalf("external call instr = %+v", call)
	}
	if diff := cmp.Diff([]cfg.Var{"ok"}, call.Def); diff != "" {
		t.Errorf("call defs (-want +got):\n%s", diff)
	}
	if write == nil || write.Line != 26 || !write.Partial {
		t.Fatalf("state write instr = %+v", write)
	}
	if diff := cmp.Diff([]cfg.Var{"amount", "balances"}, write.Use); diff != "" {
		t.Errorf("state write uses (-want +got):\n%s", diff)
	}
}

func TestLowerLoopWithContinue(t *testing.T) {
	g := lowerVault(t).Lookup("Vault.sum").Graph
	// b0 init, b1 header, b2 body, b3 latch, b4 exit, b5 then, b6 join.
	if len(g.Blocks) != 7 {
		t.Fatalf("sum has %d blocks, want 7", len(g.Blocks))
	}
	if diff := cmp.Diff([]cfg.BlockID{0, 3}, g.Block(1).Preds); diff != "" {
		t.Errorf("header preds (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]cfg.BlockID{5, 6}, g.Block(3).Preds); diff != "" {
		t.Errorf("latch preds (continue and fallthrough) (-want +got):\n%s", diff)
	}
	ret, ok := g.Block(4).Term.(cfg.Return)
	if !ok {
		t.Fatalf("exit terminator = %v", g.Block(4).Term)
	}
	if diff := cmp.Diff([]cfg.Var{"total"}, ret.Values); diff != "" {
		t.Errorf("named return values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]cfg.Var{"i", "n"}, g.Block(1).UpwardExposed); diff != "" {
		t.Errorf("header upward exposed (-want +got):\n%s", diff)
	}
}

func TestLowerTxOriginCondition(t *testing.T) {
	f := lowerVault(t).Lookup("Vault.auth")
	found := false
	f.Instrs(func(_ *cfg.Block, in *Instr) {
		if in.Op == OpCond && in.Value.UsesTxOrigin() {
			found = true
		}
	})
	if !found {
		t.Error("no branch condition reads tx.origin")
	}
}

func TestLowerBreakOutsideLoop(t *testing.T) {
	u, err := Parse("B.sol", "contract B {\n function f() public {\n  break;\n }\n}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Lower(u); err == nil {
		t.Error("Lower() accepted break outside a loop")
	}
}

func TestEvalConst(t *testing.T) {
	maxU256, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	env := func(name string) (*big.Int, bool) {
		if name == "x" {
			return big.NewInt(41), true
		}
		return nil, false
	}
	tests := []struct {
		src  string
		want *big.Int
	}{
		{"2 * 10 ** 16", big.NewInt(2e16)},
		{"1 ether", big.NewInt(1e18)},
		{"1e18 / 2", big.NewInt(5e17)},
		{"0xff & 0x0f", big.NewInt(15)},
		{"2 ** 3 ** 2", big.NewInt(512)},
		{"-1", maxU256},
		{"0 - 1", maxU256},
		{"2 ** 256", big.NewInt(0)},
		{"(1 << 255) * 2", big.NewInt(0)},
		{"x + 1", big.NewInt(42)},
		{"x > 40 && !false", big.NewInt(1)},
		{"1_000 % 7", big.NewInt(6)},
		{"1 days", big.NewInt(86400)},
		{"1 / 0", nil},
		{"y + 1", nil},
		{"f(1)", nil},
		{"x.y", nil},
		{"1 +", nil},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks := Tokenize(tt.src)
			got, ok := EvalConst(Expr(toks[:len(toks)-1]), env)
			if tt.want == nil {
				if ok {
					t.Errorf("EvalConst() = %v, want no constant", got)
				}
				return
			}
			if !ok || got.Cmp(tt.want) != 0 {
				t.Errorf("EvalConst() = %v, %v, want %v", got, ok, tt.want)
			}
		})
	}
}
