package solidity

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func parseVault(t *testing.T) *SourceUnit {
	t.Helper()
	u, err := ParseFile(filepath.Join("testdata", "Vault.sol"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	return u
}

func TestTokenizeSkipsComments(t *testing.T) {
	toks := Tokenize("a /* x\n y */ b // c\nc >>= 0x1f")
	var got []Token
	for _, tok := range toks {
		if tok.Kind != TokEOF {
			got = append(got, tok)
		}
	}
	want := []Token{
		{Kind: TokIdent, Text: "a", Line: 1},
		{Kind: TokIdent, Text: "b", Line: 2},
		{Kind: TokIdent, Text: "c", Line: 3},
		{Kind: TokPunct, Text: ">>=", Line: 3},
		{Kind: TokNumber, Text: "0x1f", Line: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize (-want +got):\n%s", diff)
	}
}

func TestParseOutline(t *testing.T) {
	u := parseVault(t)
	if u.Pragma != "^0.8.19" || u.PragmaLine != 2 {
		t.Errorf("pragma = %q at line %d", u.Pragma, u.PragmaLine)
	}
	if diff := cmp.Diff([]string{"./IERC20.sol"}, u.Imports); diff != "" {
		t.Errorf("Imports (-want +got):\n%s", diff)
	}
	c := u.Contract("Vault")
	if c == nil {
		t.Fatal("contract Vault not found")
	}
	if diff := cmp.Diff([]string{"Ownable", "ReentrancyGuard"}, c.Bases); diff != "" {
		t.Errorf("Bases (-want +got):\n%s", diff)
	}
	wantVars := []StateVar{
		{Name: "balances", Type: "mapping(address => uint256)", Visibility: "public", Line: 7},
		{Name: "FEE", Type: "uint256", Visibility: "public", Constant: true, Line: 8},
		{Name: "owner", Type: "address", Line: 9},
	}
	if diff := cmp.Diff(wantVars, c.StateVars, cmpopts.IgnoreFields(StateVar{}, "Value")); diff != "" {
		t.Errorf("StateVars (-want +got):\n%s", diff)
	}

	var names []string
	for _, fn := range c.Functions {
		names = append(names, fn.Name)
	}
	if diff := cmp.Diff([]string{"deposit", "withdraw", "sum", "auth"}, names); diff != "" {
		t.Errorf("functions (-want +got):\n%s", diff)
	}
	if len(c.Modifiers) != 1 || c.Modifiers[0].Name != "onlyOwner" {
		t.Errorf("Modifiers = %+v", c.Modifiers)
	}

	sum := c.Functions[2]
	if sum.Mutability != "pure" || !sum.ReadOnly() || sum.Visibility != "public" {
		t.Errorf("sum header = %+v", sum)
	}
	if diff := cmp.Diff([]Param{{Name: "total", Type: "uint256"}}, sum.Returns); diff != "" {
		t.Errorf("sum returns (-want +got):\n%s", diff)
	}
	withdraw := c.Functions[1]
	if withdraw.Line != 22 || withdraw.EndLine != 28 {
		t.Errorf("withdraw spans %d-%d, want 22-28", withdraw.Line, withdraw.EndLine)
	}
	if diff := cmp.Diff([]Param{{Name: "amount", Type: "uint256"}}, withdraw.Params); diff != "" {
		t.Errorf("withdraw params (-want +got):\n%s", diff)
	}
}

func TestParseStatements(t *testing.T) {
	u := parseVault(t)
	body := u.Contract("Vault").Functions[1].Body.Stmts
	if len(body) != 5 {
		t.Fatalf("withdraw has %d statements, want 5", len(body))
	}
	req, ok := body[0].(*RequireStmt)
	if !ok || req.Message != "insufficient" || req.Cond.String() != "balances[msg.sender] >= amount" {
		t.Errorf("statement 0 = %#v", body[0])
	}
	if _, ok := body[4].(*EmitStmt); !ok {
		t.Errorf("statement 4 = %T, want *EmitStmt", body[4])
	}
	loop, ok := u.Contract("Vault").Functions[2].Body.Stmts[0].(*ForStmt)
	if !ok {
		t.Fatalf("sum does not start with a for loop")
	}
	if loop.Cond.String() != "i < n" || loop.Post.String() != "i++" {
		t.Errorf("for header = %q; %q", loop.Cond, loop.Post)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unclosed contract", "contract A {\n  uint x;\n", 3},
		{"unbalanced paren", "contract A {\n function f() public {\n  g(1;\n }\n}", 5},
		{"assembly", "contract A {\n function f() public {\n  assembly { }\n }\n}", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("A.sol", tt.src)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse() error = %v, want *ParseError", err)
			}
			if perr.Line != tt.line {
				t.Errorf("error line = %d, want %d (%v)", perr.Line, tt.line, err)
			}
		})
	}
}

func TestExprHelpers(t *testing.T) {
	x := Expr(Tokenize(`(bool ok, ) = payable(to).call{value: amount}("")`))
	x = x[:len(x)-1] // EOF
	lhs, op, rhs, ok := x.SplitAssign()
	if !ok || op != "=" || lhs.String() != "(bool ok,)" {
		t.Fatalf("SplitAssign() = %q %q %q %v", lhs, op, rhs, ok)
	}
	if m, ok := rhs.ExternalCall(); !ok || m != "call" {
		t.Errorf("ExternalCall() = %q, %v", m, ok)
	}
	if diff := cmp.Diff([]string{"to", "amount"}, rhs.Idents()); diff != "" {
		t.Errorf("Idents (-want +got):\n%s", diff)
	}
	if !IsTypeName("uint8") || !IsTypeName("bytes32") || IsTypeName("uintx") {
		t.Error("IsTypeName misclassifies elementary types")
	}
}
