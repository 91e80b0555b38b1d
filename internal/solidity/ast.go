package solidity

import "strings"

// SourceUnit is one parsed .sol file.
type SourceUnit struct {
	Path       string      `json:"path"`
	Content    string      `json:"-"`
	Pragma     string      `json:"pragma,omitempty"`
	PragmaLine int         `json:"pragmaLine,omitempty"`
	Imports    []string    `json:"imports,omitempty"`
	Contracts  []*Contract `json:"contracts"`
}

// Contract returns the contract named name, or nil.
func (u *SourceUnit) Contract(name string) *Contract {
	for _, c := range u.Contracts {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type Contract struct {
	Name      string      `json:"name"`
	Kind      string      `json:"kind"` // contract, interface, library
	Abstract  bool        `json:"abstract,omitempty"`
	Bases     []string    `json:"bases,omitempty"`
	Line      int         `json:"line"`
	StateVars []StateVar  `json:"stateVars,omitempty"`
	Functions []*Function `json:"functions,omitempty"`
	Modifiers []*Function `json:"modifiers,omitempty"`
}

// StateVar returns the state variable named name.
func (c *Contract) StateVar(name string) (StateVar, bool) {
	for _, v := range c.StateVars {
		if v.Name == name {
			return v, true
		}
	}
	return StateVar{}, false
}

type StateVar struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Visibility string `json:"visibility,omitempty"`
	Constant   bool   `json:"constant,omitempty"`
	Immutable  bool   `json:"immutable,omitempty"`
	Value      Expr   `json:"-"`
	Line       int    `json:"line"`
}

type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function is a function, constructor, receive, fallback or modifier.
// Body is nil for declarations without an implementation.
type Function struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"` // function, constructor, receive, fallback, modifier
	Visibility string     `json:"visibility,omitempty"`
	Mutability string     `json:"mutability,omitempty"`
	Modifiers  []string   `json:"modifiers,omitempty"`
	Params     []Param    `json:"params,omitempty"`
	Returns    []Param    `json:"returns,omitempty"`
	Line       int        `json:"line"`
	EndLine    int        `json:"endLine"`
	Body       *BlockStmt `json:"-"`
}

// ReadOnly reports whether the function is declared view or pure.
func (f *Function) ReadOnly() bool { return f.Mutability == "view" || f.Mutability == "pure" }

// Exposed reports whether the function can be called from outside the
// contract.
func (f *Function) Exposed() bool {
	switch f.Kind {
	case "receive", "fallback":
		return true
	case "modifier", "constructor":
		return false
	}
	return f.Visibility == "public" || f.Visibility == "external" || f.Visibility == ""
}

// Statement nodes. Expressions are kept as token runs.
type Stmt interface{ Pos() int }

type (
	BlockStmt struct {
		Line  int
		Stmts []Stmt
	}
	IfStmt struct {
		Line int
		Cond Expr
		Then Stmt
		Else Stmt
	}
	WhileStmt struct {
		Line    int
		Cond    Expr
		Body    Stmt
		DoWhile bool
	}
	ForStmt struct {
		Line int
		Init Stmt
		Cond Expr
		Post Expr
		Body Stmt
	}
	ReturnStmt struct {
		Line  int
		Value Expr
	}
	RevertStmt struct {
		Line int
		Args Expr
	}
	// RequireStmt covers require and assert.
	RequireStmt struct {
		Line    int
		Cond    Expr
		Message string
		Assert  bool
	}
	EmitStmt struct {
		Line  int
		Event string
		Args  Expr
	}
	BreakStmt       struct{ Line int }
	ContinueStmt    struct{ Line int }
	PlaceholderStmt struct{ Line int }
	// ExprStmt is an expression, assignment or local declaration.
	ExprStmt struct {
		Line int
		X    Expr
	}
)

func (s *BlockStmt) Pos() int       { return s.Line }
func (s *IfStmt) Pos() int          { return s.Line }
func (s *WhileStmt) Pos() int       { return s.Line }
func (s *ForStmt) Pos() int         { return s.Line }
func (s *ReturnStmt) Pos() int      { return s.Line }
func (s *RevertStmt) Pos() int      { return s.Line }
func (s *RequireStmt) Pos() int     { return s.Line }
func (s *EmitStmt) Pos() int        { return s.Line }
func (s *BreakStmt) Pos() int       { return s.Line }
func (s *ContinueStmt) Pos() int    { return s.Line }
func (s *PlaceholderStmt) Pos() int { return s.Line }
func (s *ExprStmt) Pos() int        { return s.Line }

// Expr is an unparsed expression.
type Expr []Token

func (e Expr) String() string {
	var b strings.Builder
	for i, t := range e {
		if i > 0 && spaceBetween(e[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func spaceBetween(prev, cur Token) bool {
	switch cur.Text {
	case ".", "(", ")", "[", "]", ",", ";", "++", "--":
		return false
	}
	switch prev.Text {
	case ".", "(", "[", "!", "~":
		return false
	}
	return true
}

// Line returns the line of the first token, or 0.
func (e Expr) Line() int {
	if len(e) == 0 {
		return 0
	}
	return e[0].Line
}

// Contains reports whether the expression text contains s.
func (e Expr) Contains(s string) bool { return strings.Contains(e.String(), s) }

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true, "**=": true,
}

// SplitAssign splits a top-level assignment into its target, operator and
// value.
func (e Expr) SplitAssign() (lhs Expr, op string, rhs Expr, ok bool) {
	depth := 0
	for i, t := range e {
		if t.Kind != TokPunct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		default:
			if depth == 0 && assignOps[t.Text] {
				return e[:i], t.Text, e[i+1:], true
			}
		}
	}
	return nil, "", nil, false
}

// SplitTop splits e at top-level occurrences of sep.
func (e Expr) SplitTop(sep string) []Expr {
	var out []Expr
	depth, start := 0, 0
	for i, t := range e {
		if t.Kind != TokPunct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case sep:
			if depth == 0 {
				out = append(out, e[start:i])
				start = i + 1
			}
		}
	}
	return append(out, e[start:])
}

// Unparen strips one pair of enclosing parentheses.
func (e Expr) Unparen() Expr {
	if len(e) >= 2 && e[0].Text == "(" && e[len(e)-1].Text == ")" {
		depth := 0
		for i, t := range e {
			switch t.Text {
			case "(":
				depth++
			case ")":
				depth--
				if depth == 0 && i != len(e)-1 {
					return e
				}
			}
		}
		return e[1 : len(e)-1]
	}
	return e
}

// Builtin names that never denote a local or state variable.
var builtins = map[string]bool{
	"msg": true, "tx": true, "block": true, "abi": true, "this": true, "super": true,
	"now": true, "type": true, "true": true, "false": true, "new": true, "delete": true,
	"payable": true, "address": true, "bool": true, "string": true, "bytes": true,
	"int": true, "uint": true, "memory": true, "storage": true, "calldata": true,
	"wei": true, "gwei": true, "ether": true, "seconds": true, "minutes": true,
	"hours": true, "days": true, "weeks": true, "mapping": true, "keccak256": true,
	"sha256": true, "ecrecover": true, "gasleft": true, "blockhash": true, "require": true,
	"assert": true, "revert": true, "selfdestruct": true, "emit": true,
}

// IsTypeName reports whether s names an elementary type.
func IsTypeName(s string) bool {
	switch s {
	case "address", "bool", "string", "bytes", "int", "uint", "byte", "mapping":
		return true
	}
	for _, p := range []string{"uint", "int", "bytes"} {
		if rest, ok := strings.CutPrefix(s, p); ok && rest != "" && allDigits(rest) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// Idents returns the variables read by e: identifiers that are not member
// names, called functions, named-argument keys, types or builtins. The
// result has no duplicates and keeps first-occurrence order.
func (e Expr) Idents() []string {
	var out []string
	seen := map[string]bool{}
	for i, t := range e {
		if t.Kind != TokIdent || builtins[t.Text] || IsTypeName(t.Text) {
			continue
		}
		if i > 0 && e[i-1].Text == "." {
			continue
		}
		if i+1 < len(e) && (e[i+1].Text == "(" || e[i+1].Text == ":") {
			continue
		}
		if !seen[t.Text] {
			seen[t.Text] = true
			out = append(out, t.Text)
		}
	}
	return out
}

// Calls returns the names of functions called directly, as in f(x), in
// order of appearance.
func (e Expr) Calls() []string {
	var out []string
	for i, t := range e {
		if t.Kind != TokIdent || builtins[t.Text] || IsTypeName(t.Text) {
			continue
		}
		if i > 0 && e[i-1].Text == "." {
			continue
		}
		if i+1 < len(e) && e[i+1].Text == "(" {
			out = append(out, t.Text)
		}
	}
	return out
}

var externalCallMembers = map[string]bool{
	"call": true, "delegatecall": true, "staticcall": true, "send": true, "transfer": true,
}

// ExternalCall reports whether e performs a low-level call or an ether
// transfer, and returns the member used.
func (e Expr) ExternalCall() (string, bool) {
	for i := 1; i+1 < len(e); i++ {
		if e[i-1].Text != "." || !externalCallMembers[e[i].Text] {
			continue
		}
		if next := e[i+1].Text; next == "(" || next == "{" {
			return e[i].Text, true
		}
	}
	return "", false
}

// UsesTxOrigin reports whether e reads tx.origin.
func (e Expr) UsesTxOrigin() bool {
	for i := 0; i+2 < len(e); i++ {
		if e[i].Text == "tx" && e[i+1].Text == "." && e[i+2].Text == "origin" {
			return true
		}
	}
	return false
}
