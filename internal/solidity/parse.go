package solidity

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ParseError locates a syntax error in a source unit.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg) }

var rePragma = regexp.MustCompile(`(?m)^\s*pragma\s+solidity\s+([^;]+);`)

// ParseFile reads and parses path.
func ParseFile(path string) (*SourceUnit, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, string(b))
}

// Parse builds the outline and function bodies of a source unit. The parser
// accepts the statement subset the analyses understand; expressions are kept
// as token runs.
func Parse(path, content string) (*SourceUnit, error) {
	u := &SourceUnit{Path: path, Content: content}
	if m := rePragma.FindStringSubmatchIndex(content); m != nil {
		u.Pragma = strings.TrimSpace(content[m[2]:m[3]])
		u.PragmaLine = strings.Count(content[:m[0]], "\n") + 1
		// The match may start on a preceding blank line.
		u.PragmaLine += strings.Count(content[m[0]:m[2]], "\n")
	}
	p := &parser{path: path, toks: Tokenize(content)}
	if err := p.unit(u); err != nil {
		return nil, err
	}
	return u, nil
}

type parser struct {
	path string
	toks []Token
	pos  int
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(text string) bool { return p.peek().Text == text && p.peek().Kind != TokString }

func (p *parser) accept(text string) bool {
	if p.at(text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Path: p.path, Line: p.peek().Line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(text string) (Token, error) {
	if !p.at(text) {
		got := p.peek().Text
		if p.peek().Kind == TokEOF {
			got = "end of file"
		}
		return Token{}, p.errorf("expected %q, found %q", text, got)
	}
	return p.next(), nil
}

func (p *parser) ident() (Token, error) {
	if p.peek().Kind != TokIdent {
		return Token{}, p.errorf("expected identifier, found %q", p.peek().Text)
	}
	return p.next(), nil
}

// until collects tokens up to the first top-level occurrence of one of
// stops, which is not consumed.
func (p *parser) until(stops ...string) (Expr, error) {
	start := p.pos
	depth := 0
	for {
		t := p.peek()
		if t.Kind == TokEOF {
			return nil, p.errorf("unexpected end of file")
		}
		if depth == 0 && t.Kind == TokPunct {
			for _, s := range stops {
				if t.Text == s {
					return Expr(p.toks[start:p.pos]), nil
				}
			}
		}
		if t.Kind == TokPunct {
			switch t.Text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 {
					return nil, p.errorf("unbalanced %q", t.Text)
				}
				depth--
			}
		}
		p.next()
	}
}

// skipDecl skips a declaration ending in ';' or in a balanced block.
func (p *parser) skipDecl() error {
	if _, err := p.until(";", "{"); err != nil {
		return err
	}
	if p.accept(";") {
		return nil
	}
	return p.skipBlock()
}

func (p *parser) skipBlock() error {
	if _, err := p.expect("{"); err != nil {
		return err
	}
	if _, err := p.until("}"); err != nil {
		return err
	}
	p.next()
	return nil
}

func (p *parser) unit(u *SourceUnit) error {
	for p.peek().Kind != TokEOF {
		switch t := p.peek(); t.Text {
		case "pragma":
			if _, err := p.until(";"); err != nil {
				return err
			}
			p.next()
		case "import":
			x, err := p.until(";")
			if err != nil {
				return err
			}
			p.next()
			for _, tok := range x {
				if tok.Kind == TokString {
					u.Imports = append(u.Imports, unquote(tok.Text))
				}
			}
		case "abstract", "contract", "interface", "library":
			c, err := p.contract()
			if err != nil {
				return err
			}
			u.Contracts = append(u.Contracts, c)
		default:
			if err := p.skipDecl(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) contract() (*Contract, error) {
	c := &Contract{Line: p.peek().Line}
	if p.accept("abstract") {
		c.Abstract = true
	}
	c.Kind = p.next().Text
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	c.Name = name.Text
	if p.accept("is") {
		bases, err := p.until("{")
		if err != nil {
			return nil, err
		}
		for _, b := range bases.SplitTop(",") {
			if len(b) > 0 {
				c.Bases = append(c.Bases, b[0].Text)
			}
		}
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.at("}") {
		if p.peek().Kind == TokEOF {
			return nil, p.errorf("contract %s is not closed", c.Name)
		}
		if err := p.member(c); err != nil {
			return nil, err
		}
	}
	p.next()
	return c, nil
}

func (p *parser) member(c *Contract) error {
	switch p.peek().Text {
	case "function", "constructor", "receive", "fallback":
		fn, err := p.function()
		if err != nil {
			return err
		}
		c.Functions = append(c.Functions, fn)
		return nil
	case "modifier":
		fn, err := p.function()
		if err != nil {
			return err
		}
		c.Modifiers = append(c.Modifiers, fn)
		return nil
	case "event", "error", "using", "struct", "enum", "type":
		return p.skipDecl()
	}
	return p.stateVar(c)
}

func (p *parser) stateVar(c *Contract) error {
	line := p.peek().Line
	decl, err := p.until(";")
	if err != nil {
		return err
	}
	p.next()
	v := StateVar{Line: line}
	lhs, _, rhs, ok := decl.SplitAssign()
	if !ok {
		lhs = decl
	} else {
		v.Value = rhs
	}
	var typ []string
	for i, t := range lhs {
		switch t.Text {
		case "constant":
			v.Constant = true
		case "immutable":
			v.Immutable = true
		case "public", "private", "internal", "external":
			v.Visibility = t.Text
		case "override":
		default:
			if i == len(lhs)-1 && t.Kind == TokIdent {
				v.Name = t.Text
			} else {
				typ = append(typ, t.Text)
			}
		}
	}
	if v.Name == "" {
		return &ParseError{Path: p.path, Line: line, Msg: "cannot find a name in state variable declaration"}
	}
	v.Type = joinType(typ)
	c.StateVars = append(c.StateVars, v)
	return nil
}

func joinType(parts []string) string {
	s := strings.Join(parts, " ")
	for _, r := range [][2]string{{" (", "("}, {"( ", "("}, {" )", ")"}, {" [", "["}, {"[ ", "["}, {" ]", "]"}} {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

func (p *parser) function() (*Function, error) {
	kw := p.next()
	fn := &Function{Kind: kw.Text, Name: kw.Text, Line: kw.Line}
	if kw.Text == "function" || kw.Text == "modifier" {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		fn.Name = name.Text
	}
	if p.at("(") {
		params, err := p.paramList()
		if err != nil {
			return nil, err
		}
		fn.Params = params
	}
	for !p.at("{") && !p.at(";") {
		t := p.next()
		switch t.Text {
		case "":
			return nil, p.errorf("function %s has no body or terminator", fn.Name)
		case "public", "external", "internal", "private":
			fn.Visibility = t.Text
		case "view", "pure", "payable", "nonpayable", "constant":
			fn.Mutability = t.Text
		case "virtual":
		case "returns":
			rets, err := p.paramList()
			if err != nil {
				return nil, err
			}
			fn.Returns = rets
		case "override":
			if p.at("(") {
				if err := p.skipParens(); err != nil {
					return nil, err
				}
			}
		default:
			if t.Kind != TokIdent {
				return nil, &ParseError{Path: p.path, Line: t.Line, Msg: fmt.Sprintf("unexpected %q in function header", t.Text)}
			}
			fn.Modifiers = append(fn.Modifiers, t.Text)
			if p.at("(") {
				if err := p.skipParens(); err != nil {
					return nil, err
				}
			}
		}
	}
	if p.accept(";") {
		fn.EndLine = fn.Line
		return fn, nil
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	fn.EndLine = p.toks[p.pos-1].Line
	return fn, nil
}

func (p *parser) skipParens() error {
	if _, err := p.expect("("); err != nil {
		return err
	}
	if _, err := p.until(")"); err != nil {
		return err
	}
	p.next()
	return nil
}

func (p *parser) paramList() ([]Param, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	inner, err := p.until(")")
	if err != nil {
		return nil, err
	}
	p.next()
	if len(inner) == 0 {
		return nil, nil
	}
	var out []Param
	for _, part := range inner.SplitTop(",") {
		out = append(out, param(part))
	}
	return out, nil
}

var dataLocations = map[string]bool{"memory": true, "storage": true, "calldata": true, "indexed": true, "payable": true}

func param(toks Expr) Param {
	if len(toks) == 0 {
		return Param{}
	}
	last := toks[len(toks)-1]
	if len(toks) >= 2 && last.Kind == TokIdent && !dataLocations[last.Text] {
		var typ []string
		for _, t := range toks[:len(toks)-1] {
			if !dataLocations[t.Text] || t.Text == "payable" {
				typ = append(typ, t.Text)
			}
		}
		return Param{Name: last.Text, Type: joinType(typ)}
	}
	var typ []string
	for _, t := range toks {
		typ = append(typ, t.Text)
	}
	return Param{Type: joinType(typ)}
}

func (p *parser) block() (*BlockStmt, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	b := &BlockStmt{Line: open.Line}
	for !p.at("}") {
		if p.peek().Kind == TokEOF {
			return nil, p.errorf("block opened on line %d is not closed", open.Line)
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	p.next()
	return b, nil
}

func (p *parser) parenExpr() (Expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	x, err := p.until(")")
	if err != nil {
		return nil, err
	}
	p.next()
	return x, nil
}

// simple parses an expression statement up to and including ';'.
func (p *parser) simple() (Expr, error) {
	x, err := p.until(";")
	if err != nil {
		return nil, err
	}
	p.next()
	return x, nil
}

func (p *parser) stmt() (Stmt, error) {
	t := p.peek()
	line := t.Line
	if t.Kind == TokString {
		return nil, p.errorf("unexpected string literal")
	}
	switch t.Text {
	case "{":
		return p.block()
	case ";":
		p.next()
		return nil, nil
	case "unchecked":
		if p.peekAt(1).Text == "{" {
			p.next()
			return p.block()
		}
	case "if":
		p.next()
		cond, err := p.parenExpr()
		if err != nil {
			return nil, err
		}
		then, err := p.stmt()
		if err != nil {
			return nil, err
		}
		s := &IfStmt{Line: line, Cond: cond, Then: then}
		if p.accept("else") {
			if s.Else, err = p.stmt(); err != nil {
				return nil, err
			}
		}
		return s, nil
	case "while":
		p.next()
		cond, err := p.parenExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.stmt()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Line: line, Cond: cond, Body: body}, nil
	case "do":
		p.next()
		body, err := p.stmt()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("while"); err != nil {
			return nil, err
		}
		cond, err := p.parenExpr()
		if err != nil {
			return nil, err
		}
		p.accept(";")
		return &WhileStmt{Line: line, Cond: cond, Body: body, DoWhile: true}, nil
	case "for":
		return p.forStmt()
	case "return":
		p.next()
		x, err := p.simple()
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Line: line, Value: x}, nil
	case "revert":
		p.next()
		x, err := p.simple()
		if err != nil {
			return nil, err
		}
		return &RevertStmt{Line: line, Args: x}, nil
	case "require", "assert":
		if p.peekAt(1).Text != "(" {
			break
		}
		p.next()
		args, err := p.parenExpr()
		if err != nil {
			return nil, err
		}
		p.accept(";")
		s := &RequireStmt{Line: line, Assert: t.Text == "assert"}
		parts := args.SplitTop(",")
		s.Cond = parts[0]
		if len(parts) > 1 && len(parts[1]) == 1 && parts[1][0].Kind == TokString {
			s.Message = unquote(parts[1][0].Text)
		} else if len(parts) > 1 {
			s.Message = parts[1].String()
		}
		return s, nil
	case "emit":
		p.next()
		x, err := p.simple()
		if err != nil {
			return nil, err
		}
		s := &EmitStmt{Line: line}
		if len(x) > 0 {
			s.Event = x[0].Text
			s.Args = x[1:]
		}
		return s, nil
	case "break":
		p.next()
		p.accept(";")
		return &BreakStmt{Line: line}, nil
	case "continue":
		p.next()
		p.accept(";")
		return &ContinueStmt{Line: line}, nil
	case "_":
		if p.peekAt(1).Text == ";" {
			p.next()
			p.next()
			return &PlaceholderStmt{Line: line}, nil
		}
	case "try", "assembly":
		return nil, p.errorf("%s statements are not supported", t.Text)
	}
	x, err := p.simple()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Line: line, X: x}, nil
}

func (p *parser) forStmt() (Stmt, error) {
	line := p.next().Line
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	s := &ForStmt{Line: line}
	init, err := p.until(";")
	if err != nil {
		return nil, err
	}
	p.next()
	if len(init) > 0 {
		s.Init = &ExprStmt{Line: init.Line(), X: init}
	}
	if s.Cond, err = p.until(";"); err != nil {
		return nil, err
	}
	p.next()
	if s.Post, err = p.until(")"); err != nil {
		return nil, err
	}
	p.next()
	if s.Body, err = p.stmt(); err != nil {
		return nil, err
	}
	return s, nil
}
