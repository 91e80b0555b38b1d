package solidity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
)

type Opcode int

const (
	OpEval Opcode = iota
	OpAssign
	OpDeclare
	OpDelete
	OpIncDec
	OpCall
	OpEmit
	OpCond
)

func (o Opcode) String() string {
	switch o {
	case OpAssign:
		return "assign"
	case OpDeclare:
		return "declare"
	case OpDelete:
		return "delete"
	case OpIncDec:
		return "incdec"
	case OpCall:
		return "call"
	case OpEmit:
		return "emit"
	case OpCond:
		return "cond"
	}
	return "eval"
}

// Instr is one IR instruction of a lowered function body.
type Instr struct {
	Op    Opcode
	Def   []cfg.Var
	Use   []cfg.Var
	Value Expr
	// Partial is set when Def is written through an index or a member, so
	// the previous value stays live.
	Partial bool
	// AssignOp is the assignment operator of OpAssign and OpDeclare, such
	// as "=" or "+=".
	AssignOp   string
	StateWrite []string
	// External is the low-level call member (call, send, ...) or "".
	External string
	Calls    []string
	Line     int
}

func (in *Instr) Defs() []cfg.Var { return in.Def }
func (in *Instr) Uses() []cfg.Var { return in.Use }

func (in *Instr) String() string {
	switch in.Op {
	case OpEval, OpCall, OpEmit:
		return fmt.Sprintf("%s %s", in.Op, in.Value)
	case OpDelete, OpIncDec:
		return fmt.Sprintf("%s %s", in.Op, strings.Join(in.Def, ", "))
	}
	if len(in.Value) == 0 {
		return fmt.Sprintf("%s %s", in.Op, strings.Join(in.Def, ", "))
	}
	return fmt.Sprintf("%s = %s", strings.Join(in.Def, ", "), in.Value)
}

// FunctionIR is a function body lowered to a control-flow graph of Instrs.
type FunctionIR struct {
	Unit     *SourceUnit
	Contract *Contract
	Func     *Function
	Graph    *cfg.Graph
	Params   []cfg.Var
	// StateVars holds the state variables visible in the function,
	// including inherited ones.
	StateVars map[string]bool
}

// QualifiedName is Contract.function.
func (f *FunctionIR) QualifiedName() string { return f.Contract.Name + "." + f.Func.Name }

// Instrs calls fn for every instruction in block id order.
func (f *FunctionIR) Instrs(fn func(b *cfg.Block, in *Instr)) {
	for _, id := range f.Graph.IDs() {
		b := f.Graph.Block(id)
		for _, s := range b.Stmts {
			if in, ok := s.(*Instr); ok {
				fn(b, in)
			}
		}
	}
}

// Program is the IR of a set of source units.
type Program struct {
	Functions []*FunctionIR
	byName    map[string]*FunctionIR
}

// Lookup returns the function with the given qualified name.
func (p *Program) Lookup(qualified string) *FunctionIR { return p.byName[qualified] }

// Lower lowers every implemented function of units. Functions that fail to
// lower are reported together; the others are still returned.
func Lower(units ...*SourceUnit) (*Program, error) {
	contracts := map[string]*Contract{}
	for _, u := range units {
		for _, c := range u.Contracts {
			contracts[c.Name] = c
		}
	}
	prog := &Program{byName: map[string]*FunctionIR{}}
	var errs []error
	for _, u := range units {
		for _, c := range u.Contracts {
			state := stateVarsOf(c, contracts)
			for _, fn := range c.Functions {
				if fn.Body == nil {
					continue
				}
				f, err := lowerFunction(u, c, fn, state)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: %w", c.Name, fn.Name, err))
					continue
				}
				prog.Functions = append(prog.Functions, f)
				prog.byName[f.QualifiedName()] = f
			}
		}
	}
	return prog, errors.Join(errs...)
}

// LowerFunction lowers one function of c. Inherited state variables are not
// resolved.
func LowerFunction(u *SourceUnit, c *Contract, fn *Function) (*FunctionIR, error) {
	return lowerFunction(u, c, fn, stateVarsOf(c, map[string]*Contract{c.Name: c}))
}

func stateVarsOf(c *Contract, contracts map[string]*Contract) map[string]bool {
	out := map[string]bool{}
	seen := map[string]bool{}
	var walk func(c *Contract)
	walk = func(c *Contract) {
		if c == nil || seen[c.Name] {
			return
		}
		seen[c.Name] = true
		for _, v := range c.StateVars {
			out[v.Name] = true
		}
		for _, b := range c.Bases {
			walk(contracts[b])
		}
	}
	walk(c)
	return out
}

type loopTargets struct{ brk, cont cfg.BlockID }

type builder struct {
	g      *cfg.Graph
	cur    *cfg.Block
	nextID cfg.BlockID
	tmp    int
	state  map[string]bool
	locals map[string]bool
	loops  []loopTargets
}

func lowerFunction(u *SourceUnit, c *Contract, fn *Function, state map[string]bool) (*FunctionIR, error) {
	f := &FunctionIR{Unit: u, Contract: c, Func: fn, StateVars: state}
	b := &builder{
		g:      cfg.New(c.Name+"."+fn.Name, 0),
		state:  state,
		locals: map[string]bool{},
	}
	for _, p := range fn.Params {
		if p.Name != "" {
			f.Params = append(f.Params, p.Name)
			b.locals[p.Name] = true
		}
	}
	var named []cfg.Var
	for _, r := range fn.Returns {
		if r.Name != "" {
			named = append(named, r.Name)
			b.locals[r.Name] = true
		}
	}
	b.cur = b.newBlock()
	if err := b.stmt(fn.Body); err != nil {
		return nil, err
	}
	b.terminate(cfg.Return{Values: named})
	b.g.ComputeMetadata()
	if err := b.g.Validate(); err != nil {
		return nil, err
	}
	f.Graph = b.g
	return f, nil
}

func (b *builder) newBlock() *cfg.Block {
	blk := cfg.NewBlock(b.nextID, nil)
	b.nextID++
	b.g.AddBlock(blk)
	return blk
}

// emit appends to the current block. Code after a terminator goes to a
// fresh block that nothing jumps to.
func (b *builder) emit(in *Instr) {
	if b.cur == nil {
		b.cur = b.newBlock()
	}
	b.cur.Stmts = append(b.cur.Stmts, in)
}

func (b *builder) terminate(t cfg.Terminator) {
	if b.cur == nil {
		return
	}
	// SetTerminator cannot fail for a block created by newBlock.
	_ = b.g.SetTerminator(b.cur.ID, t)
	b.cur = nil
}

// startAt makes blk the current block, falling through from the current one.
func (b *builder) startAt(blk *cfg.Block) {
	b.terminate(cfg.Jump{Target: blk.ID})
	b.cur = blk
}

func (b *builder) stmt(s Stmt) error {
	switch s := s.(type) {
	case nil, *PlaceholderStmt:
	case *BlockStmt:
		for _, st := range s.Stmts {
			if err := b.stmt(st); err != nil {
				return err
			}
		}
	case *ExprStmt:
		if len(s.X) > 0 {
			b.emit(b.exprInstr(s.X, s.Line))
		}
	case *EmitStmt:
		b.emit(&Instr{Op: OpEmit, Use: s.Args.Idents(), Value: s.Args, Calls: s.Args.Calls(), Line: s.Line})
	case *IfStmt:
		cond := b.cond(s.Cond, s.Line)
		then := b.newBlock()
		var els *cfg.Block
		if s.Else != nil {
			els = b.newBlock()
		}
		join := b.newBlock()
		f := join.ID
		if els != nil {
			f = els.ID
		}
		b.terminate(cfg.Branch{Cond: cond, True: then.ID, False: f})
		b.cur = then
		if err := b.stmt(s.Then); err != nil {
			return err
		}
		b.terminate(cfg.Jump{Target: join.ID})
		if els != nil {
			b.cur = els
			if err := b.stmt(s.Else); err != nil {
				return err
			}
			b.terminate(cfg.Jump{Target: join.ID})
		}
		b.cur = join
	case *WhileStmt:
		return b.loop(s.Line, nil, s.Cond, nil, s.Body, s.DoWhile)
	case *ForStmt:
		return b.loop(s.Line, s.Init, s.Cond, s.Post, s.Body, false)
	case *ReturnStmt:
		if len(s.Value) > 0 {
			if in := b.exprInstr(s.Value, s.Line); in.External != "" || len(in.Calls) > 0 {
				b.emit(in)
			}
		}
		b.ensureBlock()
		b.terminate(cfg.Return{Values: s.Value.Idents()})
	case *RevertStmt:
		if len(s.Args.Idents()) > 0 {
			b.emit(&Instr{Op: OpEval, Use: s.Args.Idents(), Value: s.Args, Line: s.Line})
		}
		b.ensureBlock()
		b.terminate(cfg.Revert{Reason: revertReason(s.Args)})
	case *RequireStmt:
		cond := b.cond(s.Cond, s.Line)
		ok, fail := b.newBlock(), b.newBlock()
		b.terminate(cfg.Branch{Cond: cond, True: ok.ID, False: fail.ID})
		reason := s.Message
		if reason == "" && s.Assert {
			reason = "assertion failed"
		}
		_ = b.g.SetTerminator(fail.ID, cfg.Revert{Reason: reason})
		b.cur = ok
	case *BreakStmt, *ContinueStmt:
		_, isContinue := s.(*ContinueStmt)
		if len(b.loops) == 0 {
			kw := "break"
			if isContinue {
				kw = "continue"
			}
			return fmt.Errorf("line %d: %s outside a loop", s.Pos(), kw)
		}
		top := b.loops[len(b.loops)-1]
		target := top.brk
		if isContinue {
			target = top.cont
		}
		b.ensureBlock()
		b.terminate(cfg.Jump{Target: target})
	default:
		return fmt.Errorf("line %d: unsupported statement %T", s.Pos(), s)
	}
	return nil
}

// ensureBlock gives a terminator in dead code a block to live in.
func (b *builder) ensureBlock() {
	if b.cur == nil {
		b.cur = b.newBlock()
	}
}

// loop lowers while, do-while and for loops:
//
//	init; header: cond ? body : exit; body; post: post -> header
func (b *builder) loop(line int, init Stmt, cond, post Expr, body Stmt, doWhile bool) error {
	if err := b.stmt(init); err != nil {
		return err
	}
	header := b.newBlock()
	bodyBlk := b.newBlock()
	latch := header
	if len(post) > 0 {
		latch = b.newBlock()
	}
	exit := b.newBlock()

	if doWhile {
		b.startAt(bodyBlk)
	} else {
		b.startAt(header)
	}

	b.cur = header
	if len(cond) > 0 {
		c := b.cond(cond, line)
		b.terminate(cfg.Branch{Cond: c, True: bodyBlk.ID, False: exit.ID})
	} else {
		b.terminate(cfg.Jump{Target: bodyBlk.ID})
	}

	b.loops = append(b.loops, loopTargets{brk: exit.ID, cont: latch.ID})
	b.cur = bodyBlk
	if err := b.stmt(body); err != nil {
		return err
	}
	b.loops = b.loops[:len(b.loops)-1]
	b.terminate(cfg.Jump{Target: latch.ID})

	if latch != header {
		b.cur = latch
		b.emit(b.exprInstr(post, line))
		b.terminate(cfg.Jump{Target: header.ID})
	}
	b.cur = exit
	return nil
}

func (b *builder) cond(x Expr, line int) cfg.Var {
	b.tmp++
	v := fmt.Sprintf("%%cond%d", b.tmp)
	in := &Instr{Op: OpCond, Def: []cfg.Var{v}, Use: x.Idents(), Value: x, Calls: x.Calls(), Line: line}
	in.External, _ = x.ExternalCall()
	b.emit(in)
	return v
}

func (b *builder) exprInstr(x Expr, line int) *Instr {
	in := &Instr{Op: OpEval, Value: x, Calls: x.Calls(), Line: line}
	in.External, _ = x.ExternalCall()
	switch {
	case len(x) > 1 && x[0].Text == "delete":
		in.Op = OpDelete
		b.target(in, x[1:], true)
		in.Partial = true
		return in
	case len(x) > 1 && (x[len(x)-1].Text == "++" || x[len(x)-1].Text == "--"):
		in.Op = OpIncDec
		b.target(in, x[:len(x)-1], true)
		return in
	case len(x) > 1 && (x[0].Text == "++" || x[0].Text == "--"):
		in.Op = OpIncDec
		b.target(in, x[1:], true)
		return in
	}
	if lhs, op, rhs, ok := x.SplitAssign(); ok {
		in.Op = OpAssign
		in.AssignOp = op
		in.Value = rhs
		in.Use = rhs.Idents()
		for _, t := range lhs.Unparen().SplitTop(",") {
			if isDecl(t) {
				in.Op = OpDeclare
			}
			b.target(in, t, op != "=")
		}
		return in
	}
	if isDecl(x) {
		in.Op = OpDeclare
		in.Value = nil
		b.target(in, x, false)
		return in
	}
	in.Use = x.Idents()
	if in.External != "" || len(in.Calls) > 0 {
		in.Op = OpCall
	}
	return in
}

// target records a write to t.
func (b *builder) target(in *Instr, t Expr, compound bool) {
	switch {
	case len(t) == 0:
		return
	case isDecl(t):
		name := t[len(t)-1].Text
		b.locals[name] = true
		in.Def = appendVar(in.Def, name)
		return
	case len(t) == 1 && t[0].Kind == TokIdent:
		name := t[0].Text
		in.Def = appendVar(in.Def, name)
		if compound {
			in.Use = appendVar(in.Use, name)
		}
		b.noteStateWrite(in, name)
		return
	}
	if t[0].Kind != TokIdent || builtins[t[0].Text] {
		in.Use = appendVar(in.Use, t.Idents()...)
		return
	}
	base := t[0].Text
	in.Def = appendVar(in.Def, base)
	in.Use = appendVar(in.Use, base)
	in.Use = appendVar(in.Use, t.Idents()...)
	in.Partial = true
	b.noteStateWrite(in, base)
}

func (b *builder) noteStateWrite(in *Instr, name string) {
	if b.state[name] && !b.locals[name] {
		in.StateWrite = append(in.StateWrite, name)
	}
}

// isDecl matches "T name", "T[] memory name", "address payable name".
func isDecl(t Expr) bool {
	if len(t) < 2 {
		return false
	}
	last := t[len(t)-1]
	if last.Kind != TokIdent || builtins[last.Text] || t[0].Kind != TokIdent || t[0].Text == "delete" {
		return false
	}
	if !IsTypeName(t[0].Text) && t[1].Kind != TokIdent && t[1].Text != "[" {
		return false
	}
	for _, tok := range t {
		switch {
		case tok.Kind == TokIdent, tok.Kind == TokNumber, tok.Text == "[", tok.Text == "]":
		default:
			return false
		}
	}
	return true
}

func appendVar(vs []cfg.Var, add ...cfg.Var) []cfg.Var {
	for _, v := range add {
		dup := false
		for _, w := range vs {
			if w == v {
				dup = true
				break
			}
		}
		if !dup {
			vs = append(vs, v)
		}
	}
	return vs
}

func revertReason(args Expr) string {
	inner := args.Unparen()
	if len(inner) == 1 && inner[0].Kind == TokString {
		return unquote(inner[0].Text)
	}
	return args.String()
}
