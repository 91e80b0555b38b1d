package goanalysis

import (
	"go/token"

	"golang.org/x/tools/go/ssa"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
)

// Instr wraps one non-control SSA instruction as a cfg.Stmt. Variables are
// SSA register and parameter names.
type Instr struct {
	Inst ssa.Instruction
	Def  []cfg.Var
	Use  []cfg.Var
	// Callee is the static callee's name or, for interface calls, the
	// method name.
	Callee string
	Line   int
}

func (in *Instr) Defs() []cfg.Var { return in.Def }
func (in *Instr) Uses() []cfg.Var { return in.Use }
func (in *Instr) String() string  { return in.Inst.String() }

// Function is a Go function converted to a control-flow graph.
type Function struct {
	Name  string
	File  string
	Line  int
	SSA   *ssa.Function
	Graph *cfg.Graph
}

// Convert builds a cfg.Graph from fn. Block i of fn becomes block i of the
// graph and its control instruction becomes the terminator.
func Convert(fn *ssa.Function) *Function {
	fset := fn.Prog.Fset
	out := &Function{Name: fn.String(), SSA: fn, Graph: cfg.New(fn.String(), 0)}
	if pos := fset.Position(fn.Pos()); pos.IsValid() {
		out.File, out.Line = pos.Filename, pos.Line
	}
	for _, bb := range fn.Blocks {
		var stmts []cfg.Stmt
		var term cfg.Terminator = cfg.Unreachable{}
		for i, inst := range bb.Instrs {
			if i == len(bb.Instrs)-1 {
				if t, ok := terminator(bb, inst); ok {
					term = t
					continue
				}
			}
			stmts = append(stmts, convertInstr(fset, inst))
		}
		out.Graph.AddBlock(cfg.NewBlock(cfg.BlockID(bb.Index), term, stmts...))
	}
	out.Graph.ComputeMetadata()
	return out
}

func terminator(bb *ssa.BasicBlock, inst ssa.Instruction) (cfg.Terminator, bool) {
	switch t := inst.(type) {
	case *ssa.Jump:
		return cfg.Jump{Target: cfg.BlockID(bb.Succs[0].Index)}, true
	case *ssa.If:
		return cfg.Branch{
			Cond:  varName(t.Cond),
			True:  cfg.BlockID(bb.Succs[0].Index),
			False: cfg.BlockID(bb.Succs[1].Index),
		}, true
	case *ssa.Return:
		var vals []cfg.Var
		for _, r := range t.Results {
			if v := varName(r); v != "" {
				vals = append(vals, v)
			}
		}
		return cfg.Return{Values: vals}, true
	case *ssa.Panic:
		return cfg.Revert{Reason: "panic"}, true
	}
	return nil, false
}

func convertInstr(fset *token.FileSet, inst ssa.Instruction) *Instr {
	in := &Instr{Inst: inst}
	if pos := fset.Position(inst.Pos()); pos.IsValid() {
		in.Line = pos.Line
	}
	if v, ok := inst.(ssa.Value); ok && v.Name() != "" {
		in.Def = []cfg.Var{v.Name()}
	}
	for _, op := range inst.Operands(nil) {
		if op == nil || *op == nil {
			continue
		}
		if v := varName(*op); v != "" && !contains(in.Use, v) {
			in.Use = append(in.Use, v)
		}
	}
	if call, ok := inst.(ssa.CallInstruction); ok {
		in.Callee = calleeName(call.Common())
	}
	return in
}

func calleeName(c *ssa.CallCommon) string {
	if c.IsInvoke() {
		return c.Method.Name()
	}
	if fn := c.StaticCallee(); fn != nil {
		if fn.Signature.Recv() != nil {
			return fn.Name()
		}
		return fn.String()
	}
	if b, ok := c.Value.(*ssa.Builtin); ok {
		return b.Name()
	}
	return ""
}

// varName names values held in registers or parameters. Constants,
// globals and functions are not variables.
func varName(v ssa.Value) cfg.Var {
	switch v.(type) {
	case nil, *ssa.Const, *ssa.Function, *ssa.Global, *ssa.Builtin:
		return ""
	}
	return v.Name()
}

func contains(vs []cfg.Var, v cfg.Var) bool {
	for _, w := range vs {
		if w == v {
			return true
		}
	}
	return false
}
