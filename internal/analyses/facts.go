package analyses

import (
	"maps"
	"math/big"
	"strings"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/dataflow"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// ConstFact maps variables to their constant value in decimal. A variable
// missing from the map has not been assigned on any path.
type ConstFact = map[cfg.Var]lattice.FlatValue[string]

// CallFact pairs the lines of the external calls that may have executed
// with whether one executed on every path: FlatOf(true) on all paths,
// FlatOf(false) on none, Top on some.
type CallFact = lattice.Pair[lattice.Set[int], lattice.FlatValue[bool]]

// FunctionFacts are the data-flow results of one lowered function.
type FunctionFacts struct {
	IR        *solidity.FunctionIR
	Liveness  *dataflow.Result[lattice.Set[cfg.Var]]
	Reaching  *dataflow.Result[lattice.Set[dataflow.Definition]]
	Constants *dataflow.Result[ConstFact]
	Calls     *dataflow.Result[CallFact]

	live   *dataflow.Solver[lattice.Set[cfg.Var]]
	consts *dataflow.Solver[ConstFact]
	calls  *dataflow.Solver[CallFact]
}

// WalkLiveness visits every instruction with the variables live after it.
func (f *FunctionFacts) WalkLiveness(visit func(b *cfg.Block, in *solidity.Instr, live lattice.Set[cfg.Var])) {
	f.live.Walk(f.IR.Graph, f.Liveness, func(b *cfg.Block, i int, live lattice.Set[cfg.Var]) {
		if in, ok := b.Stmts[i].(*solidity.Instr); ok {
			visit(b, in, live)
		}
	})
}

// WalkConstants visits every instruction with the constants holding before
// it.
func (f *FunctionFacts) WalkConstants(visit func(b *cfg.Block, in *solidity.Instr, env solidity.Env)) {
	cp := f.consts.Transfer.(constProp)
	f.consts.Walk(f.IR.Graph, f.Constants, func(b *cfg.Block, i int, fact ConstFact) {
		if in, ok := b.Stmts[i].(*solidity.Instr); ok {
			visit(b, in, cp.env(fact))
		}
	})
}

// WalkCalls visits every instruction with the external calls that may have
// executed before it.
func (f *FunctionFacts) WalkCalls(visit func(b *cfg.Block, in *solidity.Instr, fact CallFact)) {
	f.calls.Walk(f.IR.Graph, f.Calls, func(b *cfg.Block, i int, fact CallFact) {
		if in, ok := b.Stmts[i].(*solidity.Instr); ok {
			visit(b, in, fact)
		}
	})
}

func solveFunction(f *solidity.FunctionIR, ti *TypeIndex, maxIter int) *FunctionFacts {
	ff := &FunctionFacts{IR: f}

	ff.live = dataflow.NewSolver[lattice.Set[cfg.Var]](lattice.PowerSet[cfg.Var]{}, dataflow.Liveness{}, dataflow.Backward)
	ff.live.MaxIterations = maxIter
	ff.Liveness = ff.live.Solve(f.Graph, lattice.NewSet[cfg.Var]())

	reach := dataflow.NewSolver[lattice.Set[dataflow.Definition]](lattice.PowerSet[dataflow.Definition]{}, dataflow.ReachingDefinitions{}, dataflow.Forward)
	reach.MaxIterations = maxIter
	params := lattice.NewSet[dataflow.Definition]()
	for _, p := range f.Params {
		params = params.With(dataflow.Definition{Var: p, Block: dataflow.UnknownSite, Index: dataflow.UnknownSite})
	}
	ff.Reaching = reach.Solve(f.Graph, params)

	cp := constProp{constants: ti.Env(f.Contract.Name)}
	ff.consts = dataflow.NewSolver[ConstFact](lattice.NewMap[cfg.Var, lattice.FlatValue[string]](lattice.Flat[string]{}), cp, dataflow.Forward)
	ff.consts.MaxIterations = maxIter
	init := ConstFact{}
	for _, p := range f.Params {
		init[p] = lattice.FlatTop[string]()
	}
	for _, r := range f.Func.Returns {
		if r.Name != "" {
			init[r.Name] = lattice.FlatOf("0")
		}
	}
	ff.Constants = ff.consts.Solve(f.Graph, init)

	ff.calls = dataflow.NewSolver[CallFact](lattice.NewProduct[lattice.Set[int], lattice.FlatValue[bool]](lattice.PowerSet[int]{}, lattice.Flat[bool]{}), callOrder{}, dataflow.Forward)
	ff.calls.MaxIterations = maxIter
	ff.Calls = ff.calls.Solve(f.Graph, CallFact{First: lattice.NewSet[int](), Second: lattice.FlatOf(false)})
	return ff
}

// Converged reports whether every problem reached a fixpoint.
func (f *FunctionFacts) Converged() bool {
	return f.Liveness.Converged && f.Reaching.Converged && f.Constants.Converged && f.Calls.Converged
}

// constProp is constant propagation over 256-bit values.
type constProp struct {
	constants solidity.Env
}

func (p constProp) env(fact ConstFact) solidity.Env {
	return func(name string) (*big.Int, bool) {
		if fv, ok := fact[name]; ok {
			s, known := fv.Value()
			if !known {
				return nil, false
			}
			return new(big.Int).SetString(s, 10)
		}
		if p.constants == nil {
			return nil, false
		}
		return p.constants(name)
	}
}

func (p constProp) TransferStmt(s cfg.Stmt, fact ConstFact) ConstFact {
	in, ok := s.(*solidity.Instr)
	if !ok || len(in.Def) == 0 {
		return fact
	}
	out := maps.Clone(fact)
	if out == nil {
		out = ConstFact{}
	}
	for _, d := range in.Def {
		out[d] = lattice.FlatTop[string]()
	}
	if len(in.Def) != 1 || in.Partial || in.External != "" {
		return out
	}
	def := in.Def[0]
	var x solidity.Expr
	switch in.Op {
	case solidity.OpDeclare:
		if len(in.Value) == 0 {
			out[def] = lattice.FlatOf("0")
			return out
		}
		x = in.Value
	case solidity.OpCond:
		x = in.Value
	case solidity.OpAssign:
		x = in.Value
		if op := in.AssignOp; op != "=" {
			x = binary(def, strings.TrimSuffix(op, "="), in.Value)
		}
	case solidity.OpIncDec:
		op := "-"
		if in.Value.Contains("++") {
			op = "+"
		}
		x = binary(def, op, solidity.Expr{{Kind: solidity.TokNumber, Text: "1"}})
	default:
		return out
	}
	if v, ok := solidity.EvalConst(x, p.env(fact)); ok {
		out[def] = lattice.FlatOf(v.String())
	}
	return out
}

// binary builds "name op (rhs)".
func binary(name, op string, rhs solidity.Expr) solidity.Expr {
	x := solidity.Expr{
		{Kind: solidity.TokIdent, Text: name},
		{Kind: solidity.TokPunct, Text: op},
		{Kind: solidity.TokPunct, Text: "("},
	}
	x = append(x, rhs...)
	return append(x, solidity.Token{Kind: solidity.TokPunct, Text: ")"})
}

// callOrder tracks which external calls precede each instruction.
type callOrder struct{}

func (callOrder) TransferStmt(s cfg.Stmt, fact CallFact) CallFact {
	in, ok := s.(*solidity.Instr)
	if !ok || in.External == "" {
		return fact
	}
	return CallFact{First: fact.First.With(in.Line), Second: lattice.FlatOf(true)}
}
