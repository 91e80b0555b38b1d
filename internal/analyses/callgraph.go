package analyses

import (
	"slices"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// CallGraph holds the internal calls between functions, keyed by qualified
// name. Calls that do not resolve to a declared function are dropped.
type CallGraph struct {
	Callees map[string][]string
	Callers map[string][]string
	// Roots are the functions callable from outside their contract.
	Roots []string
}

// Reachable returns every function reachable from the roots.
func (g *CallGraph) Reachable() map[string]bool {
	seen := map[string]bool{}
	stack := slices.Clone(g.Roots)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.Callees[n]...)
	}
	return seen
}

func buildCallGraph(st *SymbolTable, prog *solidity.Program) *CallGraph {
	g := &CallGraph{Callees: map[string][]string{}, Callers: map[string][]string{}}
	for _, f := range prog.Functions {
		caller := f.QualifiedName()
		if f.Func.Exposed() || f.Func.Kind == "constructor" {
			g.Roots = append(g.Roots, caller)
		}
		f.Instrs(func(_ *cfg.Block, in *solidity.Instr) {
			for _, name := range in.Calls {
				s, ok := st.Resolve(f.Contract.Name, name)
				if !ok {
					continue
				}
				callee := s.QualifiedName()
				if !slices.Contains(g.Callees[caller], callee) {
					g.Callees[caller] = append(g.Callees[caller], callee)
					g.Callers[callee] = append(g.Callers[callee], caller)
				}
			}
		})
	}
	// Modifiers run on behalf of the functions that name them.
	for _, s := range st.Functions {
		for _, m := range s.Func.Modifiers {
			for _, c := range st.Linearize(s.Contract.Name) {
				for _, mod := range c.Modifiers {
					if mod.Name == m {
						addModifierCalls(g, st, s, c, mod)
					}
				}
			}
		}
	}
	for _, callers := range g.Callers {
		slices.Sort(callers)
	}
	return g
}

func addModifierCalls(g *CallGraph, st *SymbolTable, s Symbol, c *solidity.Contract, mod *solidity.Function) {
	f, err := solidity.LowerFunction(st.Units[c.Name], c, mod)
	if err != nil || f == nil {
		return
	}
	caller := s.QualifiedName()
	f.Instrs(func(_ *cfg.Block, in *solidity.Instr) {
		for _, name := range in.Calls {
			if t, ok := st.Resolve(s.Contract.Name, name); ok && !slices.Contains(g.Callees[caller], t.QualifiedName()) {
				g.Callees[caller] = append(g.Callees[caller], t.QualifiedName())
				g.Callers[t.QualifiedName()] = append(g.Callers[t.QualifiedName()], caller)
			}
		}
	})
}

func CallGraphPass() pass.Analysis {
	return pass.NewFunc(pass.Info{
		ID:             pass.CallGraph,
		Name:           "Call graph",
		Description:    "Resolves internal calls between functions",
		Level:          pass.LevelFunction,
		Representation: pass.IR,
		Requires:       []pass.ID{pass.SymbolTable, pass.IRGeneration},
	}, func(ctx *pass.Context) error {
		st, err := pass.RequireArtifact[*SymbolTable](ctx, pass.CallGraph, KeySymbols)
		if err != nil {
			return err
		}
		prog, err := programOf(ctx, pass.CallGraph)
		if err != nil {
			return err
		}
		ctx.RecordTraversal("ir")
		ctx.Store(KeyCallGraph, buildCallGraph(st, prog))
		return nil
	})
}
