package dataflow

import (
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
)

// Liveness is the classic backward live-variables problem.
type Liveness struct{}

func (Liveness) TransferStmt(s cfg.Stmt, live lattice.Set[cfg.Var]) lattice.Set[cfg.Var] {
	return live.Without(s.Defs()...).With(s.Uses()...)
}

func (Liveness) TransferTerm(t cfg.Terminator, live lattice.Set[cfg.Var]) lattice.Set[cfg.Var] {
	return live.With(t.Uses()...)
}

// TransferBlock uses the block summary: live-in = upward-exposed ∪ (live-out − defs).
func (Liveness) TransferBlock(b *cfg.Block, live lattice.Set[cfg.Var], _ Direction) lattice.Set[cfg.Var] {
	return live.Without(b.Defs...).With(b.UpwardExposed...)
}

// SolveLiveness computes live variables at block boundaries. Nothing is live
// after an exit.
func SolveLiveness(g *cfg.Graph) *Result[lattice.Set[cfg.Var]] {
	s := NewSolver[lattice.Set[cfg.Var]](lattice.PowerSet[cfg.Var]{}, Liveness{}, Backward)
	return s.Solve(g, lattice.NewSet[cfg.Var]())
}

// Definition is a definition site: variable Var assigned by statement Index
// of block Block.
type Definition struct {
	Var   cfg.Var
	Block cfg.BlockID
	Index int
}

// UnknownSite is the Block and Index of definitions produced through
// TransferStmt, which has no position information.
const UnknownSite = -1

// ReachingDefinitions is the forward reaching-definitions problem.
type ReachingDefinitions struct{}

func (ReachingDefinitions) TransferStmt(s cfg.Stmt, defs lattice.Set[Definition]) lattice.Set[Definition] {
	return gen(kill(defs, s.Defs()), s.Defs(), UnknownSite, UnknownSite)
}

func (ReachingDefinitions) TransferBlock(b *cfg.Block, defs lattice.Set[Definition], _ Direction) lattice.Set[Definition] {
	for i, st := range b.Stmts {
		defs = gen(kill(defs, st.Defs()), st.Defs(), b.ID, i)
	}
	return defs
}

func kill(defs lattice.Set[Definition], vars []cfg.Var) lattice.Set[Definition] {
	if len(vars) == 0 {
		return defs
	}
	out := make(lattice.Set[Definition], len(defs))
	for d := range defs {
		killed := false
		for _, v := range vars {
			if d.Var == v {
				killed = true
				break
			}
		}
		if !killed {
			out[d] = struct{}{}
		}
	}
	return out
}

func gen(defs lattice.Set[Definition], vars []cfg.Var, block cfg.BlockID, index int) lattice.Set[Definition] {
	for _, v := range vars {
		defs = defs.With(Definition{Var: v, Block: block, Index: index})
	}
	return defs
}

// SolveReachingDefinitions computes the definitions reaching each block
// boundary. params are treated as defined on entry.
func SolveReachingDefinitions(g *cfg.Graph, params ...cfg.Var) *Result[lattice.Set[Definition]] {
	initial := lattice.NewSet[Definition]()
	for _, p := range params {
		initial = initial.With(Definition{Var: p, Block: UnknownSite, Index: UnknownSite})
	}
	s := NewSolver[lattice.Set[Definition]](lattice.PowerSet[Definition]{}, ReachingDefinitions{}, Forward)
	return s.Solve(g, initial)
}
