// Package dataflow implements a generic worklist solver computing fixpoints
// of monotone transfer functions over a cfg.Graph.
package dataflow

import (
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
)

// DefaultMaxIterations bounds the number of block visits of one Solve call.
const DefaultMaxIterations = 10000

// Direction is the direction facts flow in.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Transfer maps the fact before a statement to the fact after it (in the
// direction of the analysis).
type Transfer[L any] interface {
	TransferStmt(s cfg.Stmt, fact L) L
}

// BlockTransfer may be implemented by a Transfer to replace the default
// per-block fold over statements.
type BlockTransfer[L any] interface {
	TransferBlock(b *cfg.Block, fact L, dir Direction) L
}

// TerminatorTransfer may be implemented by a Transfer whose facts depend on
// the values a terminator reads, such as a branch condition.
type TerminatorTransfer[L any] interface {
	TransferTerm(t cfg.Terminator, fact L) L
}

// TransferFunc adapts a function to Transfer.
type TransferFunc[L any] func(s cfg.Stmt, fact L) L

func (f TransferFunc[L]) TransferStmt(s cfg.Stmt, fact L) L { return f(s, fact) }

// Result holds the fixpoint, or the best approximation reached before the
// iteration cap when Converged is false.
type Result[L any] struct {
	Entry      map[cfg.BlockID]L
	Exit       map[cfg.BlockID]L
	Iterations int
	Converged  bool
}

// EntryOf returns the fact at the entry of block id.
func (r *Result[L]) EntryOf(id cfg.BlockID) L { return r.Entry[id] }

// ExitOf returns the fact at the exit of block id.
func (r *Result[L]) ExitOf(id cfg.BlockID) L { return r.Exit[id] }

// Solver computes data-flow fixpoints for one lattice and transfer function.
// A Solver holds no per-call state and may be shared between goroutines.
type Solver[L any] struct {
	Lattice       lattice.Lattice[L]
	Transfer      Transfer[L]
	Direction     Direction
	MaxIterations int
}

// NewSolver returns a solver with the default iteration cap.
func NewSolver[L any](l lattice.Lattice[L], t Transfer[L], dir Direction) *Solver[L] {
	return &Solver[L]{Lattice: l, Transfer: t, Direction: dir, MaxIterations: DefaultMaxIterations}
}

// Solve runs the analysis over g, whose metadata must have been computed.
// initial seeds the entry block (forward) or the exit blocks (backward).
func (s *Solver[L]) Solve(g *cfg.Graph, initial L) *Result[L] {
	if s.Direction == Backward {
		return s.solveBackward(g, initial)
	}
	return s.solveForward(g, initial)
}

func (s *Solver[L]) maxIterations() int {
	if s.MaxIterations > 0 {
		return s.MaxIterations
	}
	return DefaultMaxIterations
}

func (s *Solver[L]) transferBlock(b *cfg.Block, fact L) L {
	if bt, ok := s.Transfer.(BlockTransfer[L]); ok {
		return bt.TransferBlock(b, fact, s.Direction)
	}
	if s.Direction == Backward {
		fact = s.transferTerm(b, fact)
		for i := len(b.Stmts) - 1; i >= 0; i-- {
			fact = s.Transfer.TransferStmt(b.Stmts[i], fact)
		}
		return fact
	}
	for _, st := range b.Stmts {
		fact = s.Transfer.TransferStmt(st, fact)
	}
	return s.transferTerm(b, fact)
}

func (s *Solver[L]) transferTerm(b *cfg.Block, fact L) L {
	if tt, ok := s.Transfer.(TerminatorTransfer[L]); ok && b.Term != nil {
		return tt.TransferTerm(b.Term, fact)
	}
	return fact
}

// Walk replays the statement transfer over every block reached by res and
// calls visit with the fact holding just before statement i executes
// (forward) or just after it executes (backward). Blocks are visited in
// ascending id order and statements in program order.
func (s *Solver[L]) Walk(g *cfg.Graph, res *Result[L], visit func(b *cfg.Block, i int, fact L)) {
	for _, id := range g.IDs() {
		b := g.Block(id)
		if s.Direction == Forward {
			fact := res.Entry[id]
			for i, st := range b.Stmts {
				visit(b, i, fact)
				fact = s.Transfer.TransferStmt(st, fact)
			}
			continue
		}
		facts := make([]L, len(b.Stmts))
		fact := s.transferTerm(b, res.Exit[id])
		for i := len(b.Stmts) - 1; i >= 0; i-- {
			facts[i] = fact
			fact = s.Transfer.TransferStmt(b.Stmts[i], fact)
		}
		for i := range b.Stmts {
			visit(b, i, facts[i])
		}
	}
}

func (s *Solver[L]) init(g *cfg.Graph) *Result[L] {
	res := &Result[L]{
		Entry: make(map[cfg.BlockID]L, len(g.Blocks)),
		Exit:  make(map[cfg.BlockID]L, len(g.Blocks)),
	}
	for id := range g.Blocks {
		res.Entry[id] = s.Lattice.Bottom()
		res.Exit[id] = s.Lattice.Bottom()
	}
	return res
}

func order(g *cfg.Graph) []cfg.BlockID {
	if len(g.RPO) > 0 {
		return g.RPO
	}
	return g.IDs()
}

func (s *Solver[L]) solveForward(g *cfg.Graph, initial L) *Result[L] {
	res := s.init(g)
	if g.Block(g.Entry) != nil {
		res.Entry[g.Entry] = initial
	}
	wl := newWorklist(order(g))
	limit := s.maxIterations()
	for !wl.empty() {
		if res.Iterations >= limit {
			return res
		}
		res.Iterations++
		b := g.Block(wl.pop())
		in := res.Entry[b.ID]
		if b.ID != g.Entry {
			in = s.Lattice.Bottom()
			for _, p := range b.Preds {
				if _, ok := res.Exit[p]; ok {
					in = s.Lattice.Join(in, res.Exit[p])
				}
			}
		}
		res.Entry[b.ID] = in
		out := s.transferBlock(b, in)
		if s.Lattice.Equal(out, res.Exit[b.ID]) {
			continue
		}
		res.Exit[b.ID] = out
		for _, succ := range b.Succs {
			if g.Block(succ) != nil {
				wl.push(succ)
			}
		}
	}
	res.Converged = true
	return res
}

func (s *Solver[L]) solveBackward(g *cfg.Graph, initial L) *Result[L] {
	res := s.init(g)
	for _, id := range g.Exits {
		res.Exit[id] = initial
	}
	seed := append([]cfg.BlockID(nil), order(g)...)
	for i, j := 0, len(seed)-1; i < j; i, j = i+1, j-1 {
		seed[i], seed[j] = seed[j], seed[i]
	}
	wl := newWorklist(seed)
	limit := s.maxIterations()
	for !wl.empty() {
		if res.Iterations >= limit {
			return res
		}
		res.Iterations++
		b := g.Block(wl.pop())
		out := s.Lattice.Bottom()
		if g.IsExit(b.ID) {
			out = initial
		}
		for _, succ := range b.Succs {
			if _, ok := res.Entry[succ]; ok {
				out = s.Lattice.Join(out, res.Entry[succ])
			}
		}
		res.Exit[b.ID] = out
		in := s.transferBlock(b, out)
		if s.Lattice.Equal(in, res.Entry[b.ID]) {
			continue
		}
		res.Entry[b.ID] = in
		for _, p := range b.Preds {
			if g.Block(p) != nil {
				wl.push(p)
			}
		}
	}
	res.Converged = true
	return res
}
