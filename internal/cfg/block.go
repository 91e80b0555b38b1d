// Package cfg is the control-flow graph consumed by the data-flow solver.
package cfg

import (
	"fmt"
	"strings"
)

// BlockID identifies a basic block within one graph.
type BlockID int

// Var names a variable for def/use purposes.
type Var = string

// Stmt is a straight-line statement. The graph only needs to know which
// variables it defines and which it reads.
type Stmt interface {
	Defs() []Var
	Uses() []Var
}

// Terminator ends a basic block and determines its successors.
type Terminator interface {
	Successors() []BlockID
	Uses() []Var
	String() string
}

// Jump transfers control unconditionally.
type Jump struct{ Target BlockID }

// Branch transfers control to True or False depending on Cond.
type Branch struct {
	Cond  Var
	True  BlockID
	False BlockID
}

// Return leaves the function normally.
type Return struct{ Values []Var }

// Revert aborts the call and rolls back state.
type Revert struct{ Reason string }

// Unreachable marks a block control never leaves.
type Unreachable struct{}

func (t Jump) Successors() []BlockID        { return []BlockID{t.Target} }
func (t Branch) Successors() []BlockID      { return []BlockID{t.True, t.False} }
func (t Return) Successors() []BlockID      { return nil }
func (t Revert) Successors() []BlockID      { return nil }
func (t Unreachable) Successors() []BlockID { return nil }

func (Jump) Uses() []Var        { return nil }
func (t Branch) Uses() []Var    { return nonEmpty(t.Cond) }
func (t Return) Uses() []Var    { return t.Values }
func (Revert) Uses() []Var      { return nil }
func (Unreachable) Uses() []Var { return nil }

func (t Jump) String() string      { return fmt.Sprintf("jump b%d", t.Target) }
func (t Return) String() string    { return "return " + strings.Join(t.Values, ", ") }
func (t Revert) String() string    { return fmt.Sprintf("revert %q", t.Reason) }
func (Unreachable) String() string { return "unreachable" }

func (t Branch) String() string {
	return fmt.Sprintf("branch %s ? b%d : b%d", t.Cond, t.True, t.False)
}

func nonEmpty(v Var) []Var {
	if v == "" {
		return nil
	}
	return []Var{v}
}

// Block is a basic block. Succs is derived from Term; Preds, Defs, Uses and
// UpwardExposed are filled in by Graph.ComputeMetadata.
type Block struct {
	ID    BlockID
	Stmts []Stmt
	Term  Terminator

	Succs []BlockID
	Preds []BlockID

	Defs          []Var
	Uses          []Var
	UpwardExposed []Var
}

// NewBlock returns a block with the given statements and terminator.
func NewBlock(id BlockID, term Terminator, stmts ...Stmt) *Block {
	if term == nil {
		term = Unreachable{}
	}
	b := &Block{ID: id, Stmts: stmts, Term: term}
	b.Succs = dedupe(term.Successors())
	return b
}

// IsExit reports whether control leaves the function at b.
func (b *Block) IsExit() bool {
	switch b.Term.(type) {
	case Return, Revert:
		return true
	}
	return len(b.Succs) == 0
}

// computeDefUse walks the statements in order. Only a variable read before
// any local definition counts as a use, and such uses are upward exposed.
func (b *Block) computeDefUse() {
	b.Defs, b.Uses, b.UpwardExposed = nil, nil, nil
	defined := map[Var]bool{}
	seenDef := map[Var]bool{}
	use := func(v Var) {
		if v == "" || defined[v] || contains(b.Uses, v) {
			return
		}
		b.Uses = append(b.Uses, v)
		b.UpwardExposed = append(b.UpwardExposed, v)
	}
	for _, s := range b.Stmts {
		for _, v := range s.Uses() {
			use(v)
		}
		for _, v := range s.Defs() {
			defined[v] = true
			if !seenDef[v] {
				seenDef[v] = true
				b.Defs = append(b.Defs, v)
			}
		}
	}
	for _, v := range b.Term.Uses() {
		use(v)
	}
}

func dedupe(ids []BlockID) []BlockID {
	var out []BlockID
	for _, id := range ids {
		if !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains[T comparable](xs []T, x T) bool {
	for _, y := range xs {
		if y == x {
			return true
		}
	}
	return false
}
