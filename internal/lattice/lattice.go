// Package lattice provides the algebraic structures data-flow analyses use to
// represent approximate facts.
//
// A Lattice holds the operations; values are plain data. Every instance
// satisfies:
//
//	Leq(Bottom(), x)
//	Join(x, x) == x
//	Join(x, y) == Join(y, x)
//	Join(x, Join(y, z)) == Join(Join(x, y), z)
//	Leq(x, y) == Equal(Join(x, y), y)
//
// Join and Meet never mutate their arguments.
package lattice

import (
	"errors"
	"fmt"
)

// Lattice is the set of operations over values of type V.
type Lattice[V any] interface {
	Bottom() V
	// Top returns the greatest element. Lattices without a finite universe
	// return an error wrapping errors.ErrUnsupported.
	Top() (V, error)
	Join(a, b V) V
	Meet(a, b V) V
	Leq(a, b V) bool
	Equal(a, b V) bool
}

func unsupportedTop(name string) error {
	return fmt.Errorf("%s has no top element: %w", name, errors.ErrUnsupported)
}
