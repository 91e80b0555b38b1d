package lattice

import "fmt"

// Pair is an element of a Product lattice.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) String() string { return fmt.Sprintf("(%v, %v)", p.First, p.Second) }

// Product runs two lattices side by side, which lets two independent
// analyses share one fixpoint computation.
type Product[A, B any] struct {
	First  Lattice[A]
	Second Lattice[B]
}

// NewProduct returns the product of first and second.
func NewProduct[A, B any](first Lattice[A], second Lattice[B]) Product[A, B] {
	return Product[A, B]{First: first, Second: second}
}

func (l Product[A, B]) Bottom() Pair[A, B] {
	return Pair[A, B]{l.First.Bottom(), l.Second.Bottom()}
}

func (l Product[A, B]) Top() (Pair[A, B], error) {
	a, err := l.First.Top()
	if err != nil {
		return Pair[A, B]{}, err
	}
	b, err := l.Second.Top()
	if err != nil {
		return Pair[A, B]{}, err
	}
	return Pair[A, B]{a, b}, nil
}

func (l Product[A, B]) Join(x, y Pair[A, B]) Pair[A, B] {
	return Pair[A, B]{l.First.Join(x.First, y.First), l.Second.Join(x.Second, y.Second)}
}

func (l Product[A, B]) Meet(x, y Pair[A, B]) Pair[A, B] {
	return Pair[A, B]{l.First.Meet(x.First, y.First), l.Second.Meet(x.Second, y.Second)}
}

func (l Product[A, B]) Leq(x, y Pair[A, B]) bool {
	return l.First.Leq(x.First, y.First) && l.Second.Leq(x.Second, y.Second)
}

func (l Product[A, B]) Equal(x, y Pair[A, B]) bool {
	return l.First.Equal(x.First, y.First) && l.Second.Equal(x.Second, y.Second)
}
