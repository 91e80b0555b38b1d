package lattice

import (
	"cmp"
	"slices"
)

// Set is an immutable-by-convention set of T.
type Set[T comparable] map[T]struct{}

// NewSet returns a set holding elems.
func NewSet[T comparable](elems ...T) Set[T] {
	s := make(Set[T], len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Has reports whether e is in s.
func (s Set[T]) Has(e T) bool {
	_, ok := s[e]
	return ok
}

// Len returns the number of elements.
func (s Set[T]) Len() int { return len(s) }

// With returns a copy of s with elems added.
func (s Set[T]) With(elems ...T) Set[T] {
	out := make(Set[T], len(s)+len(elems))
	for e := range s {
		out[e] = struct{}{}
	}
	for _, e := range elems {
		out[e] = struct{}{}
	}
	return out
}

// Without returns a copy of s with elems removed.
func (s Set[T]) Without(elems ...T) Set[T] {
	out := make(Set[T], len(s))
	for e := range s {
		out[e] = struct{}{}
	}
	for _, e := range elems {
		delete(out, e)
	}
	return out
}

// Elems returns the elements in unspecified order.
func (s Set[T]) Elems() []T {
	out := make([]T, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	return out
}

// Sorted returns the elements of an ordered set in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := s.Elems()
	slices.Sort(out)
	return out
}

// PowerSet is the subset lattice over T: bottom is the empty set, join is
// union and meet is intersection. No universe is assumed, so Top is
// unsupported.
type PowerSet[T comparable] struct{}

func (PowerSet[T]) Bottom() Set[T] { return Set[T]{} }

func (PowerSet[T]) Top() (Set[T], error) { return nil, unsupportedTop("powerset lattice") }

func (PowerSet[T]) Join(a, b Set[T]) Set[T] {
	out := make(Set[T], len(a)+len(b))
	for e := range a {
		out[e] = struct{}{}
	}
	for e := range b {
		out[e] = struct{}{}
	}
	return out
}

func (PowerSet[T]) Meet(a, b Set[T]) Set[T] {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(Set[T])
	for e := range a {
		if b.Has(e) {
			out[e] = struct{}{}
		}
	}
	return out
}

func (PowerSet[T]) Leq(a, b Set[T]) bool {
	if len(a) > len(b) {
		return false
	}
	for e := range a {
		if !b.Has(e) {
			return false
		}
	}
	return true
}

func (l PowerSet[T]) Equal(a, b Set[T]) bool {
	return len(a) == len(b) && l.Leq(a, b)
}
