package lattice

import "fmt"

type flatKind uint8

const (
	flatBottom flatKind = iota
	flatValue
	flatTop
)

// FlatValue is an element of a Flat lattice: Bottom, a single value, or Top.
// The zero FlatValue is Bottom.
type FlatValue[T comparable] struct {
	kind flatKind
	val  T
}

// FlatOf wraps v.
func FlatOf[T comparable](v T) FlatValue[T] { return FlatValue[T]{kind: flatValue, val: v} }

// FlatBottom returns the bottom element.
func FlatBottom[T comparable]() FlatValue[T] { return FlatValue[T]{} }

// FlatTop returns the top element.
func FlatTop[T comparable]() FlatValue[T] { return FlatValue[T]{kind: flatTop} }

func (f FlatValue[T]) IsBottom() bool { return f.kind == flatBottom }
func (f FlatValue[T]) IsTop() bool    { return f.kind == flatTop }

// Value returns the wrapped value and whether f holds one.
func (f FlatValue[T]) Value() (T, bool) { return f.val, f.kind == flatValue }

func (f FlatValue[T]) String() string {
	switch f.kind {
	case flatBottom:
		return "⊥"
	case flatTop:
		return "⊤"
	default:
		return fmt.Sprint(f.val)
	}
}

// Flat is the flat lattice over T: distinct values are incomparable.
type Flat[T comparable] struct{}

func (Flat[T]) Bottom() FlatValue[T] { return FlatBottom[T]() }

func (Flat[T]) Top() (FlatValue[T], error) { return FlatTop[T](), nil }

func (Flat[T]) Join(a, b FlatValue[T]) FlatValue[T] {
	switch {
	case a.kind == flatBottom:
		return b
	case b.kind == flatBottom:
		return a
	case a.kind == flatTop || b.kind == flatTop:
		return FlatTop[T]()
	case a.val == b.val:
		return a
	default:
		return FlatTop[T]()
	}
}

func (Flat[T]) Meet(a, b FlatValue[T]) FlatValue[T] {
	switch {
	case a.kind == flatTop:
		return b
	case b.kind == flatTop:
		return a
	case a.kind == flatBottom || b.kind == flatBottom:
		return FlatBottom[T]()
	case a.val == b.val:
		return a
	default:
		return FlatBottom[T]()
	}
}

func (Flat[T]) Leq(a, b FlatValue[T]) bool {
	switch {
	case a.kind == flatBottom || b.kind == flatTop:
		return true
	case a.kind == flatTop || b.kind == flatBottom:
		return false
	default:
		return a.val == b.val
	}
}

func (Flat[T]) Equal(a, b FlatValue[T]) bool {
	if a.kind != b.kind {
		return false
	}
	return a.kind != flatValue || a.val == b.val
}
