package lattice

// Map is the pointwise lattice over finite maps from K to values of the
// lattice Values.
//
// Join unions the keys; a key present on one side only is carried through
// unchanged, as if absent meant bottom. Meet keeps only the shared keys. Leq
// requires every key of the left map to exist on the right: a missing key
// fails the check rather than being compared against bottom.
type Map[K comparable, V any] struct {
	Values Lattice[V]
}

// NewMap returns the map lattice over values.
func NewMap[K comparable, V any](values Lattice[V]) Map[K, V] {
	return Map[K, V]{Values: values}
}

func (Map[K, V]) Bottom() map[K]V { return map[K]V{} }

func (Map[K, V]) Top() (map[K]V, error) { return nil, unsupportedTop("map lattice") }

func (l Map[K, V]) Join(a, b map[K]V) map[K]V {
	out := make(map[K]V, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if prev, ok := out[k]; ok {
			out[k] = l.Values.Join(prev, v)
		} else {
			out[k] = v
		}
	}
	return out
}

func (l Map[K, V]) Meet(a, b map[K]V) map[K]V {
	out := make(map[K]V)
	for k, v := range a {
		if w, ok := b[k]; ok {
			out[k] = l.Values.Meet(v, w)
		}
	}
	return out
}

func (l Map[K, V]) Leq(a, b map[K]V) bool {
	for k, v := range a {
		w, ok := b[k]
		if !ok || !l.Values.Leq(v, w) {
			return false
		}
	}
	return true
}

func (l Map[K, V]) Equal(a, b map[K]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !l.Values.Equal(v, w) {
			return false
		}
	}
	return true
}
