package lattice

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func checkLaws[V any](t *testing.T, l Lattice[V], gen func(*rand.Rand) V) {
	t.Helper()
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		x, y, z := gen(r), gen(r), gen(r)
		if !l.Equal(l.Join(x, x), x) {
			t.Fatalf("join not idempotent for %v", x)
		}
		if !l.Equal(l.Join(x, y), l.Join(y, x)) {
			t.Fatalf("join not commutative for %v, %v", x, y)
		}
		if !l.Equal(l.Join(x, l.Join(y, z)), l.Join(l.Join(x, y), z)) {
			t.Fatalf("join not associative for %v, %v, %v", x, y, z)
		}
		if !l.Leq(x, l.Join(x, y)) {
			t.Fatalf("x not below x join y for %v, %v", x, y)
		}
		if !l.Equal(l.Join(l.Bottom(), x), x) {
			t.Fatalf("bottom join x != x for %v", x)
		}
		if !l.Leq(l.Bottom(), x) {
			t.Fatalf("bottom not below %v", x)
		}
		if l.Leq(x, y) != l.Equal(l.Join(x, y), y) {
			t.Fatalf("leq disagrees with join for %v, %v", x, y)
		}
		if !l.Equal(l.Meet(x, y), l.Meet(y, x)) {
			t.Fatalf("meet not commutative for %v, %v", x, y)
		}
		if !l.Leq(l.Meet(x, y), x) {
			t.Fatalf("meet not below x for %v, %v", x, y)
		}
	}
}

func genSet(r *rand.Rand) Set[int] {
	s := NewSet[int]()
	for n := r.IntN(5); n > 0; n-- {
		s[r.IntN(6)] = struct{}{}
	}
	return s
}

func genFlat(r *rand.Rand) FlatValue[int] {
	switch r.IntN(4) {
	case 0:
		return FlatBottom[int]()
	case 1:
		return FlatTop[int]()
	default:
		return FlatOf(r.IntN(3))
	}
}

func genMap(r *rand.Rand) map[string]FlatValue[int] {
	keys := []string{"a", "b", "c"}
	m := map[string]FlatValue[int]{}
	for _, k := range keys {
		if r.IntN(2) == 0 {
			m[k] = genFlat(r)
		}
	}
	return m
}

func TestLatticeLaws(t *testing.T) {
	t.Run("powerset", func(t *testing.T) { checkLaws[Set[int]](t, PowerSet[int]{}, genSet) })
	t.Run("flat", func(t *testing.T) { checkLaws[FlatValue[int]](t, Flat[int]{}, genFlat) })
	t.Run("map", func(t *testing.T) {
		checkLaws[map[string]FlatValue[int]](t, NewMap[string](Lattice[FlatValue[int]](Flat[int]{})), genMap)
	})
	t.Run("product", func(t *testing.T) {
		l := NewProduct[FlatValue[int], Set[int]](Flat[int]{}, PowerSet[int]{})
		checkLaws[Pair[FlatValue[int], Set[int]]](t, l, func(r *rand.Rand) Pair[FlatValue[int], Set[int]] {
			return Pair[FlatValue[int], Set[int]]{genFlat(r), genSet(r)}
		})
	})
}

func TestFlatJoin(t *testing.T) {
	l := Flat[int]{}
	tests := []struct {
		name string
		a, b FlatValue[int]
		want FlatValue[int]
	}{
		{"equal values", FlatOf(42), FlatOf(42), FlatOf(42)},
		{"different values", FlatOf(42), FlatOf(99), FlatTop[int]()},
		{"bottom", FlatBottom[int](), FlatOf(42), FlatOf(42)},
		{"top", FlatTop[int](), FlatOf(42), FlatTop[int]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Join(tt.a, tt.b); got != tt.want {
				t.Errorf("Join(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFlatMeet(t *testing.T) {
	l := Flat[string]{}
	if got := l.Meet(FlatTop[string](), FlatOf("x")); got != FlatOf("x") {
		t.Errorf("Meet(top, x) = %v", got)
	}
	if got := l.Meet(FlatOf("x"), FlatOf("y")); !got.IsBottom() {
		t.Errorf("Meet(x, y) = %v, want bottom", got)
	}
	if got := l.Meet(FlatOf("x"), FlatOf("x")); got != FlatOf("x") {
		t.Errorf("Meet(x, x) = %v", got)
	}
	if v, ok := FlatOf("x").Value(); !ok || v != "x" {
		t.Errorf("Value() = %q, %v", v, ok)
	}
}

func TestPowerSet(t *testing.T) {
	l := PowerSet[int]{}
	a, b := NewSet(1, 2), NewSet(2, 3)

	if diff := cmp.Diff([]int{1, 2, 3}, Sorted(l.Join(a, b))); diff != "" {
		t.Errorf("Join (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, Sorted(l.Meet(a, b))); diff != "" {
		t.Errorf("Meet (-want +got):\n%s", diff)
	}
	if !l.Leq(NewSet(2), a) || l.Leq(a, b) {
		t.Error("Leq is not the subset test")
	}
	if _, err := l.Top(); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Top() error = %v, want unsupported", err)
	}
	if a.Len() != 2 {
		t.Error("Join mutated its argument")
	}
}

func TestMapLatticeAsymmetry(t *testing.T) {
	l := NewMap[string, FlatValue[int]](Flat[int]{})
	a := map[string]FlatValue[int]{"x": FlatOf(1)}
	b := map[string]FlatValue[int]{"x": FlatOf(2), "y": FlatOf(3)}

	j := l.Join(a, b)
	if j["x"] != FlatTop[int]() || j["y"] != FlatOf(3) {
		t.Errorf("Join = %v", j)
	}
	m := l.Meet(a, b)
	if len(m) != 1 || !m["x"].IsBottom() {
		t.Errorf("Meet = %v", m)
	}
	// y is absent on the left, which join treats as bottom, but leq does not
	// treat a key missing on the right as bottom.
	if !l.Leq(map[string]FlatValue[int]{}, b) {
		t.Error("empty map must be below every map")
	}
	if l.Leq(map[string]FlatValue[int]{"z": FlatBottom[int]()}, b) {
		t.Error("a key missing on the right must fail Leq even when its value is bottom")
	}
	if _, err := l.Top(); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Top() error = %v, want unsupported", err)
	}
}

func TestProductTop(t *testing.T) {
	withSet := NewProduct[FlatValue[int], Set[int]](Flat[int]{}, PowerSet[int]{})
	if _, err := withSet.Top(); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Top() error = %v, want unsupported", err)
	}
	flat := NewProduct[FlatValue[int], FlatValue[string]](Flat[int]{}, Flat[string]{})
	top, err := flat.Top()
	if err != nil || !top.First.IsTop() || !top.Second.IsTop() {
		t.Errorf("Top() = %v, %v", top, err)
	}
}
