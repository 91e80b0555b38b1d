package pass

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type edge struct{ from, to ID }

func buildGraph(passes []ID, edges []edge) *DependencyGraph {
	g := NewDependencyGraph()
	for _, p := range passes {
		g.AddPass(p)
	}
	for _, e := range edges {
		g.AddDependency(e.from, e.to)
	}
	return g
}

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	tests := []struct {
		name   string
		passes []ID
		edges  []edge
	}{
		{name: "empty"},
		{name: "single", passes: []ID{"a"}},
		{name: "chain", edges: []edge{{"c", "b"}, {"b", "a"}}},
		{name: "diamond", edges: []edge{{"d", "b"}, {"d", "c"}, {"b", "a"}, {"c", "a"}}},
		{
			name:   "registration order reversed",
			passes: []ID{"z", "y", "x", "w"},
			edges:  []edge{{"w", "x"}, {"x", "y"}, {"x", "z"}},
		},
		{
			name:   "forest",
			passes: []ID{"p", "q", "r", "s"},
			edges:  []edge{{"q", "p"}, {"s", "r"}, {"s", "p"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(tt.passes, tt.edges)
			order, err := g.TopologicalSort()
			if err != nil {
				t.Fatalf("TopologicalSort() error = %v", err)
			}
			if len(order) != len(g.Passes()) {
				t.Fatalf("len(order) = %d, want %d", len(order), len(g.Passes()))
			}
			pos := map[ID]int{}
			for i, id := range order {
				pos[id] = i
			}
			for _, e := range tt.edges {
				if pos[e.to] >= pos[e.from] {
					t.Errorf("%s must precede %s in %v", e.to, e.from, order)
				}
			}
		})
	}
}

func TestTopologicalSortDetectsCycles(t *testing.T) {
	tests := []struct {
		name  string
		edges []edge
	}{
		{name: "two", edges: []edge{{"a", "b"}, {"b", "a"}}},
		{name: "self", edges: []edge{{"a", "a"}}},
		{name: "three", edges: []edge{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"d", "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(nil, tt.edges)
			order, err := g.TopologicalSort()
			if !errors.Is(err, ErrCircularDependency) {
				t.Fatalf("TopologicalSort() error = %v, want circular dependency", err)
			}
			if order != nil {
				t.Errorf("partial order %v returned alongside cycle", order)
			}
			if _, err := g.ComputeLevels(); !errors.Is(err, ErrCircularDependency) {
				t.Errorf("ComputeLevels() error = %v, want circular dependency", err)
			}
		})
	}
}

func TestComputeLevels(t *testing.T) {
	g := NewDependencyGraph()
	g.AddPass(SymbolTable)
	g.AddPass(SyntaxAnalysis)
	g.AddDependency(TypeIndex, SymbolTable)
	g.AddDependency(CallGraph, SymbolTable)
	g.AddDependency(DataFlow, CallGraph)

	levels, err := g.ComputeLevels()
	if err != nil {
		t.Fatalf("ComputeLevels() error = %v", err)
	}
	sorted := func(ids []ID) []ID {
		out := append([]ID(nil), ids...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	want := [][]ID{
		sorted([]ID{SymbolTable, SyntaxAnalysis}),
		sorted([]ID{TypeIndex, CallGraph}),
		{DataFlow},
	}
	var got [][]ID
	for _, l := range levels {
		got = append(got, sorted(l))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeLevels() mismatch (-want +got):\n%s", diff)
	}
}

func TestDependenciesSatisfied(t *testing.T) {
	g := buildGraph([]ID{"free"}, []edge{{"c", "a"}, {"c", "b"}})
	done := map[ID]bool{"a": true}
	completed := func(id ID) bool { return done[id] }

	if !g.DependenciesSatisfied("free", completed) {
		t.Error("pass without dependencies must be satisfied")
	}
	if g.DependenciesSatisfied("c", completed) {
		t.Error("c satisfied with b missing")
	}
	done["b"] = true
	if !g.DependenciesSatisfied("c", completed) {
		t.Error("c not satisfied with a and b completed")
	}
}

func TestAddDependencyIsSymmetric(t *testing.T) {
	g := NewDependencyGraph()
	g.AddDependency("b", "a")
	g.AddDependency("b", "a")
	g.AddDependency("c", "a")

	if diff := cmp.Diff([]ID{"a"}, g.Dependencies("b")); diff != "" {
		t.Errorf("Dependencies(b) (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ID{"b", "c"}, g.Dependents("a")); diff != "" {
		t.Errorf("Dependents(a) (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ID{"b", "a", "c"}, g.Passes()); diff != "" {
		t.Errorf("Passes() (-want +got):\n%s", diff)
	}
}

func TestDeepChainDoesNotRecurse(t *testing.T) {
	const n = 200000
	g := NewDependencyGraph()
	for i := 1; i < n; i++ {
		g.AddDependency(ID(fmt.Sprint(i)), ID(fmt.Sprint(i-1)))
	}
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort() error = %v", err)
	}
	if order[0] != "0" || order[n-1] != ID(fmt.Sprint(n-1)) {
		t.Errorf("order starts %s ends %s", order[0], order[n-1])
	}
}

func TestAncestorsAndDescendants(t *testing.T) {
	g := buildGraph(nil, []edge{{"d", "c"}, {"c", "a"}, {"b", "a"}, {"d", "b"}})

	anc, err := g.Ancestors("d")
	if err != nil {
		t.Fatalf("Ancestors() error = %v", err)
	}
	if diff := cmp.Diff([]ID{"a", "c", "b"}, anc); diff != "" {
		t.Errorf("Ancestors(d) (-want +got):\n%s", diff)
	}
	desc, err := g.Descendants("a")
	if err != nil {
		t.Fatalf("Descendants() error = %v", err)
	}
	if diff := cmp.Diff([]ID{"d", "c", "b"}, desc); diff != "" {
		t.Errorf("Descendants(a) (-want +got):\n%s", diff)
	}
}
