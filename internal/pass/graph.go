package pass

// DependencyGraph records which passes depend on which. An edge "id depends
// on dep" means dep must be scheduled before id.
type DependencyGraph struct {
	order        []ID
	passes       map[ID]struct{}
	dependencies map[ID][]ID
	dependents   map[ID][]ID
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		passes:       make(map[ID]struct{}),
		dependencies: make(map[ID][]ID),
		dependents:   make(map[ID][]ID),
	}
}

// AddPass registers id. Adding an existing pass is a no-op.
func (g *DependencyGraph) AddPass(id ID) {
	if _, ok := g.passes[id]; ok {
		return
	}
	g.passes[id] = struct{}{}
	g.order = append(g.order, id)
}

// AddDependency records that id depends on dep, registering both.
func (g *DependencyGraph) AddDependency(id, dep ID) {
	g.AddPass(id)
	g.AddPass(dep)
	g.dependencies[id] = appendUnique(g.dependencies[id], dep)
	g.dependents[dep] = appendUnique(g.dependents[dep], id)
}

// HasPass reports whether id is registered.
func (g *DependencyGraph) HasPass(id ID) bool {
	_, ok := g.passes[id]
	return ok
}

// Passes returns the registered passes in registration order.
func (g *DependencyGraph) Passes() []ID {
	return append([]ID(nil), g.order...)
}

// Dependencies returns the direct dependencies of id.
func (g *DependencyGraph) Dependencies(id ID) []ID {
	return append([]ID(nil), g.dependencies[id]...)
}

// Dependents returns the passes that directly depend on id.
func (g *DependencyGraph) Dependents(id ID) []ID {
	return append([]ID(nil), g.dependents[id]...)
}

// DependenciesSatisfied reports whether every dependency of id is completed.
func (g *DependencyGraph) DependenciesSatisfied(id ID, completed func(ID) bool) bool {
	for _, dep := range g.dependencies[id] {
		if !completed(dep) {
			return false
		}
	}
	return true
}

type dfsFrame struct {
	id   ID
	next int
}

// TopologicalSort orders the passes so that every pass follows all of its
// dependencies. A cycle yields a CircularDependency error and no order.
func (g *DependencyGraph) TopologicalSort() ([]ID, error) {
	visited := make(map[ID]bool, len(g.order))
	inProgress := make(map[ID]bool)
	sorted := make([]ID, 0, len(g.order))

	for _, root := range g.order {
		if visited[root] {
			continue
		}
		stack := []dfsFrame{{id: root}}
		inProgress[root] = true
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.dependencies[top.id]
			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				if !g.HasPass(dep) || visited[dep] {
					continue
				}
				if inProgress[dep] {
					return nil, newError(KindCircularDependency, dep, "detected while visiting %s", top.id)
				}
				inProgress[dep] = true
				stack = append(stack, dfsFrame{id: dep})
				continue
			}
			id := top.id
			stack = stack[:len(stack)-1]
			delete(inProgress, id)
			visited[id] = true
			sorted = append(sorted, id)
		}
	}
	return sorted, nil
}

// ComputeLevels groups passes by dependency depth. Passes sharing a level
// have no dependency relationship and may run concurrently.
func (g *DependencyGraph) ComputeLevels() ([][]ID, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	level := make(map[ID]int, len(sorted))
	var levels [][]ID
	for _, id := range sorted {
		l := 0
		for _, dep := range g.dependencies[id] {
			if dl, ok := level[dep]; ok && dl+1 > l {
				l = dl + 1
			}
		}
		level[id] = l
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], id)
	}
	return levels, nil
}

// Ancestors returns every transitive dependency of id, dependencies first.
// Unregistered dependencies are skipped; cycles are reported.
func (g *DependencyGraph) Ancestors(id ID) ([]ID, error) {
	return g.closure(id, g.dependencies)
}

// Descendants returns every pass that transitively depends on id.
func (g *DependencyGraph) Descendants(id ID) ([]ID, error) {
	return g.closure(id, g.dependents)
}

func (g *DependencyGraph) closure(id ID, edges map[ID][]ID) ([]ID, error) {
	visited := map[ID]bool{}
	inProgress := map[ID]bool{id: true}
	var out []ID
	stack := []dfsFrame{{id: id}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		next := edges[top.id]
		if top.next < len(next) {
			n := next[top.next]
			top.next++
			if !g.HasPass(n) || visited[n] {
				continue
			}
			if inProgress[n] {
				return nil, newError(KindCircularDependency, n, "detected while visiting %s", top.id)
			}
			inProgress[n] = true
			stack = append(stack, dfsFrame{id: n})
			continue
		}
		cur := top.id
		stack = stack[:len(stack)-1]
		delete(inProgress, cur)
		visited[cur] = true
		if cur != id {
			out = append(out, cur)
		}
	}
	return out, nil
}

func appendUnique(ids []ID, id ID) []ID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
