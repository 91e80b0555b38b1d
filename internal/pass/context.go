package pass

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Stats are the execution statistics gathered during one analysis run.
type Stats struct {
	PassesExecuted int                      `json:"passesExecuted"`
	PassesSkipped  int                      `json:"passesSkipped"`
	Traversals     map[string]int           `json:"traversals,omitempty"`
	Phases         map[string]time.Duration `json:"phases,omitempty"`
}

// Context is the state shared by the passes of one analysis run: the input
// source units, the IR once generated, the artifacts published so far and
// the ledger of completed passes. It is safe for concurrent use.
type Context struct {
	// Root is the directory the sources were discovered under.
	Root string

	sources []any

	mu        sync.RWMutex
	run       context.Context
	ir        any
	hasIR     bool
	artifacts map[string]any
	completed map[ID]struct{}
	ordered   []ID
	stats     Stats
}

// NewContext returns a context over the given source units.
func NewContext(root string, sources ...any) *Context {
	return &Context{
		Root:      root,
		sources:   sources,
		artifacts: make(map[string]any),
		completed: make(map[ID]struct{}),
		stats: Stats{
			Traversals: make(map[string]int),
			Phases:     make(map[string]time.Duration),
		},
	}
}

// Ctx returns the context of the run currently executing passes, so that
// passes doing I/O can stop when it is canceled. Outside a run it is
// context.Background.
func (c *Context) Ctx() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil {
		return context.Background()
	}
	return c.run
}

// bindRun makes ctx the run context and returns a func restoring the
// previous one.
func (c *Context) bindRun(ctx context.Context) func() {
	c.mu.Lock()
	prev := c.run
	c.run = ctx
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.run = prev
		c.mu.Unlock()
	}
}

// Sources returns every source unit.
func (c *Context) Sources() []any { return c.sources }

// SourcesOf returns the source units of type T.
func SourcesOf[T any](c *Context) []T {
	var out []T
	for _, s := range c.sources {
		if t, ok := s.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// SetIR publishes the IR units. It is called by the IR generation pass.
func (c *Context) SetIR(ir any) {
	c.mu.Lock()
	c.ir, c.hasIR = ir, true
	c.mu.Unlock()
}

// HasIR reports whether IR has been generated.
func (c *Context) HasIR() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasIR
}

// IROf returns the IR as T. ok is false when no IR exists or it has another type.
func IROf[T any](c *Context) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.ir.(T)
	return t, ok && c.hasIR
}

// Store publishes an artifact, replacing any previous value under name.
func (c *Context) Store(name string, v any) {
	c.mu.Lock()
	c.artifacts[name] = v
	c.mu.Unlock()
}

// Has reports whether any artifact is stored under name.
func (c *Context) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.artifacts[name]
	return ok
}

// Artifacts returns the names of the stored artifacts.
func (c *Context) Artifacts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.artifacts))
	for k := range c.artifacts {
		names = append(names, k)
	}
	return names
}

// Artifact reads the artifact stored under name as T. A missing key and a
// value of another type are both reported as absent.
func Artifact[T any](c *Context, name string) (T, bool) {
	c.mu.RLock()
	v, ok := c.artifacts[name]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// RequireArtifact is Artifact that reports absence as a MissingData error
// attributed to the requesting pass.
func RequireArtifact[T any](c *Context, requester ID, name string) (T, error) {
	t, ok := Artifact[T](c, name)
	if !ok {
		return t, MissingData(requester, name)
	}
	return t, nil
}

// MarkCompleted records id as completed. Only the first call has an effect.
func (c *Context) MarkCompleted(id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.completed[id]; ok {
		return
	}
	c.completed[id] = struct{}{}
	c.ordered = append(c.ordered, id)
	c.stats.PassesExecuted++
}

// IsCompleted reports whether id has completed.
func (c *Context) IsCompleted(id ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.completed[id]
	return ok
}

// CompletedPasses returns the completed passes in completion order.
func (c *Context) CompletedPasses() []ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ID(nil), c.ordered...)
}

func (c *Context) recordSkipped() {
	c.mu.Lock()
	c.stats.PassesSkipped++
	c.mu.Unlock()
}

// RecordTraversal counts one traversal of the given kind, e.g. "function".
func (c *Context) RecordTraversal(kind string) {
	c.mu.Lock()
	c.stats.Traversals[kind]++
	c.mu.Unlock()
}

// RecordPhase adds d to the accumulated duration of phase.
func (c *Context) RecordPhase(phase string, d time.Duration) {
	c.mu.Lock()
	c.stats.Phases[phase] += d
	c.mu.Unlock()
}

// Stats returns a snapshot of the execution statistics.
func (c *Context) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Traversals = maps.Clone(c.stats.Traversals)
	s.Phases = maps.Clone(c.stats.Phases)
	return s
}
