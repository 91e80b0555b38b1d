package pass

import (
	"context"
	"log/slog"
	"time"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/logger"
)

// Manager owns a set of passes and runs them, either as a whole schedule or
// on demand one pass at a time.
type Manager struct {
	log       *slog.Logger
	order     []ID
	passes    map[ID]Analysis
	scheduler *Scheduler
	executor  *Executor
}

// NewManager returns an empty manager.
func NewManager(cfg ExecutorConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		log:       log,
		passes:    make(map[ID]Analysis),
		scheduler: NewScheduler(),
		executor:  NewExecutor(cfg, log),
	}
}

// Register adds passes. Registering the same instance twice is a no-op; a
// different pass under an existing id is an InvalidConfiguration error.
func (m *Manager) Register(passes ...Analysis) error {
	for _, p := range passes {
		id := p.ID()
		if id == "" {
			return newError(KindInvalidConfiguration, "", "pass %q has an empty id", p.Name())
		}
		if prev, ok := m.passes[id]; ok {
			if prev == p {
				continue
			}
			return newError(KindInvalidConfiguration, id, "pass registered twice")
		}
		m.passes[id] = p
		m.order = append(m.order, id)
		m.scheduler.Register(p)
		m.executor.Register(p)
	}
	return nil
}

// Pass returns the registered pass with the given id.
func (m *Manager) Pass(id ID) (Analysis, bool) {
	p, ok := m.passes[id]
	return p, ok
}

// Passes returns the registered passes in registration order.
func (m *Manager) Passes() []Analysis {
	out := make([]Analysis, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.passes[id])
	}
	return out
}

// Graph exposes the dependency graph of the registered passes.
func (m *Manager) Graph() *DependencyGraph { return m.scheduler.Graph() }

// Schedule computes the execution schedule without running it.
func (m *Manager) Schedule() (*Schedule, error) {
	return m.scheduler.ComputeSchedule()
}

// Disable removes passes from the manager before a run. A remaining pass
// that depends on a disabled one fails with PassNotFound when executed.
func (m *Manager) Disable(ids ...ID) {
	drop := make(map[ID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var order []ID
	for _, id := range m.order {
		if drop[id] {
			delete(m.passes, id)
			m.executor.unregister(id)
			continue
		}
		order = append(order, id)
	}
	m.order = order
	// Rebuild the scheduler so the graph only holds live passes.
	m.scheduler = NewScheduler()
	for _, id := range m.order {
		m.scheduler.Register(m.passes[id])
	}
}

// Run schedules and executes every registered pass.
func (m *Manager) Run(ctx context.Context, actx *Context) (*Report, error) {
	start := time.Now()
	sched, err := m.Schedule()
	if err != nil {
		return nil, err
	}
	m.log.Info("running analysis passes", "passes", sched.Len(), "levels", len(sched.Levels), "needsIR", sched.NeedsIR)
	res, err := m.executor.Execute(ctx, sched, actx)
	if err != nil {
		return nil, err
	}
	rep := newReport(res, time.Since(start), actx.Stats())
	m.log.Info("analysis finished", "executed", rep.PassesExecuted, "skipped", rep.PassesSkipped, "success", rep.Success, "duration", rep.TotalDuration)
	return rep, nil
}

// RunPass runs id on demand, first running every dependency that has not
// completed yet. It is a no-op when id already completed.
func (m *Manager) RunPass(ctx context.Context, id ID, actx *Context) error {
	defer actx.bindRun(ctx)()
	return m.runPass(ctx, id, actx, map[ID]bool{})
}

func (m *Manager) runPass(ctx context.Context, id ID, actx *Context, inProgress map[ID]bool) error {
	if actx.IsCompleted(id) {
		return nil
	}
	if inProgress[id] {
		return newError(KindCircularDependency, id, "reached again during on-demand execution")
	}
	p, ok := m.passes[id]
	if !ok {
		return newError(KindPassNotFound, id, "no pass registered")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	inProgress[id] = true
	defer delete(inProgress, id)
	for _, dep := range p.Dependencies() {
		if err := m.runPass(ctx, dep, actx, inProgress); err != nil {
			return err
		}
	}
	if p.Representation() == IR && !actx.HasIR() {
		return IRNotAvailable(id)
	}
	_, err := m.executor.ExecutePass(id, actx)
	return err
}
