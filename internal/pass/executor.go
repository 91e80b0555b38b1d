package pass

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/logger"
)

// ExecutorConfig controls failure policy and concurrency.
type ExecutorConfig struct {
	// FailFast aborts the run at the first failing pass.
	FailFast bool
	// Parallel runs the passes of one representation group of a level
	// concurrently.
	Parallel bool
	// Workers bounds concurrency when Parallel is set; 0 means GOMAXPROCS.
	Workers int
}

// DefaultExecutorConfig is fail-fast and sequential.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{FailFast: true}
}

// Validate reports an InvalidConfiguration error for unusable settings.
func (c ExecutorConfig) Validate() error {
	if c.Workers < 0 {
		return newError(KindInvalidConfiguration, "", "workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// Executor runs a Schedule against a Context.
type Executor struct {
	cfg    ExecutorConfig
	log    *slog.Logger
	passes map[ID]Analysis
}

func NewExecutor(cfg ExecutorConfig, log *slog.Logger) *Executor {
	if log == nil {
		log = logger.Discard()
	}
	return &Executor{cfg: cfg, log: log, passes: make(map[ID]Analysis)}
}

// Config returns the executor configuration.
func (e *Executor) Config() ExecutorConfig { return e.cfg }

// Register makes a pass available for execution.
func (e *Executor) Register(a Analysis) { e.passes[a.ID()] = a }

func (e *Executor) unregister(id ID) { delete(e.passes, id) }

// Execute runs the schedule level by level. With FailFast the first failure
// is returned as the error together with the partial result; otherwise every
// pass runs and failures are collected in the result.
func (e *Executor) Execute(ctx context.Context, sched *Schedule, actx *Context) (*ExecutionResult, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	defer actx.bindRun(ctx)()
	res := &ExecutionResult{}
	for i, lvl := range sched.Levels {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("level %d: %w", i, err)
		}
		e.log.Debug("executing level", "level", i, "ast", len(lvl.AST), "ir", len(lvl.IR), "hybrid", len(lvl.Hybrid))
		if err := e.runGroup(lvl.AST, actx, res); err != nil {
			return res, err
		}
		if len(lvl.IR) > 0 {
			if actx.HasIR() {
				if err := e.runGroup(lvl.IR, actx, res); err != nil {
					return res, err
				}
			} else {
				for _, id := range lvl.IR {
					e.log.Debug("skipping ir pass, no IR generated", "pass", id)
					res.Skipped++
					actx.recordSkipped()
				}
			}
		}
		if err := e.runGroup(lvl.Hybrid, actx, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

type outcome struct {
	info *PassInfo
	err  error
}

func (e *Executor) runGroup(ids []ID, actx *Context, res *ExecutionResult) error {
	if len(ids) == 0 {
		return nil
	}
	outcomes := make([]outcome, len(ids))
	if e.cfg.Parallel && len(ids) > 1 {
		var g errgroup.Group
		workers := e.cfg.Workers
		if workers == 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		g.SetLimit(workers)
		for i, id := range ids {
			g.Go(func() error {
				info, err := e.ExecutePass(id, actx)
				outcomes[i] = outcome{info, err}
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, id := range ids {
			info, err := e.ExecutePass(id, actx)
			outcomes[i] = outcome{info, err}
			if err != nil && e.cfg.FailFast {
				outcomes = outcomes[:i+1]
				break
			}
		}
	}

	var first error
	for i, o := range outcomes {
		if o.info == nil {
			res.Skipped++
			continue
		}
		res.record(*o.info, o.err)
		if o.err != nil {
			e.log.Warn("pass failed", "pass", ids[i], "error", o.err)
			if first == nil {
				first = o.err
			}
		}
	}
	if first != nil && e.cfg.FailFast {
		return first
	}
	return nil
}

// ExecutePass runs a single pass. It returns a nil info when the pass had
// already completed and was skipped. A pass depending on an unregistered
// pass fails with PassNotFound naming the missing one.
func (e *Executor) ExecutePass(id ID, actx *Context) (*PassInfo, error) {
	if actx.IsCompleted(id) {
		actx.recordSkipped()
		return nil, nil
	}
	a, ok := e.passes[id]
	if !ok {
		err := newError(KindPassNotFound, id, "no pass registered")
		return &PassInfo{ID: id, Name: string(id), Error: err.Error()}, err
	}
	for _, dep := range a.Dependencies() {
		if _, ok := e.passes[dep]; !ok {
			err := newError(KindPassNotFound, dep, "required by %s", id)
			return &PassInfo{ID: id, Name: a.Name(), Error: err.Error()}, err
		}
	}
	start := time.Now()
	runErr := a.Run(actx)
	elapsed := time.Since(start)
	actx.RecordPhase(string(id), elapsed)
	info := &PassInfo{ID: id, Name: a.Name(), Duration: elapsed}
	if runErr != nil {
		err := ExecutionFailed(id, runErr)
		info.Error = err.Error()
		return info, err
	}
	actx.MarkCompleted(id)
	info.Success = true
	e.log.Debug("pass completed", "pass", id, "duration", elapsed)
	return info, nil
}
