package pass

import (
	"context"
	"errors"
	"testing"
)

var errBoom = errors.New("boom")

func failing(id ID, deps ...ID) Analysis {
	return NewFunc(info(id, AST, deps...), func(*Context) error { return errBoom })
}

func newExecutorWith(cfg ExecutorConfig, passes ...Analysis) (*Executor, *Schedule) {
	e := NewExecutor(cfg, nil)
	s := NewScheduler()
	for _, p := range passes {
		e.Register(p)
		s.Register(p)
	}
	sched, err := s.ComputeSchedule()
	if err != nil {
		panic(err)
	}
	return e, sched
}

func TestExecuteFailFast(t *testing.T) {
	later := newCounting(info("later", AST, "bad"), nil)
	sibling := newCounting(info("sibling", AST), nil)
	e, sched := newExecutorWith(DefaultExecutorConfig(), failing("bad"), sibling, later)

	_, err := e.Execute(context.Background(), sched, NewContext(""))
	if !errors.Is(err, ErrExecutionFailed) || !errors.Is(err, errBoom) {
		t.Fatalf("Execute() error = %v, want wrapped boom", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Pass != "bad" {
		t.Fatalf("error does not name the failing pass: %v", err)
	}
	if later.runs.Load() != 0 {
		t.Error("a later level ran after a fail-fast failure")
	}
	if sibling.runs.Load() != 0 {
		t.Error("a pass after the failure in the same level ran")
	}
}

func TestExecuteCollectsErrors(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		later := newCounting(info("later", AST, "ok"), nil)
		cfg := ExecutorConfig{FailFast: false, Parallel: parallel, Workers: 2}
		e, sched := newExecutorWith(cfg,
			failing("bad1"),
			NewFunc(info("ok", AST), nil),
			failing("bad2", "ok"),
			later,
		)
		actx := NewContext("")
		res, err := e.Execute(context.Background(), sched, actx)
		if err != nil {
			t.Fatalf("parallel=%v: Execute() error = %v", parallel, err)
		}
		if res.IsSuccess() || res.Failed != 2 || res.Successful != 2 || len(res.Errors) != 2 {
			t.Errorf("parallel=%v: result = %+v", parallel, res)
		}
		if later.runs.Load() != 1 {
			t.Errorf("parallel=%v: remaining pass did not run", parallel)
		}
		if actx.IsCompleted("bad1") {
			t.Error("failed pass marked completed")
		}
		for _, p := range res.Passes {
			if !p.Success && p.Error == "" {
				t.Errorf("failure entry for %s has no message", p.ID)
			}
		}
	}
}

func TestExecuteSkipsIRPassesWithoutIR(t *testing.T) {
	irPass := newCounting(info("ir-consumer", IR), nil)
	e, sched := newExecutorWith(DefaultExecutorConfig(), NewFunc(info("ast", AST), nil), irPass)

	actx := NewContext("")
	res, err := e.Execute(context.Background(), sched, actx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if irPass.runs.Load() != 0 {
		t.Error("IR pass ran without IR")
	}
	if !res.IsSuccess() || res.Skipped != 1 || res.Successful != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestExecuteRunsIRPassesAfterGeneration(t *testing.T) {
	gen := NewFunc(info(IRGeneration, AST), func(c *Context) error {
		c.SetIR("ir")
		return nil
	})
	consumer := newCounting(info("consumer", IR, IRGeneration), func(c *Context) error {
		if !c.HasIR() {
			return IRNotAvailable("consumer")
		}
		return nil
	})
	e, sched := newExecutorWith(DefaultExecutorConfig(), gen, consumer)
	if sched.IRGenerationLevel != 0 {
		t.Fatalf("IRGenerationLevel = %d, want 0", sched.IRGenerationLevel)
	}
	res, err := e.Execute(context.Background(), sched, NewContext(""))
	if err != nil || !res.IsSuccess() {
		t.Fatalf("Execute() = %+v, %v", res, err)
	}
	if consumer.runs.Load() != 1 {
		t.Error("IR consumer did not run")
	}
}

func TestExecutePassNotFound(t *testing.T) {
	e := NewExecutor(DefaultExecutorConfig(), nil)
	sched := &Schedule{Levels: []ExecutionLevel{{AST: []ID{"ghost"}}}, IRGenerationLevel: -1}
	_, err := e.Execute(context.Background(), sched, NewContext(""))
	if !errors.Is(err, ErrPassNotFound) {
		t.Fatalf("Execute() error = %v, want pass not found", err)
	}
}

func TestExecuteHonorsCancellation(t *testing.T) {
	p := newCounting(info("p", AST), nil)
	e, sched := newExecutorWith(DefaultExecutorConfig(), p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Execute(ctx, sched, NewContext("")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context canceled", err)
	}
	if p.runs.Load() != 0 {
		t.Error("pass ran after cancellation")
	}
}

func TestExecutorRejectsNegativeWorkers(t *testing.T) {
	e := NewExecutor(ExecutorConfig{Workers: -1}, nil)
	if _, err := e.Execute(context.Background(), &Schedule{}, NewContext("")); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Execute() error = %v, want invalid configuration", err)
	}
}

func TestExecuteParallelFailFastFinishesLevel(t *testing.T) {
	sibling := newCounting(info("sibling", AST), nil)
	later := newCounting(info("later", AST, "sibling"), nil)
	cfg := ExecutorConfig{FailFast: true, Parallel: true, Workers: 2}
	e, sched := newExecutorWith(cfg, failing("bad"), sibling, later)

	_, err := e.Execute(context.Background(), sched, NewContext(""))
	if !errors.Is(err, errBoom) {
		t.Fatalf("Execute() error = %v, want wrapped boom", err)
	}
	if sibling.runs.Load() != 1 {
		t.Error("a concurrent pass of the failing level did not run")
	}
	if later.runs.Load() != 0 {
		t.Error("the next level ran after a fail-fast failure")
	}
}

type runKey struct{}

func TestPassesSeeRunContext(t *testing.T) {
	var seen any
	p := NewFunc(info("p", AST), func(c *Context) error {
		seen = c.Ctx().Value(runKey{})
		return nil
	})
	e, sched := newExecutorWith(DefaultExecutorConfig(), p)
	actx := NewContext("")
	ctx := context.WithValue(context.Background(), runKey{}, "scan-1")
	if _, err := e.Execute(ctx, sched, actx); err != nil {
		t.Fatal(err)
	}
	if seen != "scan-1" {
		t.Errorf("Ctx() value = %v, want scan-1", seen)
	}
	if actx.Ctx().Value(runKey{}) != nil {
		t.Error("run context outlived the run")
	}

	m := NewManager(DefaultExecutorConfig(), nil)
	if err := m.Register(NewFunc(info("q", AST), func(c *Context) error {
		seen = c.Ctx().Value(runKey{})
		return nil
	})); err != nil {
		t.Fatal(err)
	}
	if err := m.RunPass(context.WithValue(context.Background(), runKey{}, "on-demand"), "q", NewContext("")); err != nil {
		t.Fatal(err)
	}
	if seen != "on-demand" {
		t.Errorf("RunPass Ctx() value = %v, want on-demand", seen)
	}
}
