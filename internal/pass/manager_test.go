package pass

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type countingPass struct {
	*Func
	runs atomic.Int32
}

func newCounting(i Info, fn func(*Context) error) *countingPass {
	p := &countingPass{}
	p.Func = NewFunc(i, func(c *Context) error {
		p.runs.Add(1)
		if fn == nil {
			return nil
		}
		return fn(c)
	})
	return p
}

func TestManagerRunSharesArtifacts(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		cfg := DefaultExecutorConfig()
		cfg.Parallel = parallel
		m := NewManager(cfg, nil)

		read := func(c *Context) error {
			if v, ok := Artifact[string](c, "a"); !ok || v != "from-a" {
				return errors.New("artifact a not visible")
			}
			return nil
		}
		a := newCounting(info("A", AST), func(c *Context) error {
			c.Store("a", "from-a")
			return nil
		})
		b := newCounting(info("B", AST, "A"), read)
		cc := newCounting(info("C", AST, "A"), read)
		if err := m.Register(a, b, cc); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		actx := NewContext("")
		rep, err := m.Run(context.Background(), actx)
		if err != nil {
			t.Fatalf("parallel=%v: Run() error = %v", parallel, err)
		}
		if !rep.Success || rep.PassesExecuted != 3 || len(rep.Errors) != 0 {
			t.Errorf("parallel=%v: report = %+v", parallel, rep)
		}
		if diff := cmp.Diff([]ID{"A", "B", "C"}, actx.CompletedPasses()); diff != "" && !parallel {
			t.Errorf("CompletedPasses() (-want +got):\n%s", diff)
		}
	}
}

func TestRunPassIsIdempotent(t *testing.T) {
	m := NewManager(DefaultExecutorConfig(), nil)
	a := newCounting(info("A", AST), nil)
	b := newCounting(info("B", AST, "A"), nil)
	if err := m.Register(a, b); err != nil {
		t.Fatal(err)
	}
	actx := NewContext("")
	for range 2 {
		if err := m.RunPass(context.Background(), "B", actx); err != nil {
			t.Fatalf("RunPass() error = %v", err)
		}
	}
	if a.runs.Load() != 1 || b.runs.Load() != 1 {
		t.Errorf("runs: A=%d B=%d, want 1 each", a.runs.Load(), b.runs.Load())
	}
	if diff := cmp.Diff([]ID{"A", "B"}, actx.CompletedPasses()); diff != "" {
		t.Errorf("CompletedPasses() (-want +got):\n%s", diff)
	}

	// A full run afterwards skips both.
	rep, err := m.Run(context.Background(), actx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.PassesSkipped != 2 || rep.PassesExecuted != 0 {
		t.Errorf("report after RunPass = %+v", rep)
	}
}

func TestRunPassDetectsCycles(t *testing.T) {
	m := NewManager(DefaultExecutorConfig(), nil)
	if err := m.Register(NewFunc(info("A", AST, "B"), nil), NewFunc(info("B", AST, "A"), nil)); err != nil {
		t.Fatal(err)
	}
	err := m.RunPass(context.Background(), "A", NewContext(""))
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("RunPass() error = %v, want circular dependency", err)
	}
	if _, err := m.Run(context.Background(), NewContext("")); !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("Run() error = %v, want circular dependency", err)
	}
}

func TestRunPassErrors(t *testing.T) {
	m := NewManager(DefaultExecutorConfig(), nil)
	if err := m.Register(NewFunc(info("ir", IR), nil)); err != nil {
		t.Fatal(err)
	}
	actx := NewContext("")
	if err := m.RunPass(context.Background(), "nope", actx); !errors.Is(err, ErrPassNotFound) {
		t.Errorf("RunPass(nope) error = %v, want pass not found", err)
	}
	if err := m.RunPass(context.Background(), "ir", actx); !errors.Is(err, ErrIRNotAvailable) {
		t.Errorf("RunPass(ir) error = %v, want ir not available", err)
	}
	actx.SetIR(struct{}{})
	if err := m.RunPass(context.Background(), "ir", actx); err != nil {
		t.Errorf("RunPass(ir) with IR error = %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	m := NewManager(DefaultExecutorConfig(), nil)
	p := NewFunc(info("A", AST), nil)
	if err := m.Register(p, p); err != nil {
		t.Fatalf("re-registering the same pass: %v", err)
	}
	err := m.Register(NewFunc(info("A", AST), nil))
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Register() error = %v, want invalid configuration", err)
	}
	if len(m.Passes()) != 1 {
		t.Errorf("len(Passes()) = %d, want 1", len(m.Passes()))
	}
}

func TestDisable(t *testing.T) {
	m := NewManager(DefaultExecutorConfig(), nil)
	if err := m.Register(
		NewFunc(info("A", AST), nil),
		NewFunc(info("B", AST, "A"), nil),
		NewFunc(info("C", AST), nil),
	); err != nil {
		t.Fatal(err)
	}
	m.Disable("C")
	rep, err := m.Run(context.Background(), NewContext(""))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.PassesExecuted != 2 {
		t.Errorf("PassesExecuted = %d, want 2", rep.PassesExecuted)
	}

	m.Disable("A")
	_, err = m.Run(context.Background(), NewContext(""))
	var perr *Error
	if !errors.Is(err, ErrPassNotFound) || !errors.As(err, &perr) || perr.Pass != "A" {
		t.Errorf("Run() error = %v, want pass not found for A", err)
	}
}

func TestRunCollectsMissingDependency(t *testing.T) {
	m := NewManager(ExecutorConfig{FailFast: false}, nil)
	dependent := newCounting(info("B", AST, "ghost"), nil)
	other := newCounting(info("C", AST), nil)
	if err := m.Register(dependent, other); err != nil {
		t.Fatal(err)
	}
	actx := NewContext("")
	rep, err := m.Run(context.Background(), actx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Success || len(rep.Errors) != 2 {
		t.Fatalf("report = %+v, want two failures", rep)
	}
	for _, msg := range rep.Errors {
		if !strings.Contains(msg, "pass not found (ghost)") {
			t.Errorf("error %q does not name the missing pass", msg)
		}
	}
	if dependent.runs.Load() != 0 {
		t.Error("pass ran without its dependency")
	}
	if !actx.IsCompleted("C") {
		t.Error("unrelated pass did not run")
	}
}
