package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/goanalysis"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

func analyzeFixtures(t *testing.T) *pass.Context {
	t.Helper()
	u, err := solidity.ParseFile(filepath.Join("testdata", "Bank.sol"))
	if err != nil {
		t.Fatal(err)
	}
	src, err := os.ReadFile(filepath.Join("testdata", "chaincode.go.txt"))
	if err != nil {
		t.Fatal(err)
	}
	actx := pass.NewContext("testdata", u, &goanalysis.File{Name: "chaincode.go", Src: string(src)})
	m, err := analyses.NewManager(pass.DefaultExecutorConfig(), nil, analyses.DataFlowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Run(context.Background(), actx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return actx
}

type located struct {
	Rule string
	File string
	Line int
}

func TestBuiltinDetectors(t *testing.T) {
	r := NewRegistry(nil)
	r.RegisterBuiltin()
	findings, err := r.Run(context.Background(), analyzeFixtures(t))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var got []located
	for _, f := range findings {
		got = append(got, located{f.RuleID, f.File, f.StartLine})
	}
	const bank = "testdata/Bank.sol"
	want := []located{
		{"FAB-PUTSTATE-NO-IDENTITY", "chaincode.go", 24},
		{"FAB-PUTSTATE-NO-IDENTITY", "chaincode.go", 28},
		{"SOL-FLOATING-PRAGMA", bank, 2},
		{"SOL-REENTRANCY", bank, 20},
		{"SOL-UNCHECKED-LOWLEVEL", bank, 31},
		{"SOL-REENTRANCY", bank, 33},
		{"SOL-TX-ORIGIN", bank, 37},
		{"SOL-UNUSED-ASSIGNMENT", bank, 38},
		{"SOL-CONSTANT-CONDITION", bank, 40},
		{"SOL-DEAD-CODE", bank, 46},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("findings (-want +got):\n%s", diff)
	}

	confidence := map[located]float64{}
	for _, f := range findings {
		confidence[located{f.RuleID, f.File, f.StartLine}] = f.Confidence
		if f.Fingerprint == "" || f.Message == "" {
			t.Errorf("%s at %d lacks fingerprint or message", f.RuleID, f.StartLine)
		}
	}
	for _, tt := range []struct {
		loc  located
		want float64
	}{
		{located{"SOL-REENTRANCY", bank, 20}, 0.9},
		{located{"SOL-REENTRANCY", bank, 33}, 0.6},
		{located{"FAB-PUTSTATE-NO-IDENTITY", "chaincode.go", 24}, 0.55},
		{located{"FAB-PUTSTATE-NO-IDENTITY", "chaincode.go", 28}, 0.8},
		{located{"SOL-DEAD-CODE", bank, 46}, 0.85},
	} {
		if got := confidence[tt.loc]; got != tt.want {
			t.Errorf("%v confidence = %v, want %v", tt.loc, got, tt.want)
		}
	}
}

type stubDetector struct {
	id       string
	requires []pass.ID
	err      error
	delay    time.Duration
}

func (d *stubDetector) Meta() model.RuleMeta {
	return model.RuleMeta{ID: d.id, Severity: model.SeverityLow, Requires: d.requires}
}

func (d *stubDetector) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	if d.err != nil {
		return nil, d.err
	}
	time.Sleep(d.delay)
	return []model.Finding{{RuleID: d.id, File: `dir\a.sol`, StartLine: 1}}, nil
}

func TestRegistrySkipsAndTolerates(t *testing.T) {
	actx := pass.NewContext("")
	actx.MarkCompleted(pass.SymbolTable)
	r := NewRegistry(nil)
	r.Workers = 1
	r.Register(&stubDetector{id: "OK", requires: []pass.ID{pass.SymbolTable}})
	r.Register(&stubDetector{id: "NEEDS-IR", requires: []pass.ID{pass.IRGeneration}})
	r.Register(&stubDetector{id: "BROKEN", err: errors.New("boom")})

	got, err := r.Run(context.Background(), actx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 1 || got[0].RuleID != "OK" {
		t.Fatalf("findings = %+v", got)
	}
	if want := filepath.ToSlash(`dir\a.sol`); got[0].File != want {
		t.Errorf("File = %q, want %q", got[0].File, want)
	}
	var ids []string
	for _, m := range r.Rules() {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]string{"BROKEN", "NEEDS-IR", "OK"}, ids); diff != "" {
		t.Errorf("Rules (-want +got):\n%s", diff)
	}
}

func TestRegistryReportsDeadline(t *testing.T) {
	r := NewRegistry(nil)
	r.Workers = 1
	r.Register(&stubDetector{id: "SLOW", delay: 100 * time.Millisecond})
	r.Register(&stubDetector{id: "NEXT"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := r.Run(ctx, pass.NewContext(""))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	for _, f := range got {
		if f.RuleID == "NEXT" {
			t.Error("NEXT ran after the deadline")
		}
	}
}
