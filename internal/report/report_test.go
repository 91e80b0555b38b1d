package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

var findings = []model.Finding{
	{RuleID: "SOL-REENTRANCY", Severity: model.SeverityHigh, Confidence: 0.9, File: "a.sol", StartLine: 4, EndLine: 4,
		Message: "write after call", Fingerprint: "fp1", Snippet: "x = 1;"},
	{RuleID: "EXTRA", Severity: model.SeverityMedium, File: "b.sol", StartLine: 2, Message: "other"},
}

func TestToSARIF(t *testing.T) {
	rules := []model.RuleMeta{
		{ID: "SOL-DEAD-CODE", Title: "Dead code", Severity: model.SeverityLow},
		{ID: "SOL-REENTRANCY", Title: "Reentrancy", Severity: model.SeverityHigh, Tags: []string{"swc-107"}},
	}
	rep := &pass.Report{Passes: []pass.PassInfo{
		{ID: pass.SymbolTable, Success: true},
		{ID: pass.GoSSA, Success: false, Error: "loading ./cc: boom"},
	}}
	out, err := ToSARIF(findings, rules, rep)
	if err != nil {
		t.Fatal(err)
	}
	var log sarif
	if err := json.Unmarshal(out, &log); err != nil {
		t.Fatal(err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("log = %+v", log)
	}
	run := log.Runs[0]
	var ids []string
	for _, r := range run.Tool.Driver.Rules {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"SOL-DEAD-CODE", "SOL-REENTRANCY", "EXTRA"}, ids); diff != "" {
		t.Errorf("rules (-want +got):\n%s", diff)
	}
	if run.Tool.Driver.Name != "verazt" {
		t.Errorf("driver = %q", run.Tool.Driver.Name)
	}
	got := run.Results[0]
	if got.RuleIndex != 1 || got.Level != "error" || got.PartialFingerprints["verazt/v1"] != "fp1" {
		t.Errorf("result = %+v", got)
	}
	if s := got.Locations[0].Physical.Region.Snippet; s == nil || s.Text != "x = 1;" {
		t.Errorf("snippet = %+v", s)
	}
	if run.Results[1].RuleIndex != 2 || run.Results[1].Level != "warning" {
		t.Errorf("second result = %+v", run.Results[1])
	}
	want := []sarifInvocation{{
		ExecutionSuccessful: false,
		ToolExecutionNotifications: []sarifNotification{{
			Level:      "error",
			Message:    sarifMessage{Text: "loading ./cc: boom"},
			Descriptor: sarifDescriptorRef{ID: "go-ssa"},
		}},
	}}
	if diff := cmp.Diff(want, run.Invocations); diff != "" {
		t.Errorf("invocations (-want +got):\n%s", diff)
	}
}

func TestWritePassTable(t *testing.T) {
	rep := &pass.Report{
		Passes: []pass.PassInfo{
			{ID: pass.SymbolTable, Name: "Symbol table", Success: true, Duration: 1500 * time.Microsecond},
			{ID: pass.DataFlow, Name: "Data flow", Error: "no IR"},
		},
		PassesExecuted: 1,
		PassesSkipped:  2,
		TotalDuration:  3 * time.Millisecond,
	}
	var buf bytes.Buffer
	if err := WritePassTable(&buf, rep); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"PASS", "symbol-table", "failed: no IR", "2ms", "1 executed, 2 skipped in 3ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("table lacks %q:\n%s", want, out)
		}
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, findings); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "a.sol:4 [high] SOL-REENTRANCY write after call (confidence 0.90)") ||
		!strings.Contains(out, "    | x = 1;") || !strings.HasSuffix(out, "2 finding(s)\n") {
		t.Errorf("text output:\n%s", out)
	}
	buf.Reset()
	WriteText(&buf, nil)
	if buf.String() != "No findings.\n" {
		t.Errorf("empty output = %q", buf.String())
	}
}
