package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// solidityDeadCode reports internal and private functions that no exposed
// function reaches. Internal ones may serve contracts outside the scan, so
// they get a lower confidence.
type solidityDeadCode struct{}

func (d *solidityDeadCode) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-DEAD-CODE",
		Title:    "Function is never called",
		Severity: model.SeverityLow,
		Language: model.LangSolidity,
		Requires: []pass.ID{pass.SymbolTable, pass.CallGraph},
	}
}

func (d *solidityDeadCode) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	st, err := pass.RequireArtifact[*analyses.SymbolTable](actx, pass.SymbolTable, analyses.KeySymbols)
	if err != nil {
		return nil, err
	}
	g, err := pass.RequireArtifact[*analyses.CallGraph](actx, pass.CallGraph, analyses.KeyCallGraph)
	if err != nil {
		return nil, err
	}
	reachable := g.Reachable()
	names := make([]string, 0, len(st.Functions))
	for name := range st.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []model.Finding
	for _, name := range names {
		s := st.Functions[name]
		fn := s.Func
		if fn.Kind != "function" || fn.Body == nil || reachable[name] {
			continue
		}
		if s.Contract.Kind != "contract" || (fn.Visibility != "internal" && fn.Visibility != "private") {
			continue
		}
		f := finding(d.Meta(), s.Unit.Path, fn.Line, name, "unreachable")
		f.DetectorID = "solidity-dead-code"
		f.Confidence = 0.5
		if fn.Visibility == "private" {
			f.Confidence = 0.85
		}
		f.Message = fmt.Sprintf("%s %s function %s is never called", fn.Visibility, s.Contract.Name, fn.Name)
		f.Rationale = "Unused code increases the audit surface and deployment cost."
		f.Remediation = "Remove the function or call it where intended."
		findings = append(findings, f)
	}
	return findings, nil
}
