package plugins

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// solidityReentrancy flags state writes reachable after an external call.
// A call on every path to the write is reported with higher confidence
// than a call on some path.
type solidityReentrancy struct{}

func (d *solidityReentrancy) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-REENTRANCY",
		Title:    "State written after external call",
		Severity: model.SeverityHigh,
		Language: model.LangSolidity,
		Requires: []pass.ID{pass.DataFlow},
	}
}

func (d *solidityReentrancy) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	facts, err := sortedFacts(actx, d.Meta().ID)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, ff := range facts {
		fn := ff.IR.Func
		if fn.ReadOnly() || guarded(fn) {
			continue
		}
		var (
			write *solidity.Instr
			at    analyses.CallFact
		)
		ff.WalkCalls(func(_ *cfg.Block, in *solidity.Instr, fact analyses.CallFact) {
			if write != nil || len(in.StateWrite) == 0 || fact.First.Len() == 0 || fact.Second.IsBottom() {
				return
			}
			write, at = in, fact
		})
		if write == nil {
			continue
		}
		calls := lattice.Sorted(at.First)
		f := finding(d.Meta(), ff.IR.Unit.Path, write.Line, ff.IR.QualifiedName(), strings.Join(write.StateWrite, ","))
		f.DetectorID = "solidity-reentrancy"
		f.Confidence = 0.6
		if all, ok := at.Second.Value(); ok && all {
			f.Confidence = 0.9
		}
		f.Message = fmt.Sprintf("%s writes %s after the external call at line %d",
			ff.IR.QualifiedName(), strings.Join(write.StateWrite, ", "), calls[0])
		f.Rationale = "The callee can re-enter before the state update and observe stale state."
		f.Remediation = "Apply checks-effects-interactions or add a reentrancy guard."
		f.References = []string{"SWC-107"}
		findings = append(findings, f)
	}
	return findings, nil
}

func guarded(fn *solidity.Function) bool {
	return slices.ContainsFunc(fn.Modifiers, func(m string) bool {
		return strings.Contains(strings.ToLower(m), "nonreentrant")
	})
}
