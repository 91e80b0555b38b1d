package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// solidityUnusedAssignment reports local assignments whose value is never
// read on any path.
type solidityUnusedAssignment struct{}

func (d *solidityUnusedAssignment) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-UNUSED-ASSIGNMENT",
		Title:    "Assigned value is never used",
		Severity: model.SeverityLow,
		Language: model.LangSolidity,
		Requires: []pass.ID{pass.DataFlow},
	}
}

func (d *solidityUnusedAssignment) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	facts, err := sortedFacts(actx, d.Meta().ID)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, ff := range facts {
		ff.WalkLiveness(func(_ *cfg.Block, in *solidity.Instr, live lattice.Set[cfg.Var]) {
			if in.Op != solidity.OpAssign && in.Op != solidity.OpDeclare {
				return
			}
			if len(in.Value) == 0 || in.Partial || in.External != "" {
				return
			}
			for _, v := range in.Def {
				if strings.HasPrefix(v, "%") || len(in.StateWrite) > 0 || live.Has(v) {
					continue
				}
				f := finding(d.Meta(), ff.IR.Unit.Path, in.Line, ff.IR.QualifiedName(), v)
				f.DetectorID = "solidity-unused-assignment"
				f.Confidence = 0.75
				f.Message = fmt.Sprintf("Value assigned to %s is never used", v)
				f.Rationale = "A dead store usually means a forgotten check or a misspelled variable."
				f.Remediation = "Remove the assignment or use the value."
				findings = append(findings, f)
			}
		})
	}
	return findings, nil
}
