package plugins

import (
	"context"
	"fmt"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// solidityConstantCondition reports branch conditions over variables that
// constant propagation folds to a single value. Literal conditions such as
// while (true) are intentional and skipped.
type solidityConstantCondition struct{}

func (d *solidityConstantCondition) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-CONSTANT-CONDITION",
		Title:    "Condition is always true or always false",
		Severity: model.SeverityLow,
		Language: model.LangSolidity,
		Requires: []pass.ID{pass.DataFlow},
	}
}

func (d *solidityConstantCondition) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	facts, err := sortedFacts(actx, d.Meta().ID)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, ff := range facts {
		ff.WalkConstants(func(_ *cfg.Block, in *solidity.Instr, env solidity.Env) {
			if in.Op != solidity.OpCond || len(in.Value.Idents()) == 0 {
				return
			}
			v, ok := solidity.EvalConst(in.Value, env)
			if !ok {
				return
			}
			f := finding(d.Meta(), ff.IR.Unit.Path, in.Line, ff.IR.QualifiedName(), in.Value.String())
			f.DetectorID = "solidity-constant-condition"
			f.Confidence = 0.7
			f.Message = fmt.Sprintf("Condition %s is always %t", in.Value, v.Sign() != 0)
			f.Rationale = "One branch can never execute, which often hides a logic error."
			f.Remediation = "Remove the dead branch or fix the condition."
			findings = append(findings, f)
		})
	}
	return findings, nil
}
