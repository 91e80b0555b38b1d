package plugins

import (
	"context"
	"fmt"
	"slices"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// Members whose success flag must be checked; transfer reverts on its own.
var flagReturningCalls = []string{"call", "delegatecall", "staticcall", "send"}

// solidityUncheckedCalls flags low-level calls whose success flag is
// discarded or never read afterwards.
type solidityUncheckedCalls struct{}

func (d *solidityUncheckedCalls) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-UNCHECKED-LOWLEVEL",
		Title:    "Unchecked low-level calls",
		Severity: model.SeverityHigh,
		Language: model.LangSolidity,
		Requires: []pass.ID{pass.DataFlow},
	}
}

func (d *solidityUncheckedCalls) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	facts, err := sortedFacts(actx, d.Meta().ID)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, ff := range facts {
		ff.WalkLiveness(func(_ *cfg.Block, in *solidity.Instr, live lattice.Set[cfg.Var]) {
			if !slices.Contains(flagReturningCalls, in.External) || in.Op == solidity.OpCond {
				return
			}
			if in.Op != solidity.OpCall && slices.ContainsFunc(in.Def, live.Has) {
				return
			}
			f := finding(d.Meta(), ff.IR.Unit.Path, in.Line, ff.IR.QualifiedName(), in.Value.String())
			f.DetectorID = "solidity-unchecked-calls"
			f.Confidence = 0.8
			f.Message = fmt.Sprintf("Return value of low-level %s is not checked", in.External)
			f.Rationale = "call/delegatecall/staticcall/send return a success flag that must be handled."
			f.Remediation = "Capture the boolean return and handle failures (require/if/rollback)."
			f.References = []string{"SWC-104"}
			findings = append(findings, f)
		})
	}
	return findings, nil
}
