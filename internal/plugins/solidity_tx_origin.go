package plugins

import (
	"context"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// solidityTxOrigin flags branch conditions on tx.origin. Comparing it with
// msg.sender is the usual "caller is an EOA" check and is left alone.
type solidityTxOrigin struct{}

func (d *solidityTxOrigin) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-TX-ORIGIN",
		Title:    "tx.origin used for authorization",
		Severity: model.SeverityHigh,
		Language: model.LangSolidity,
		Requires: []pass.ID{pass.IRGeneration},
	}
}

func (d *solidityTxOrigin) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	prog, ok := pass.IROf[*solidity.Program](actx)
	if !ok {
		return nil, pass.IRNotAvailable(pass.IRGeneration)
	}
	var findings []model.Finding
	for _, f := range prog.Functions {
		f.Instrs(func(_ *cfg.Block, in *solidity.Instr) {
			if in.Op != solidity.OpCond || !in.Value.UsesTxOrigin() || in.Value.Contains("msg.sender") {
				return
			}
			fd := finding(d.Meta(), f.Unit.Path, in.Line, f.QualifiedName(), in.Value.String())
			fd.DetectorID = "solidity-tx-origin"
			fd.Confidence = 0.85
			fd.Message = "tx.origin used in authorization logic"
			fd.Rationale = "tx.origin is susceptible to phishing through intermediate contracts; use msg.sender instead."
			fd.Remediation = "Replace tx.origin with msg.sender and implement proper access control."
			fd.References = []string{"SWC-115"}
			findings = append(findings, fd)
		})
	}
	return findings, nil
}
