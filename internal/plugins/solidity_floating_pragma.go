package plugins

import (
	"context"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// solidityFloatingPragma detects version ranges that do not pin one compiler
// release (SWC-103).
type solidityFloatingPragma struct{}

func (d *solidityFloatingPragma) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "SOL-FLOATING-PRAGMA",
		Title:    "Floating pragma solidity version",
		Severity: model.SeverityMedium,
		Language: model.LangSolidity,
		Requires: []pass.ID{pass.SyntaxAnalysis},
	}
}

func (d *solidityFloatingPragma) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	pragmas, err := pass.RequireArtifact[[]analyses.Pragma](actx, pass.SyntaxAnalysis, analyses.KeyPragmas)
	if err != nil {
		return nil, err
	}
	var findings []model.Finding
	for _, p := range pragmas {
		if p.Missing() || !p.Floating {
			continue
		}
		f := finding(d.Meta(), p.File, p.Line, "", p.Constraint)
		f.DetectorID = "solidity-floating-pragma"
		f.Confidence = 0.9
		f.Message = "Floating pragma solidity version " + p.Constraint
		if p.Before("v0.8.0") {
			f.Message += " admits compilers without checked arithmetic"
		}
		f.Rationale = "Using version ranges can yield different compiler behavior across builds."
		f.Remediation = "Pin to an exact compiler version, e.g., pragma solidity 0.8.20; and enforce in CI."
		f.References = []string{"SWC-103"}
		findings = append(findings, f)
	}
	return findings, nil
}
