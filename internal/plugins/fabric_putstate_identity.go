package plugins

import (
	"context"
	"slices"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/dataflow"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/goanalysis"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

var (
	identityChecks = []string{"GetMSPID", "GetID", "GetCreator", "GetX509Certificate", "AssertAttributeValue", "GetAttributeValue", "HasAttribute"}
	ledgerWrites   = []string{"PutState", "DelState", "PutPrivateData", "DelPrivateData"}
)

// identityChecked is a forward problem over Flat[bool]: FlatOf(true) once
// the client identity has been inspected on every path, FlatOf(false) when
// on none, Top when on some.
type identityChecked struct{}

func (identityChecked) TransferStmt(s cfg.Stmt, fact lattice.FlatValue[bool]) lattice.FlatValue[bool] {
	if in, ok := s.(*goanalysis.Instr); ok && slices.Contains(identityChecks, in.Callee) {
		return lattice.FlatOf(true)
	}
	return fact
}

// fabricPutStateIdentity flags ledger writes in chaincode reached without a
// client identity check.
type fabricPutStateIdentity struct{}

func (d *fabricPutStateIdentity) Meta() model.RuleMeta {
	return model.RuleMeta{
		ID:       "FAB-PUTSTATE-NO-IDENTITY",
		Title:    "Ledger write without client identity check",
		Severity: model.SeverityHigh,
		Language: model.LangGo,
		Requires: []pass.ID{pass.GoSSA},
	}
}

func (d *fabricPutStateIdentity) Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	fns, err := pass.RequireArtifact[[]*analyses.GoFunction](actx, pass.GoSSA, analyses.KeyGoFunctions)
	if err != nil {
		return nil, err
	}
	solver := dataflow.NewSolver[lattice.FlatValue[bool]](lattice.Flat[bool]{}, identityChecked{}, dataflow.Forward)
	var findings []model.Finding
	for _, fn := range fns {
		res := solver.Solve(fn.Graph, lattice.FlatOf(false))
		solver.Walk(fn.Graph, res, func(b *cfg.Block, i int, fact lattice.FlatValue[bool]) {
			in, ok := b.Stmts[i].(*goanalysis.Instr)
			if !ok || !slices.Contains(ledgerWrites, in.Callee) || fact.IsBottom() {
				return
			}
			if checked, known := fact.Value(); known && checked {
				return
			}
			f := finding(d.Meta(), fn.File, in.Line, fn.Name, in.Callee)
			f.DetectorID = "fabric-putstate-identity"
			f.Confidence = 0.8
			f.Message = in.Callee + " without client identity validation"
			if fact.IsTop() {
				f.Confidence = 0.55
				f.Message = in.Callee + " reachable on a path without client identity validation"
			}
			f.Rationale = "Validate client identity, attributes or MSP before writing to the ledger."
			f.Remediation = "Use the cid package checks before each write path."
			findings = append(findings, f)
		})
	}
	return findings, nil
}
