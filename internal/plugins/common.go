package plugins

import (
	"fmt"
	"sort"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/util"
)

// finding fills the fields shared by every finding of a rule. key
// distinguishes findings of one rule within the same entity.
func finding(meta model.RuleMeta, file string, line int, entity, key string) model.Finding {
	return model.Finding{
		RuleID:      meta.ID,
		Severity:    meta.Severity,
		File:        file,
		StartLine:   line,
		EndLine:     line,
		Entity:      entity,
		Fingerprint: util.Fingerprint(meta.ID, file, entity, line, key),
	}
}

// sortedFacts returns the data-flow facts ordered by function name.
func sortedFacts(actx *pass.Context, rule string) ([]*analyses.FunctionFacts, error) {
	facts, ok := pass.Artifact[analyses.Facts](actx, analyses.KeyFacts)
	if !ok {
		return nil, fmt.Errorf("%s: %w", rule, pass.MissingData(pass.DataFlow, analyses.KeyFacts))
	}
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*analyses.FunctionFacts, len(names))
	for i, name := range names {
		out[i] = facts[name]
	}
	return out, nil
}
