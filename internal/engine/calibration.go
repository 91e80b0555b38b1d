package engine

import "github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"

// calibrateFindings merges findings of one rule at the same location and
// raises confidence when they corroborate each other. Order is preserved
// by first occurrence.
func calibrateFindings(in []model.Finding) []model.Finding {
	type key struct {
		file  string
		start int
		rule  string
	}
	var order []key
	groups := map[key][]model.Finding{}
	for _, f := range in {
		k := key{file: f.File, start: f.StartLine, rule: f.RuleID}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], f)
	}
	out := make([]model.Finding, 0, len(order))
	for _, k := range order {
		fs := groups[k]
		if len(fs) == 1 {
			out = append(out, fs[0])
			continue
		}
		merged := fs[0]
		totalConf := 0.0
		for _, f := range fs {
			if model.SeverityGTE(f.Severity, merged.Severity) {
				merged.Severity = f.Severity
			}
			totalConf += max(f.Confidence, 0)
		}
		merged.Confidence = min(totalConf/float64(len(fs))+0.1, 0.99)
		out = append(out, merged)
	}
	return out
}
