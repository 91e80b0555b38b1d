package engine

import (
	"slices"
	"strings"
	"time"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/config"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
)

// A predicate decides whether a finding survives post-processing.
type predicate func(model.Finding) bool

// keep returns the findings every predicate accepts, in their original order.
func keep(findings []model.Finding, preds ...predicate) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if !slices.ContainsFunc(preds, func(p predicate) bool { return !p(f) }) {
			out = append(out, f)
		}
	}
	return out
}

// reportable returns the config driven predicates applied after detection.
func reportable(cfg config.Config, root string, contents map[string]string, now time.Time) []predicate {
	threshold := model.ParseSeverity(cfg.SeverityThreshold)
	preds := []predicate{
		func(f model.Finding) bool { return model.SeverityGTE(f.Severity, threshold) },
		func(f model.Finding) bool {
			return !isIgnored(f, cfg, now) && !hasInlineSuppression(f, root, contents)
		},
	}
	if len(cfg.Plugins) > 0 {
		preds = append(preds, func(f model.Finding) bool {
			return slices.ContainsFunc(cfg.Plugins, func(id string) bool {
				return strings.EqualFold(strings.TrimSpace(id), f.RuleID)
			})
		})
	}
	return preds
}

// unlessBaselined drops findings whose fingerprint was accepted earlier.
func unlessBaselined(b baseline) predicate {
	return func(f model.Finding) bool {
		return f.Fingerprint == "" || !b.Fingerprints[f.Fingerprint]
	}
}
