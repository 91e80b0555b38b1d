package engine

import (
	"path"
	"strings"
	"time"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/config"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
)

// SuppressMarker precedes a rule id in a source comment to silence that
// rule nearby, e.g. `// verazt:ignore SOL-TX-ORIGIN legacy auth`.
const SuppressMarker = "verazt:ignore"

// The marker applies from this many lines above a finding to one line below.
const (
	suppressAbove = 5
	suppressBelow = 1
)

func isIgnored(f model.Finding, cfg config.Config, now time.Time) bool {
	for _, ig := range cfg.Ignore {
		if expired(ig, now) {
			continue
		}
		if ig.Rule != "" && !strings.EqualFold(ig.Rule, f.RuleID) {
			continue
		}
		if ig.Path != "" && !pathMatches(ig.Path, f.File) {
			continue
		}
		return true
	}
	return false
}

func expired(ig config.IgnoreRule, now time.Time) bool {
	if ig.Expires == "" {
		return false
	}
	t, err := time.Parse(time.DateOnly, ig.Expires)
	// the rule holds through its expiry day
	return err == nil && now.After(t.AddDate(0, 0, 1))
}

// pathMatches accepts a directory prefix or a glob.
func pathMatches(pattern, file string) bool {
	pattern = strings.TrimPrefix(pattern, "./")
	if ok, err := path.Match(pattern, file); err == nil && ok {
		return true
	}
	return strings.HasPrefix(file, strings.TrimSuffix(pattern, "/"))
}

// hasInlineSuppression looks around the finding location for a
// SuppressMarker naming its rule.
func hasInlineSuppression(f model.Finding, root string, contents map[string]string) bool {
	if f.StartLine <= 0 {
		return false
	}
	src, ok := readSource(root, f.File, contents)
	if !ok {
		return false
	}
	lines := strings.Split(src, "\n")
	from := max(f.StartLine-1-suppressAbove, 0)
	to := min(f.StartLine-1+suppressBelow, len(lines)-1)
	for i := from; i <= to; i++ {
		_, rest, found := strings.Cut(lines[i], SuppressMarker)
		if !found {
			continue
		}
		if fields := strings.Fields(rest); len(fields) > 0 && strings.EqualFold(fields[0], f.RuleID) {
			return true
		}
	}
	return false
}
