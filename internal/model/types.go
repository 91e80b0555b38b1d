package model

import (
	"strings"
	"time"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

type Language string

const (
	LangSolidity Language = "solidity"
	LangGo       Language = "go"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity is case-insensitive; unknown names map to low.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(s)) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var severityRank = map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4}

func SeverityGTE(a, b Severity) bool { return severityRank[a] >= severityRank[b] }

type RuleMeta struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Language Language `json:"language"`
	// Requires lists the passes whose artifacts the rule reads.
	Requires []pass.ID `json:"requires,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

type Finding struct {
	RuleID      string   `json:"ruleId"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence"`
	DetectorID  string   `json:"detectorId"`
	File        string   `json:"file"`
	StartLine   int      `json:"startLine"`
	EndLine     int      `json:"endLine"`
	Snippet     string   `json:"snippet,omitempty"`
	Entity      string   `json:"entity,omitempty"`
	Message     string   `json:"message"`
	Rationale   string   `json:"rationale,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
	References  []string `json:"references,omitempty"`
	Fingerprint string   `json:"fingerprint"`
}

type ScanRequest struct {
	Path       string
	TimeBudget time.Duration
	// ConfigPath overrides the upward search for a config file.
	ConfigPath string
	// Baseline overrides the config's baseline file.
	Baseline string
}

type ScanResult struct {
	Findings []Finding     `json:"findings"`
	Passes   *pass.Report  `json:"passes,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}
