package report

import (
	"encoding/json"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	toolName     = "verazt"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID                   string          `json:"id"`
	ShortDescription     sarifMessage    `json:"shortDescription"`
	DefaultConfiguration sarifRuleConfig `json:"defaultConfiguration"`
	Properties           *sarifRuleProps `json:"properties,omitempty"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifRuleProps struct {
	Tags []string `json:"tags,omitempty"`
}

// sarifInvocation carries pass failures as tool execution notifications.
type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level      string             `json:"level"`
	Message    sarifMessage       `json:"message"`
	Descriptor sarifDescriptorRef `json:"descriptor"`
}

type sarifDescriptorRef struct {
	ID string `json:"id"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLoc        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          *sarifResultProps `json:"properties,omitempty"`
}

type sarifResultProps struct {
	Confidence float64 `json:"confidence"`
	Entity     string  `json:"entity,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	Physical sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int           `json:"startLine"`
	EndLine   int           `json:"endLine,omitempty"`
	Snippet   *sarifMessage `json:"snippet,omitempty"`
}

func level(s model.Severity) string {
	switch s {
	case model.SeverityMedium:
		return "warning"
	case model.SeverityHigh, model.SeverityCritical:
		return "error"
	default:
		return "note"
	}
}

// ToSARIF renders findings as a SARIF 2.1.0 log. rules become the driver's
// rule table; every rule a finding references is listed even when absent
// from rules. Failed passes in rep are reported as notifications.
func ToSARIF(findings []model.Finding, rules []model.RuleMeta, rep *pass.Report) ([]byte, error) {
	driver := sarifDriver{Name: toolName, Version: Version}
	index := map[string]int{}
	addRule := func(m model.RuleMeta) {
		if _, ok := index[m.ID]; ok {
			return
		}
		index[m.ID] = len(driver.Rules)
		r := sarifRule{
			ID:                   m.ID,
			ShortDescription:     sarifMessage{Text: m.Title},
			DefaultConfiguration: sarifRuleConfig{Level: level(m.Severity)},
		}
		if len(m.Tags) > 0 {
			r.Properties = &sarifRuleProps{Tags: m.Tags}
		}
		driver.Rules = append(driver.Rules, r)
	}
	for _, m := range rules {
		addRule(m)
	}

	results := make([]sarifResult, 0, len(findings))
	for _, f := range findings {
		addRule(model.RuleMeta{ID: f.RuleID, Title: f.RuleID, Severity: f.Severity})
		res := sarifResult{
			RuleID:    f.RuleID,
			RuleIndex: index[f.RuleID],
			Level:     level(f.Severity),
			Message:   sarifMessage{Text: f.Message},
			Locations: []sarifLoc{{Physical: sarifPhys{
				ArtifactLocation: sarifArt{URI: f.File},
				Region:           sarifRegion{StartLine: f.StartLine, EndLine: f.EndLine},
			}}},
			Properties: &sarifResultProps{Confidence: f.Confidence, Entity: f.Entity},
		}
		if f.Snippet != "" {
			res.Locations[0].Physical.Region.Snippet = &sarifMessage{Text: f.Snippet}
		}
		if f.Fingerprint != "" {
			res.PartialFingerprints = map[string]string{"verazt/v1": f.Fingerprint}
		}
		results = append(results, res)
	}

	run := sarifRun{Tool: sarifTool{Driver: driver}, Results: results}
	if rep != nil {
		inv := sarifInvocation{ExecutionSuccessful: rep.Success}
		for _, p := range rep.Failed() {
			inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, sarifNotification{
				Level:      "error",
				Message:    sarifMessage{Text: p.Error},
				Descriptor: sarifDescriptorRef{ID: string(p.ID)},
			})
		}
		run.Invocations = []sarifInvocation{inv}
	}
	s := sarif{Schema: sarifSchema, Version: sarifVersion, Runs: []sarifRun{run}}
	return json.MarshalIndent(s, "", "  ")
}
