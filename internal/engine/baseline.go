package engine

import (
	"encoding/json"
	"os"
	"slices"
	"time"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
)

// baseline is the set of accepted finding fingerprints. Files are either a
// bare JSON array of fingerprints or this struct.
type baseline struct {
	GeneratedAt  time.Time       `json:"generatedAt"`
	Fingerprints map[string]bool `json:"fingerprints"`
}

func loadBaseline(path string) (baseline, error) {
	var b baseline
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	var fp []string
	if err := json.Unmarshal(data, &fp); err == nil {
		b.Fingerprints = make(map[string]bool, len(fp))
		for _, f := range fp {
			b.Fingerprints[f] = true
		}
		return b, nil
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, err
	}
	return b, nil
}

// WriteBaseline records the fingerprints of findings as a sorted JSON array.
func WriteBaseline(path string, findings []model.Finding) error {
	var fps []string
	for _, f := range findings {
		if f.Fingerprint != "" {
			fps = append(fps, f.Fingerprint)
		}
	}
	slices.Sort(fps)
	fps = slices.Compact(fps)
	if fps == nil {
		fps = []string{}
	}
	data, err := json.MarshalIndent(fps, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
