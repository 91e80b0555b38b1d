package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// FileNames are the config files searched for, in order of preference.
var FileNames = []string{".verazt.json", ".verazt.yaml", ".verazt.yml"}

type IgnoreRule struct {
	Rule    string `json:"rule" yaml:"rule"`
	Path    string `json:"path" yaml:"path"`
	Reason  string `json:"reason" yaml:"reason"`
	Expires string `json:"expires,omitempty" yaml:"expires,omitempty"`
}

type Solc struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

type Cache struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type Config struct {
	SeverityThreshold string       `json:"severityThreshold" yaml:"severityThreshold"`
	TimeBudgetMs      int          `json:"timeBudgetMs" yaml:"timeBudgetMs"`
	Ignore            []IgnoreRule `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	Plugins           []string     `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	DisabledPasses    []string     `json:"disabledPasses,omitempty" yaml:"disabledPasses,omitempty"`
	FailFast          bool         `json:"failFast" yaml:"failFast"`
	Parallel          bool         `json:"parallel" yaml:"parallel"`
	Workers           int          `json:"workers" yaml:"workers"`
	MaxIterations     int          `json:"maxIterations" yaml:"maxIterations"`
	Baseline          string       `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Solc              Solc         `json:"solc" yaml:"solc"`
	Cache             Cache        `json:"cache" yaml:"cache"`
	LogLevel          string       `json:"logLevel" yaml:"logLevel"`
}

// Default returns the settings used when no config file is found. A zero
// TimeBudgetMs leaves scans unbounded.
func Default() Config {
	return Config{
		SeverityThreshold: "low",
		FailFast:          true,
		Parallel:          true,
		MaxIterations:     10000,
		Cache:             Cache{Enabled: true},
		LogLevel:          "info",
	}
}

var severities = []string{"low", "medium", "high", "critical"}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(severities, strings.ToLower(c.SeverityThreshold)) {
		errs = append(errs, fmt.Errorf("severityThreshold: unknown severity %q", c.SeverityThreshold))
	}
	if c.TimeBudgetMs < 0 {
		errs = append(errs, fmt.Errorf("timeBudgetMs: must not be negative, got %d", c.TimeBudgetMs))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must not be negative, got %d", c.Workers))
	}
	if c.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("maxIterations: must not be negative, got %d", c.MaxIterations))
	}
	for i, ig := range c.Ignore {
		if ig.Rule == "" && ig.Path == "" {
			errs = append(errs, fmt.Errorf("ignore[%d]: needs a rule or a path", i))
		}
	}
	return errors.Join(errs...)
}

// ExecutorConfig returns the pass executor settings.
func (c Config) ExecutorConfig() pass.ExecutorConfig {
	return pass.ExecutorConfig{FailFast: c.FailFast, Parallel: c.Parallel, Workers: c.Workers}
}

// Load searches startDir and its parents for a config file and decodes it
// over the defaults. It returns the path of the file used, or "" when none
// was found.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return cfg, "", err
	}
	if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				cfg, err := LoadFile(candidate)
				return cfg, candidate, err
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached root
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// LoadFile decodes one config file, choosing the format by extension.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes cfg to path, choosing the format by extension.
func Write(path string, cfg Config) error {
	var (
		b   []byte
		err error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(cfg)
	default:
		b, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
