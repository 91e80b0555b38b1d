package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cache"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/config"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/goanalysis"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/logger"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/plugins"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/util"
)

// snippetContext is the number of lines shown around a finding.
const snippetContext = 2

var skipDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true}

type Engine struct {
	registry *plugins.Registry
	log      *slog.Logger
}

// New returns an engine with every built-in detector registered.
func New(log *slog.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	reg := plugins.NewRegistry(log)
	reg.RegisterBuiltin()
	return &Engine{registry: reg, log: log}
}

func (e *Engine) Registry() *plugins.Registry { return e.registry }

// LoadConfig returns the config named by req.ConfigPath, or the one found
// by searching upward from req.Path.
func LoadConfig(req model.ScanRequest) (config.Config, error) {
	if req.ConfigPath != "" {
		return config.LoadFile(req.ConfigPath)
	}
	cfg, _, err := config.Load(req.Path)
	return cfg, err
}

// Scan analyzes every Solidity and Go source under req.Path, runs the
// detectors over the pass artifacts and filters the findings.
func (e *Engine) Scan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error) {
	cfg, err := LoadConfig(req)
	if err != nil {
		return nil, err
	}
	return e.ScanWithConfig(ctx, req, cfg)
}

// ScanWithConfig is Scan with an already loaded config.
func (e *Engine) ScanWithConfig(ctx context.Context, req model.ScanRequest, cfg config.Config) (*model.ScanResult, error) {
	start := time.Now()
	budget := req.TimeBudget
	if budget == 0 && cfg.TimeBudgetMs > 0 {
		budget = time.Duration(cfg.TimeBudgetMs) * time.Millisecond
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	root, files, err := discoverFiles(req.Path)
	if err != nil {
		return nil, err
	}
	e.log.Info("scanning", "root", root, "files", len(files))

	parseStart := time.Now()
	var (
		sources  []any
		units    []*solidity.SourceUnit
		contents = map[string]string{}
		hasGo    bool
	)
	for _, path := range files {
		rel := relPath(root, path)
		if filepath.Ext(path) == ".go" {
			hasGo = true
			continue
		}
		u, err := solidity.ParseFile(path)
		if err != nil {
			e.log.Warn("skipping unparsable file", "file", rel, "err", err)
			continue
		}
		u.Path = rel
		contents[rel] = u.Content
		units = append(units, u)
		sources = append(sources, u)
	}
	if hasGo {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			sources = append(sources, &goanalysis.Module{Dir: root})
		} else {
			e.log.Debug("go sources without go.mod at the root are not analyzed", "root", root)
		}
	}

	actx := pass.NewContext(root, sources...)
	actx.RecordPhase("parse", time.Since(parseStart))
	if cfg.Solc.Enabled {
		e.runSolc(ctx, cfg, root, units, actx)
	}

	var disabled []pass.ID
	for _, id := range cfg.DisabledPasses {
		disabled = append(disabled, pass.ID(id))
	}
	m, err := analyses.NewManager(cfg.ExecutorConfig(), e.log, analyses.DataFlowOptions{
		MaxIterations: cfg.MaxIterations,
		Workers:       cfg.Workers,
	}, disabled...)
	if err != nil {
		return nil, err
	}
	rep, err := m.Run(ctx, actx)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	if !rep.Success {
		e.log.Warn("some passes failed; dependent detectors are skipped", "errors", rep.Errors)
	}

	detectStart := time.Now()
	findings, err := e.registry.Run(ctx, actx)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	actx.RecordPhase("detect", time.Since(detectStart))
	fillSnippets(findings, root, contents)

	baselinePath := req.Baseline
	if baselinePath == "" {
		baselinePath = cfg.Baseline
	}
	b, err := loadBaseline(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	preds := append(reportable(cfg, root, contents, time.Now()), unlessBaselined(b))
	findings = keep(findings, preds...)
	findings = calibrateFindings(findings)
	plugins.SortFindings(findings)

	rep.Stats = actx.Stats()
	e.log.Info("scan finished", "findings", len(findings), "passes", rep.PassesExecuted, "elapsed", time.Since(start))
	return &model.ScanResult{Findings: findings, Passes: rep, Elapsed: time.Since(start)}, nil
}

// runSolc attaches the compiler's AST for each unit. solc failures are
// logged; the built-in front-end does not depend on them.
func (e *Engine) runSolc(ctx context.Context, cfg config.Config, root string, units []*solidity.SourceUnit, actx *pass.Context) {
	var c *cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			c = cache.New(cfg.Cache.Dir)
		} else if d, err := cache.Default(); err == nil {
			c = d
		}
	}
	asts := map[string]*solidity.ASTCompact{}
	for _, u := range units {
		ast, err := solidity.ParseWithSolc(ctx, c, filepath.Join(root, filepath.FromSlash(u.Path)), cfg.Solc.Path)
		if err != nil {
			e.log.Warn("solc failed", "file", u.Path, "err", err)
			continue
		}
		asts[u.Path] = ast
	}
	actx.Store(analyses.KeySolcAST, asts)
}

// discoverFiles returns the scan root and the .sol and .go files under
// path. A file path scans just that file.
func discoverFiles(path string) (string, []string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if !fi.IsDir() {
		return filepath.Dir(path), []string{path}, nil
	}
	var out []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(d.Name()) {
		case ".sol":
			out = append(out, p)
		case ".go":
			if !strings.HasSuffix(d.Name(), "_test.go") {
				out = append(out, p)
			}
		}
		return nil
	})
	return path, out, err
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func fillSnippets(findings []model.Finding, root string, contents map[string]string) {
	for i := range findings {
		f := &findings[i]
		if f.Snippet != "" || f.StartLine <= 0 {
			continue
		}
		src, ok := readSource(root, f.File, contents)
		if !ok {
			continue
		}
		f.Snippet = util.ExtractSnippet(src, f.StartLine, f.EndLine, snippetContext)
	}
}

// readSource returns the content of a finding's file, caching reads in
// contents.
func readSource(root, file string, contents map[string]string) (string, bool) {
	if src, ok := contents[file]; ok {
		return src, true
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, filepath.FromSlash(file))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	contents[file] = string(b)
	return string(b), true
}
