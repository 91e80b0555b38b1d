package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/logger"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// Detector turns pass artifacts into findings. Detectors never parse
// sources themselves.
type Detector interface {
	Meta() model.RuleMeta
	Analyze(ctx context.Context, actx *pass.Context) ([]model.Finding, error)
}

type Registry struct {
	detectors []Detector
	log       *slog.Logger
	// Workers bounds the detectors run at once; 0 means NumCPU.
	Workers int
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = logger.Discard()
	}
	return &Registry{log: log}
}

func (r *Registry) Register(d Detector) { r.detectors = append(r.detectors, d) }

func (r *Registry) RegisterBuiltin() {
	r.Register(&solidityReentrancy{})
	r.Register(&solidityTxOrigin{})
	r.Register(&solidityFloatingPragma{})
	r.Register(&solidityUncheckedCalls{})
	r.Register(&solidityUnusedAssignment{})
	r.Register(&solidityConstantCondition{})
	r.Register(&solidityDeadCode{})
	r.Register(&fabricPutStateIdentity{})
}

func (r *Registry) Detectors() []Detector { return r.detectors }

// Rules returns the metadata of every detector ordered by rule id.
func (r *Registry) Rules() []model.RuleMeta {
	out := make([]model.RuleMeta, 0, len(r.detectors))
	for _, d := range r.detectors {
		out = append(out, d.Meta())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run executes every detector whose required passes completed. A detector
// that fails is logged and contributes no findings. Findings are ordered
// by file, line and rule. When ctx ends before every detector ran, the
// findings gathered so far are returned with ctx's error.
func (r *Registry) Run(ctx context.Context, actx *pass.Context) ([]model.Finding, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = max(runtime.NumCPU(), 2)
	}
	results := make([][]model.Finding, len(r.detectors))
	var (
		wg       sync.WaitGroup
		canceled atomic.Bool
	)
	sem := make(chan struct{}, workers)
launch:
	for i, d := range r.detectors {
		meta := d.Meta()
		if missing := missingPasses(actx, meta.Requires); len(missing) > 0 {
			r.log.Debug("skipping detector", "rule", meta.ID, "missing", missing)
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			canceled.Store(true)
			break launch
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				canceled.Store(true)
				return
			}
			fs, err := d.Analyze(ctx, actx)
			if err != nil {
				if ctx.Err() != nil {
					canceled.Store(true)
				}
				r.log.Warn("detector failed", "rule", meta.ID, "err", err)
				return
			}
			for j := range fs {
				fs[j].File = filepath.ToSlash(fs[j].File)
			}
			results[i] = fs
		}()
	}
	wg.Wait()
	var out []model.Finding
	for _, fs := range results {
		out = append(out, fs...)
	}
	SortFindings(out)
	if canceled.Load() {
		return out, fmt.Errorf("detectors interrupted: %w", context.Cause(ctx))
	}
	return out, nil
}

func missingPasses(actx *pass.Context, ids []pass.ID) []pass.ID {
	var out []pass.ID
	for _, id := range ids {
		if !actx.IsCompleted(id) {
			out = append(out, id)
		}
	}
	return out
}

// SortFindings orders findings by file, line and rule id.
func SortFindings(fs []model.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.RuleID < b.RuleID
	})
}
