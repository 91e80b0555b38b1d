// Package analyses holds the built-in passes. Each pass reads the artifacts
// of the passes it requires and publishes its own under one of the keys
// below.
package analyses

import (
	"fmt"
	"log/slog"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// Artifact keys.
const (
	KeySymbols       = "symbols"
	KeyPragmas       = "pragmas"
	KeyTypes         = "types"
	KeyCallGraph     = "call-graph"
	KeyIRDiagnostics = "ir.diagnostics"
	KeyFacts         = "data-flow.facts"
	KeyGoFunctions   = "go.functions"
	KeySolcAST       = "solc.ast"
)

// Builtin returns a fresh instance of every built-in pass.
func Builtin(opts DataFlowOptions) []pass.Analysis {
	return []pass.Analysis{
		SymbolTablePass(),
		SyntaxPass(),
		TypeIndexPass(),
		IRGenerationPass(),
		CallGraphPass(),
		DataFlowPassWith(opts),
		GoSSAPass(),
	}
}

// NewManager returns a manager with every built-in pass registered. The
// disabled passes and every pass depending on them are dropped.
func NewManager(cfg pass.ExecutorConfig, log *slog.Logger, opts DataFlowOptions, disabled ...pass.ID) (*pass.Manager, error) {
	m := pass.NewManager(cfg, log)
	if err := m.Register(Builtin(opts)...); err != nil {
		return nil, err
	}
	var drop []pass.ID
	for _, id := range disabled {
		if _, ok := m.Pass(id); !ok {
			return nil, fmt.Errorf("disabling %s: %w", id, pass.ErrPassNotFound)
		}
		deps, err := m.Graph().Descendants(id)
		if err != nil {
			return nil, err
		}
		if len(deps) > 0 && log != nil {
			log.Debug("disabling dependent passes", "pass", id, "dependents", deps)
		}
		drop = append(drop, id)
		drop = append(drop, deps...)
	}
	m.Disable(drop...)
	return m, nil
}
