package analyses

import (
	"errors"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// IRGenerationPass lowers every function body and installs the resulting
// *solidity.Program as the context IR. Functions that fail to lower are
// listed under KeyIRDiagnostics; the pass fails only when nothing lowered.
func IRGenerationPass() pass.Analysis {
	return pass.NewFunc(pass.Info{
		ID:          pass.IRGeneration,
		Name:        "IR generation",
		Description: "Lowers function bodies to control-flow graphs",
		Level:       pass.LevelFunction,
		Requires:    []pass.ID{pass.SymbolTable},
	}, func(ctx *pass.Context) error {
		units := pass.SourcesOf[*solidity.SourceUnit](ctx)
		ctx.RecordTraversal("ast")
		prog, err := solidity.Lower(units...)
		var diags []string
		if err != nil {
			if len(prog.Functions) == 0 {
				return err
			}
			diags = diagnostics(err)
		}
		ctx.Store(KeyIRDiagnostics, diags)
		ctx.SetIR(prog)
		return nil
	})
}

func diagnostics(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// programOf returns the IR installed by IRGenerationPass.
func programOf(ctx *pass.Context, requester pass.ID) (*solidity.Program, error) {
	prog, ok := pass.IROf[*solidity.Program](ctx)
	if !ok {
		return nil, pass.IRNotAvailable(requester)
	}
	return prog, nil
}
