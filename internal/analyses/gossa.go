package analyses

import (
	"fmt"
	"path/filepath"

	"golang.org/x/tools/go/ssa"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/dataflow"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/goanalysis"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// GoFunction is a Go function in SSA form with its liveness.
type GoFunction struct {
	*goanalysis.Function
	Liveness *dataflow.Result[lattice.Set[cfg.Var]]
}

// GoSSAPass builds SSA for the Go sources of the context, either
// *goanalysis.Module directories or single *goanalysis.File sources, and
// converts every function to a control-flow graph.
func GoSSAPass() pass.Analysis {
	return pass.NewFunc(pass.Info{
		ID:          pass.GoSSA,
		Name:        "Go SSA",
		Description: "Builds SSA control-flow graphs for Go chaincode",
		Level:       pass.LevelProgram,
	}, func(ctx *pass.Context) error {
		var pkgs []*ssa.Package
		for _, m := range pass.SourcesOf[*goanalysis.Module](ctx) {
			loaded, err := goanalysis.LoadPackages(ctx.Ctx(), m.Dir)
			if err != nil {
				return fmt.Errorf("loading %s: %w", m.Dir, err)
			}
			_, ssaPkgs := goanalysis.BuildSSA(loaded)
			pkgs = append(pkgs, ssaPkgs...)
		}
		for _, f := range pass.SourcesOf[*goanalysis.File](ctx) {
			pkg, err := goanalysis.BuildSource(f.Name, f.Src)
			if err != nil {
				return err
			}
			pkgs = append(pkgs, pkg)
		}
		ctx.Store(KeyGoFunctions, convertAll(ctx, pkgs...))
		return nil
	})
}

func convertAll(ctx *pass.Context, pkgs ...*ssa.Package) []*GoFunction {
	var out []*GoFunction
	for _, fn := range goanalysis.SourceFunctions(pkgs...) {
		ctx.RecordTraversal("ssa")
		gf := goanalysis.Convert(fn)
		if rel, err := filepath.Rel(ctx.Root, gf.File); ctx.Root != "" && filepath.IsAbs(gf.File) && err == nil {
			gf.File = filepath.ToSlash(rel)
		}
		out = append(out, &GoFunction{Function: gf, Liveness: dataflow.SolveLiveness(gf.Graph)})
	}
	return out
}
