package analyses

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/dataflow"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// Facts maps Contract.function to its data-flow results.
type Facts map[string]*FunctionFacts

// DataFlowOptions tunes DataFlowPass.
type DataFlowOptions struct {
	// MaxIterations caps each solver run; 0 means the solver default.
	MaxIterations int
	// Workers bounds the functions solved concurrently; 0 means GOMAXPROCS.
	Workers int
}

func DataFlowPass() pass.Analysis { return DataFlowPassWith(DataFlowOptions{}) }

// DataFlowPassWith solves liveness, reaching definitions, constant
// propagation and external-call ordering for every lowered function.
// Functions are independent and solved concurrently.
func DataFlowPassWith(opts DataFlowOptions) pass.Analysis {
	return pass.NewFunc(pass.Info{
		ID:             pass.DataFlow,
		Name:           "Data flow",
		Description:    "Solves liveness, reaching definitions, constants and call ordering",
		Level:          pass.LevelFunction,
		Representation: pass.IR,
		Requires:       []pass.ID{pass.IRGeneration, pass.TypeIndex},
	}, func(ctx *pass.Context) error {
		ti, err := pass.RequireArtifact[*TypeIndex](ctx, pass.DataFlow, KeyTypes)
		if err != nil {
			return err
		}
		prog, err := programOf(ctx, pass.DataFlow)
		if err != nil {
			return err
		}
		maxIter := opts.MaxIterations
		if maxIter <= 0 {
			maxIter = dataflow.DefaultMaxIterations
		}
		workers := opts.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}

		results := make([]*FunctionFacts, len(prog.Functions))
		var g errgroup.Group
		g.SetLimit(workers)
		for i, f := range prog.Functions {
			g.Go(func() error {
				results[i] = solveFunction(f, ti, maxIter)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		facts := make(Facts, len(results))
		for _, ff := range results {
			ctx.RecordTraversal("cfg")
			facts[ff.IR.QualifiedName()] = ff
		}
		ctx.Store(KeyFacts, facts)
		return nil
	})
}
