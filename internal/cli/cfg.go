package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/lattice"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

func newCFGCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "cfg FILE.sol [Contract.function...]",
		Short: "Print the control-flow graphs or data-flow facts of Solidity functions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := solidity.ParseFile(args[0])
			if err != nil {
				return err
			}
			log, err := newLogger(cmd, "warn")
			if err != nil {
				return err
			}
			actx := pass.NewContext("", u)
			m, err := analyses.NewManager(pass.DefaultExecutorConfig(), log, analyses.DataFlowOptions{}, pass.GoSSA)
			if err != nil {
				return err
			}
			if err := m.RunPass(cmd.Context(), pass.DataFlow, actx); err != nil {
				return err
			}
			facts, _ := pass.Artifact[analyses.Facts](actx, analyses.KeyFacts)
			names, err := selectFunctions(facts, args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				switch format {
				case "dot":
					err = facts[name].IR.Graph.WriteDot(out)
				case "facts":
					err = writeFacts(out, facts[name])
				default:
					return fmt.Errorf("unknown format %q", format)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "Output format: dot|facts")
	return cmd
}

func selectFunctions(facts analyses.Facts, want []string) ([]string, error) {
	if len(want) == 0 {
		names := make([]string, 0, len(facts))
		for name := range facts {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	for _, name := range want {
		if _, ok := facts[name]; !ok {
			return nil, fmt.Errorf("function %s not found", name)
		}
	}
	return want, nil
}

// writeFacts prints every instruction with the variables live after it,
// the constants known before it and the external calls preceding it.
func writeFacts(w io.Writer, ff *analyses.FunctionFacts) error {
	live := map[*solidity.Instr]string{}
	ff.WalkLiveness(func(_ *cfg.Block, in *solidity.Instr, s lattice.Set[cfg.Var]) {
		live[in] = strings.Join(lattice.Sorted(s), ",")
	})
	calls := map[*solidity.Instr]string{}
	ff.WalkCalls(func(_ *cfg.Block, in *solidity.Instr, f analyses.CallFact) {
		if f.First.Len() > 0 {
			calls[in] = fmt.Sprint(lattice.Sorted(f.First))
		}
	})
	consts := map[*solidity.Instr]string{}
	ff.WalkConstants(func(_ *cfg.Block, in *solidity.Instr, env solidity.Env) {
		var known []string
		for _, v := range in.Use {
			if c, ok := env(v); ok {
				known = append(known, fmt.Sprintf("%s=%s", v, c))
			}
		}
		consts[in] = strings.Join(known, ",")
	})

	status := "converged"
	if !ff.Converged() {
		status = "not converged"
	}
	fmt.Fprintf(w, "%s (%s)\n", ff.IR.QualifiedName(), status)
	var lastBlock cfg.BlockID = -1
	ff.IR.Instrs(func(b *cfg.Block, in *solidity.Instr) {
		if b.ID != lastBlock {
			fmt.Fprintf(w, "  b%d:\n", b.ID)
			lastBlock = b.ID
		}
		fmt.Fprintf(w, "    %4d  %-40s live={%s}", in.Line, in.String(), live[in])
		if c := consts[in]; c != "" {
			fmt.Fprintf(w, " const={%s}", c)
		}
		if c := calls[in]; c != "" {
			fmt.Fprintf(w, " after-calls=%s", c)
		}
		fmt.Fprintln(w)
	})
	_, err := fmt.Fprintln(w)
	return err
}
