package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/analyses"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

func newPassesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "passes", Short: "Inspect the analysis passes"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in passes with their level, representation and dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLEVEL\tREPRESENTATION\tREQUIRES\tDESCRIPTION")
			for _, p := range analyses.Builtin(analyses.DataFlowOptions{}) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID(), p.Level(), p.Representation(), joinIDs(p.Dependencies()), p.Description())
			}
			return tw.Flush()
		},
	})

	var (
		disabled []string
		asJSON   bool
	)
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Print the execution levels the scheduler computes",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []pass.ID
			for _, d := range disabled {
				ids = append(ids, pass.ID(d))
			}
			log, err := newLogger(cmd, "warn")
			if err != nil {
				return err
			}
			m, err := analyses.NewManager(pass.DefaultExecutorConfig(), log, analyses.DataFlowOptions{}, ids...)
			if err != nil {
				return err
			}
			sched, err := m.Schedule()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sched)
			}
			for i, l := range sched.Levels {
				var parts []string
				for _, g := range []struct {
					name string
					ids  []pass.ID
				}{{"ast", l.AST}, {"ir", l.IR}, {"hybrid", l.Hybrid}} {
					if len(g.ids) > 0 {
						parts = append(parts, fmt.Sprintf("%s[%s]", g.name, joinIDs(g.ids)))
					}
				}
				fmt.Fprintf(out, "level %d: %s\n", i, strings.Join(parts, " "))
			}
			fmt.Fprintf(out, "%d passes, needs IR: %v\n", sched.Len(), sched.NeedsIR)
			return nil
		},
	}
	schedule.Flags().StringSliceVar(&disabled, "disable", nil, "Passes to disable (with their dependents)")
	schedule.Flags().BoolVar(&asJSON, "json", false, "Print the schedule as JSON")
	cmd.AddCommand(schedule)
	return cmd
}

func joinIDs(ids []pass.ID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ",")
}
