package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/plugins"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "List available rules"}
	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List built-in detectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := plugins.NewRegistry(nil)
			reg.RegisterBuiltin()
			rules := reg.Rules()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rules)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSEVERITY\tLANGUAGE\tREQUIRES\tTITLE")
			for _, m := range rules {
				var req []string
				for _, id := range m.Requires {
					req = append(req, string(id))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Severity, m.Language, strings.Join(req, ","), m.Title)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print rule metadata as JSON")
	cmd.AddCommand(list)
	return cmd
}
