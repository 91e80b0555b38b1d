package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		dir    string
		format string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .verazt.json (or .verazt.yaml) with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			switch format {
			case "json":
				name = ".verazt.json"
			case "yaml", "yml":
				name = ".verazt.yaml"
			default:
				return fmt.Errorf("unknown config format %q", format)
			}
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write config file to")
	cmd.Flags().StringVar(&format, "format", "json", "Config format: json|yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
