package app

import (
	"github.com/spf13/cobra"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cli"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/report"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "verazt",
		Short:        "Static analysis for smart contracts and chaincode",
		Version:      report.Version,
		SilenceUsage: true,
	}
	cli.AddCommands(root)
	return root
}
