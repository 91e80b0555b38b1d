package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/engine"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/logger"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/report"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/tui"
)

func AddCommands(root *cobra.Command) {
	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error (default from config)")
	root.AddCommand(newScanCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newPassesCmd())
	root.AddCommand(newCFGCmd())
	root.AddCommand(newServeCmd())
}

// newLogger builds the command's logger on stderr. The --log-level flag
// wins over fallback, which usually comes from the config file.
func newLogger(cmd *cobra.Command, fallback string) (*slog.Logger, error) {
	level := fallback
	if f := cmd.Flag("log-level"); f != nil && f.Value.String() != "" {
		level = f.Value.String()
	}
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logger.New(cmd.ErrOrStderr(), lvl), nil
}

func newScanCmd() *cobra.Command {
	var (
		format        string
		budgetMs      int
		failOn        string
		outputFile    string
		configPath    string
		baseline      string
		useTUI        bool
		showPasses    bool
		writeBaseline string
	)
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan Solidity contracts and Go chaincode for vulnerabilities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			if failOn != "" && model.ParseSeverity(failOn) != model.Severity(strings.ToLower(failOn)) {
				return fmt.Errorf("--fail-on: unknown severity %q", failOn)
			}
			req := model.ScanRequest{
				Path:       path,
				TimeBudget: time.Duration(budgetMs) * time.Millisecond,
				ConfigPath: configPath,
				Baseline:   baseline,
			}
			cfg, err := engine.LoadConfig(req)
			if err != nil {
				return err
			}
			log, err := newLogger(cmd, cfg.LogLevel)
			if err != nil {
				return err
			}
			eng := engine.New(log)
			result, err := eng.ScanWithConfig(cmd.Context(), req, cfg)
			if err != nil {
				return err
			}

			if useTUI {
				if err := tui.Run(result); err != nil {
					return err
				}
			} else if err := writeResult(cmd, eng, result, format, outputFile, showPasses); err != nil {
				return err
			}

			if writeBaseline != "" {
				if err := engine.WriteBaseline(writeBaseline, result.Findings); err != nil {
					return err
				}
				log.Info("baseline written", "path", writeBaseline, "findings", len(result.Findings))
			}
			if failOn != "" {
				threshold := model.ParseSeverity(failOn)
				n := 0
				for _, f := range result.Findings {
					if model.SeverityGTE(f.Severity, threshold) {
						n++
					}
				}
				if n > 0 {
					return fmt.Errorf("fail-on threshold met: %d finding(s) at or above %s", n, threshold)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table|json|sarif")
	cmd.Flags().IntVar(&budgetMs, "budget-ms", 0, "Time budget for the scan in milliseconds (default from config)")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Fail if a finding of severity or higher is found (low|medium|high|critical)")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: search upward for .verazt.json/.yaml)")
	cmd.Flags().StringVar(&baseline, "baseline", "", "Suppress findings whose fingerprints are in this baseline file")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Render interactive TUI output")
	cmd.Flags().BoolVar(&showPasses, "passes", false, "Append the analysis pass table (table format)")
	cmd.Flags().StringVar(&writeBaseline, "write-baseline", "", "Write a baseline file with finding fingerprints")
	return cmd
}

func writeResult(cmd *cobra.Command, eng *engine.Engine, result *model.ScanResult, format, outputFile string, showPasses bool) error {
	var w io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch format {
	case "json":
		return report.WriteJSON(w, result)
	case "sarif":
		data, err := report.ToSARIF(result.Findings, eng.Registry().Rules(), result.Passes)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "table", "":
		if err := report.WriteText(w, result.Findings); err != nil {
			return err
		}
		if showPasses {
			fmt.Fprintln(w)
			return report.WritePassTable(w, result.Passes)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
