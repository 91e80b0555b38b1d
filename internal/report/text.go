package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// Version is stamped into reports; the build may override it.
var Version = "dev"

// WriteJSON writes the scan result as indented JSON.
func WriteJSON(w io.Writer, res *model.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteText writes one line per finding followed by its snippet.
func WriteText(w io.Writer, findings []model.Finding) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintln(w, "No findings.")
		return err
	}
	for _, f := range findings {
		if _, err := fmt.Fprintf(w, "%s:%d [%s] %s %s (confidence %.2f)\n",
			f.File, f.StartLine, f.Severity, f.RuleID, f.Message, f.Confidence); err != nil {
			return err
		}
		if f.Snippet != "" {
			for _, line := range strings.Split(f.Snippet, "\n") {
				fmt.Fprintf(w, "    | %s\n", line)
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d finding(s)\n", len(findings))
	return err
}

// WritePassTable writes the per-pass outcome and timing of rep.
func WritePassTable(w io.Writer, rep *pass.Report) error {
	if rep == nil {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PASS\tNAME\tSTATUS\tDURATION")
	for _, p := range rep.Passes {
		status := "ok"
		if !p.Success {
			status = "failed: " + p.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, status, elapsed(p.Duration))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d executed, %d skipped in %s\n", rep.PassesExecuted, rep.PassesSkipped, elapsed(rep.TotalDuration))
	return err
}

// elapsed rounds durations for display.
func elapsed(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}
