package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

type view int

const (
	viewFindings view = iota
	viewPasses
)

// modelT lists findings with a detail pane for the selected one. tab
// switches to the pass report.
type modelT struct {
	findings []model.Finding
	report   *pass.Report
	cursor   int
	view     view
	height   int
}

func initialModel(res *model.ScanResult) modelT {
	return modelT{findings: res.Findings, report: res.Passes, height: 20}
}

func (m modelT) Init() tea.Cmd { return nil }

func (m modelT) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.findings)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = max(len(m.findings)-1, 0)
		case "tab":
			if m.view == viewFindings {
				m.view = viewPasses
			} else {
				m.view = viewFindings
			}
		}
	}
	return m, nil
}

func (m modelT) View() string {
	if m.view == viewPasses {
		return m.passesView()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Findings (%d)   tab: passes  q: quit\n\n", len(m.findings))
	// keep the cursor inside the visible window
	rows := max(m.height-12, 3)
	from := max(0, m.cursor-rows+1)
	for i := from; i < len(m.findings) && i < from+rows; i++ {
		f := m.findings[i]
		mark := "  "
		if i == m.cursor {
			mark = "> "
		}
		fmt.Fprintf(&b, "%s%-8s %-26s %s:%d\n", mark, f.Severity, f.RuleID, f.File, f.StartLine)
	}
	if len(m.findings) == 0 {
		b.WriteString("  no findings\n")
		return b.String()
	}
	f := m.findings[m.cursor]
	fmt.Fprintf(&b, "\n%s (confidence %.2f)\n", f.Message, f.Confidence)
	if f.Entity != "" {
		fmt.Fprintf(&b, "in %s\n", f.Entity)
	}
	if f.Remediation != "" {
		fmt.Fprintf(&b, "fix: %s\n", f.Remediation)
	}
	if f.Snippet != "" {
		b.WriteString("\n" + f.Snippet + "\n")
	}
	return b.String()
}

func (m modelT) passesView() string {
	var b strings.Builder
	b.WriteString("Passes   tab: findings  q: quit\n\n")
	if m.report == nil {
		b.WriteString("  no pass report\n")
		return b.String()
	}
	for _, p := range m.report.Passes {
		status := "ok"
		if !p.Success {
			status = "FAILED " + p.Error
		}
		fmt.Fprintf(&b, "  %-16s %-10s %s\n", p.ID, p.Duration.Round(time.Microsecond), status)
	}
	fmt.Fprintf(&b, "\n%d executed, %d skipped, total %s\n",
		m.report.PassesExecuted, m.report.PassesSkipped, m.report.TotalDuration.Round(time.Microsecond))
	return b.String()
}

// Run shows res until the user quits.
func Run(res *model.ScanResult) error {
	p := tea.NewProgram(initialModel(res), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
