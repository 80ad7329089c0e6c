package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"layercheck/internal/engine/rules"

	"github.com/charmbracelet/lipgloss"
)

// TextWriter prints one PASS/FAIL line per rule followed by its violators.
// Colors are only emitted when w is a terminal.
type TextWriter struct{}

func (t *TextWriter) Format() string { return FormatText }

func (t *TextWriter) Write(w io.Writer, report rules.Report) error {
	r := lipgloss.NewRenderer(w)
	var (
		pass    = r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
		fail    = r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
		muted   = r.NewStyle().Foreground(lipgloss.Color("#64748B"))
		unit    = r.NewStyle().PaddingLeft(6)
		heading = r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	)

	var b strings.Builder
	for _, res := range report.Results {
		if res.Success {
			fmt.Fprintf(&b, "%s  %s\n", pass.Render("PASS"), ruleName(res))
			continue
		}
		fmt.Fprintf(&b, "%s  %s %s\n", fail.Render("FAIL"), ruleName(res),
			muted.Render(fmt.Sprintf("(%d of %d units)", len(res.Violators), res.Subjects)))
		for _, f := range res.Findings {
			line := f.Unit
			if loc := location(f); loc != "" {
				line += " " + muted.Render(loc)
			}
			b.WriteString(unit.Render(line) + "\n")
			b.WriteString(unit.Render("  "+explain(f)) + "\n")
		}
	}

	failed := len(report.Failed())
	status := pass.Render("ok")
	if failed > 0 {
		status = fail.Render("failed")
	}
	fmt.Fprintf(&b, "%s %s: %d rules, %d failed, %d units %s\n",
		heading.Render("layercheck"), status, len(report.Results), failed, report.Units,
		muted.Render(report.Duration().Round(time.Millisecond).String()))

	_, err := io.WriteString(w, b.String())
	return err
}
