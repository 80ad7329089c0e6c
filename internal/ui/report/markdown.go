package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"layercheck/internal/engine/rules"
)

type MarkdownWriter struct{}

func (m *MarkdownWriter) Format() string { return FormatMarkdown }

func (m *MarkdownWriter) Write(w io.Writer, report rules.Report) error {
	var b strings.Builder
	b.WriteString("# Dependency Rules Report\n\n")
	if report.RunID != "" {
		b.WriteString(fmt.Sprintf("Run `%s`", report.RunID))
		if !report.StartedAt.IsZero() {
			b.WriteString(" at " + report.StartedAt.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n\n")
	}

	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Units | %d |\n", report.Units))
	b.WriteString(fmt.Sprintf("| Rules | %d |\n", len(report.Results)))
	b.WriteString(fmt.Sprintf("| Failed | %d |\n\n", len(report.Failed())))

	b.WriteString("## Rules\n")
	b.WriteString("| Status | Rule | Subjects | Violators |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, res := range report.Results {
		status := "PASS"
		if !res.Success {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %d |\n", status, escapeCell(ruleName(res)), res.Subjects, len(res.Violators)))
	}
	b.WriteString("\n")

	for _, res := range report.Failed() {
		b.WriteString("### " + ruleName(res) + "\n")
		if desc := ruleDescription(res); desc != "" && desc != ruleName(res) {
			b.WriteString("_" + desc + "_\n\n")
		}
		b.WriteString("| Unit | Location | Reason |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, f := range res.Findings {
			loc := location(f)
			if loc == "" {
				loc = "-"
			}
			b.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", f.Unit, escapeCell(loc), escapeCell(explain(f))))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
