// Package report renders check reports for terminals, documents and CI systems.
package report

import (
	"fmt"
	"slices"
	"strings"

	"layercheck/internal/core/errors"
	"layercheck/internal/core/ports"
	"layercheck/internal/engine/rules"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatSARIF    = "sarif"
	FormatJUnit    = "junit"
)

var Formats = []string{FormatText, FormatMarkdown, FormatJSON, FormatSARIF, FormatJUnit}

type Options struct {
	// ProjectRoot anchors file locations in SARIF output.
	ProjectRoot string
	Version     string
}

func NewWriter(format string, opts Options) (ports.ReportWriter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return &TextWriter{}, nil
	case FormatMarkdown, "md":
		return &MarkdownWriter{}, nil
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatSARIF:
		return &SARIFWriter{ProjectRoot: opts.ProjectRoot, Version: opts.Version}, nil
	case FormatJUnit:
		return &JUnitWriter{}, nil
	default:
		return nil, errors.Newf(errors.CodeNotSupported, "unsupported report format %q (want one of %s)",
			format, strings.Join(Formats, ", "))
	}
}

func IsFormat(format string) bool {
	return slices.Contains(Formats, strings.ToLower(strings.TrimSpace(format)))
}

func ruleName(res rules.RuleResult) string {
	if res.Rule == nil {
		return "(nil rule)"
	}
	return res.Rule.Name()
}

func ruleDescription(res rules.RuleResult) string {
	if res.Rule == nil {
		return ""
	}
	return res.Rule.String()
}

// explain renders why a finding violates its rule.
func explain(f rules.Finding) string {
	if f.Missing != "" {
		return fmt.Sprintf("does not depend on %s", f.Missing)
	}
	return fmt.Sprintf("depends on %s", strings.Join(f.Offending, ", "))
}

func location(f rules.Finding) string {
	if f.Location.File == "" {
		return ""
	}
	if f.Location.Line > 0 {
		return fmt.Sprintf("%s:%d", f.Location.File, f.Location.Line)
	}
	return f.Location.File
}
