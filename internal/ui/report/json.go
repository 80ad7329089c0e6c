package report

import (
	"encoding/json"
	"io"
	"time"

	"layercheck/internal/engine/rules"
)

type JSONWriter struct{}

func (j *JSONWriter) Format() string { return FormatJSON }

type jsonReport struct {
	RunID      string       `json:"run_id,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DurationMS int64        `json:"duration_ms"`
	Units      int          `json:"units"`
	Passed     bool         `json:"passed"`
	Results    []jsonResult `json:"results"`
}

type jsonResult struct {
	Rule      string        `json:"rule"`
	Kind      string        `json:"kind,omitempty"`
	Subject   string        `json:"subject,omitempty"`
	Targets   []string      `json:"targets,omitempty"`
	Success   bool          `json:"success"`
	Subjects  int           `json:"subjects"`
	Violators []string      `json:"violators"`
	Findings  []jsonFinding `json:"findings,omitempty"`
}

type jsonFinding struct {
	Unit      string   `json:"unit"`
	File      string   `json:"file,omitempty"`
	Line      int      `json:"line,omitempty"`
	Offending []string `json:"offending,omitempty"`
	Missing   string   `json:"missing,omitempty"`
}

func (j *JSONWriter) Write(w io.Writer, report rules.Report) error {
	out := jsonReport{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		DurationMS: report.Duration().Milliseconds(),
		Units:      report.Units,
		Passed:     report.Passed(),
		Results:    make([]jsonResult, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		jr := jsonResult{
			Rule:      ruleName(res),
			Success:   res.Success,
			Subjects:  res.Subjects,
			Violators: append([]string{}, res.Violators...),
		}
		if res.Rule != nil {
			jr.Kind = string(res.Rule.Kind())
			jr.Subject = res.Rule.Subject().String()
			jr.Targets = res.Rule.Targets()
		}
		for _, f := range res.Findings {
			jr.Findings = append(jr.Findings, jsonFinding{
				Unit:      f.Unit,
				File:      f.Location.File,
				Line:      f.Location.Line,
				Offending: f.Offending,
				Missing:   f.Missing,
			})
		}
		out.Results = append(out.Results, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
