package rules

import "time"

// Report is the outcome of one check run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Units      int
	Results    []RuleResult
}

// Passed reports whether every rule succeeded. An empty report passes.
func (r Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Success {
			return false
		}
	}
	return true
}

func (r Report) Failed() []RuleResult {
	out := make([]RuleResult, 0)
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

func (r Report) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
