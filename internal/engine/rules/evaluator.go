package rules

import (
	"context"
	"runtime"
	"time"

	"layercheck/internal/engine/codebase"
	"layercheck/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Evaluator struct {
	parallelism int
}

type Option func(*Evaluator)

// WithParallelism bounds how many rules are evaluated at once. n <= 0 means GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(e *Evaluator) {
		e.parallelism = n
	}
}

func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism <= 0 {
		e.parallelism = runtime.GOMAXPROCS(0)
	}
	return e
}

// Evaluate runs a single rule. A nil rule yields a zero result.
func Evaluate(cb *codebase.Codebase, rule Rule) RuleResult {
	if rule == nil {
		return RuleResult{Success: true}
	}
	return rule.evaluate(cb)
}

// EvaluateAll evaluates every rule with the default evaluator.
func EvaluateAll(cb *codebase.Codebase, rules []Rule) []RuleResult {
	return NewEvaluator().EvaluateAll(context.Background(), cb, rules)
}

// EvaluateAll evaluates rules independently, possibly in parallel. The result
// at index i always belongs to rules[i]. ctx only carries the trace span;
// evaluation itself is not cancellable.
func (e *Evaluator) EvaluateAll(ctx context.Context, cb *codebase.Codebase, rules []Rule) []RuleResult {
	_, span := observability.Tracer.Start(ctx, "rules.EvaluateAll", trace.WithAttributes(
		attribute.Int("rules", len(rules)),
		attribute.Int("units", cb.Len()),
	))
	defer span.End()

	start := time.Now()
	results := make([]RuleResult, len(rules))

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, rule := range rules {
		g.Go(func() error {
			results[i] = Evaluate(cb, rule)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		record(res)
		if !res.Success {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))
	observability.AnalysisDuration.WithLabelValues("evaluate").Observe(time.Since(start).Seconds())
	return results
}

func record(res RuleResult) {
	if res.Rule == nil {
		return
	}
	outcome := "passed"
	if !res.Success {
		outcome = "failed"
	}
	name := res.Rule.Name()
	observability.RuleEvaluationsTotal.WithLabelValues(name, outcome).Inc()
	observability.RuleViolators.WithLabelValues(name).Set(float64(len(res.Violators)))
}
