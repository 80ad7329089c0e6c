package app

import (
	"context"
	"time"

	"layercheck/internal/core/errors"
	"layercheck/internal/core/ports"
	"layercheck/internal/engine/codebase"
	"layercheck/internal/engine/rules"
	"layercheck/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type checkService struct {
	app *App
}

var _ ports.CheckService = (*checkService)(nil)

func NewCheckService(app *App) ports.CheckService {
	return &checkService{app: app}
}

func (a *App) CheckService() ports.CheckService {
	return NewCheckService(a)
}

func (s *checkService) Snapshot(ctx context.Context) (*codebase.Codebase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loader := s.app.Loader()
	if loader == nil {
		return nil, errors.New(errors.CodeConfiguration, "no snapshot loader configured")
	}
	cb, err := loader.Load(ctx)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "load_snapshot")
	}
	observability.CodebaseUnits.Set(float64(cb.Len()))
	observability.CodebaseEdges.Set(float64(cb.EdgeCount()))
	return cb, nil
}

// Check loads a fresh snapshot and evaluates every rule against it. A failing
// rule is not an error; the returned error covers load failures only.
func (s *checkService) Check(ctx context.Context) (rules.Report, error) {
	runID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "checkService.Check", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	report := rules.Report{RunID: runID, StartedAt: time.Now().UTC()}

	cb, err := s.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		observability.CheckRunsTotal.WithLabelValues("error").Inc()
		s.app.recordRun(report, err)
		return rules.Report{}, err
	}

	s.app.mu.RLock()
	ruleSet, evaluator := s.app.rules, s.app.evaluator
	s.app.mu.RUnlock()

	report.Units = cb.Len()
	report.Results = evaluator.EvaluateAll(ctx, cb, ruleSet)
	report.FinishedAt = time.Now().UTC()

	status := "passed"
	if !report.Passed() {
		status = "failed"
	}
	observability.CheckRunsTotal.WithLabelValues(status).Inc()
	span.SetAttributes(
		attribute.Int("units", report.Units),
		attribute.Int("failed_rules", len(report.Failed())),
	)
	s.app.recordRun(report, nil)
	return report, nil
}
