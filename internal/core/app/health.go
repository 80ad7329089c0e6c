package app

import (
	"context"
	"fmt"
	"time"

	"layercheck/internal/engine/rules"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type runStatus struct {
	at      time.Time
	runID   string
	units   int
	failed  int
	lastErr error
	runs    int
}

func (a *App) recordRun(report rules.Report, err error) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.status = runStatus{
		at:      time.Now().UTC(),
		runID:   report.RunID,
		units:   report.Units,
		failed:  len(report.Failed()),
		lastErr: err,
		runs:    a.status.runs + 1,
	}
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports "up" once a check has completed without a load error.
// Failing rules do not make the service unhealthy.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if loader := s.app.Loader(); loader != nil {
		status.Components["loader"] = loader.Describe()
	} else {
		status.Status = "degraded"
		status.Components["loader"] = "missing"
	}
	status.Components["rules"] = fmt.Sprintf("%d configured", len(s.app.Rules()))

	s.app.statusMu.RLock()
	run := s.app.status
	s.app.statusMu.RUnlock()
	switch {
	case run.runs == 0:
		status.Status = "starting"
		status.Components["last_check"] = "pending"
	case run.lastErr != nil:
		status.Status = "degraded"
		status.Components["last_check"] = fmt.Sprintf("error at %s: %v", run.at.Format(time.RFC3339), run.lastErr)
	default:
		status.Components["last_check"] = fmt.Sprintf("run %s at %s: %d units, %d failed rules",
			run.runID, run.at.Format(time.RFC3339), run.units, run.failed)
	}
	return status
}
