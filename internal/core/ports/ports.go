package ports

import (
	"context"
	"io"

	"layercheck/internal/engine/codebase"
	"layercheck/internal/engine/rules"
)

// SnapshotLoader produces the codebase snapshot a check runs against.
type SnapshotLoader interface {
	Load(ctx context.Context) (*codebase.Codebase, error)
	// Describe names the source for logs, e.g. "packages ./...".
	Describe() string
}

// ReportWriter renders a finished report.
type ReportWriter interface {
	Write(w io.Writer, report rules.Report) error
	Format() string
}

// CheckService is the driving port used by the CLI and the watch loop.
type CheckService interface {
	Check(ctx context.Context) (rules.Report, error)
	Snapshot(ctx context.Context) (*codebase.Codebase, error)
}
