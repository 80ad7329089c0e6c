package app

import (
	"context"
	"log/slog"
	"path/filepath"

	"layercheck/internal/core/config"
	"layercheck/internal/core/watcher"
	"layercheck/internal/data/snapshot"
	"layercheck/internal/engine/rules"
)

// Watch runs a check immediately and again after every batch of relevant
// file changes or configuration reload, until ctx is cancelled. onReport
// receives every outcome, including load errors.
func (a *App) Watch(ctx context.Context, onReport func(rules.Report, error)) error {
	svc := a.CheckService()
	run := func() {
		report, err := svc.Check(ctx)
		if ctx.Err() != nil {
			return
		}
		onReport(report, err)
	}

	paths, opts := a.watchTargets()
	w, err := watcher.NewWatcher(opts, func(changed []string) {
		slog.Debug("source change detected", "files", len(changed))
		a.Trigger()
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch(paths); err != nil {
		return err
	}
	slog.Info("watching for changes", "paths", paths)

	run()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.triggerChan():
			run()
		}
	}
}

// Trigger requests a re-check from a running Watch loop. Requests made while
// one is already pending coalesce.
func (a *App) Trigger() {
	select {
	case a.triggerChan() <- struct{}{}:
	default:
	}
}

func (a *App) triggerChan() chan struct{} {
	a.triggerOnce.Do(func() {
		a.triggers = make(chan struct{}, 1)
	})
	return a.triggers
}

func (a *App) watchTargets() ([]string, watcher.Options) {
	cfg := a.Config()
	paths := a.Paths()

	opts := watcher.Options{
		Debounce:     cfg.Watch.Debounce,
		IncludeTests: cfg.Source.IncludeTests,
	}
	if cfg.Source.Kind == config.SourceSnapshot {
		opts.Extensions = []string{filepath.Ext(paths.Snapshot)}
		return []string{paths.Snapshot}, opts
	}

	opts.ExcludeDirs = append(append([]string(nil), snapshot.DefaultExcludeDirs...), cfg.Source.Exclude...)
	opts.ExcludeFiles = cfg.Watch.Exclude
	return []string{paths.Root}, opts
}
