package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "layercheck/internal/core/app"
	"layercheck/internal/core/config"
	domainerrors "layercheck/internal/core/errors"
	"layercheck/internal/core/ports"
	"layercheck/internal/data/snapshot"
	"layercheck/internal/engine/rules"
	"layercheck/internal/shared/observability"
	"layercheck/internal/shared/util"
	"layercheck/internal/shared/version"
	"layercheck/internal/ui/report"
)

const (
	ExitPass      = 0
	ExitViolation = 1
	ExitError     = 2
)

func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitPass
		}
		return ExitError
	}

	if opts.version {
		fmt.Fprintf(stdout, "layercheck %s\n", version.Version)
		return ExitPass
	}

	configureLogging(stderr, opts.verbose)

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to resolve working directory", "error", err)
		return ExitError
	}
	cfg, baseDir, err := loadConfig(opts, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return ExitError
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, version.Version)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		return ExitError
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	application, err := coreapp.New(cfg, baseDir)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return ExitError
	}
	slog.Debug("configured", "source", application.Loader().Describe(), "rules", len(application.Rules()))

	if opts.listUnits {
		return listUnits(ctx, application.CheckService(), cfg.Output.Format, stdout)
	}

	writer, err := report.NewWriter(cfg.Output.Format, report.Options{
		ProjectRoot: application.Paths().Root,
		Version:     version.Version,
	})
	if err != nil {
		slog.Error("invalid output format", "error", err)
		return ExitError
	}

	if opts.watch {
		return runWatch(ctx, application, opts, cwd, writer, stdout)
	}

	svc := application.CheckService()
	rep, err := svc.Check(ctx)
	if err != nil {
		slog.Error("check failed", "error", err)
		return ExitError
	}
	if err := emit(writer, rep, application.Paths().Output, stdout); err != nil {
		slog.Error("failed to write report", "error", err)
		return ExitError
	}
	if !rep.Passed() {
		return ExitViolation
	}
	return ExitPass
}

// loadConfig reads the config file, falling back to defaults when the default
// file is absent, then layers environment and flag overrides on top.
func loadConfig(opts cliOptions, cwd string) (*config.Config, string, error) {
	cfg, err := config.Load(opts.configPath)
	baseDir := filepath.Dir(config.ResolveRelative(cwd, opts.configPath))
	switch {
	case err == nil:
	case !opts.configSet && domainerrors.IsCode(err, domainerrors.CodeNotFound):
		slog.Warn("no config file found, using defaults", "path", opts.configPath)
		cfg = config.Default()
		baseDir = cwd
	default:
		return nil, "", err
	}

	config.ApplyEnvOverrides(cfg)
	if err := applyFlagOverrides(cfg, opts, cwd); err != nil {
		return nil, "", err
	}
	return cfg, baseDir, nil
}

// applyFlagOverrides puts command-line settings on top of a loaded config and
// validates the result. Both the initial load and watch-mode reloads use it.
func applyFlagOverrides(cfg *config.Config, opts cliOptions, cwd string) error {
	if opts.format != "" {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if opts.out != "" {
		cfg.Output.Path = config.ResolveRelative(cwd, opts.out)
	}
	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddress = opts.metricsAddr
	}
	if len(opts.args) > 0 {
		cfg.Source.Root = config.ResolveRelative(cwd, opts.args[0])
	}
	return config.Validate(cfg)
}

// newConfigWatcher reloads the config file into application, re-applying the
// same flag overrides as the initial load.
func newConfigWatcher(application *coreapp.App, opts cliOptions, cwd string) *config.Watcher {
	cw := config.NewWatcher(opts.configPath, func(cfg *config.Config) {
		if err := application.Reload(cfg); err != nil {
			slog.Warn("ignoring config change", "error", err)
		}
	})
	cw.Prepare = func(cfg *config.Config) error {
		return applyFlagOverrides(cfg, opts, cwd)
	}
	return cw
}

func runWatch(ctx context.Context, application *coreapp.App, opts cliOptions, cwd string, writer ports.ReportWriter, stdout io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := application.Config().Observability.MetricsAddress; addr != "" {
		srv := NewObservabilityServer(addr, coreapp.NewHealthService(application))
		if err := srv.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return ExitError
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	if _, err := os.Stat(opts.configPath); err == nil {
		cw := newConfigWatcher(application, opts, cwd)
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "error", err)
		} else {
			defer cw.Stop()
		}
	}

	err := application.Watch(ctx, func(rep rules.Report, err error) {
		if err != nil {
			slog.Error("check failed", "error", err)
			return
		}
		if err := emit(writer, rep, application.Paths().Output, stdout); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	})
	if err != nil {
		slog.Error("watch failed", "error", err)
		return ExitError
	}
	return ExitPass
}

func emit(writer ports.ReportWriter, rep rules.Report, path string, stdout io.Writer) error {
	if path == "" {
		return writer.Write(stdout, rep)
	}
	var buf bytes.Buffer
	if err := writer.Write(&buf, rep); err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	slog.Info("report written", "path", path, "format", writer.Format(), "passed", rep.Passed())
	return nil
}

func listUnits(ctx context.Context, svc ports.CheckService, format string, stdout io.Writer) int {
	cb, err := svc.Snapshot(ctx)
	if err != nil {
		slog.Error("failed to load snapshot", "error", err)
		return ExitError
	}
	encoding := "yaml"
	if format == report.FormatJSON {
		encoding = "json"
	}
	if err := snapshot.Encode(stdout, cb, encoding); err != nil {
		slog.Error("failed to write snapshot", "error", err)
		return ExitError
	}
	return ExitPass
}

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
