// Package app wires configuration, snapshot loading and rule evaluation into
// check runs.
package app

import (
	"fmt"
	"strings"
	"sync"

	"layercheck/internal/core/config"
	"layercheck/internal/core/errors"
	"layercheck/internal/core/ports"
	"layercheck/internal/data/snapshot"
	"layercheck/internal/engine/layers"
	"layercheck/internal/engine/rules"
)

type App struct {
	mu        sync.RWMutex
	cfg       *config.Config
	paths     config.ResolvedPaths
	loader    ports.SnapshotLoader
	rules     []rules.Rule
	evaluator *rules.Evaluator

	statusMu sync.RWMutex
	status   runStatus

	triggerOnce sync.Once
	triggers    chan struct{}
}

// New validates cfg and prepares the loader and rule set. baseDir is the
// directory relative paths in cfg are resolved against, normally the
// directory of the config file.
func New(cfg *config.Config, baseDir string) (*App, error) {
	a := &App{}
	if err := a.configure(cfg, baseDir); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload swaps in a new configuration and asks a running Watch loop to
// re-check. The watched tree is fixed for the life of the App, so a config
// that changes source.kind, source.root or source.snapshot is rejected. On
// error the previous configuration stays active.
func (a *App) Reload(cfg *config.Config) error {
	if cfg == nil {
		return errors.New(errors.CodeConfiguration, "config is required")
	}
	a.mu.RLock()
	current, kind := a.paths, a.cfg.Source.Kind
	a.mu.RUnlock()

	paths, err := config.ResolvePaths(cfg, current.BaseDir)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeConfiguration, "resolve paths"), errors.CtxPath, current.BaseDir)
	}
	if cfg.Source.Kind != kind || paths.Root != current.Root || paths.Snapshot != current.Snapshot {
		return errors.Newf(errors.CodeConfiguration,
			"source changed from %s %s to %s %s; restart to check a different tree",
			kind, sourceTarget(kind, current), cfg.Source.Kind, sourceTarget(cfg.Source.Kind, paths))
	}
	if err := a.configure(cfg, current.BaseDir); err != nil {
		return err
	}
	a.Trigger()
	return nil
}

func sourceTarget(kind string, paths config.ResolvedPaths) string {
	if kind == config.SourceSnapshot {
		return paths.Snapshot
	}
	return paths.Root
}

func (a *App) configure(cfg *config.Config, baseDir string) error {
	if cfg == nil {
		return errors.New(errors.CodeConfiguration, "config is required")
	}
	paths, err := config.ResolvePaths(cfg, baseDir)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeConfiguration, "resolve paths"), errors.CtxPath, baseDir)
	}
	resolver, err := NewResolver(cfg)
	if err != nil {
		return err
	}
	loader, err := NewLoader(cfg, paths, resolver)
	if err != nil {
		return err
	}
	ruleSet, err := BuildRules(cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.paths = paths
	a.loader = loader
	a.rules = ruleSet
	a.evaluator = rules.NewEvaluator(rules.WithParallelism(cfg.Evaluation.Parallelism))
	return nil
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) Paths() config.ResolvedPaths {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paths
}

func (a *App) Rules() []rules.Rule {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]rules.Rule(nil), a.rules...)
}

func (a *App) Loader() ports.SnapshotLoader {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loader
}

// NewResolver builds the layer resolver, falling back to the preset's
// conventional layout when no layers are configured.
func NewResolver(cfg *config.Config) (*layers.Resolver, error) {
	defs := make([]layers.Layer, 0, len(cfg.Layers))
	for _, l := range cfg.Layers {
		defs = append(defs, layers.Layer{Name: l.Name, Paths: l.Paths})
	}
	if len(defs) == 0 {
		defs = rules.PresetLayers(cfg.Preset)
	}
	return layers.NewResolver(defs)
}

// NewLoader picks the snapshot loader for cfg.Source.Kind.
func NewLoader(cfg *config.Config, paths config.ResolvedPaths, resolver *layers.Resolver) (ports.SnapshotLoader, error) {
	switch cfg.Source.Kind {
	case config.SourcePackages, "":
		l := snapshot.NewPackagesLoader(paths.Root, cfg.Source.Patterns, resolver)
		l.IncludeTests = cfg.Source.IncludeTests
		if len(cfg.Source.BuildTags) > 0 {
			l.BuildFlags = []string{"-tags=" + strings.Join(cfg.Source.BuildTags, ",")}
		}
		return l, nil
	case config.SourceGo:
		l := snapshot.NewSourceLoader(paths.Root, resolver)
		l.IncludeTests = cfg.Source.IncludeTests
		l.Parallelism = cfg.Evaluation.Parallelism
		if len(cfg.Source.Exclude) > 0 {
			l.ExcludeDirs = append(append([]string(nil), snapshot.DefaultExcludeDirs...), cfg.Source.Exclude...)
		}
		return l, nil
	case config.SourceSnapshot:
		if paths.Snapshot == "" {
			return nil, errors.New(errors.CodeConfiguration, "source.snapshot is required for snapshot sources")
		}
		return snapshot.NewFileLoader(paths.Snapshot, resolver), nil
	default:
		return nil, errors.Newf(errors.CodeConfiguration, "unknown source kind %q", cfg.Source.Kind)
	}
}

// BuildRules expands the preset and appends the configured rules. All
// malformed rules are reported together.
func BuildRules(cfg *config.Config) ([]rules.Rule, error) {
	defs, err := rules.Preset(cfg.Preset, rules.PresetOptions{Mediator: cfg.Mediator})
	if err != nil {
		return nil, err
	}
	for _, r := range cfg.Rules {
		defs = append(defs, rules.Definition{
			Name:        r.Name,
			Kind:        r.Kind,
			Layer:       r.Subject.Layer,
			NameSuffix:  r.Subject.NameSuffix,
			NamePattern: r.Subject.NamePattern,
			Targets:     r.Targets,
		})
	}
	built, err := rules.Build(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return built, nil
}
