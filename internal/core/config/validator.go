package config

import (
	"fmt"
	"slices"
	"strings"

	"layercheck/internal/core/errors"
)

var OutputFormats = []string{"text", "markdown", "json", "sarif", "junit"}

// Validate checks the shape of the configuration. Rule semantics (selectors,
// targets) are checked when the rules are built, so every malformed rule is
// reported together.
func Validate(cfg *Config) error {
	checks := []func(*Config) error{
		validateVersion,
		validateSource,
		validateLayers,
		validateRules,
		validateEvaluation,
		validateOutput,
		validateWatch,
	}
	var errs []error
	for _, check := range checks {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(errors.Join(errs...), errors.CodeValidation, "invalid config")
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateSource(cfg *Config) error {
	switch cfg.Source.Kind {
	case SourcePackages:
		for _, p := range cfg.Source.Patterns {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("source.patterns must not contain empty entries")
			}
		}
	case SourceGo:
	case SourceSnapshot:
		if cfg.Source.Snapshot == "" {
			return fmt.Errorf("source.snapshot must be set when source.kind=snapshot")
		}
	default:
		return fmt.Errorf("source.kind must be one of: packages, source, snapshot")
	}
	for _, pattern := range cfg.Source.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("source.exclude must not contain empty entries")
		}
	}
	return nil
}

func validateLayers(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Layers))
	for i, layer := range cfg.Layers {
		ref := fmt.Sprintf("layers[%d]", i)
		if layer.Name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if seen[layer.Name] {
			return fmt.Errorf("duplicate layer name %q", layer.Name)
		}
		seen[layer.Name] = true
		if len(layer.Paths) == 0 {
			return fmt.Errorf("layer %q must declare at least one path", layer.Name)
		}
	}
	return nil
}

func validateRules(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		if rule.Name == "" {
			continue
		}
		if seen[rule.Name] {
			return fmt.Errorf("rules[%d]: duplicate rule name %q", i, rule.Name)
		}
		seen[rule.Name] = true
	}
	return nil
}

func validateEvaluation(cfg *Config) error {
	if cfg.Evaluation.Parallelism < 0 {
		return fmt.Errorf("evaluation.parallelism must be >= 0")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if !slices.Contains(OutputFormats, cfg.Output.Format) {
		return fmt.Errorf("output.format must be one of: %s", strings.Join(OutputFormats, ", "))
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}
