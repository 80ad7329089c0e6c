package config

import (
	"os"
	"strings"
	"time"

	"layercheck/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read config"), errors.CtxPath, path)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates a TOML document.
func Parse(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Newf(errors.CodeValidation, "unknown config keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)
	normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Source.Kind) == "" {
		cfg.Source.Kind = SourcePackages
	}
	if strings.TrimSpace(cfg.Source.Root) == "" {
		cfg.Source.Root = "."
	}
	if len(cfg.Source.Patterns) == 0 {
		cfg.Source.Patterns = []string{"./..."}
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalize(cfg *Config) {
	cfg.Source.Kind = strings.ToLower(strings.TrimSpace(cfg.Source.Kind))
	cfg.Source.Root = strings.TrimSpace(cfg.Source.Root)
	cfg.Source.Snapshot = strings.TrimSpace(cfg.Source.Snapshot)
	cfg.Preset = strings.ToLower(strings.TrimSpace(cfg.Preset))
	cfg.Mediator = strings.TrimSpace(cfg.Mediator)
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Path = strings.TrimSpace(cfg.Output.Path)
	for i := range cfg.Layers {
		cfg.Layers[i].Name = strings.TrimSpace(cfg.Layers[i].Name)
	}
	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		r.Name = strings.TrimSpace(r.Name)
		r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
		r.Subject.Layer = strings.TrimSpace(r.Subject.Layer)
		r.Subject.NameSuffix = strings.TrimSpace(r.Subject.NameSuffix)
		r.Subject.NamePattern = strings.TrimSpace(r.Subject.NamePattern)
		for j := range r.Targets {
			r.Targets[j] = strings.TrimSpace(r.Targets[j])
		}
	}
}
