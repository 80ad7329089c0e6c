package rules

import (
	"fmt"
	"strings"

	"layercheck/internal/core/errors"
	"layercheck/internal/engine/layers"
)

const (
	LayerDomain         = "Domain"
	LayerApplication    = "Application"
	LayerInfrastructure = "Infrastructure"
	LayerPresentation   = "Presentation"
	LayerAPI            = "API"

	PresetClean = "clean"

	DefaultMediator = "github.com/mehdihadeli/go-mediatr"
)

type PresetOptions struct {
	// Mediator is the library controllers must depend on.
	Mediator string
}

// Preset expands a named rule set into definitions.
func Preset(name string, opts PresetOptions) ([]Definition, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return nil, nil
	case PresetClean:
		return cleanArchitecture(opts), nil
	default:
		return nil, errors.Newf(errors.CodeConfiguration, "unknown preset %q", name)
	}
}

func cleanArchitecture(opts PresetOptions) []Definition {
	mediator := opts.Mediator
	if mediator == "" {
		mediator = DefaultMediator
	}

	forbid := func(from string, to ...string) Definition {
		return Definition{
			Name:    fmt.Sprintf("%s should not depend on %s", strings.ToLower(from), strings.ToLower(strings.Join(to, ", "))),
			Kind:    string(KindForbid),
			Layer:   from,
			Targets: to,
		}
	}

	return []Definition{
		forbid(LayerDomain, LayerApplication, LayerInfrastructure, LayerPresentation, LayerAPI),
		forbid(LayerApplication, LayerInfrastructure, LayerPresentation, LayerAPI),
		forbid(LayerInfrastructure, LayerPresentation, LayerAPI),
		forbid(LayerPresentation, LayerInfrastructure, LayerAPI),
		{
			Name:       "handlers should depend on domain",
			Kind:       string(KindRequire),
			NameSuffix: "Handler",
			Targets:    []string{LayerDomain},
		},
		{
			Name:       "controllers should depend on mediator",
			Kind:       string(KindRequire),
			NameSuffix: "Controller",
			Targets:    []string{mediator},
		},
	}
}

// PresetLayers returns the conventional package layout for a preset, used
// when the configuration declares no layers of its own.
func PresetLayers(name string) []layers.Layer {
	if strings.ToLower(strings.TrimSpace(name)) != PresetClean {
		return nil
	}
	dirs := []struct{ layer, dir string }{
		{LayerDomain, "domain"},
		{LayerApplication, "application"},
		{LayerInfrastructure, "infrastructure"},
		{LayerPresentation, "presentation"},
		{LayerAPI, "api"},
	}
	out := make([]layers.Layer, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, layers.Layer{Name: d.layer, Paths: []string{d.dir, "internal/" + d.dir}})
	}
	return out
}
