package rules

import (
	"fmt"
	"strings"

	"layercheck/internal/core/errors"
)

// Definition is the declarative form of a rule as it appears in config files.
// Exactly one of Layer, NameSuffix and NamePattern selects the subject.
type Definition struct {
	Name        string
	Kind        string
	Layer       string
	NameSuffix  string
	NamePattern string
	Targets     []string
}

// Build turns definitions into rules. Every malformed definition is reported,
// not just the first; no rule is returned when any definition is invalid.
func Build(defs []Definition) ([]Rule, error) {
	out := make([]Rule, 0, len(defs))
	var errs []error
	for i, def := range defs {
		rule, err := FromDefinition(def)
		if err != nil {
			ref := def.Name
			if ref == "" {
				ref = fmt.Sprintf("rules[%d]", i)
			}
			errs = append(errs, errors.AddContext(err, errors.CtxRule, ref))
			continue
		}
		out = append(out, rule)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func FromDefinition(def Definition) (Rule, error) {
	subject, err := def.subject()
	if err != nil {
		return nil, err
	}

	switch Kind(strings.ToLower(strings.TrimSpace(def.Kind))) {
	case KindForbid:
		r, err := NewForbidDependency(def.Name, subject, def.Targets...)
		if err != nil {
			return nil, err
		}
		return r, nil
	case KindRequire:
		if len(def.Targets) != 1 {
			return nil, configErr(def.Name, fmt.Sprintf("require rule needs exactly one target, got %d", len(def.Targets)))
		}
		r, err := NewRequireDependency(def.Name, subject, def.Targets[0])
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, configErr(def.Name, fmt.Sprintf("unknown rule kind %q (want forbid or require)", def.Kind))
	}
}

func (d Definition) subject() (Filter, error) {
	layer := strings.TrimSpace(d.Layer)
	suffix := strings.TrimSpace(d.NameSuffix)
	pattern := strings.TrimSpace(d.NamePattern)
	set := 0
	for _, v := range []string{layer, suffix, pattern} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return Filter{}, configErr(d.Name, "subject must set exactly one of layer, name_suffix, name_pattern")
	}
	switch {
	case layer != "":
		return ByTag(layer)
	case suffix != "":
		return ByNameSuffix(suffix)
	default:
		return ByNamePattern(pattern)
	}
}
