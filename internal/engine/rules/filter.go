package rules

import (
	"fmt"
	"strings"

	"layercheck/internal/core/errors"
	"layercheck/internal/engine/codebase"

	"github.com/gobwas/glob"
)

type FilterKind int

const (
	filterNone FilterKind = iota
	FilterTag
	FilterNameSuffix
	FilterNamePattern
)

// Filter selects the subject units of a rule. The zero Filter selects nothing
// and is rejected by every rule constructor.
type Filter struct {
	kind  FilterKind
	value string
	glob  glob.Glob
}

// ByTag selects units whose tag equals tag exactly.
func ByTag(tag string) (Filter, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Filter{}, errors.New(errors.CodeConfiguration, "tag filter must not be empty")
	}
	return Filter{kind: FilterTag, value: tag}, nil
}

// ByNameSuffix selects units whose name ends with suffix (case-sensitive).
func ByNameSuffix(suffix string) (Filter, error) {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return Filter{}, errors.New(errors.CodeConfiguration, "name suffix filter must not be empty")
	}
	return Filter{kind: FilterNameSuffix, value: suffix}, nil
}

// ByNamePattern selects units whose name matches a glob such as "*Repository"
// or "{Order,Invoice}*".
func ByNamePattern(pattern string) (Filter, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Filter{}, errors.New(errors.CodeConfiguration, "name pattern filter must not be empty")
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return Filter{}, errors.Wrap(err, errors.CodeConfiguration, fmt.Sprintf("invalid name pattern %q", pattern))
	}
	return Filter{kind: FilterNamePattern, value: pattern, glob: g}, nil
}

func MustTag(tag string) Filter {
	f, err := ByTag(tag)
	if err != nil {
		panic(err)
	}
	return f
}

func MustNameSuffix(suffix string) Filter {
	f, err := ByNameSuffix(suffix)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Filter) Kind() FilterKind { return f.kind }
func (f Filter) Value() string    { return f.value }
func (f Filter) IsZero() bool     { return f.kind == filterNone }

// Match reports whether u is a subject. Stub units are never subjects; they
// only lend their tag to the units that depend on them.
func (f Filter) Match(u *codebase.ModuleUnit) bool {
	if u == nil || u.Stub {
		return false
	}
	switch f.kind {
	case FilterTag:
		return u.Tag == f.value
	case FilterNameSuffix:
		return strings.HasSuffix(u.Name(), f.value)
	case FilterNamePattern:
		return f.glob != nil && f.glob.Match(u.Name())
	default:
		return false
	}
}

func (f Filter) String() string {
	switch f.kind {
	case FilterTag:
		return fmt.Sprintf("units in %s", f.value)
	case FilterNameSuffix:
		return fmt.Sprintf("units named *%s", f.value)
	case FilterNamePattern:
		return fmt.Sprintf("units matching %s", f.value)
	default:
		return "no units"
	}
}
