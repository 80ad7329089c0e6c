package codebase

import (
	"sort"
	"strings"

	"layercheck/internal/core/errors"
)

type UnitKind string

const (
	KindType      UnitKind = "type"
	KindInterface UnitKind = "interface"
	KindFunc      UnitKind = "func"
	KindVar       UnitKind = "var"
	KindConst     UnitKind = "const"
)

type Location struct {
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	Line int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// ModuleUnit is a single type or source unit with its direct outgoing dependencies.
// Dependencies hold unit IDs for in-codebase targets and plain library names otherwise.
type ModuleUnit struct {
	ID           string
	Tag          string
	Kind         UnitKind
	Dependencies []string
	Location     Location
	// Stub marks a unit known only as a dependency target: its package was
	// not loaded, so it carries a tag but no dependencies of its own.
	Stub bool
}

// Name returns the last segment of the unit ID, the part name filters look at.
func (u ModuleUnit) Name() string {
	return ShortName(u.ID)
}

// DependsOn reports whether id is among the unit's direct dependencies.
func (u ModuleUnit) DependsOn(id string) bool {
	i := sort.SearchStrings(u.Dependencies, id)
	return i < len(u.Dependencies) && u.Dependencies[i] == id
}

// ShortName strips package and namespace qualifiers: "a/b.C" and "A.B.C" both yield "C".
func ShortName(id string) string {
	name := id
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Codebase is an immutable, ordered snapshot of module units indexed by ID.
type Codebase struct {
	units []ModuleUnit
	index map[string]int
}

// New builds a codebase from units in the given order. IDs must be unique and non-empty.
func New(units ...ModuleUnit) (*Codebase, error) {
	cb := &Codebase{
		units: make([]ModuleUnit, 0, len(units)),
		index: make(map[string]int, len(units)),
	}
	for _, u := range units {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			return nil, errors.New(errors.CodeValidation, "module unit id must not be empty")
		}
		if _, dup := cb.index[id]; dup {
			return nil, errors.Newf(errors.CodeValidation, "duplicate module unit %q", id)
		}
		u.ID = id
		u.Tag = strings.TrimSpace(u.Tag)
		u.Dependencies = normalizeDeps(u.Dependencies)
		cb.index[id] = len(cb.units)
		cb.units = append(cb.units, u)
	}
	return cb, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(units ...ModuleUnit) *Codebase {
	cb, err := New(units...)
	if err != nil {
		panic(err)
	}
	return cb
}

func normalizeDeps(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (c *Codebase) Len() int {
	if c == nil {
		return 0
	}
	return len(c.units)
}

// Units returns a copy of all units in codebase order.
func (c *Codebase) Units() []ModuleUnit {
	if c == nil {
		return nil
	}
	out := make([]ModuleUnit, len(c.units))
	for i, u := range c.units {
		out[i] = u.clone()
	}
	return out
}

// Unit looks up a unit by ID.
func (c *Codebase) Unit(id string) (ModuleUnit, bool) {
	if c == nil {
		return ModuleUnit{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return ModuleUnit{}, false
	}
	return c.units[i].clone(), true
}

// TagOf returns the tag of an in-codebase unit. ok is false for external dependencies.
func (c *Codebase) TagOf(id string) (tag string, ok bool) {
	if c == nil {
		return "", false
	}
	i, ok := c.index[id]
	if !ok {
		return "", false
	}
	return c.units[i].Tag, true
}

// Each calls fn for every unit in order without copying. fn must not retain
// or mutate the unit's dependency slice.
func (c *Codebase) Each(fn func(u *ModuleUnit)) {
	if c == nil {
		return
	}
	for i := range c.units {
		fn(&c.units[i])
	}
}

// Tags returns the distinct non-empty tags in first-seen order.
func (c *Codebase) Tags() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, u := range c.units {
		if u.Tag == "" || seen[u.Tag] {
			continue
		}
		seen[u.Tag] = true
		out = append(out, u.Tag)
	}
	return out
}

// EdgeCount returns the total number of direct dependency edges.
func (c *Codebase) EdgeCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, u := range c.units {
		n += len(u.Dependencies)
	}
	return n
}

func (u ModuleUnit) clone() ModuleUnit {
	if u.Dependencies != nil {
		u.Dependencies = append([]string(nil), u.Dependencies...)
	}
	return u
}
