package snapshot

import (
	"sort"
	"strings"

	"layercheck/internal/engine/codebase"
	"layercheck/internal/engine/layers"
)

// builder accumulates units from several files or packages. Declarations of
// the same ID merge, so methods spread across files land on their type.
type builder struct {
	resolver *layers.Resolver
	units    map[string]*pendingUnit
	// refs are module-local targets seen as dependencies. Those whose
	// package was not loaded become stub units so their layer still counts.
	refs map[string]codebase.ModuleUnit
}

type pendingUnit struct {
	unit     codebase.ModuleUnit
	declared bool
	deps     map[string]bool
}

func newBuilder(resolver *layers.Resolver) *builder {
	return &builder{
		resolver: resolver,
		units:    make(map[string]*pendingUnit),
		refs:     make(map[string]codebase.ModuleUnit),
	}
}

// unit returns the pending unit for id, creating it on first use. primary
// marks the declaring occurrence (as opposed to a method), which owns kind
// and location.
func (b *builder) unit(id, tag string, kind codebase.UnitKind, loc codebase.Location, primary bool) *pendingUnit {
	pu, ok := b.units[id]
	if !ok {
		pu = &pendingUnit{
			unit: codebase.ModuleUnit{ID: id, Tag: tag, Kind: kind, Location: loc},
			deps: make(map[string]bool),
		}
		b.units[id] = pu
	}
	if primary && !pu.declared {
		pu.declared = true
		pu.unit.Kind = kind
		pu.unit.Location = loc
	}
	return pu
}

func (pu *pendingUnit) depend(id string) {
	if id == "" || id == pu.unit.ID {
		return
	}
	pu.deps[id] = true
}

// reference makes pu depend on a module-local unit of pkgPath.
func (b *builder) reference(pu *pendingUnit, modulePath, pkgPath, name string, kind codebase.UnitKind) {
	id := unitID(pkgPath, name)
	pu.depend(id)
	if _, ok := b.refs[id]; ok {
		return
	}
	b.refs[id] = codebase.ModuleUnit{ID: id, Tag: b.tagFor(modulePath, pkgPath), Kind: kind, Stub: true}
}

// tagFor resolves a package's layer from its module-relative directory,
// falling back to the full package path.
func (b *builder) tagFor(modulePath, pkgPath string) string {
	if b.resolver == nil {
		return ""
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(pkgPath, modulePath), "/")
	if rel != "" {
		if tag := b.resolver.Resolve(rel); tag != "" {
			return tag
		}
	}
	return b.resolver.Resolve(pkgPath)
}

func (b *builder) build() (*codebase.Codebase, error) {
	ids := make([]string, 0, len(b.units)+len(b.refs))
	for id := range b.units {
		ids = append(ids, id)
	}
	for id := range b.refs {
		if _, loaded := b.units[id]; !loaded {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	units := make([]codebase.ModuleUnit, 0, len(ids))
	for _, id := range ids {
		pu, ok := b.units[id]
		if !ok {
			units = append(units, b.refs[id])
			continue
		}
		u := pu.unit
		u.Dependencies = make([]string, 0, len(pu.deps))
		for dep := range pu.deps {
			u.Dependencies = append(u.Dependencies, dep)
		}
		units = append(units, u)
	}
	return codebase.New(units...)
}

func isModuleLocal(modulePath, importPath string) bool {
	if modulePath == "" {
		return false
	}
	return importPath == modulePath || strings.HasPrefix(importPath, modulePath+"/")
}

func unitID(pkgPath, name string) string {
	return pkgPath + "." + name
}
