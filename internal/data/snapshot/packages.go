package snapshot

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"
	"time"

	"layercheck/internal/core/errors"
	"layercheck/internal/engine/codebase"
	"layercheck/internal/engine/layers"
	"layercheck/internal/shared/observability"
	"layercheck/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/tools/go/packages"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedImports |
	packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedModule

// PackagesLoader builds a snapshot from type-checked packages. Every
// package-level type, func, var and const is a unit; its dependencies are the
// package-level objects its declaration (and, for types, its methods) uses.
type PackagesLoader struct {
	Dir          string
	Patterns     []string
	Resolver     *layers.Resolver
	IncludeTests bool
	BuildFlags   []string
}

func NewPackagesLoader(dir string, patterns []string, resolver *layers.Resolver) *PackagesLoader {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	return &PackagesLoader{Dir: dir, Patterns: patterns, Resolver: resolver}
}

func (l *PackagesLoader) Describe() string {
	return fmt.Sprintf("packages %s in %s", strings.Join(l.Patterns, " "), l.Dir)
}

func (l *PackagesLoader) Load(ctx context.Context) (*codebase.Codebase, error) {
	ctx, span := observability.Tracer.Start(ctx, "snapshot.PackagesLoader.Load", trace.WithAttributes(
		attribute.StringSlice("patterns", l.Patterns),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}()

	cfg := &packages.Config{
		Context:    ctx,
		Mode:       loadMode,
		Dir:        l.Dir,
		Tests:      l.IncludeTests,
		BuildFlags: l.BuildFlags,
	}
	pkgs, err := packages.Load(cfg, l.Patterns...)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "load packages"), errors.CtxPath, l.Dir)
	}
	if err := packageErrors(pkgs); err != nil {
		return nil, err
	}

	b := newBuilder(l.Resolver)
	for _, pkg := range selectVariants(pkgs) {
		modPath := ""
		if pkg.Module != nil {
			modPath = pkg.Module.Path
		} else if _, p, modErr := util.FindModule(l.Dir); modErr == nil {
			modPath = p
		}
		l.addPackage(b, modPath, pkg)
	}
	span.SetAttributes(attribute.Int("packages", len(pkgs)))
	return b.build()
}

func packageErrors(pkgs []*packages.Package) error {
	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", pkg.PkgPath, e.Error()))
		}
	})
	if len(errs) == 0 {
		return nil
	}
	if len(errs) > 10 {
		errs = append(errs[:10], fmt.Errorf("... and %d more", len(errs)-10))
	}
	return errors.Wrap(errors.Join(errs...), errors.CodeValidation, "packages have errors")
}

// selectVariants keeps one package per path. With Tests enabled the loader
// returns both "p" and "p [p.test]"; the test variant is a superset.
func selectVariants(pkgs []*packages.Package) []*packages.Package {
	chosen := make(map[string]*packages.Package)
	order := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.PkgPath, ".test") || pkg.Types == nil || pkg.TypesInfo == nil {
			continue
		}
		prev, ok := chosen[pkg.PkgPath]
		if !ok {
			order = append(order, pkg.PkgPath)
			chosen[pkg.PkgPath] = pkg
			continue
		}
		if len(pkg.Syntax) > len(prev.Syntax) {
			chosen[pkg.PkgPath] = pkg
		}
	}
	out := make([]*packages.Package, 0, len(order))
	for _, path := range order {
		out = append(out, chosen[path])
	}
	return out
}

func (l *PackagesLoader) addPackage(b *builder, modPath string, pkg *packages.Package) {
	tag := b.tagFor(modPath, strings.TrimSuffix(pkg.PkgPath, "_test"))

	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv != nil {
					recv := receiverName(d.Recv)
					if recv == "" {
						continue
					}
					pu := b.unit(unitID(pkg.PkgPath, recv), tag, codebase.KindType, l.location(pkg, d.Pos()), false)
					l.collect(b, pu, modPath, pkg, d)
					continue
				}
				if d.Name.Name == "init" || d.Name.Name == "_" {
					continue
				}
				pu := b.unit(unitID(pkg.PkgPath, d.Name.Name), tag, codebase.KindFunc, l.location(pkg, d.Pos()), true)
				l.collect(b, pu, modPath, pkg, d)
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *ast.TypeSpec:
						kind := codebase.KindType
						if _, ok := s.Type.(*ast.InterfaceType); ok {
							kind = codebase.KindInterface
						}
						pu := b.unit(unitID(pkg.PkgPath, s.Name.Name), tag, kind, l.location(pkg, s.Pos()), true)
						l.collect(b, pu, modPath, pkg, s)
					case *ast.ValueSpec:
						kind := codebase.KindVar
						if d.Tok == token.CONST {
							kind = codebase.KindConst
						}
						for _, name := range s.Names {
							if name.Name == "_" {
								continue
							}
							pu := b.unit(unitID(pkg.PkgPath, name.Name), tag, kind, l.location(pkg, name.Pos()), true)
							l.collect(b, pu, modPath, pkg, s)
						}
					}
				}
			}
		}
	}
}

// collect records every package-level object referenced under node.
func (l *PackagesLoader) collect(b *builder, pu *pendingUnit, modPath string, pkg *packages.Package, node ast.Node) {
	ast.Inspect(node, func(n ast.Node) bool {
		ident, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		obj := pkg.TypesInfo.Uses[ident]
		if obj == nil || obj.Pkg() == nil {
			return true
		}
		if _, isPkg := obj.(*types.PkgName); isPkg {
			return true
		}
		if obj.Pkg().Scope().Lookup(obj.Name()) != obj {
			// Fields, methods and locals: the owning named type shows up on its own.
			return true
		}
		target := obj.Pkg().Path()
		switch {
		case obj.Pkg() == pkg.Types:
			pu.depend(unitID(pkg.PkgPath, obj.Name()))
		case isModuleLocal(modPath, target):
			b.reference(pu, modPath, target, obj.Name(), objectKind(obj))
		default:
			pu.depend(target)
		}
		return true
	})
}

func objectKind(obj types.Object) codebase.UnitKind {
	switch o := obj.(type) {
	case *types.TypeName:
		if types.IsInterface(o.Type()) {
			return codebase.KindInterface
		}
		return codebase.KindType
	case *types.Func:
		return codebase.KindFunc
	case *types.Const:
		return codebase.KindConst
	default:
		return codebase.KindVar
	}
}

func (l *PackagesLoader) location(pkg *packages.Package, pos token.Pos) codebase.Location {
	if !pos.IsValid() || pkg.Fset == nil {
		return codebase.Location{}
	}
	p := pkg.Fset.Position(pos)
	return codebase.Location{File: relativeTo(l.Dir, p.Filename), Line: p.Line}
}

func receiverName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

func relativeTo(dir, file string) string {
	if dir == "" {
		return filepath.ToSlash(file)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(abs, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
