package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"layercheck/internal/core/errors"
	"layercheck/internal/engine/codebase"
	"layercheck/internal/engine/layers"
	"layercheck/internal/engine/parser"
	"layercheck/internal/shared/observability"
	"layercheck/internal/shared/util"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var DefaultExcludeDirs = []string{".*", "_*", "vendor", "testdata", "node_modules"}

// SourceLoader builds a snapshot by parsing Go sources with tree-sitter. It
// needs no build environment, at the price of resolving same-package names
// syntactically (a local variable shadowing a package-level name still counts
// as a dependency on it).
type SourceLoader struct {
	Root         string
	Resolver     *layers.Resolver
	IncludeTests bool
	ExcludeDirs  []string
	Parallelism  int

	parser *parser.Parser
}

func NewSourceLoader(root string, resolver *layers.Resolver) *SourceLoader {
	return &SourceLoader{
		Root:        root,
		Resolver:    resolver,
		ExcludeDirs: DefaultExcludeDirs,
		parser:      parser.NewParser(),
	}
}

func (l *SourceLoader) Describe() string {
	return fmt.Sprintf("source %s", l.Root)
}

type parsedFile struct {
	rel  string
	file *parser.File
}

func (l *SourceLoader) Load(ctx context.Context) (*codebase.Codebase, error) {
	ctx, span := observability.Tracer.Start(ctx, "snapshot.SourceLoader.Load", trace.WithAttributes(
		attribute.String("root", l.Root),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}()

	if l.parser == nil {
		l.parser = parser.NewParser()
	}
	modRoot, modPath, err := util.FindModule(l.Root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "locate go.mod"), errors.CtxPath, l.Root)
	}

	paths, err := l.collect()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("files", len(paths)))

	parsed, err := l.parseAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	b := newBuilder(l.Resolver)
	byPkg := make(map[string][]parsedFile)
	for _, pf := range parsed {
		rel, relErr := filepath.Rel(modRoot, pf.rel)
		if relErr != nil {
			return nil, errors.AddContext(errors.Wrap(relErr, errors.CodeInternal, "relative path"), errors.CtxPath, pf.rel)
		}
		pkgPath := modPath
		if dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." {
			pkgPath = path.Join(modPath, dir)
		}
		if strings.HasSuffix(pf.file.PackageName, "_test") {
			pkgPath += "_test"
		}
		byPkg[pkgPath] = append(byPkg[pkgPath], parsedFile{rel: filepath.ToSlash(rel), file: pf.file})
	}

	for _, pkgPath := range util.SortedStringKeys(byPkg) {
		l.addPackage(b, modPath, pkgPath, byPkg[pkgPath])
	}
	return b.build()
}

func (l *SourceLoader) addPackage(b *builder, modPath, pkgPath string, files []parsedFile) {
	tag := b.tagFor(modPath, strings.TrimSuffix(pkgPath, "_test"))

	declared := make(map[string]bool)
	for _, pf := range files {
		for _, d := range pf.file.Declarations {
			declared[d.Name] = true
		}
	}

	for _, pf := range files {
		for _, d := range pf.file.Declarations {
			loc := codebase.Location{File: pf.rel, Line: d.Line}
			pu := b.unit(unitID(pkgPath, d.Name), tag, d.Kind, loc, !d.Method)
			for _, ref := range d.Refs {
				if isModuleLocal(modPath, ref.ImportPath) {
					b.reference(pu, modPath, ref.ImportPath, ref.Name, "")
				} else {
					pu.depend(ref.ImportPath)
				}
			}
			for _, local := range d.Locals {
				if declared[local] {
					pu.depend(unitID(pkgPath, local))
				}
			}
		}
	}
}

func (l *SourceLoader) collect() ([]string, error) {
	excludes := make([]glob.Glob, 0, len(l.ExcludeDirs))
	for _, pattern := range l.ExcludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfiguration, fmt.Sprintf("invalid exclude pattern %q", pattern))
		}
		excludes = append(excludes, g)
	}

	root, err := filepath.Abs(l.Root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != root {
				base := d.Name()
				for _, g := range excludes {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
			}
			return nil
		}
		if !parser.IsGoFile(p) {
			return nil
		}
		if !l.IncludeTests && parser.IsTestFile(p) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk source tree"), errors.CtxPath, l.Root)
	}
	sort.Strings(out)
	return out, nil
}

func (l *SourceLoader) parseAll(ctx context.Context, paths []string) ([]parsedFile, error) {
	limit := l.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	out := make([]parsedFile, 0, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(p)
			if err != nil {
				return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read source"), errors.CtxPath, p)
			}
			f, err := l.parser.ParseFile(p, content)
			if err != nil {
				slog.Warn("failed to parse file", "path", p, "error", err)
				return nil
			}
			mu.Lock()
			out = append(out, parsedFile{rel: p, file: f})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rel < out[j].rel })
	return out, nil
}
