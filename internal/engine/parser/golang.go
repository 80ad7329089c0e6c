package parser

import (
	"regexp"
	"strings"

	"layercheck/internal/engine/codebase"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var majorVersionSegment = regexp.MustCompile(`^v[0-9]+$`)

type GoExtractor struct {
	refs *ExtractorEngine
}

func NewGoExtractor() *GoExtractor {
	e := &GoExtractor{}
	e.refs = NewExtractorEngine(map[string]NodeHandler{
		"qualified_type":      e.captureQualifiedType,
		"selector_expression": e.captureSelector,
		"type_identifier":     e.captureLocal,
		"identifier":          e.captureLocal,
		// Field names and keyed-literal keys never name package-level declarations.
		"field_identifier": func(*ExtractionContext, *sitter.Node) bool { return true },
	})
	return e
}

func (e *GoExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{Path: filePath}
	ctx := &ExtractionContext{Source: source, File: file, aliases: make(map[string]string)}

	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		switch child.Kind() {
		case "package_clause":
			e.extractPackage(ctx, child)
		case "import_declaration":
			e.walkImports(ctx, child)
		case "type_declaration":
			e.extractTypes(ctx, child)
		case "function_declaration":
			e.extractFunction(ctx, child)
		case "method_declaration":
			e.extractMethod(ctx, child)
		case "var_declaration":
			e.extractValues(ctx, child, "var_spec", codebase.KindVar)
		case "const_declaration":
			e.extractValues(ctx, child, "const_spec", codebase.KindConst)
		}
	}
	return file, nil
}

func (e *GoExtractor) extractPackage(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "package_identifier" {
			ctx.File.PackageName = ctx.Text(child)
		}
	}
}

func (e *GoExtractor) walkImports(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "import_spec" {
			e.walkImports(ctx, child)
			continue
		}

		var alias, path string
		for j := uint(0); j < child.ChildCount(); j++ {
			spec := child.Child(j)
			switch spec.Kind() {
			case "package_identifier", "blank_identifier", "dot", "_", ".":
				alias = ctx.Text(spec)
			case "interpreted_string_literal", "raw_string_literal":
				path = strings.Trim(ctx.Text(spec), "\"`")
			}
		}
		if path == "" {
			continue
		}
		ctx.File.Imports = append(ctx.File.Imports, Import{Path: path, Alias: alias, Line: ctx.Line(child)})
		if alias == "_" || alias == "." {
			continue
		}
		if alias == "" {
			alias = ImportName(path)
		}
		ctx.aliases[alias] = path
	}
}

func (e *GoExtractor) extractTypes(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec.Kind() != "type_spec" && spec.Kind() != "type_alias" {
			continue
		}
		name := ctx.Text(spec.ChildByFieldName("name"))
		if name == "" {
			continue
		}
		kind := codebase.KindType
		if t := spec.ChildByFieldName("type"); t != nil && t.Kind() == "interface_type" {
			kind = codebase.KindInterface
		}
		e.declare(ctx, name, kind, spec, spec.ChildByFieldName("type_parameters"), spec.ChildByFieldName("type"))
	}
}

func (e *GoExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" || name == "init" || name == "_" {
		return
	}
	e.declare(ctx, name, codebase.KindFunc, node,
		node.ChildByFieldName("type_parameters"),
		node.ChildByFieldName("parameters"),
		node.ChildByFieldName("result"),
		node.ChildByFieldName("body"),
	)
}

func (e *GoExtractor) extractMethod(ctx *ExtractionContext, node *sitter.Node) {
	receiver := receiverTypeName(ctx, node.ChildByFieldName("receiver"))
	if receiver == "" {
		return
	}
	e.declare(ctx, receiver, codebase.KindType, node,
		node.ChildByFieldName("parameters"),
		node.ChildByFieldName("result"),
		node.ChildByFieldName("body"),
	)
	ctx.File.Declarations[len(ctx.File.Declarations)-1].Method = true
}

func (e *GoExtractor) extractValues(ctx *ExtractionContext, node *sitter.Node, specKind string, kind codebase.UnitKind) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != specKind {
			// var ( ... ) groups wrap their specs in a list node.
			e.extractValues(ctx, child, specKind, kind)
			continue
		}
		names := make([]string, 0, 1)
		bodies := make([]*sitter.Node, 0, 2)
		for j := uint(0); j < child.ChildCount(); j++ {
			part := child.Child(j)
			switch part.Kind() {
			case "identifier":
				names = append(names, ctx.Text(part))
			case ",", "=":
			default:
				bodies = append(bodies, part)
			}
		}
		for _, name := range names {
			if name == "_" {
				continue
			}
			e.declare(ctx, name, kind, child, bodies...)
		}
	}
}

// declare opens (or reopens, for methods) a declaration and collects the
// references found under bodies.
func (e *GoExtractor) declare(ctx *ExtractionContext, name string, kind codebase.UnitKind, at *sitter.Node, bodies ...*sitter.Node) {
	decl := Declaration{Name: name, Kind: kind, Line: ctx.Line(at)}
	ctx.current = &decl
	ctx.seen = make(map[string]bool)
	for _, body := range bodies {
		e.refs.Walk(ctx, body)
	}
	ctx.current = nil
	ctx.File.Declarations = append(ctx.File.Declarations, decl)
}

func (e *GoExtractor) captureQualifiedType(ctx *ExtractionContext, node *sitter.Node) bool {
	pkg := ctx.Text(node.ChildByFieldName("package"))
	name := ctx.Text(node.ChildByFieldName("name"))
	if path, ok := ctx.aliases[pkg]; ok {
		ctx.addRef(path, name)
	}
	return true
}

func (e *GoExtractor) captureSelector(ctx *ExtractionContext, node *sitter.Node) bool {
	operand := node.ChildByFieldName("operand")
	if operand == nil || operand.Kind() != "identifier" {
		return false
	}
	qualifier := ctx.Text(operand)
	if path, ok := ctx.aliases[qualifier]; ok {
		ctx.addRef(path, ctx.Text(node.ChildByFieldName("field")))
		return true
	}
	ctx.addLocal(qualifier)
	return true
}

func (e *GoExtractor) captureLocal(ctx *ExtractionContext, node *sitter.Node) bool {
	ctx.addLocal(ctx.Text(node))
	return true
}

func receiverTypeName(ctx *ExtractionContext, receiver *sitter.Node) string {
	if receiver == nil {
		return ""
	}
	var find func(n *sitter.Node) string
	find = func(n *sitter.Node) string {
		if n.Kind() == "type_identifier" {
			return ctx.Text(n)
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if name := find(n.Child(i)); name != "" {
				return name
			}
		}
		return ""
	}
	for i := uint(0); i < receiver.ChildCount(); i++ {
		param := receiver.Child(i)
		if param.Kind() != "parameter_declaration" {
			continue
		}
		if t := param.ChildByFieldName("type"); t != nil {
			return find(t)
		}
	}
	return ""
}

// ImportName guesses the package name an import path binds when no alias is
// given: the last path element, skipping a major-version suffix and
// dropping a gopkg.in style ".vN".
func ImportName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	name := parts[len(parts)-1]
	if majorVersionSegment.MatchString(name) && len(parts) > 1 {
		name = parts[len(parts)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "_")
}
