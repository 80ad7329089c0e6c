package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for a language-specific extractor.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries shared state/helpers used by the extractor.
type ExtractionContext struct {
	Source  []byte
	File    *File
	current *Declaration
	aliases map[string]string
	seen    map[string]bool
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok {
		if handler(ctx, node) {
			return
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// addRef records a package-qualified reference on the current declaration.
func (c *ExtractionContext) addRef(importPath, name string) {
	if c.current == nil || importPath == "" || name == "" {
		return
	}
	key := "r:" + importPath + "." + name
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.current.Refs = append(c.current.Refs, Ref{ImportPath: importPath, Name: name})
}

func (c *ExtractionContext) addLocal(name string) {
	if c.current == nil || name == "" || name == "_" || name == c.current.Name {
		return
	}
	key := "l:" + name
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.current.Locals = append(c.current.Locals, name)
}
