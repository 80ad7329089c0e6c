package parser

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

// goParsers hands out tree-sitter parsers already bound to the Go grammar.
// Loader goroutines parse files concurrently, so each borrows its own parser.
type goParsers struct {
	lang *sitter.Language
	free sync.Pool
}

func newGoParsers() *goParsers {
	p := &goParsers{lang: sitter.NewLanguage(tree_sitter_go.Language())}
	p.free.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(p.lang)
		return sp
	}
	return p
}

// parse runs one file through a borrowed parser. The caller owns the tree.
func (p *goParsers) parse(content []byte) *sitter.Tree {
	sp := p.free.Get().(*sitter.Parser)
	defer func() {
		sp.Reset()
		p.free.Put(sp)
	}()
	return sp.Parse(content, nil)
}
