package parser

import (
	"path/filepath"
	"strings"

	"layercheck/internal/core/errors"
)

// Parser extracts package-level declarations and their references from Go
// source. It is safe for concurrent use.
type Parser struct {
	parsers   *goParsers
	extractor *GoExtractor
}

func NewParser() *Parser {
	return &Parser{
		parsers:   newGoParsers(),
		extractor: NewGoExtractor(),
	}
}

func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	if !IsGoFile(path) {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported file type"), errors.CtxPath, path)
	}

	tree := p.parsers.parse(content)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	file, err := p.extractor.Extract(tree.RootNode(), content, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "extraction failed")
	}
	return file, nil
}

func IsGoFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".go")
}

func IsTestFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(path)), "_test.go")
}
