package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"layercheck/internal/core/errors"
	"layercheck/internal/engine/codebase"
	"layercheck/internal/engine/layers"
	"layercheck/internal/shared/observability"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a snapshot.
type Document struct {
	Units []DocumentUnit `json:"units" yaml:"units"`
}

type DocumentUnit struct {
	ID           string            `json:"id" yaml:"id"`
	Tag          string            `json:"tag,omitempty" yaml:"tag,omitempty"`
	Kind         codebase.UnitKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	File         string            `json:"file,omitempty" yaml:"file,omitempty"`
	Line         int               `json:"line,omitempty" yaml:"line,omitempty"`
	Stub         bool              `json:"stub,omitempty" yaml:"stub,omitempty"`
}

// FileLoader reads a snapshot produced by another tool. Units without a tag
// are assigned one by the resolver from their ID.
type FileLoader struct {
	Path     string
	Resolver *layers.Resolver
}

func NewFileLoader(path string, resolver *layers.Resolver) *FileLoader {
	return &FileLoader{Path: path, Resolver: resolver}
}

func (l *FileLoader) Describe() string {
	return fmt.Sprintf("snapshot %s", l.Path)
}

func (l *FileLoader) Load(ctx context.Context) (*codebase.Codebase, error) {
	_, span := observability.Tracer.Start(ctx, "snapshot.FileLoader.Load")
	defer span.End()

	data, err := os.ReadFile(l.Path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read snapshot"), errors.CtxPath, l.Path)
	}
	doc, err := Decode(data, formatOf(l.Path))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, l.Path)
	}
	cb, err := doc.Codebase(l.Resolver)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, l.Path)
	}
	return cb, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Decode parses a snapshot document. format is "json" or "yaml".
func Decode(data []byte, format string) (Document, error) {
	var doc Document
	var err error
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&doc); err == io.EOF {
			// an empty file is an empty snapshot
			err = nil
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		return doc, errors.Newf(errors.CodeNotSupported, "unsupported snapshot format %q", format)
	}
	if err != nil {
		return doc, errors.Wrap(err, errors.CodeValidation, "decode snapshot")
	}
	return doc, nil
}

// Codebase converts the document, tagging untagged units through resolver.
func (d Document) Codebase(resolver *layers.Resolver) (*codebase.Codebase, error) {
	units := make([]codebase.ModuleUnit, 0, len(d.Units))
	for _, du := range d.Units {
		tag := du.Tag
		if tag == "" {
			tag = resolver.Resolve(du.ID)
		}
		units = append(units, codebase.ModuleUnit{
			ID:           du.ID,
			Tag:          tag,
			Kind:         du.Kind,
			Dependencies: du.Dependencies,
			Location:     codebase.Location{File: du.File, Line: du.Line},
			Stub:         du.Stub,
		})
	}
	return codebase.New(units...)
}

// FromCodebase is the inverse of Document.Codebase.
func FromCodebase(cb *codebase.Codebase) Document {
	doc := Document{Units: make([]DocumentUnit, 0, cb.Len())}
	cb.Each(func(u *codebase.ModuleUnit) {
		doc.Units = append(doc.Units, DocumentUnit{
			ID:           u.ID,
			Tag:          u.Tag,
			Kind:         u.Kind,
			Dependencies: append([]string(nil), u.Dependencies...),
			File:         u.Location.File,
			Line:         u.Location.Line,
			Stub:         u.Stub,
		})
	})
	return doc
}

// Encode writes cb as a snapshot document that FileLoader can read back.
func Encode(w io.Writer, cb *codebase.Codebase, format string) error {
	doc := FromCodebase(cb)
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return errors.Newf(errors.CodeNotSupported, "unsupported snapshot format %q", format)
	}
}
