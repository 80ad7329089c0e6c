package parser

import "layercheck/internal/engine/codebase"

// File is the dependency-relevant view of one Go source file.
type File struct {
	Path         string
	PackageName  string
	Imports      []Import
	Declarations []Declaration
}

type Import struct {
	Path  string
	Alias string // explicit alias, "_" or "."; empty when implied by the path
	Line  int
}

// Declaration is a package-level name. Methods are reported under their
// receiver type so that a type's unit covers its method bodies.
type Declaration struct {
	Name string
	Kind codebase.UnitKind
	Line int
	// Method is set when the declaration is a method body folded into its receiver.
	Method bool
	// Refs are references qualified by an imported package.
	Refs []Ref
	// Locals are unqualified identifiers that may name other package-level
	// declarations of the same package; the caller resolves them.
	Locals []string
}

type Ref struct {
	ImportPath string
	Name       string
}
