package rules

import "layercheck/internal/engine/codebase"

func matchName(f Filter, id string) bool {
	u := codebase.ModuleUnit{ID: id}
	return f.Match(&u)
}
