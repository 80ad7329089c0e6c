package util

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// FindModule walks up from start to the nearest go.mod and returns its
// directory and module path.
func FindModule(start string) (root, modulePath string, err error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", "", err
	}
	if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	current := abs
	for {
		modPath := filepath.Join(current, "go.mod")
		if data, readErr := os.ReadFile(modPath); readErr == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return "", "", fmt.Errorf("%s: missing module directive", modPath)
			}
			return current, path, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", "", fmt.Errorf("no go.mod found above %s", start)
		}
		current = parent
	}
}
