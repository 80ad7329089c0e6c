package config

import (
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the file-system locations of a configuration, made
// absolute against the directory of the config file.
type ResolvedPaths struct {
	BaseDir  string
	Root     string
	Snapshot string
	Output   string
}

func ResolvePaths(cfg *Config, baseDir string) (ResolvedPaths, error) {
	base, err := filepath.Abs(ResolveRelative(".", baseDir))
	if err != nil {
		return ResolvedPaths{}, err
	}
	resolved := ResolvedPaths{
		BaseDir: base,
		Root:    ResolveRelative(base, cfg.Source.Root),
	}
	if cfg.Source.Snapshot != "" {
		resolved.Snapshot = ResolveRelative(base, cfg.Source.Snapshot)
	}
	if cfg.Output.Path != "" && cfg.Output.Path != "-" {
		resolved.Output = ResolveRelative(base, cfg.Output.Path)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
