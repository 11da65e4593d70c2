package config

import (
	"path/filepath"
	"strings"
)

// ResolvePaths rewrites relative file settings against baseDir, normally the
// directory holding the config file.
func ResolvePaths(cfg *Config, baseDir string) {
	cfg.History.Path = ResolveRelative(baseDir, cfg.History.Path)
	cfg.Output.OutDir = ResolveRelative(baseDir, cfg.Output.OutDir)
	cfg.Output.ReportPath = ResolveRelative(baseDir, cfg.Output.ReportPath)
	cfg.Log.File = ResolveRelative(baseDir, cfg.Log.File)
}

func ResolveRelative(base, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) || strings.TrimSpace(base) == "" {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
