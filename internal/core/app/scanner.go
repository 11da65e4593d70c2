package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"explicitexports/internal/core/config"
	"explicitexports/internal/core/errors"
	"explicitexports/internal/core/ports"
	"explicitexports/internal/shared/util"

	"github.com/gobwas/glob"
)

// SourceFile is one file selected for transformation. Rel is the
// slash-separated path below Root.
type SourceFile struct {
	Path string
	Root string
	Rel  string
}

type scanFilter struct {
	include      []glob.Glob
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	skipDirs     []string
}

func newScanFilter(cfg *config.Config) (*scanFilter, error) {
	include, err := compileGlobs(cfg.Paths.Include, "include")
	if err != nil {
		return nil, err
	}
	excludeDirs, err := compileGlobs(cfg.Paths.ExcludeDirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	excludeFiles, err := compileGlobs(cfg.Paths.ExcludeFiles, "exclude file")
	if err != nil {
		return nil, err
	}

	f := &scanFilter{include: include, excludeDirs: excludeDirs, excludeFiles: excludeFiles}
	if cfg.Output.Mode == config.OutputDir && cfg.Output.OutDir != "" {
		if abs, err := filepath.Abs(cfg.Output.OutDir); err == nil {
			f.skipDirs = append(f.skipDirs, abs)
		}
	}
	return f, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid %s pattern %q", label, p))
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *scanFilter) dirExcluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		for _, skip := range f.skipDirs {
			if util.HasPathPrefix(filepath.ToSlash(abs), filepath.ToSlash(skip)) {
				return true
			}
		}
	}
	return false
}

// underExcludedDir reports whether any directory from dir up to, but not
// including, root is excluded.
func (f *scanFilter) underExcludedDir(root, dir string) bool {
	for dir != root && len(dir) > len(root) {
		if f.dirExcluded(dir) {
			return true
		}
		dir = filepath.Dir(dir)
	}
	return false
}

func (f *scanFilter) fileIncluded(rel string) bool {
	base := filepath.Base(rel)
	for _, g := range f.excludeFiles {
		if g.Match(base) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// ScanPaths expands files and directories into the sorted, de-duplicated set
// of supported source files. Explicit file arguments bypass the include
// globs but not the extension check.
func (a *App) ScanPaths(paths []string) ([]SourceFile, error) {
	cfg, classifier, _ := a.engine()
	return scanPaths(cfg, classifier, paths)
}

func scanPaths(cfg *config.Config, classifier ports.SourceClassifier, paths []string) ([]SourceFile, error) {
	filter, err := newScanFilter(cfg)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]bool)
	var files []SourceFile
	add := func(sf SourceFile) {
		key := filepath.Clean(sf.Path)
		if seen[key] {
			return
		}
		seen[key] = true
		files = append(files, sf)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "path not found"), errors.CtxPath, root)
			}
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "stat path"), errors.CtxPath, root)
		}

		if !info.IsDir() {
			if !classifier.IsSupportedPath(root) {
				return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported file type"), errors.CtxPath, root)
			}
			add(SourceFile{Path: root, Root: filepath.Dir(root), Rel: filepath.Base(root)})
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && filter.dirExcluded(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !classifier.IsSupportedPath(path) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = util.NormalizePatternPath(filepath.ToSlash(rel))
			if !filter.fileIncluded(rel) {
				return nil
			}
			add(SourceFile{Path: path, Root: root, Rel: rel})
			return nil
		})
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk directory"), errors.CtxPath, root)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
