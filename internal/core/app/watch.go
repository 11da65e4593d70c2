package app

import (
	"context"
	"os"
	"path/filepath"

	"explicitexports/internal/core/errors"
	"explicitexports/internal/core/watcher"
	"explicitexports/internal/shared/util"
)

type watchRoot struct {
	path string
	file bool
}

// Watch runs once over paths, then re-transforms changed files until ctx is
// cancelled. Written files are remembered by the watcher so the resulting
// events do not trigger another pass.
func (a *App) Watch(ctx context.Context, paths []string, opts RunOptions) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	cfg, classifier, _ := a.engine()

	roots := make([]watchRoot, 0, len(paths))
	dirs := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "path not found"), errors.CtxPath, p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "resolve path")
		}
		if info.IsDir() {
			roots = append(roots, watchRoot{path: abs})
			dirs = append(dirs, abs)
		} else {
			roots = append(roots, watchRoot{path: abs, file: true})
			dirs = append(dirs, filepath.Dir(abs))
		}
	}

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Paths.ExcludeDirs, cfg.Paths.ExcludeFiles, func(changed []string) {
		a.handleChanges(ctx, roots, changed, opts)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create watcher")
	}
	defer w.Close()
	w.SetExtensions(classifier.SupportedExtensions())
	w.SetLimiter(util.NewLimiter(cfg.Watch.RateLimit, cfg.Watch.Burst))

	a.mu.Lock()
	a.watcher = w
	a.remember = w.Remember
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.watcher = nil
		a.remember = nil
		a.mu.Unlock()
	}()

	if _, err := a.Run(ctx, paths, opts); err != nil && !errors.IsCode(err, errors.CodeConflict) {
		return err
	}

	if err := w.Watch(ctx, dedupe(dirs)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "start watcher")
	}
	a.logger.Info("watching for changes", "paths", paths)

	<-ctx.Done()
	return nil
}

func (a *App) handleChanges(ctx context.Context, roots []watchRoot, changed []string, opts RunOptions) {
	cfg, classifier, _ := a.engine()
	filter, err := newScanFilter(cfg)
	if err != nil {
		a.logger.Error("invalid path filters", "error", err)
		return
	}

	var files []SourceFile
	for _, path := range changed {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || !classifier.IsSupportedPath(path) {
			continue
		}
		if sf, ok := matchRoot(filter, roots, path); ok {
			files = append(files, sf)
		}
	}
	if len(files) == 0 {
		return
	}

	a.logger.Debug("files changed", "count", len(files))
	if _, err := a.runFiles(ctx, files, opts); err != nil && ctx.Err() == nil {
		a.logger.Warn("watch pass finished with errors", "error", err)
	}
}

func matchRoot(filter *scanFilter, roots []watchRoot, path string) (SourceFile, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceFile{}, false
	}
	for _, root := range roots {
		if root.file {
			if abs == root.path {
				return SourceFile{Path: abs, Root: filepath.Dir(abs), Rel: filepath.Base(abs)}, true
			}
			continue
		}
		slashAbs, slashRoot := filepath.ToSlash(abs), filepath.ToSlash(root.path)
		if !util.HasPathPrefix(slashAbs, slashRoot) {
			continue
		}
		if filter.underExcludedDir(root.path, filepath.Dir(abs)) {
			return SourceFile{}, false
		}
		rel, err := filepath.Rel(root.path, abs)
		if err != nil {
			continue
		}
		rel = util.NormalizePatternPath(filepath.ToSlash(rel))
		if !filter.fileIncluded(rel) {
			return SourceFile{}, false
		}
		return SourceFile{Path: abs, Root: root.path, Rel: rel}, true
	}
	return SourceFile{}, false
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
