package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"explicitexports/internal/core/config"
	"explicitexports/internal/core/errors"
	"explicitexports/internal/core/ports"
	"explicitexports/internal/data/history"
	"explicitexports/internal/engine/transform"
	"explicitexports/internal/shared/observability"
	"explicitexports/internal/shared/util"

	"golang.org/x/sync/errgroup"
)

type RunOptions struct {
	// Check reports files that would change without writing anything.
	Check bool
}

// FileOutcome is the per-file result of a run. Err is set when the file
// could not be read, parsed or written; the run continues regardless.
type FileOutcome struct {
	Path        string
	Rel         string
	Root        string
	Result      *transform.Result
	Destination string
	Written     bool
	Err         error
}

func (o FileOutcome) Changed() bool {
	return o.Err == nil && o.Result != nil && o.Result.Changed
}

type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Mode      string
	Check     bool
	Files     []FileOutcome
	Changed   int
	Rewritten int
	Skipped   int
	Failed    int
}

// Run transforms every source file under paths. Files are processed
// concurrently up to the configured worker count; the outcomes keep the
// sorted scan order.
func (a *App) Run(ctx context.Context, paths []string, opts RunOptions) (*Summary, error) {
	cfg, classifier, _ := a.engine()
	files, err := scanPaths(cfg, classifier, paths)
	if err != nil {
		return nil, err
	}
	return a.runFiles(ctx, files, opts)
}

func (a *App) runFiles(ctx context.Context, files []SourceFile, opts RunOptions) (*Summary, error) {
	cfg, _, transformer := a.engine()
	ctx, span := observability.Tracer.Start(ctx, "App.Run")
	defer span.End()

	summary := &Summary{
		StartedAt: time.Now(),
		Mode:      cfg.Output.Mode,
		Check:     opts.Check,
		Files:     make([]FileOutcome, len(files)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, file := range files {
		g.Go(func() error {
			summary.Files[i] = a.processFile(gctx, cfg, transformer, file, opts)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cfg.Output.Mode == config.OutputStdout && !opts.Check {
		a.emitStdout(summary.Files)
	}

	for _, o := range summary.Files {
		switch {
		case o.Err != nil:
			summary.Failed++
			observability.FilesTotal.WithLabelValues("failed").Inc()
			a.logger.Error("transform failed", "path", o.Path, "error", o.Err)
			continue
		case o.Result.Changed:
			summary.Changed++
			observability.FilesTotal.WithLabelValues("changed").Inc()
		default:
			observability.FilesTotal.WithLabelValues("unchanged").Inc()
		}
		summary.Rewritten += o.Result.Rewritten
		summary.Skipped += o.Result.Skipped
	}
	summary.Duration = time.Since(summary.StartedAt)

	a.logger.Info("run complete",
		"files", len(summary.Files),
		"changed", summary.Changed,
		"rewritten", summary.Rewritten,
		"failed", summary.Failed,
		"duration", summary.Duration)

	if !opts.Check {
		a.recordHistory(cfg, summary)
	}

	if opts.Check && summary.Changed > 0 {
		return summary, errors.Newf(errors.CodeConflict, "%d file(s) would change", summary.Changed)
	}
	return summary, nil
}

func (a *App) processFile(ctx context.Context, cfg *config.Config, t ports.FileTransformer, file SourceFile, opts RunOptions) FileOutcome {
	out := FileOutcome{Path: file.Path, Rel: file.Rel, Root: file.Root}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	source, err := os.ReadFile(file.Path)
	if err != nil {
		out.Err = errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, file.Path)
		return out
	}

	res, err := t.Transform(ctx, file.Path, source)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res
	if opts.Check {
		return out
	}

	switch cfg.Output.Mode {
	case config.OutputWrite:
		out.Destination = file.Path
		if !res.Changed {
			return out
		}
		if err := util.ReplaceFile(file.Path, res.Output); err != nil {
			out.Err = errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write source"), errors.CtxPath, file.Path)
			return out
		}
		out.Written = true
		a.rememberWrite(file.Path, res.Output)
	case config.OutputDir:
		dest := filepath.Join(cfg.Output.OutDir, filepath.FromSlash(file.Rel))
		out.Destination = dest
		if existing, err := os.ReadFile(dest); err == nil && bytes.Equal(existing, res.Output) {
			return out
		}
		if err := util.WriteFileWithDirs(dest, res.Output, 0o644); err != nil {
			out.Err = errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write output"), errors.CtxPath, dest)
			return out
		}
		out.Written = true
	}
	return out
}

func (a *App) emitStdout(files []FileOutcome) {
	multi := len(files) > 1
	for _, o := range files {
		if o.Err != nil {
			continue
		}
		if multi {
			fmt.Fprintf(a.stdout, "// %s\n", o.Path)
		}
		a.stdout.Write(o.Result.Output)
		if multi && len(o.Result.Output) > 0 && o.Result.Output[len(o.Result.Output)-1] != '\n' {
			fmt.Fprintln(a.stdout)
		}
	}
}

func (a *App) rememberWrite(path string, content []byte) {
	a.mu.RLock()
	remember := a.remember
	a.mu.RUnlock()
	if remember != nil {
		remember(path, content)
	}
}

func (a *App) recordHistory(cfg *config.Config, summary *Summary) {
	if a.history == nil {
		return
	}
	run := history.Run{
		StartedAt:  summary.StartedAt,
		Duration:   summary.Duration,
		Mode:       summary.Mode,
		Files:      len(summary.Files),
		Changed:    summary.Changed,
		Rewritten:  summary.Rewritten,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		AssignExpr: cfg.TransformAssignExpr,
	}
	results := make([]history.FileResult, 0, len(summary.Files))
	for _, o := range summary.Files {
		fr := history.FileResult{Path: o.Path}
		if o.Err != nil {
			fr.Error = o.Err.Error()
		} else {
			fr.Language = o.Result.Language
			fr.Changed = o.Result.Changed
			fr.Exports = len(o.Result.Descriptors)
			fr.Rewritten = o.Result.Rewritten
			fr.Skipped = o.Result.Skipped
		}
		results = append(results, fr)
	}

	id, err := a.history.SaveRun(run, results)
	if err != nil {
		a.logger.Warn("failed to record run history", "error", err)
		return
	}
	summary.RunID = id
}
