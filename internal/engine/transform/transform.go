// Package transform rewrites one module's references to its own exports so
// that they go through the module's export namespace.
package transform

import (
	"context"
	"log/slog"
	"time"

	"explicitexports/internal/engine/exports"
	"explicitexports/internal/engine/parser"
	"explicitexports/internal/engine/rewrite"
	"explicitexports/internal/engine/scope"
	"explicitexports/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BindingResolver returns the reference sites of a module-level binding,
// reads first and then writes. Unknown names yield no sites.
type BindingResolver interface {
	Resolve(name string) []scope.ReferenceSite
}

type Options struct {
	TransformAssignExpr bool
	AllowSyntaxErrors   bool
}

type Transformer struct {
	loader *parser.GrammarLoader
	opts   Options
	logger *slog.Logger
}

func NewTransformer(loader *parser.GrammarLoader, opts Options, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{loader: loader, opts: opts, logger: logger}
}

func (t *Transformer) Options() Options {
	return t.opts
}

// Result is the outcome of transforming one file.
type Result struct {
	Path        string
	Language    string
	Output      []byte
	Changed     bool
	Descriptors []exports.Descriptor
	Decisions   []rewrite.Decision
	Skips       []exports.Skip
	Rewritten   int
	Skipped     int
	Duration    time.Duration
}

// Transform parses source as the module at path and rewrites it. Only a
// parse failure is an error; ineligible shapes are reported as skips.
func (t *Transformer) Transform(ctx context.Context, path string, source []byte) (*Result, error) {
	_, span := observability.Tracer.Start(ctx, "Transformer.Transform")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	start := time.Now()

	p := parser.NewParser(t.loader)
	p.AllowSyntaxErrors(t.opts.AllowSyntaxErrors)
	prog, err := p.Parse(path, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	defer prog.Close()

	res := t.apply(prog, scope.Analyze(prog))
	res.Duration = time.Since(start)

	observability.TransformDuration.WithLabelValues(res.Language).Observe(res.Duration.Seconds())
	observability.ExportsTotal.Add(float64(len(res.Descriptors)))
	observability.ReferencesTotal.WithLabelValues(string(rewrite.ActionRewrite)).Add(float64(res.Rewritten))
	observability.ReferencesTotal.WithLabelValues(string(rewrite.ActionSkip)).Add(float64(res.Skipped))
	span.SetAttributes(
		attribute.String("language", res.Language),
		attribute.Int("exports", len(res.Descriptors)),
		attribute.Int("rewritten", res.Rewritten),
		attribute.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (t *Transformer) apply(prog *parser.Program, resolver BindingResolver) *Result {
	logger := t.logger.With("path", prog.Path)
	discovery := exports.Discover(prog, logger)
	rw := rewrite.New(prog.Source, rewrite.Options{TransformAssignExpr: t.opts.TransformAssignExpr}, logger)

	res := &Result{
		Path:     prog.Path,
		Language: prog.Language,
		Skips:    discovery.Skips,
	}

	claimed := make(map[string]exports.Descriptor)
	for _, st := range discovery.Statements {
		for _, desc := range st.Descriptors {
			if first, ok := claimed[desc.LocalName]; ok {
				logger.Debug("binding already exported by an earlier statement, ignored",
					"local", desc.LocalName, "exported", desc.ExportedName, "first", first.ExportedName)
				res.Skips = append(res.Skips, exports.Skip{
					Reason:   exports.SkipClaimed,
					Name:     desc.LocalName,
					Location: desc.Location,
				})
				continue
			}
			claimed[desc.LocalName] = desc
			res.Descriptors = append(res.Descriptors, desc)

			// Sites are resolved in full before any edit is scheduled.
			sites := resolver.Resolve(desc.LocalName)
			res.Decisions = append(res.Decisions, rw.Rewrite(desc, sites)...)
		}
	}

	for _, d := range res.Decisions {
		if d.Action == rewrite.ActionRewrite {
			res.Rewritten++
		} else {
			res.Skipped++
		}
	}
	res.Output = rw.Output()
	res.Changed = rw.Edits() > 0
	return res
}
