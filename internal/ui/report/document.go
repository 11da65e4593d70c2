// Package report renders run summaries for terminals and machine consumers.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"explicitexports/internal/core/app"
	"explicitexports/internal/core/errors"
	"explicitexports/internal/shared/util"

	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the machine-readable form of a run.
type Document struct {
	RunID     string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	StartedAt time.Time    `json:"started_at" yaml:"started_at"`
	Duration  string       `json:"duration" yaml:"duration"`
	Mode      string       `json:"mode" yaml:"mode"`
	Check     bool         `json:"check" yaml:"check"`
	Totals    Totals       `json:"totals" yaml:"totals"`
	Files     []FileReport `json:"files" yaml:"files"`
}

type Totals struct {
	Files     int `json:"files" yaml:"files"`
	Changed   int `json:"changed" yaml:"changed"`
	Rewritten int `json:"rewritten" yaml:"rewritten"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Failed    int `json:"failed" yaml:"failed"`
}

type FileReport struct {
	Path        string           `json:"path" yaml:"path"`
	Language    string           `json:"language,omitempty" yaml:"language,omitempty"`
	Changed     bool             `json:"changed" yaml:"changed"`
	Destination string           `json:"destination,omitempty" yaml:"destination,omitempty"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	Exports     []ExportReport   `json:"exports,omitempty" yaml:"exports,omitempty"`
	Decisions   []DecisionReport `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	Skips       []SkipReport     `json:"skips,omitempty" yaml:"skips,omitempty"`
}

type ExportReport struct {
	Local    string `json:"local" yaml:"local"`
	Exported string `json:"exported" yaml:"exported"`
	Mode     string `json:"mode" yaml:"mode"`
	Line     int    `json:"line" yaml:"line"`
}

type DecisionReport struct {
	ID          string `json:"id" yaml:"id"`
	Line        int    `json:"line" yaml:"line"`
	Column      int    `json:"column" yaml:"column"`
	Kind        string `json:"kind" yaml:"kind"`
	Action      string `json:"action" yaml:"action"`
	Reason      string `json:"reason" yaml:"reason"`
	Replacement string `json:"replacement,omitempty" yaml:"replacement,omitempty"`
}

type SkipReport struct {
	Reason string `json:"reason" yaml:"reason"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Line   int    `json:"line" yaml:"line"`
}

// Build converts a run summary into a report document.
func Build(summary *app.Summary) Document {
	doc := Document{
		RunID:     summary.RunID,
		StartedAt: summary.StartedAt.UTC(),
		Duration:  summary.Duration.Round(time.Millisecond).String(),
		Mode:      summary.Mode,
		Check:     summary.Check,
		Totals: Totals{
			Files:     len(summary.Files),
			Changed:   summary.Changed,
			Rewritten: summary.Rewritten,
			Skipped:   summary.Skipped,
			Failed:    summary.Failed,
		},
		Files: make([]FileReport, 0, len(summary.Files)),
	}

	for _, o := range summary.Files {
		fr := FileReport{Path: o.Path, Destination: o.Destination}
		if o.Err != nil {
			fr.Error = o.Err.Error()
			doc.Files = append(doc.Files, fr)
			continue
		}
		res := o.Result
		fr.Language = res.Language
		fr.Changed = res.Changed
		for _, d := range res.Descriptors {
			fr.Exports = append(fr.Exports, ExportReport{
				Local:    d.LocalName,
				Exported: d.ExportedName,
				Mode:     string(d.Mode),
				Line:     d.Location.Line,
			})
		}
		for _, d := range res.Decisions {
			fr.Decisions = append(fr.Decisions, DecisionReport{
				ID:          d.ID(),
				Line:        d.Site.Location.Line,
				Column:      d.Site.Location.Column,
				Kind:        d.Site.Kind.String(),
				Action:      string(d.Action),
				Reason:      string(d.Reason),
				Replacement: d.Replacement,
			})
		}
		for _, s := range res.Skips {
			fr.Skips = append(fr.Skips, SkipReport{Reason: string(s.Reason), Name: s.Name, Line: s.Location.Line})
		}
		doc.Files = append(doc.Files, fr)
	}
	return doc
}

// Write encodes doc in the given format.
func Write(w io.Writer, doc Document, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Newf(errors.CodeValidationError, "unknown report format %q", format)
	}
}

// WriteFile writes doc to path, creating parent directories.
func WriteFile(path string, doc Document, format string) error {
	var buf bytes.Buffer
	if err := Write(&buf, doc, format); err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(path, buf.Bytes(), 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("write %s report", format)), errors.CtxPath, path)
	}
	return nil
}
