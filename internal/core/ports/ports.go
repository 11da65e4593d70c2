// Package ports declares the interfaces the application core drives.
package ports

import (
	"context"

	"explicitexports/internal/data/history"
	"explicitexports/internal/engine/transform"
)

// FileTransformer rewrites one module's source.
type FileTransformer interface {
	Transform(ctx context.Context, path string, source []byte) (*transform.Result, error)
}

// SourceClassifier answers which files the transformer can handle.
type SourceClassifier interface {
	IsSupportedPath(path string) bool
	SupportedExtensions() []string
}

// HistoryStore abstracts run persistence for the history command.
type HistoryStore interface {
	SaveRun(run history.Run, files []history.FileResult) (string, error)
	LoadRuns(limit int) ([]history.Run, error)
	LoadFileResults(runID string) ([]history.FileResult, error)
}
