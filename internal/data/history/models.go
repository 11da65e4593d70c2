package history

import "time"

// SchemaVersion is the newest migration this package knows how to read.
const SchemaVersion = 2

// Run summarizes one batch invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Mode       string
	Files      int
	Changed    int
	Rewritten  int
	Skipped    int
	Failed     int
	AssignExpr bool
}

// FileResult is the outcome for one file of a run.
type FileResult struct {
	RunID     string
	Path      string
	Language  string
	Changed   bool
	Exports   int
	Rewritten int
	Skipped   int
	Error     string
}
