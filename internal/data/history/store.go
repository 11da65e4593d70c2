// Package history persists transform runs and their per-file outcomes in a
// local SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores run and its file results atomically. An empty run ID is
// replaced by a new UUID; the ID used is returned.
func (s *Store) SaveRun(run Run, files []FileResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
INSERT INTO runs (run_id, started_at_utc, duration_ms, mode, files, changed, rewritten, skipped, failed, assign_expr)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
			run.Mode,
			run.Files,
			run.Changed,
			run.Rewritten,
			run.Skipped,
			run.Failed,
			boolToInt(run.AssignExpr),
		); err != nil {
			_ = tx.Rollback()
			return err
		}

		stmt, err := tx.Prepare(`
INSERT INTO file_results (run_id, path, language, changed, exports, rewritten, skipped, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, path) DO UPDATE SET
  language=excluded.language,
  changed=excluded.changed,
  exports=excluded.exports,
  rewritten=excluded.rewritten,
  skipped=excluded.skipped,
  error=excluded.error
`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer stmt.Close()

		for _, f := range files {
			if _, err := stmt.Exec(run.ID, f.Path, f.Language, boolToInt(f.Changed), f.Exports, f.Rewritten, f.Skipped, f.Error); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// LoadRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) LoadRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT run_id, started_at_utc, duration_ms, mode, files, changed, rewritten, skipped, failed, assign_expr
FROM runs
ORDER BY started_at_utc DESC, run_id ASC
`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run        Run
			startedRaw string
			durationMS int64
			assignExpr int
		)
		if err := rows.Scan(
			&run.ID,
			&startedRaw,
			&durationMS,
			&run.Mode,
			&run.Files,
			&run.Changed,
			&run.Rewritten,
			&run.Skipped,
			&run.Failed,
			&assignExpr,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		run.StartedAt = started.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.AssignExpr = assignExpr != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadFileResults returns the file results of runID ordered by path.
func (s *Store) LoadFileResults(runID string) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load file results", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT run_id, path, language, changed, exports, rewritten, skipped, error
FROM file_results
WHERE run_id = ?
ORDER BY path ASC
`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]FileResult, 0)
	for rows.Next() {
		var (
			f       FileResult
			changed int
		)
		if err := rows.Scan(&f.RunID, &f.Path, &f.Language, &changed, &f.Exports, &f.Rewritten, &f.Skipped, &f.Error); err != nil {
			return nil, fmt.Errorf("scan file result row: %w", err)
		}
		f.Changed = changed != 0
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file result rows: %w", err)
	}
	return results, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
