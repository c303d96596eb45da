// Package history keeps an opt-in SQLite log of capture runs and the
// accessibility reports they produced, so regressions can be compared
// across runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// AutoPath selects the default database location under the XDG data home.
const AutoPath = "auto"

// ErrNotEnoughReports is returned when a diff needs two reports for a URL.
var ErrNotEnoughReports = errors.New("fewer than two reports stored for url")

// Run is one recorded invocation.
type Run struct {
	ID         string
	Mode       model.Mode
	BaseURL    string
	StartedAt  time.Time
	FinishedAt time.Time
	Targets    int
	Failures   int
}

// StoredReport is an audit report as persisted.
type StoredReport struct {
	RunID     string
	CreatedAt time.Time
	Body      string
	Report    *model.AccessibilityReport
}

// Store is the SQLite-backed run history.
type Store struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// ResolvePath maps the HISTORY_DB setting onto a file path.
func ResolvePath(setting string) (string, error) {
	if setting != AutoPath {
		return setting, nil
	}
	path, err := xdg.DataFile(filepath.Join("design-polish", "history.db"))
	if err != nil {
		return "", fmt.Errorf("resolve history location: %w", err)
	}
	return path, nil
}

// Open opens (creating if needed) the history database at path.
func Open(path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Debug("history store opened", logging.Field{Key: "path", Value: path})
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record stores a finished run with its results and reports in one
// transaction.
func (s *Store) Record(ctx context.Context, rec model.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	runID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, base_url, started_at, finished_at, targets, failures) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, string(rec.Mode), rec.BaseURL, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(), len(rec.Results), rec.Failures(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, res := range rec.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (run_id, position, route, url, name, filename, success, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, res.Route, res.URL, res.Name, res.Filename, res.Success, res.Error,
		); err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	for _, report := range rec.Reports {
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reports (run_id, url, created_at, violations, passes, incomplete, body) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, report.URL, report.Timestamp.UnixMilli(),
			report.Summary.Violations, report.Summary.Passes, report.Summary.Incomplete, string(body),
		); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("run recorded",
		logging.Field{Key: "run_id", Value: runID},
		logging.Field{Key: "mode", Value: rec.Mode})
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, base_url, started_at, finished_at, targets, failures
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			mode              string
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &mode, &r.BaseURL, &started, &finished, &r.Targets, &r.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Mode = model.Mode(mode)
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Results returns the per-target results of a run in their original order.
func (s *Store) Results(ctx context.Context, runID string) ([]model.CaptureResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT route, url, name, filename, success, error FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []model.CaptureResult
	for rows.Next() {
		var r model.CaptureResult
		if err := rows.Scan(&r.Route, &r.URL, &r.Name, &r.Filename, &r.Success, &r.Error); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestReports returns up to n reports for url, newest first.
func (s *Store) LatestReports(ctx context.Context, url string, n int) ([]StoredReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, body FROM reports WHERE url = ? ORDER BY created_at DESC, id DESC LIMIT ?`, url, n)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []StoredReport
	for rows.Next() {
		var (
			sr      StoredReport
			created int64
		)
		if err := rows.Scan(&sr.RunID, &created, &sr.Body); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		sr.CreatedAt = time.UnixMilli(created)
		sr.Report = &model.AccessibilityReport{}
		if err := json.Unmarshal([]byte(sr.Body), sr.Report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}
