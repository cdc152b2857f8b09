package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/alignpipe/internal/model"
)

// DBFileName is the name of the history database file.
const DBFileName = "alignpipe.db"

// ErrAmbiguousRunID is returned when an ID prefix matches more than one run.
var ErrAmbiguousRunID = errors.New("run ID prefix matches more than one run")

// RunDB provides SQLite-based storage for pipeline run reports.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (no runs recorded yet)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		include_dpo INTEGER NOT NULL DEFAULT 0,
		stages_run INTEGER NOT NULL DEFAULT 0,
		failed_stage TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// timeLayout stores UTC timestamps with a fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// SaveRun stores a run report. Saving the same run ID again replaces it.
func (rdb *RunDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}

	query := `
	INSERT INTO runs (id, started_at, finished_at, status, include_dpo, stages_run, failed_stage, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		status = excluded.status,
		stages_run = excluded.stages_run,
		failed_stage = excluded.failed_stage,
		report_json = excluded.report_json
	`

	_, err = rdb.db.ExecContext(ctx, query,
		report.ID,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		string(report.Status),
		report.IncludeDPO,
		len(report.Executed()),
		string(report.FailedStage),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	return nil
}

// GetRun retrieves a run report by its ID or by a unique ID prefix.
// It returns nil, nil when no run matches.
func (rdb *RunDB) GetRun(ctx context.Context, idOrPrefix string) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE id = ? OR id LIKE ? ESCAPE '\'
	ORDER BY started_at DESC
	LIMIT 2
	`

	rows, err := rdb.db.QueryContext(ctx, query, idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, reportJSON)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, idOrPrefix)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(matches[0]), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}

	return &report, nil
}

// RunMetadata contains summary information about a stored run.
// It is used for listing history without loading the full report.
type RunMetadata struct {
	// ID is the run ID.
	ID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run ended. Zero if it never finished.
	FinishedAt time.Time

	// Status is the final status of the run.
	Status model.RunStatus

	// IncludeDPO records whether the DPO stages were requested.
	IncludeDPO bool

	// StagesRun is the number of stages whose process was started.
	StagesRun int

	// FailedStage is the stage that stopped the run, if any.
	FailedStage model.StageID
}

// Duration returns the wall-clock time of the run, or zero if unknown.
func (m RunMetadata) Duration() time.Duration {
	if m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// ListRuns returns run metadata, newest first.
// A limit of zero or less returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, started_at, finished_at, status, include_dpo, stages_run, failed_stage
	FROM runs
	ORDER BY started_at DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt string
		var finishedAt, status, failedStage sql.NullString

		if err := rows.Scan(&meta.ID, &startedAt, &finishedAt, &status,
			&meta.IncludeDPO, &meta.StagesRun, &failedStage); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt.String)
		meta.Status = model.RunStatus(status.String)
		meta.FailedStage = model.StageID(failedStage.String)

		results = append(results, meta)
	}

	return results, rows.Err()
}

// DeleteRunsBefore removes runs that started before t and returns how many
// were deleted.
func (rdb *RunDB) DeleteRunsBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := rdb.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", formatTimestamp(t))
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return result.RowsAffected()
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05", // SQLite default datetime format
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
