package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/dependents/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "dependents.db"

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryDB provides SQLite-based storage for finished runs.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
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

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrDatabaseNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

func (hdb *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		repository TEXT NOT NULL,
		url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		min_stars INTEGER NOT NULL DEFAULT 0,
		total_found INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_repository ON runs(repository);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- position keeps the ranked order of a run
	CREATE TABLE IF NOT EXISTS run_dependents (
		run_ref INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		stars INTEGER NOT NULL,
		PRIMARY KEY (run_ref, position)
	);

	CREATE INDEX IF NOT EXISTS idx_run_dependents_url ON run_dependents(url);
	`

	_, err := hdb.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores a finished run with its dependents and returns the row ID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.Report) (id int64, err error) {
	if report == nil {
		return 0, ErrNilReport
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, repository, url, started_at, finished_at,
		pages_fetched, stop_reason, error_message, min_stars, total_found)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.Repository,
		report.URL,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		report.PagesFetched,
		report.StopReason.String(),
		report.ErrorMessage,
		report.MinStars,
		report.TotalFound,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_dependents (run_ref, position, url, stars) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare dependent insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range report.Dependents {
		if _, err = stmt.ExecContext(ctx, id, i, d.URL, d.Stars); err != nil {
			return 0, fmt.Errorf("failed to save dependent %s: %w", d.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const selectRun = `
SELECT id, run_id, repository, url, started_at, finished_at,
	pages_fetched, stop_reason, error_message, min_stars, total_found
FROM runs
`

// GetLatestRun retrieves the most recent run for a repository.
// It returns nil when the repository has no history.
func (hdb *HistoryDB) GetLatestRun(ctx context.Context, repository string) (*model.Report, error) {
	row := hdb.db.QueryRowContext(ctx,
		selectRun+"WHERE repository = ? ORDER BY started_at DESC, id DESC LIMIT 1", repository)

	id, report, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	if err := hdb.loadDependents(ctx, id, report); err != nil {
		return nil, err
	}
	return report, nil
}

// GetRunByID retrieves a run by its database ID.
// It returns nil when no such run exists.
func (hdb *HistoryDB) GetRunByID(ctx context.Context, id int64) (*model.Report, error) {
	row := hdb.db.QueryRowContext(ctx, selectRun+"WHERE id = ?", id)

	_, report, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := hdb.loadDependents(ctx, id, report); err != nil {
		return nil, err
	}
	return report, nil
}

// GetRunHistory retrieves all runs for a repository, newest first.
func (hdb *HistoryDB) GetRunHistory(ctx context.Context, repository string) ([]*model.Report, error) {
	rows, err := hdb.db.QueryContext(ctx,
		selectRun+"WHERE repository = ? ORDER BY started_at DESC, id DESC", repository)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}

	var (
		ids     []int64
		reports []*model.Report
	)
	for rows.Next() {
		id, report, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ids = append(ids, id)
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// The single connection must be free before the dependents are queried.
	_ = rows.Close()

	for i, report := range reports {
		if err := hdb.loadDependents(ctx, ids[i], report); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

// RunMetadata contains summary information about a stored run.
// It is used for listing history without loading the dependents.
type RunMetadata struct {
	// ID is the database row ID, used by compare --with-run-id.
	ID int64

	// RunID is the run's UUID.
	RunID string

	// Repository is the scanned repository.
	Repository string

	// StartedAt is when the run began.
	StartedAt time.Time

	// PagesFetched is the number of pages read.
	PagesFetched int

	// StopReason tells why the walk ended.
	StopReason model.StopReason

	// TotalFound is the number of distinct dependents before filtering.
	TotalFound int

	// Stored is the number of dependents kept after filtering.
	Stored int
}

// GetRunHistoryWithMetadata retrieves run metadata for a repository, newest first.
func (hdb *HistoryDB) GetRunHistoryWithMetadata(ctx context.Context, repository string) ([]RunMetadata, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT r.id, r.run_id, r.repository, r.started_at, r.pages_fetched,
		r.stop_reason, r.total_found,
		(SELECT COUNT(*) FROM run_dependents d WHERE d.run_ref = r.id)
	FROM runs r
	WHERE r.repository = ?
	ORDER BY r.started_at DESC, r.id DESC
	`, repository)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta      RunMetadata
			startedAt string
			reason    string
		)
		if err := rows.Scan(&meta.ID, &meta.RunID, &meta.Repository, &startedAt,
			&meta.PagesFetched, &reason, &meta.TotalFound, &meta.Stored); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.StartedAt = parseTimestamp(startedAt)
		meta.StopReason, _ = model.ParseStopReason(reason) //nolint:errcheck // unknown names map to StopReasonUnknown
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListRepositories returns every repository with at least one stored run.
func (hdb *HistoryDB) ListRepositories(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `SELECT DISTINCT repository FROM runs ORDER BY repository`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var repositories []string
	for rows.Next() {
		var repository string
		if err := rows.Scan(&repository); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		repositories = append(repositories, repository)
	}

	return repositories, rows.Err()
}

// DeleteRunsBefore removes runs that started before cutoff and returns how many were removed.
func (hdb *HistoryDB) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (n int64, err error) {
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stamp := formatTime(cutoff)
	if _, err = tx.ExecContext(ctx, `
	DELETE FROM run_dependents
	WHERE run_ref IN (SELECT id FROM runs WHERE started_at < ?)
	`, stamp); err != nil {
		return 0, fmt.Errorf("failed to delete dependents: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, stamp)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	if n, err = result.RowsAffected(); err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deletion: %w", err)
	}
	return n, nil
}

func (hdb *HistoryDB) loadDependents(ctx context.Context, id int64, report *model.Report) error {
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT url, stars FROM run_dependents WHERE run_ref = ? ORDER BY position`, id)
	if err != nil {
		return fmt.Errorf("failed to load dependents: %w", err)
	}
	defer rows.Close()

	report.Dependents = model.ResultSet{}
	for rows.Next() {
		var d model.Dependent
		if err := rows.Scan(&d.URL, &d.Stars); err != nil {
			return fmt.Errorf("failed to scan dependent: %w", err)
		}
		report.Dependents = append(report.Dependents, d)
	}
	return rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (int64, *model.Report, error) {
	var (
		id         int64
		report     model.Report
		startedAt  string
		finishedAt string
		reason     string
	)
	if err := row.Scan(&id, &report.RunID, &report.Repository, &report.URL,
		&startedAt, &finishedAt, &report.PagesFetched, &reason,
		&report.ErrorMessage, &report.MinStars, &report.TotalFound); err != nil {
		return 0, nil, err
	}

	report.StartedAt = parseTimestamp(startedAt)
	report.FinishedAt = parseTimestamp(finishedAt)
	report.StopReason, _ = model.ParseStopReason(reason) //nolint:errcheck // unknown names map to StopReasonUnknown
	report.Dependents = model.ResultSet{}
	return id, &report, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats the runs table may hold.
// The order matters: more specific formats come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp tries each known format and returns zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
