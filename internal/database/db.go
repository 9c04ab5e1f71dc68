// Package database keeps the ingestion catalog: which exports were ingested,
// what each partition holds, and the latest model scores. The partition files
// remain the source of truth; the catalog only indexes them.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// Run is one ingest invocation
type Run struct {
	ID        string
	Utility   string
	StartedAt time.Time
	Files     int
	Records   int
	Dropped   int
}

// IngestedFile records the outcome of parsing one export
type IngestedFile struct {
	RunID      string
	Utility    string
	Path       string
	Records    int
	Skipped    int
	Status     string // "ok" or "failed"
	Error      string
	IngestedAt time.Time
}

// Partition describes one canonical year file
type Partition struct {
	Utility   string
	Year      int
	Path      string
	Rows      int
	FirstDate string
	LastDate  string
	UpdatedAt time.Time
}

// ModelScore is the fit quality of one year's model
type ModelScore struct {
	Utility   string
	Model     string // "linear" or "forest"
	Target    string
	Year      int
	MSE       float64
	R2        float64
	Good      bool
	TrainedAt time.Time
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingest_runs (
		id TEXT PRIMARY KEY,
		utility TEXT NOT NULL,
		started_at TEXT NOT NULL,
		files INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		dropped INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS ingested_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		utility TEXT NOT NULL,
		path TEXT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		ingested_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS partitions (
		utility TEXT NOT NULL,
		year INTEGER NOT NULL,
		path TEXT NOT NULL,
		rows INTEGER NOT NULL,
		first_date TEXT,
		last_date TEXT,
		updated_at TEXT NOT NULL,
		UNIQUE(utility, year)
	);
	CREATE TABLE IF NOT EXISTS model_scores (
		utility TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT 'linear',
		target TEXT NOT NULL,
		year INTEGER NOT NULL,
		mse REAL NOT NULL,
		r2 REAL NOT NULL,
		good INTEGER NOT NULL DEFAULT 0,
		trained_at TEXT NOT NULL,
		UNIQUE(utility, model, target, year)
	);
	CREATE INDEX IF NOT EXISTS idx_files_run ON ingested_files(run_id);
	CREATE INDEX IF NOT EXISTS idx_files_utility ON ingested_files(utility);
	CREATE INDEX IF NOT EXISTS idx_runs_utility ON ingest_runs(utility);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertRun records an ingest run
func (db *DB) InsertRun(run Run) error {
	query := `
	INSERT INTO ingest_runs (id, utility, started_at, files, records, dropped)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.Exec(query, run.ID, run.Utility, run.StartedAt.UTC().Format(timestampLayout),
		run.Files, run.Records, run.Dropped)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// InsertFile records the outcome of one export in a run
func (db *DB) InsertFile(f IngestedFile) error {
	query := `
	INSERT INTO ingested_files (run_id, utility, path, records, skipped, status, error, ingested_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	ingestedAt := f.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}

	_, err := db.conn.Exec(query, f.RunID, f.Utility, f.Path, f.Records, f.Skipped, f.Status,
		nullString(f.Error), ingestedAt.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("inserting ingested file: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recent runs for a utility, newest first
func (db *DB) ListRuns(utility string, limit int) ([]Run, error) {
	query := `
	SELECT id, utility, started_at, files, records, dropped
	FROM ingest_runs
	WHERE utility = ?
	ORDER BY started_at DESC
	LIMIT ?
	`

	rows, err := db.conn.Query(query, utility, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var run Run
		var startedAt string
		if err := rows.Scan(&run.ID, &run.Utility, &startedAt, &run.Files, &run.Records, &run.Dropped); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		run.StartedAt, err = time.Parse(timestampLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		results = append(results, run)
	}

	return results, rows.Err()
}

// ListFiles retrieves the files ingested in a run
func (db *DB) ListFiles(runID string) ([]IngestedFile, error) {
	query := `
	SELECT run_id, utility, path, records, skipped, status, error, ingested_at
	FROM ingested_files
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := db.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying ingested files: %w", err)
	}
	defer rows.Close()

	var results []IngestedFile
	for rows.Next() {
		var f IngestedFile
		var errText sql.NullString
		var ingestedAt string
		if err := rows.Scan(&f.RunID, &f.Utility, &f.Path, &f.Records, &f.Skipped, &f.Status, &errText, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		f.Error = errText.String
		f.IngestedAt, err = time.Parse(timestampLayout, ingestedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing ingested_at: %w", err)
		}
		results = append(results, f)
	}

	return results, rows.Err()
}

// UpsertPartition records the current shape of a year partition
func (db *DB) UpsertPartition(p Partition) error {
	query := `
	INSERT INTO partitions (utility, year, path, rows, first_date, last_date, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(utility, year) DO UPDATE SET
		path = excluded.path,
		rows = excluded.rows,
		first_date = excluded.first_date,
		last_date = excluded.last_date,
		updated_at = excluded.updated_at
	`

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := db.conn.Exec(query, p.Utility, p.Year, p.Path, p.Rows,
		nullString(p.FirstDate), nullString(p.LastDate), updatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("upserting partition: %w", err)
	}
	return nil
}

// ListPartitions retrieves the catalogued partitions for a utility, ordered by year
func (db *DB) ListPartitions(utility string) ([]Partition, error) {
	query := `
	SELECT utility, year, path, rows, first_date, last_date, updated_at
	FROM partitions
	WHERE utility = ?
	ORDER BY year
	`

	rows, err := db.conn.Query(query, utility)
	if err != nil {
		return nil, fmt.Errorf("querying partitions: %w", err)
	}
	defer rows.Close()

	var results []Partition
	for rows.Next() {
		var p Partition
		var firstDate, lastDate sql.NullString
		var updatedAt string
		if err := rows.Scan(&p.Utility, &p.Year, &p.Path, &p.Rows, &firstDate, &lastDate, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		p.FirstDate = firstDate.String
		p.LastDate = lastDate.String
		p.UpdatedAt, err = time.Parse(timestampLayout, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, p)
	}

	return results, rows.Err()
}

// UpsertScore stores the latest score for a utility/model/target/year
func (db *DB) UpsertScore(s ModelScore) error {
	query := `
	INSERT INTO model_scores (utility, model, target, year, mse, r2, good, trained_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(utility, model, target, year) DO UPDATE SET
		mse = excluded.mse,
		r2 = excluded.r2,
		good = excluded.good,
		trained_at = excluded.trained_at
	`

	trainedAt := s.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now()
	}

	good := 0
	if s.Good {
		good = 1
	}

	model := s.Model
	if model == "" {
		model = "linear"
	}

	_, err := db.conn.Exec(query, s.Utility, model, s.Target, s.Year, s.MSE, s.R2, good,
		trainedAt.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("upserting model score: %w", err)
	}
	return nil
}

// ListScores retrieves stored scores for a utility, ordered by model, target and year
func (db *DB) ListScores(utility string) ([]ModelScore, error) {
	query := `
	SELECT utility, model, target, year, mse, r2, good, trained_at
	FROM model_scores
	WHERE utility = ?
	ORDER BY model, target, year
	`

	rows, err := db.conn.Query(query, utility)
	if err != nil {
		return nil, fmt.Errorf("querying model scores: %w", err)
	}
	defer rows.Close()

	var results []ModelScore
	for rows.Next() {
		var s ModelScore
		var good int
		var trainedAt string
		if err := rows.Scan(&s.Utility, &s.Model, &s.Target, &s.Year, &s.MSE, &s.R2, &good, &trainedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		s.Good = good == 1
		s.TrainedAt, err = time.Parse(timestampLayout, trainedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing trained_at: %w", err)
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
