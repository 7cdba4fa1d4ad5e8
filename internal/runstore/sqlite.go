package runstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/loom/api"
)

// SQLiteStore persists runs in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the runs database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open runs db %s: %w", dbPath, err)
	}
	// Low write volume, many small transactions: keep the file clean
	// after each commit and cap connections for modernc's locking.
	db.SetMaxOpenConns(2)
	if _, err := db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		blueprint_id TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);
	CREATE TABLE IF NOT EXISTS run_logs (
		run_id TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_logs_run ON run_logs(run_id);
	CREATE TABLE IF NOT EXISTS run_artifacts (
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		PRIMARY KEY (run_id, path)
	) WITHOUT ROWID;
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Start(runID, blueprintID string) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, blueprint_id, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, blueprintID, string(api.RunRunning), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

func (s *SQLiteStore) Complete(runID string) error {
	return s.finish(runID, api.RunCompleted, "")
}

func (s *SQLiteStore) Fail(runID, message string) error {
	return s.finish(runID, api.RunFailed, message)
}

func (s *SQLiteStore) Cancel(runID string) error {
	return s.finish(runID, api.RunCancelled, "")
}

func (s *SQLiteStore) finish(runID string, status api.RunStatus, message string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), nullIfEmpty(message), time.Now().Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) AddLog(runID string, entry LogEntry) error {
	at := entry.At
	if at == 0 {
		at = time.Now().Unix()
	}
	_, err := s.db.Exec(
		`INSERT INTO run_logs (run_id, level, message, at) VALUES (?, ?, ?, ?)`,
		runID, entry.Level, entry.Message, at,
	)
	if err != nil {
		return fmt.Errorf("log run %s: %w", runID, err)
	}
	return nil
}

func (s *SQLiteStore) AddArtifact(runID string, artifact Artifact) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO run_artifacts (run_id, path, size) VALUES (?, ?, ?)`,
		runID, artifact.Path, artifact.Size,
	)
	if err != nil {
		return fmt.Errorf("artifact run %s: %w", runID, err)
	}
	return nil
}

// Get returns the run record for runID.
func (s *SQLiteStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, blueprint_id, status, error, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	var r Run
	var errMsg sql.NullString
	var finished sql.NullInt64
	if err := row.Scan(&r.ID, &r.BlueprintID, (*string)(&r.Status), &errMsg, &r.StartedAt, &finished); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	r.Error = errMsg.String
	r.FinishedAt = finished.Int64
	return &r, nil
}

// Logs returns the persisted log entries for runID in insertion order.
func (s *SQLiteStore) Logs(runID string) ([]LogEntry, error) {
	rows, err := s.db.Query(
		`SELECT level, message, at FROM run_logs WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("logs run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.Level, &e.Message, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Artifacts returns the recorded artifacts for runID sorted by path.
func (s *SQLiteStore) Artifacts(runID string) ([]Artifact, error) {
	rows, err := s.db.Query(
		`SELECT path, size FROM run_artifacts WHERE run_id = ? ORDER BY path`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("artifacts run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Path, &a.Size); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
