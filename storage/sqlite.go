package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rankwatch/models"
)

// SQLiteStore is the local operational store: run telemetry and per-run logs.
// Domain data lives in Postgres; losing this file loses history, nothing else.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		correlation_id TEXT,
		product_id INTEGER,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		platforms INTEGER,
		links_found INTEGER,
		records_saved INTEGER,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (correlation_id, product_id, started_at, status,
			platforms, links_found, records_saved, error_message)
		VALUES (?, ?, ?, ?, 0, 0, 0, '')`,
		run.CorrelationID, run.ProductID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, platforms = ?,
			links_found = ?, records_saved = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Platforms,
		run.LinksFound, run.RecordsSaved, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message)
		VALUES (?, ?, ?, ?)`,
		runID, time.Now(), level, message)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`
		SELECT id, correlation_id, product_id, started_at, finished_at, status,
			platforms, links_found, records_saved, error_message
		FROM scrape_runs WHERE id = ?`, id)

	var run models.ScrapeRun
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.CorrelationID, &run.ProductID, &run.StartedAt, &finished,
		&run.Status, &run.Platforms, &run.LinksFound, &run.RecordsSaved, &run.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func (s *SQLiteStore) GetRecentRuns(limit int) ([]models.ScrapeRun, error) {
	rows, err := s.db.Query(`
		SELECT id, correlation_id, product_id, started_at, finished_at, status,
			platforms, links_found, records_saved, error_message
		FROM scrape_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ScrapeRun
	for rows.Next() {
		var run models.ScrapeRun
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.CorrelationID, &run.ProductID, &run.StartedAt, &finished,
			&run.Status, &run.Platforms, &run.LinksFound, &run.RecordsSaved, &run.ErrorMessage); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) GetRunLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message
		FROM scrape_logs WHERE run_id = ? ORDER BY timestamp`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
