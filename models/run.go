package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is an operational record of one orchestrator invocation. It is
// telemetry only: no domain data references it, and a new run never reads a
// previous one.
type ScrapeRun struct {
	ID            int64      `json:"id" db:"id"`
	CorrelationID string     `json:"correlation_id" db:"correlation_id"`
	ProductID     int64      `json:"product_id" db:"product_id"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	Platforms     int        `json:"platforms" db:"platforms"`
	LinksFound    int        `json:"links_found" db:"links_found"`
	RecordsSaved  int        `json:"records_saved" db:"records_saved"`
	ErrorMessage  string     `json:"error_message" db:"error_message"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ScrapeLog is one log line attached to a run.
type ScrapeLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
}
