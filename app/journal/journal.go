// Package journal records every terminal outcome in an embedded SQLite store
// so health checks and metrics can report intake activity across restarts.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/redlabs-sc/customer-intake/app/intake"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_outcomes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name     TEXT NOT NULL,
	original_path TEXT NOT NULL,
	structure     TEXT NOT NULL,
	status        TEXT NOT NULL,
	detail        TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	processed_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_file_outcomes_status ON file_outcomes(status);
CREATE INDEX IF NOT EXISTS idx_file_outcomes_processed_at ON file_outcomes(processed_at);
`

// Journal is the outcome audit store. It implements intake.Recorder.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

func Open(path string, logger *zap.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{
		db:     db,
		logger: logger.With(zap.String("component", "journal")),
	}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) Ping(ctx context.Context) error { return j.db.PingContext(ctx) }

// RecordOutcome inserts one row per terminal outcome. Journal failures are
// logged and dropped; auditing must never block the pipeline.
func (j *Journal) RecordOutcome(ctx context.Context, o intake.Outcome) {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO file_outcomes (file_name, original_path, structure, status, detail, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.FileName, o.OriginalPath, o.Structure, o.Status, o.Detail, o.Duration.Milliseconds())

	if err != nil {
		j.logger.Error("failed to record outcome",
			zap.String("file", o.FileName),
			zap.Error(err))
	}
}

// Stats aggregates outcome counts for the health endpoint and metrics poller.
type Stats struct {
	Validated         int `json:"validated"`
	Rejected          int `json:"rejected"`
	Failed            int `json:"failed"`
	ProcessedLastHour int `json:"processed_last_hour"`
}

func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := j.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN status = 'validated' THEN 1 END),
			COUNT(CASE WHEN status = 'rejected' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END),
			COUNT(CASE WHEN processed_at > DATETIME('now', '-1 hour') THEN 1 END)
		FROM file_outcomes
	`).Scan(&s.Validated, &s.Rejected, &s.Failed, &s.ProcessedLastHour)

	if err != nil {
		return Stats{}, fmt.Errorf("query outcome stats: %w", err)
	}
	return s, nil
}
