package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

var _ Recorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feature_runs (
			id          TEXT    PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			ticker      TEXT    NOT NULL,
			as_of       TEXT    NOT NULL,
			label_rule  TEXT,
			indicators  TEXT,
			row_count   INTEGER,
			col_count   INTEGER,
			positives   INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker ON feature_runs(ticker, timestamp)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`INSERT INTO feature_runs
		(id, timestamp, ticker, as_of, label_rule, indicators, row_count, col_count, positives, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.ID.String(), evt.CreatedAt.Unix(), evt.Ticker, evt.AsOf.Format(time.DateOnly),
		evt.LabelRule, evt.Indicators, evt.Rows, evt.Columns, evt.Positives, evt.Error,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", evt.Ticker, err)
	}
	r.logger.Debug().Str("id", evt.ID.String()).Str("ticker", evt.Ticker).Int("rows", evt.Rows).Msg("record run")
	return nil
}

// Runs returns the latest runs for ticker, newest first.
func (r *SQLiteRecorder) Runs(ctx context.Context, ticker string, limit int) ([]RunEvent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, ticker, as_of, label_rule, indicators,
		row_count, col_count, positives, error
		FROM feature_runs WHERE ticker = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []RunEvent
	for rows.Next() {
		var (
			evt       RunEvent
			id, asOf  string
			createdAt int64
		)
		if err := rows.Scan(&id, &createdAt, &evt.Ticker, &asOf, &evt.LabelRule, &evt.Indicators,
			&evt.Rows, &evt.Columns, &evt.Positives, &evt.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if evt.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		if evt.AsOf, err = time.Parse(time.DateOnly, asOf); err != nil {
			return nil, fmt.Errorf("run as_of %q: %w", asOf, err)
		}
		evt.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
