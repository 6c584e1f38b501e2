package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"StockFeatures/internal/model"
	"StockFeatures/internal/ticker"
)

// SQLiteStore keeps bars in a SQLite database keyed by ticker, as-of date
// and bar time.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			ticker    TEXT    NOT NULL,
			as_of     TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			adj_close REAL,
			volume    REAL,
			PRIMARY KEY (ticker, as_of, ts)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Save replaces the bars stored for symbol and asOf.
func (s *SQLiteStore) Save(ctx context.Context, symbol string, asOf time.Time, bars []model.OHLCV) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ticker.Parse(symbol, "").SaveFormat()
	day := asOf.Format(DateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE ticker = ? AND as_of = ?`, key, day); err != nil {
		return fmt.Errorf("clear %s %s: %w", key, day, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bars
		(ticker, as_of, ts, open, high, low, close, adj_close, volume)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, key, day, b.Time.Unix(),
			b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume); err != nil {
			return fmt.Errorf("insert %s %s: %w", key, b.Time.Format(DateLayout), err)
		}
	}
	return tx.Commit()
}

// Load returns the bars stored for symbol and asOf in ascending time.
func (s *SQLiteStore) Load(ctx context.Context, symbol string, asOf time.Time) ([]model.OHLCV, error) {
	key := ticker.Parse(symbol, "").SaveFormat()
	day := asOf.Format(DateLayout)

	rows, err := s.db.QueryContext(ctx, `SELECT ts, open, high, low, close, adj_close, volume
		FROM bars WHERE ticker = ? AND as_of = ? ORDER BY ts`, key, day)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", key, day, err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var ts int64
		var b model.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan %s: %w", key, err)
		}
		b.Time = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for ticker %s on %s: %w", symbol, day, ErrNotFound)
	}
	return bars, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.logger.Info().Msg("closing sqlite store")
	return s.db.Close()
}
