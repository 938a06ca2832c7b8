package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"stockscreen/internal/market"
)

// SQLiteCandleStore persists candle history to a SQLite database. One row per
// (symbol, interval, open_time); re-imports upsert instead of duplicating.
type SQLiteCandleStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(path string) (*SQLiteCandleStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL keeps concurrent readers cheap while an import writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteCandleStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteCandleStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			open_time  INTEGER NOT NULL,
			close_time INTEGER NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			volume     REAL,
			trades     INTEGER,
			PRIMARY KEY (symbol, interval, open_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles(symbol, interval, open_time)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			direction   TEXT NOT NULL,
			points      INTEGER,
			score       REAL,
			description TEXT,
			broken_out  INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteCandleStore) Put(ctx context.Context, symbol, interval string, candles []market.Candle, max int) error {
	if err := s.upsert(ctx, symbol, interval, candles); err != nil {
		return err
	}
	if max <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM candles
		WHERE symbol = ? AND interval = ? AND open_time NOT IN (
			SELECT open_time FROM candles WHERE symbol = ? AND interval = ?
			ORDER BY open_time DESC LIMIT ?)`,
		symbol, interval, symbol, interval, max)
	return err
}

func (s *SQLiteCandleStore) Set(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if symbol == "" || interval == "" {
		return errors.New("store: symbol/interval must not be empty")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM candles WHERE symbol = ? AND interval = ?`, symbol, interval); err != nil {
		return err
	}
	return s.upsert(ctx, symbol, interval, candles)
}

func (s *SQLiteCandleStore) upsert(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if symbol == "" || interval == "" {
		return errors.New("store: symbol/interval must not be empty")
	}
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO candles
		(symbol, interval, open_time, close_time, open, high, low, close, volume, trades)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
			close_time = excluded.close_time,
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume, trades = excluded.trades`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, interval,
			c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.Trades); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteCandleStore) Get(ctx context.Context, symbol, interval string) ([]market.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT open_time, close_time, open, high, low, close, volume, trades
		FROM candles WHERE symbol = ? AND interval = ? ORDER BY open_time ASC`, symbol, interval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteCandleStore) Symbols(ctx context.Context, interval string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM candles
		WHERE interval = ? ORDER BY symbol ASC`, interval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLiteCandleStore) Export(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT open_time, close_time, open, high, low, close, volume, trades
		FROM candles WHERE symbol = ? AND interval = ?
		ORDER BY open_time DESC LIMIT ?`, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Rows came back newest-first; flip to time order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SignalRecord is one persisted screen hit.
type SignalRecord struct {
	RunID       string  `json:"run_id"`
	CreatedAt   int64   `json:"created_at"`
	Symbol      string  `json:"symbol"`
	Interval    string  `json:"interval"`
	Direction   string  `json:"direction"`
	Points      int     `json:"points"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
	BrokenOut   bool    `json:"broken_out"`
	Failed      bool    `json:"failed"`
}

// RecordSignals appends screen hits for a run.
func (s *SQLiteCandleStore) RecordSignals(ctx context.Context, records []SignalRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO signals
		(run_id, created_at, symbol, interval, direction, points, score, description, broken_out, failed)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.RunID, r.CreatedAt, r.Symbol, r.Interval,
			r.Direction, r.Points, r.Score, r.Description, r.BrokenOut, r.Failed); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteCandleStore) Close() error { return s.db.Close() }
