package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quantbt/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	strategy        TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	params          TEXT NOT NULL,
	start_ts        INTEGER NOT NULL,
	end_ts          INTEGER NOT NULL,
	initial_capital REAL NOT NULL,
	final_capital   REAL NOT NULL,
	total_trades    INTEGER NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_trades (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	entry_ts    INTEGER NOT NULL,
	exit_ts     INTEGER NOT NULL,
	direction   TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price  REAL NOT NULL,
	size        REAL NOT NULL,
	gross_pnl   REAL NOT NULL,
	net_pnl     REAL NOT NULL,
	commission  REAL NOT NULL,
	slippage    REAL NOT NULL,
	exit_reason TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run and its trade ledger in one transaction and
// returns the assigned run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, res *domain.BacktestResult) (string, error) {
	params, err := json.Marshal(res.Params)
	if err != nil {
		return "", fmt.Errorf("encoding params: %w", err)
	}

	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, strategy, symbol, params, start_ts, end_ts,
			initial_capital, final_capital, total_trades, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Strategy, res.Symbol, string(params),
		res.Start.UnixMilli(), res.End.UnixMilli(),
		res.InitialCapital, res.FinalCapital, len(res.Trades),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for i, t := range res.Trades {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_trades (run_id, seq, entry_ts, exit_ts, direction,
				entry_price, exit_price, size, gross_pnl, net_pnl,
				commission, slippage, exit_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, t.EntryTime.UnixMilli(), t.ExitTime.UnixMilli(), string(t.Direction),
			t.EntryPrice, t.ExitPrice, t.Size, t.GrossPnL, t.NetPnL,
			t.Commission, t.Slippage, string(t.ExitReason),
		)
		if err != nil {
			return "", fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// GetRun retrieves a persisted run by ID, including its trade ledger.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.BacktestResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT strategy, symbol, params, start_ts, end_ts, initial_capital, final_capital
		 FROM runs WHERE id = ?`, id)

	var (
		res      domain.BacktestResult
		params   string
		startMs  int64
		endMs    int64
	)
	err := row.Scan(&res.Strategy, &res.Symbol, &params, &startMs, &endMs,
		&res.InitialCapital, &res.FinalCapital)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	res.Start = time.UnixMilli(startMs).UTC()
	res.End = time.UnixMilli(endMs).UTC()
	if err := json.Unmarshal([]byte(params), &res.Params); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_ts, exit_ts, direction, entry_price, exit_price, size,
			gross_pnl, net_pnl, commission, slippage, exit_reason
		 FROM run_trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t        domain.Trade
			entryMs  int64
			exitMs   int64
			dir      string
			reason   string
		)
		err := rows.Scan(&entryMs, &exitMs, &dir, &t.EntryPrice, &t.ExitPrice,
			&t.Size, &t.GrossPnL, &t.NetPnL, &t.Commission, &t.Slippage, &reason)
		if err != nil {
			return nil, err
		}
		t.EntryTime = time.UnixMilli(entryMs).UTC()
		t.ExitTime = time.UnixMilli(exitMs).UTC()
		t.Direction = domain.Direction(dir)
		t.ExitReason = domain.ExitReason(reason)
		res.Trades = append(res.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, symbol, start_ts, end_ts, initial_capital,
			final_capital, total_trades, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs        RunSummary
			startMs   int64
			endMs     int64
			createdMs int64
		)
		err := rows.Scan(&rs.ID, &rs.Strategy, &rs.Symbol, &startMs, &endMs,
			&rs.InitialCapital, &rs.FinalCapital, &rs.TotalTrades, &createdMs)
		if err != nil {
			return nil, err
		}
		rs.Start = time.UnixMilli(startMs).UTC()
		rs.End = time.UnixMilli(endMs).UTC()
		rs.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rs)
	}
	return out, rows.Err()
}
