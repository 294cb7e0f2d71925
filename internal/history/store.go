// Package history records executed swaps in SQLite and serves them as the
// trade history of the native token.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentdesk/agentdesk/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS swaps (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	tx_hash     TEXT NOT NULL,
	sell_token  TEXT NOT NULL,
	buy_token   TEXT NOT NULL,
	sell_amount REAL NOT NULL,
	buy_amount  REAL NOT NULL DEFAULT 0,
	price_usd   REAL NOT NULL DEFAULT 0,
	executed_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_swaps_tx_hash ON swaps(tx_hash);
CREATE INDEX IF NOT EXISTS idx_swaps_executed_at ON swaps(executed_at);
`

// Swap is one executed order
type Swap struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	TxHash     string    `json:"tx_hash"`
	SellToken  string    `json:"sell_token"`
	BuyToken   string    `json:"buy_token"`
	SellAmount float64   `json:"sell_amount"`
	BuyAmount  float64   `json:"buy_amount,omitempty"`
	PriceUSD   float64   `json:"price_usd"` // native token price at execution
	ExecutedAt time.Time `json:"executed_at"`
}

// Store is the SQLite-backed swap history
type Store struct {
	db *sql.DB
}

// Open opens (creating when missing) the database at path.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create db dir: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a swap. Recording the same tx hash twice is a no-op.
func (s *Store) Record(ctx context.Context, swap *Swap) error {
	if swap.TxHash == "" {
		return fmt.Errorf("swap has no tx hash")
	}
	if swap.ExecutedAt.IsZero() {
		swap.ExecutedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO swaps (run_id, tx_hash, sell_token, buy_token, sell_amount, buy_amount, price_usd, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO NOTHING`,
		swap.RunID, swap.TxHash,
		strings.ToUpper(swap.SellToken), strings.ToUpper(swap.BuyToken),
		swap.SellAmount, swap.BuyAmount, swap.PriceUSD,
		swap.ExecutedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record swap: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		swap.ID = id
	}
	return nil
}

// Swaps returns up to limit swaps, newest first. limit <= 0 returns all.
func (s *Store) Swaps(ctx context.Context, limit int) ([]Swap, error) {
	query := `SELECT id, run_id, tx_hash, sell_token, buy_token, sell_amount, buy_amount, price_usd, executed_at
		FROM swaps ORDER BY executed_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// Trades converts swaps touching the native token into buy/sell trades,
// oldest first.
func (s *Store) Trades(ctx context.Context) ([]domain.Trade, error) {
	swaps, err := s.query(ctx, `SELECT id, run_id, tx_hash, sell_token, buy_token, sell_amount, buy_amount, price_usd, executed_at
		FROM swaps WHERE sell_token = ? OR buy_token = ? ORDER BY executed_at ASC, id ASC`,
		domain.NativeToken, domain.NativeToken)
	if err != nil {
		return nil, err
	}

	trades := make([]domain.Trade, 0, len(swaps))
	for _, sw := range swaps {
		t := domain.Trade{PriceUSD: sw.PriceUSD, Timestamp: sw.ExecutedAt, TxHash: sw.TxHash}
		if sw.SellToken == domain.NativeToken {
			t.Type = "sell"
			t.Amount = sw.SellAmount
		} else {
			t.Type = "buy"
			t.Amount = sw.BuyAmount
		}
		if t.Amount <= 0 {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Swap, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query swaps: %w", err)
	}
	defer rows.Close()

	var out []Swap
	for rows.Next() {
		var sw Swap
		var executed int64
		if err := rows.Scan(&sw.ID, &sw.RunID, &sw.TxHash, &sw.SellToken, &sw.BuyToken,
			&sw.SellAmount, &sw.BuyAmount, &sw.PriceUSD, &executed); err != nil {
			return nil, fmt.Errorf("failed to scan swap: %w", err)
		}
		sw.ExecutedAt = time.UnixMilli(executed).UTC()
		out = append(out, sw)
	}
	return out, rows.Err()
}
