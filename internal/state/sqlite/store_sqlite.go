package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shadow-hedger/internal/state"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS orders (
		venue TEXT NOT NULL,
		client_order_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		price TEXT NOT NULL,
		size TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		PRIMARY KEY (venue, client_order_id)
	)`,
}

// Store persists the key/value state and the order journal in one file.
type Store struct {
	db *sql.DB
}

var _ state.Store = (*Store)(nil)

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *Store) LookupOrder(ctx context.Context, venue, clientOrderID string) (string, bool, error) {
	var orderID string
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id FROM orders WHERE venue = ? AND client_order_id = ?`,
		venue, clientOrderID,
	).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return orderID, true, nil
}

// RecordOrder keeps the first order id journaled for a client order id.
func (s *Store) RecordOrder(ctx context.Context, rec state.OrderRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (venue, client_order_id, order_id, symbol, side, price, size, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(venue, client_order_id) DO NOTHING`,
		rec.Venue, rec.ClientOrderID, rec.OrderID, rec.Symbol, rec.Side, rec.Price, rec.Size, created.UnixMilli(),
	)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
