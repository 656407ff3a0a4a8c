package state

import (
	"context"
	"time"
)

// OrderRecord journals one accepted order under its client order id.
type OrderRecord struct {
	Venue         string
	ClientOrderID string
	OrderID       string
	Symbol        string
	Side          string
	Price         string
	Size          string
	CreatedAt     time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// LookupOrder returns the venue order id journaled for a client order id.
	LookupOrder(ctx context.Context, venue, clientOrderID string) (string, bool, error)
	RecordOrder(ctx context.Context, rec OrderRecord) error
	Close() error
}
