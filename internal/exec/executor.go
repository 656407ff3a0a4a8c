package exec

import (
	"context"
	"errors"
	"sync"
	"time"

	"shadow-hedger/internal/hedge"
	"shadow-hedger/internal/state"

	"go.uber.org/zap"
)

var ErrEmptyOrderID = errors.New("venue returned empty order id")

// Placer sends one limit order to a venue.
type Placer interface {
	PlaceLimitOrder(ctx context.Context, order hedge.OrderRequest) (string, error)
}

type PlacerFunc func(ctx context.Context, order hedge.OrderRequest) (string, error)

func (f PlacerFunc) PlaceLimitOrder(ctx context.Context, order hedge.OrderRequest) (string, error) {
	return f(ctx, order)
}

// Executor journals accepted orders by client order id so a repeated request
// returns the original order id instead of trading twice. Orders without a
// client order id pass straight through. Nothing is retried.
type Executor struct {
	venue  string
	placer Placer
	store  state.Store
	log    *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]string
}

func New(venue string, placer Placer, store state.Store, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		venue:  venue,
		placer: placer,
		store:  store,
		log:    log.With(zap.String("venue", venue)),
		now:    time.Now,
		cache:  make(map[string]string),
	}
}

func (e *Executor) PlaceLimitOrder(ctx context.Context, order hedge.OrderRequest) (string, error) {
	if order.ClientOrderID == "" {
		return e.place(ctx, order)
	}
	if oid, ok, err := e.lookup(ctx, order.ClientOrderID); err != nil {
		return "", err
	} else if ok {
		e.log.Info("order already placed", zap.String("client_order_id", order.ClientOrderID), zap.String("order_id", oid))
		return oid, nil
	}
	orderID, err := e.place(ctx, order)
	if err != nil {
		return "", err
	}
	if e.store != nil {
		rec := state.OrderRecord{
			Venue:         e.venue,
			ClientOrderID: order.ClientOrderID,
			OrderID:       orderID,
			Symbol:        order.Symbol,
			Side:          string(order.Side),
			Price:         order.Price.String(),
			Size:          order.Size.String(),
			CreatedAt:     e.now(),
		}
		if err := e.store.RecordOrder(ctx, rec); err != nil {
			e.log.Warn("failed to journal order id", zap.String("client_order_id", order.ClientOrderID), zap.Error(err))
		}
	}
	e.mu.Lock()
	e.cache[order.ClientOrderID] = orderID
	e.mu.Unlock()
	return orderID, nil
}

func (e *Executor) lookup(ctx context.Context, clientOrderID string) (string, bool, error) {
	e.mu.Lock()
	oid, ok := e.cache[clientOrderID]
	e.mu.Unlock()
	if ok || e.store == nil {
		return oid, ok, nil
	}
	oid, ok, err := e.store.LookupOrder(ctx, e.venue, clientOrderID)
	if err != nil || !ok {
		return "", false, err
	}
	e.mu.Lock()
	e.cache[clientOrderID] = oid
	e.mu.Unlock()
	return oid, true, nil
}

func (e *Executor) place(ctx context.Context, order hedge.OrderRequest) (string, error) {
	orderID, err := e.placer.PlaceLimitOrder(ctx, order)
	if err != nil {
		return "", err
	}
	if orderID == "" {
		return "", ErrEmptyOrderID
	}
	return orderID, nil
}
