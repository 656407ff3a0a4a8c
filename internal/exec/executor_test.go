package exec

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shadow-hedger/internal/hedge"
	"shadow-hedger/internal/state"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type mockPlacer struct {
	mu      sync.Mutex
	calls   int
	orderID string
	err     error
}

func (m *mockPlacer) PlaceLimitOrder(ctx context.Context, order hedge.OrderRequest) (string, error) {
	_ = ctx
	_ = order
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.orderID, m.err
}

func hedgeOrder(cloid string) hedge.OrderRequest {
	return hedge.OrderRequest{
		Symbol:        "btcusdt",
		Side:          hedge.SideSell,
		Price:         decimal.RequireFromString("99.5"),
		Size:          decimal.RequireFromString("0.01"),
		ClientOrderID: cloid,
	}
}

func TestExecutorIdempotentPlacement(t *testing.T) {
	store := state.NewMemory()
	placer := &mockPlacer{orderID: "oid-1"}
	executor := New("primary", placer, store, zap.NewNop())
	ctx := context.Background()

	id1, err := executor.PlaceLimitOrder(ctx, hedgeOrder("h1"))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	id2, err := executor.PlaceLimitOrder(ctx, hedgeOrder("h1"))
	if err != nil {
		t.Fatalf("place again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same order id, got %q and %q", id1, id2)
	}
	if placer.calls != 1 {
		t.Fatalf("expected 1 placement, got %d", placer.calls)
	}

	placer2 := &mockPlacer{orderID: "oid-2"}
	restarted := New("primary", placer2, store, zap.NewNop())
	id3, err := restarted.PlaceLimitOrder(ctx, hedgeOrder("h1"))
	if err != nil {
		t.Fatalf("place after restart: %v", err)
	}
	if id3 != id1 || placer2.calls != 0 {
		t.Fatalf("journaled order id must survive a restart: got %q calls=%d", id3, placer2.calls)
	}
}

func TestExecutorJournalIsScopedByVenue(t *testing.T) {
	store := state.NewMemory()
	ctx := context.Background()
	if _, err := New("primary", &mockPlacer{orderID: "p-1"}, store, nil).PlaceLimitOrder(ctx, hedgeOrder("x1")); err != nil {
		t.Fatalf("primary place: %v", err)
	}

	other := &mockPlacer{orderID: "h-1"}
	id, err := New("hedge", other, store, nil).PlaceLimitOrder(ctx, hedgeOrder("x1"))
	if err != nil {
		t.Fatalf("hedge place: %v", err)
	}
	if id != "h-1" || other.calls != 1 {
		t.Fatalf("expected fresh hedge placement, got %q calls=%d", id, other.calls)
	}
}

func TestExecutorDoesNotRetryOrJournalFailures(t *testing.T) {
	store := state.NewMemory()
	placer := &mockPlacer{err: errors.New("insufficient funds")}
	executor := New("primary", placer, store, nil)
	ctx := context.Background()

	if _, err := executor.PlaceLimitOrder(ctx, hedgeOrder("h9")); err == nil {
		t.Fatalf("expected placement error")
	}
	if placer.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", placer.calls)
	}
	if _, ok, err := store.LookupOrder(ctx, "primary", "h9"); err != nil || ok {
		t.Fatalf("failed placement journaled: ok=%v err=%v", ok, err)
	}

	placer.err = nil
	placer.orderID = "oid-9"
	id, err := executor.PlaceLimitOrder(ctx, hedgeOrder("h9"))
	if err != nil {
		t.Fatalf("retry place: %v", err)
	}
	if id != "oid-9" {
		t.Fatalf("expected oid-9, got %q", id)
	}
}

func TestExecutorPassesThroughWithoutClientOrderID(t *testing.T) {
	placer := &mockPlacer{orderID: "oid"}
	executor := New("hedge", placer, state.NewMemory(), nil)
	for i := 0; i < 2; i++ {
		if _, err := executor.PlaceLimitOrder(context.Background(), hedgeOrder("")); err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
	}
	if placer.calls != 2 {
		t.Fatalf("expected 2 placements, got %d", placer.calls)
	}
}

func TestExecutorRejectsEmptyOrderID(t *testing.T) {
	executor := New("hedge", &mockPlacer{}, nil, nil)
	_, err := executor.PlaceLimitOrder(context.Background(), hedgeOrder("q1"))
	if !errors.Is(err, ErrEmptyOrderID) {
		t.Fatalf("expected ErrEmptyOrderID, got %v", err)
	}
}
