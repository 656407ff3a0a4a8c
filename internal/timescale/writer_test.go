package timescale

import (
	"context"
	"testing"

	"shadow-hedger/internal/config"

	"go.uber.org/zap"
)

func TestNewDisabledReturnsNilWriter(t *testing.T) {
	w, err := New(config.TimescaleConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if w != nil {
		t.Fatalf("expected nil writer when disabled")
	}

	w.EnqueueCycle(CycleRow{Seq: 1})
	w.EnqueueHedge(HedgeRow{TradeID: "1"})
	w.Start(context.Background())
	if w.Dropped() != 0 {
		t.Fatalf("nil writer reported drops")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close nil writer: %v", err)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(config.TimescaleConfig{Enabled: true}, zap.NewNop()); err == nil {
		t.Fatalf("expected error without dsn")
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	w := newWriter(nil, "", 1, zap.NewNop())
	w.EnqueueCycle(CycleRow{Seq: 1})
	w.EnqueueCycle(CycleRow{Seq: 2})
	w.EnqueueHedge(HedgeRow{TradeID: "a"})
	w.EnqueueHedge(HedgeRow{TradeID: "b"})
	w.EnqueueHedge(HedgeRow{TradeID: "c"})

	if got := w.Dropped(); got != 3 {
		t.Fatalf("expected 3 drops, got %d", got)
	}
	if row := <-w.cycles; row.Seq != 1 {
		t.Fatalf("expected first cycle row kept, got %d", row.Seq)
	}
	if row := <-w.hedges; row.TradeID != "a" {
		t.Fatalf("expected first hedge row kept, got %q", row.TradeID)
	}
}

func TestTableUsesSchema(t *testing.T) {
	if got := newWriter(nil, "", 0, nil).table("cycle_snapshots"); got != "public.cycle_snapshots" {
		t.Fatalf("unexpected default table %q", got)
	}
	if got := newWriter(nil, " hedger ", 0, nil).table("hedge_records"); got != "hedger.hedge_records" {
		t.Fatalf("unexpected schema table %q", got)
	}
}

func TestNumericMapsEmptyToNull(t *testing.T) {
	if numeric("") != nil {
		t.Fatalf("expected nil for empty numeric")
	}
	if got := numeric("0.016"); got != "0.016" {
		t.Fatalf("unexpected numeric %v", got)
	}
}
