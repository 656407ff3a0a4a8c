package app

import (
	"context"
	"time"

	"shadow-hedger/internal/hedge"
	"shadow-hedger/internal/state"
	"shadow-hedger/internal/timescale"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const snapshotTimeout = 2 * time.Second

// recorder keeps the last cycle summary in the state store and forwards
// cycle and hedge rows to timescale when it is configured.
type recorder struct {
	store     state.Store
	timescale *timescale.Writer
	log       *zap.Logger
}

func (r *recorder) RecordCycle(report hedge.CycleReport) {
	r.timescale.EnqueueCycle(cycleRow(report))
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	snap := state.EngineSnapshot{
		Cycle:       report.Seq,
		Aborted:     report.Aborted,
		AbortReason: report.AbortReason,
		FillCursor:  string(report.Cursor),
		SkewMS:      report.SkewMS,
		FillsHedged: report.FillsHedged,
		Placed:      report.Placed,
		AskSize:     decimalText(report.Sizing.AskSize),
		BidSize:     decimalText(report.Sizing.BidSize),
		UpdatedAtMS: report.StartedAt.Add(report.Duration).UnixMilli(),
	}
	if err := state.SaveEngineSnapshot(ctx, r.store, snap); err != nil {
		r.log.Warn("engine snapshot save failed", zap.Uint64("cycle", report.Seq), zap.Error(err))
	}
}

func (r *recorder) RecordHedge(record hedge.HedgeRecord) {
	r.timescale.EnqueueHedge(timescale.HedgeRow{
		Time:          time.UnixMilli(record.TimeMS).UTC(),
		TradeID:       record.Fill.TradeID,
		FillSide:      string(record.Fill.Side),
		FillPrice:     record.Fill.Price.String(),
		Size:          record.Fill.Size.String(),
		HedgeSide:     string(record.Side),
		HedgePrice:    record.Price.String(),
		OrderID:       record.OrderID,
		ClientOrderID: record.ClientOrderID,
		Error:         record.Err,
	})
}

func cycleRow(report hedge.CycleReport) timescale.CycleRow {
	row := timescale.CycleRow{
		Time:           report.StartedAt.UTC(),
		Seq:            report.Seq,
		Aborted:        report.Aborted,
		AbortReason:    report.AbortReason,
		FillsHedged:    report.FillsHedged,
		HedgeFailures:  report.HedgeFailures,
		Cancelled:      report.Cancelled,
		Placed:         report.Placed,
		PlaceFailures:  report.PlaceFailures,
		FillCursor:     string(report.Cursor),
		DurationMillis: report.Duration.Milliseconds(),
	}
	if report.Aborted {
		return row
	}
	row.AskSize = decimalText(report.Sizing.AskSize)
	row.BidSize = decimalText(report.Sizing.BidSize)
	if len(report.Ladder.Asks) > 0 {
		row.BestShadowAsk = report.Ladder.Asks[0].String()
	}
	if len(report.Ladder.Bids) > 0 {
		row.BestShadowBid = report.Ladder.Bids[0].String()
	}
	row.PrimaryBase = report.Primary.Balances.Base.String()
	row.PrimaryQuote = report.Primary.Balances.Quote.String()
	row.HedgeBase = report.Hedge.Balances.Base.String()
	row.HedgeQuote = report.Hedge.Balances.Quote.String()
	return row
}

// decimalText leaves unset values empty so they are stored as NULL.
func decimalText(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
