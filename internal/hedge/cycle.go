package hedge

import (
	"context"
	"fmt"
	"time"

	"shadow-hedger/internal/market"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CycleReport summarizes one cycle for logs and the recorder.
type CycleReport struct {
	Seq            uint64
	StartedAt      time.Time
	Duration       time.Duration
	Aborted        bool
	AbortReason    string
	FillsSeen      int
	FillsHedged    int
	HedgeFailures  int
	Cancelled      int
	CancelFailures int
	Placed         int
	PlaceFailures  int
	Primary        Account
	Hedge          Account
	Ladder         ShadowLadder
	Sizing         OrderSizing
	Cursor         FillCursor
	SkewMS         int64
}

// AccountSnapshot is a complete refresh of both venues.
type AccountSnapshot struct {
	Primary Account
	Hedge   Account
}

// Each step consumes the previous step's result, so the order
// fills -> cancels -> account -> ladder -> sizing -> placement is fixed by
// the signatures below.
type (
	reconciled struct {
		seen, hedged, failed int
	}
	cancelled struct {
		reconciled
		done, failed int
	}
	priced struct {
		ladder  market.Ladder
		account AccountSnapshot
		shadow  ShadowLadder
	}
	sized struct {
		priced
		sizing OrderSizing
	}
	placed struct {
		done, failed int
	}
)

func (e *Engine) runCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{StartedAt: e.now(), SkewMS: e.state.Skew.OffsetMS()}
	if e.state.Ladder.Empty() {
		e.log.Warn("trade tick before depth snapshot, cycle skipped")
		return report, ErrNoLadder
	}
	e.state.Cycles++
	report.Seq = e.state.Cycles
	log := e.log.With(zap.Uint64("cycle", report.Seq))
	defer e.enter(PhaseIdle)

	abort := func(err error) (CycleReport, error) {
		e.metrics.CyclesAborted.Inc()
		report.Aborted = true
		report.AbortReason = err.Error()
		report.Duration = e.now().Sub(report.StartedAt)
		report.Cursor = e.state.Cursor
		log.Warn("cycle aborted", zap.Error(err))
		e.notify(ctx, fmt.Sprintf("Cycle %d aborted: %v", report.Seq, err))
		e.record(report)
		return report, err
	}

	fills := e.checkFills(ctx, log)
	report.addFills(fills)

	cancels, err := e.cancelOpenOrders(ctx, log, fills)
	report.Cancelled, report.CancelFailures = cancels.done, cancels.failed
	if err != nil {
		return abort(err)
	}

	account, err := e.refreshAccount(ctx, cancels)
	if err != nil {
		return abort(err)
	}

	e.enter(PhaseBuildingLadder)
	ladder := e.price(e.state.Ladder, account)
	e.enter(PhaseSizing)
	quotes := e.sizeQuotes(ladder)
	report.Primary, report.Hedge = account.Primary, account.Hedge
	report.Ladder, report.Sizing = quotes.shadow, quotes.sizing

	late, err := e.syncCursor(ctx, log)
	report.addFills(late)
	if err != nil {
		return abort(err)
	}
	result := e.placeQuotes(ctx, log, quotes)
	report.Placed, report.PlaceFailures = result.done, result.failed
	report.Cursor = e.state.Cursor
	report.Duration = e.now().Sub(report.StartedAt)

	e.metrics.CyclesRun.Inc()
	e.metrics.CycleSeconds.Observe(report.Duration.Seconds())
	log.Info("cycle complete",
		zap.Int("fills_hedged", report.FillsHedged),
		zap.Int("hedge_failures", report.HedgeFailures),
		zap.Int("cancelled", report.Cancelled),
		zap.Int("placed", report.Placed),
		zap.Int("place_failures", report.PlaceFailures),
		zap.Stringer("ask_size", report.Sizing.AskSize),
		zap.Stringer("bid_size", report.Sizing.BidSize),
		zap.Duration("duration", report.Duration),
	)
	e.record(report)
	return report, nil
}

func (r *CycleReport) addFills(f reconciled) {
	r.FillsSeen += f.seen
	r.FillsHedged += f.hedged
	r.HedgeFailures += f.failed
}

// checkFills offsets every hedge-venue fill since the cursor on the primary
// venue. Failures are logged per fill; the cycle always continues.
func (e *Engine) checkFills(ctx context.Context, log *zap.Logger) reconciled {
	e.enter(PhaseCheckingFills)
	if !e.state.CursorSynced {
		log.Debug("fill cursor unset, reconciliation skipped")
		return reconciled{}
	}
	fills, next, err := e.hedge.FillsSince(ctx, e.cfg.HedgeSymbol, e.state.Cursor)
	if err != nil {
		log.Warn("fill history fetch failed", zap.String("cursor", string(e.state.Cursor)), zap.Error(err))
		return reconciled{}
	}
	e.advanceCursor(log, next)
	return e.hedgeFills(ctx, log, fills)
}

func (e *Engine) hedgeFills(ctx context.Context, log *zap.Logger, fills []Fill) reconciled {
	r := reconciled{seen: len(fills)}
	bestBid, _ := e.state.Ladder.BestBid()
	bestAsk, _ := e.state.Ladder.BestAsk()
	for _, fill := range fills {
		if !fill.Size.IsPositive() {
			continue
		}
		side := fill.Side.Opposite()
		price := HedgePrice(fill.Side, bestBid.Price, bestAsk.Price, e.cfg.SlipRatio, e.cfg.PriceDigits)
		order := OrderRequest{
			Symbol:        e.cfg.PrimarySymbol,
			Side:          side,
			Price:         price,
			Size:          fill.Size,
			ClientOrderID: HedgeClientOrderID(fill.TradeID),
		}
		record := HedgeRecord{TimeMS: e.now().UnixMilli(), Fill: fill, Side: side, Price: price, ClientOrderID: order.ClientOrderID}
		orderID, err := e.primary.PlaceLimitOrder(ctx, order)
		if err != nil {
			r.failed++
			e.metrics.HedgesFailed.Inc()
			record.Err = err.Error()
			log.Warn("hedge order failed",
				zap.String("trade_id", fill.TradeID),
				zap.String("side", string(side)),
				zap.Stringer("price", price),
				zap.Stringer("size", fill.Size),
				zap.Error(err),
			)
			e.notify(ctx, fmt.Sprintf("Hedge %s %s @ %s for fill %s failed: %v", side, fill.Size, price, fill.TradeID, err))
		} else {
			r.hedged++
			e.metrics.HedgesPlaced.Inc()
			record.OrderID = orderID
			log.Info("fill hedged",
				zap.String("trade_id", fill.TradeID),
				zap.String("order_id", orderID),
				zap.String("side", string(side)),
				zap.Stringer("price", price),
				zap.Stringer("size", fill.Size),
			)
		}
		if e.recorder != nil {
			e.recorder.RecordHedge(record)
		}
	}
	return r
}

// cancelOpenOrders withdraws every resting order on the hedge venue. A failed
// listing aborts the cycle; single cancel failures are only counted.
func (e *Engine) cancelOpenOrders(ctx context.Context, log *zap.Logger, prev reconciled) (cancelled, error) {
	e.enter(PhaseCancelling)
	c := cancelled{reconciled: prev}
	ids, err := e.hedge.OpenOrders(ctx, e.cfg.HedgeSymbol)
	if err != nil {
		return c, &StepError{Phase: PhaseCancelling, Op: "open orders", Err: err}
	}
	for _, id := range ids {
		if err := e.hedge.CancelOrder(ctx, e.cfg.HedgeSymbol, id); err != nil {
			c.failed++
			e.metrics.CancelsFailed.Inc()
			log.Warn("failed to cancel order", zap.String("order_id", id), zap.Error(err))
			continue
		}
		c.done++
	}
	return c, nil
}

// refreshAccount reads balances and fees from both venues. Any failure aborts
// the cycle; the previous snapshot is kept but never used for sizing.
func (e *Engine) refreshAccount(ctx context.Context, _ cancelled) (AccountSnapshot, error) {
	e.enter(PhaseRefreshingAccount)
	var snap AccountSnapshot
	var err error
	if snap.Primary, err = e.readAccount(ctx, "primary", e.primary, e.cfg.PrimarySymbol); err != nil {
		return AccountSnapshot{}, err
	}
	if snap.Hedge, err = e.readAccount(ctx, "hedge", e.hedge, e.cfg.HedgeSymbol); err != nil {
		return AccountSnapshot{}, err
	}
	e.state.CommitAccounts(snap, e.now())
	return snap, nil
}

type accountReader interface {
	Balances(ctx context.Context) (Balances, error)
	FeeSchedule(ctx context.Context, symbol string) (FeeSchedule, error)
}

func (e *Engine) readAccount(ctx context.Context, venue string, r accountReader, symbol string) (Account, error) {
	balances, err := r.Balances(ctx)
	if err != nil {
		return Account{}, &StepError{Phase: PhaseRefreshingAccount, Op: venue + " balances", Err: err}
	}
	if !balances.Valid() {
		return Account{}, &StepError{Phase: PhaseRefreshingAccount, Op: venue + " balances", Err: ErrInvalidAccount}
	}
	fees, err := r.FeeSchedule(ctx, symbol)
	if err != nil {
		return Account{}, &StepError{Phase: PhaseRefreshingAccount, Op: venue + " fees", Err: err}
	}
	if !fees.Valid() {
		return Account{}, &StepError{Phase: PhaseRefreshingAccount, Op: venue + " fees", Err: ErrInvalidAccount}
	}
	return Account{Balances: balances, Fees: fees}, nil
}

// price and sizeQuotes are pure; Preview calls them outside a cycle.
func (e *Engine) price(ladder market.Ladder, account AccountSnapshot) priced {
	shadow := BuildShadowLadder(LadderInputs{
		Asks:        ladder.AskPrices(),
		Bids:        ladder.BidPrices(),
		Primary:     account.Primary.Fees,
		Hedge:       account.Hedge.Fees,
		SlipPoint:   e.cfg.SlipPoint,
		PriceDigits: e.cfg.PriceDigits,
	})
	return priced{ladder: ladder, account: account, shadow: shadow}
}

func (e *Engine) sizeQuotes(p priced) sized {
	bestAsk, _ := p.ladder.BestAsk()
	bestBid, _ := p.ladder.BestBid()
	var shadowBid decimal.Decimal
	if len(p.shadow.Bids) > 0 {
		shadowBid = p.shadow.Bids[0]
	}
	sizing := ComputeSizing(SizingInputs{
		Primary:      p.account.Primary.Balances,
		Hedge:        p.account.Hedge.Balances,
		AskReference: bestAsk.Price,
		BidReference: shadowBid,
		TopAskSize:   bestAsk.Size,
		TopBidSize:   bestBid.Size,
	}, e.cfg.Sizing)
	return sized{priced: p, sizing: sizing}
}

// placeQuotes rests one order per ladder level on the hedge venue. Failures
// are logged per order.
func (e *Engine) placeQuotes(ctx context.Context, log *zap.Logger, q sized) placed {
	var p placed
	place := func(side Side, price, size decimal.Decimal) {
		if !price.IsPositive() || !size.IsPositive() {
			return
		}
		orderID, err := e.hedge.PlaceLimitOrder(ctx, OrderRequest{
			Symbol: e.cfg.HedgeSymbol,
			Side:   side,
			Price:  price,
			Size:   size,
		})
		if err != nil {
			p.failed++
			e.metrics.OrdersFailed.Inc()
			log.Warn("quote placement failed",
				zap.String("side", string(side)),
				zap.Stringer("price", price),
				zap.Stringer("size", size),
				zap.Error(err),
			)
			return
		}
		p.done++
		e.metrics.OrdersPlaced.Inc()
		log.Debug("quote placed", zap.String("order_id", orderID), zap.String("side", string(side)), zap.Stringer("price", price))
	}
	for _, price := range q.shadow.Asks {
		place(SideSell, price, q.sizing.AskSize)
	}
	for _, price := range q.shadow.Bids {
		place(SideBuy, price, q.sizing.BidSize)
	}
	return p
}

// syncCursor moves the cursor to the newest fill right before quoting, so
// the next reconciliation only sees fills of the quotes placed now. Fills
// that landed since this cycle's reconciliation are hedged here rather than
// skipped over.
//
// A failed fetch before the first sync aborts the cycle. Once synced, it keeps
// the old cursor and the next reconciliation covers the late fills too.
func (e *Engine) syncCursor(ctx context.Context, log *zap.Logger) (reconciled, error) {
	e.enter(PhasePlacing)
	fills, next, err := e.hedge.FillsSince(ctx, e.cfg.HedgeSymbol, e.state.Cursor)
	if err != nil {
		if !e.state.CursorSynced {
			return reconciled{}, &StepError{Phase: PhasePlacing, Op: "fill cursor", Err: err}
		}
		log.Warn("fill cursor refresh failed", zap.String("cursor", string(e.state.Cursor)), zap.Error(err))
		return reconciled{}, nil
	}
	var late reconciled
	if e.state.CursorSynced && len(fills) > 0 {
		log.Info("late fills found before quoting", zap.Int("count", len(fills)))
		late = e.hedgeFills(ctx, log, fills)
	}
	e.advanceCursor(log, next)
	e.state.CursorSynced = true
	return late, nil
}

func (e *Engine) advanceCursor(log *zap.Logger, next FillCursor) {
	if !next.After(e.state.Cursor) {
		return
	}
	log.Debug("fill cursor advanced", zap.String("from", string(e.state.Cursor)), zap.String("to", string(next)))
	e.state.Cursor = next
}

func (e *Engine) record(report CycleReport) {
	if e.recorder != nil {
		e.recorder.RecordCycle(report)
	}
}

// HedgeClientOrderID derives the primary-venue client order id from the hedge
// fill, making the hedge of a given fill idempotent.
func HedgeClientOrderID(tradeID string) string {
	if tradeID == "" {
		return ""
	}
	return "h" + tradeID
}
