// Package hedge runs the quote-and-hedge cycle: it reconciles fills taken on
// the hedge venue by trading the opposite side on the primary venue, then
// re-quotes a fee-adjusted copy of the primary book on the hedge venue.
package hedge

import (
	"context"
	"errors"
	"sync"
	"time"

	"shadow-hedger/internal/market"
	"shadow-hedger/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Config struct {
	// PrimarySymbol names the instrument on the primary venue ("btcusdt").
	PrimarySymbol string
	// HedgeSymbol names the instrument on the hedge venue ("BTC-USDT").
	HedgeSymbol string
	PriceDigits int32
	SlipPoint   decimal.Decimal
	// SlipRatio is how far through the book hedge orders are priced to make
	// sure they execute.
	SlipRatio decimal.Decimal
	Sizing    SizingParams
	// MaxLevels caps the cached ladder per side; zero keeps every level.
	MaxLevels int
}

type Deps struct {
	Primary  PrimaryExchange
	Hedge    HedgeExchange
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Notifier Notifier
	Recorder Recorder
	Now      func() time.Time
}

// Engine owns State. HandleTick is serialized so at most one cycle is in
// flight; a second trade tick waits until the first cycle finished placing.
type Engine struct {
	cfg      Config
	primary  PrimaryExchange
	hedge    HedgeExchange
	log      *zap.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	recorder Recorder
	now      func() time.Time

	mu    sync.Mutex
	state State
}

func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if deps.Primary == nil || deps.Hedge == nil {
		return nil, errors.New("primary and hedge exchanges are required")
	}
	if cfg.PrimarySymbol == "" || cfg.HedgeSymbol == "" {
		return nil, errors.New("primary and hedge symbols are required")
	}
	if !cfg.Sizing.Ratio.IsPositive() || !cfg.Sizing.Ratio.LessThan(decimal.NewFromInt(1)) {
		return nil, errors.New("utilization ratio must be in (0,1)")
	}
	if !cfg.Sizing.PriceDepth.IsPositive() {
		return nil, errors.New("price depth must be > 0")
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:      cfg,
		primary:  deps.Primary,
		hedge:    deps.Hedge,
		log:      log,
		metrics:  m,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		now:      now,
		state:    State{Phase: PhaseIdle},
	}, nil
}

// HandleTick is the single entry point for feed events. Depth ticks refresh
// the cached ladder; trade ticks that pass the staleness filter run a cycle.
// The returned error is the cycle's abort reason, if any.
func (e *Engine) HandleTick(ctx context.Context, tick market.Tick) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	first := !e.state.Skew.Set()
	admitted := e.state.Skew.Admit(tick.Timestamp, now)
	if first {
		e.log.Info("clock skew fixed",
			zap.Int64("skew_ms", e.state.Skew.OffsetMS()),
			zap.Float64("skew_seconds", float64(e.state.Skew.OffsetMS())/1000),
		)
	}

	switch tick.Kind {
	case market.KindDepth:
		e.state.ApplyDepth(limitDepth(tick, e.cfg.MaxLevels))
		return nil
	case market.KindTrade:
		if !admitted {
			e.metrics.TicksStale.Inc()
			e.log.Debug("stale trade tick dropped",
				zap.Int64("tick_ts", tick.Timestamp),
				zap.Int64("now_ms", now.UnixMilli()),
				zap.Int64("skew_ms", e.state.Skew.OffsetMS()),
			)
			return nil
		}
		_, err := e.runCycle(ctx)
		return err
	default:
		return nil
	}
}

// Snapshot returns a copy of the engine state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.state
	snap.Ladder = market.Ladder{
		Asks: append([]market.Level(nil), e.state.Ladder.Asks...),
		Bids: append([]market.Level(nil), e.state.Ladder.Bids...),
	}
	return snap
}

// Preview prices and sizes the current ladder against the given accounts
// without touching either venue.
func (e *Engine) Preview(snap AccountSnapshot) (ShadowLadder, OrderSizing, error) {
	e.mu.Lock()
	ladder := e.state.Ladder
	e.mu.Unlock()
	if ladder.Empty() {
		return ShadowLadder{}, OrderSizing{}, ErrNoLadder
	}
	priced := e.price(ladder, snap)
	return priced.shadow, e.sizeQuotes(priced).sizing, nil
}

func (e *Engine) enter(phase Phase) {
	next := nextPhase(e.state.Phase, phase)
	if next != phase {
		e.log.Error("illegal cycle transition", zap.String("from", string(e.state.Phase)), zap.String("to", string(phase)))
	}
	e.state.Phase = next
}

func (e *Engine) notify(ctx context.Context, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, message); err != nil {
		e.log.Warn("alert send failed", zap.Error(err))
	}
}
