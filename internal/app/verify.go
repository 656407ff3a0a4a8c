package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"shadow-hedger/internal/config"
	"shadow-hedger/internal/hedge"
	"shadow-hedger/internal/huobi/ws"
	"shadow-hedger/internal/market"
	"shadow-hedger/internal/state"
	"shadow-hedger/internal/state/sqlite"

	"go.uber.org/zap"
)

const defaultDepthWait = 15 * time.Second

type VerifyOptions struct {
	// Preview waits for one depth snapshot and prices it against the
	// accounts read. Nothing is placed.
	Preview   bool
	DepthWait time.Duration
}

type VerifyReport struct {
	AccountID   string
	Accounts    hedge.AccountSnapshot
	LastCycle   state.EngineSnapshot
	HasSnapshot bool
	Previewed   bool
	Ladder      hedge.ShadowLadder
	Sizing      hedge.OrderSizing
}

// Verify checks credentials and connectivity against both venues without
// trading: it resolves the primary account, reads balances and fees, loads
// the last cycle summary and optionally previews the next quotes.
func Verify(ctx context.Context, cfg *config.Config, log *zap.Logger, opts VerifyOptions) (VerifyReport, error) {
	var report VerifyReport
	if err := cfg.Credentials.RequireCredentials(); err != nil {
		return report, err
	}
	pair, err := pairAssets(cfg.Hedge.Symbol)
	if err != nil {
		return report, err
	}
	primaryClient, hedgeClient, err := venueClients(cfg, log)
	if err != nil {
		return report, err
	}
	report.AccountID, err = primaryClient.ResolveAccount(ctx)
	if err != nil {
		return report, fmt.Errorf("resolve primary account: %w", err)
	}
	primary := newPrimaryVenue(primaryClient, pair, nil, log)
	hedgeSide := newHedgeVenue(hedgeClient, pair, nil, log)

	if report.Accounts.Primary, err = readVenueAccount(ctx, primary, cfg.Primary.Symbol); err != nil {
		return report, fmt.Errorf("primary account: %w", err)
	}
	if report.Accounts.Hedge, err = readVenueAccount(ctx, hedgeSide, cfg.Hedge.Symbol); err != nil {
		return report, fmt.Errorf("hedge account: %w", err)
	}

	if _, err := os.Stat(cfg.State.SQLitePath); err == nil {
		store, err := sqlite.New(cfg.State.SQLitePath)
		if err != nil {
			return report, err
		}
		report.LastCycle, report.HasSnapshot, err = state.LoadEngineSnapshot(ctx, store)
		_ = store.Close()
		if err != nil {
			return report, err
		}
	}

	if !opts.Preview {
		return report, nil
	}
	engine, err := hedge.NewEngine(EngineConfig(cfg), hedge.Deps{Primary: primary, Hedge: hedgeSide, Log: log})
	if err != nil {
		return report, err
	}
	wait := opts.DepthWait
	if wait <= 0 {
		wait = defaultDepthWait
	}
	stream := ws.New(cfg.Feed.URL, cfg.Feed.ReconnectDelay, cfg.Feed.PingTimeout, log)
	depth, err := firstDepth(ctx, market.NewFeed(stream, cfg.Primary.Symbol, log), wait)
	if err != nil {
		return report, err
	}
	if err := engine.HandleTick(ctx, depth); err != nil {
		return report, err
	}
	report.Ladder, report.Sizing, err = engine.Preview(report.Accounts)
	if err != nil {
		return report, err
	}
	report.Previewed = true
	return report, nil
}

type accountSource interface {
	Balances(ctx context.Context) (hedge.Balances, error)
	FeeSchedule(ctx context.Context, symbol string) (hedge.FeeSchedule, error)
}

func readVenueAccount(ctx context.Context, src accountSource, symbol string) (hedge.Account, error) {
	balances, err := src.Balances(ctx)
	if err != nil {
		return hedge.Account{}, err
	}
	fees, err := src.FeeSchedule(ctx, symbol)
	if err != nil {
		return hedge.Account{}, err
	}
	return hedge.Account{Balances: balances, Fees: fees}, nil
}

// firstDepth runs the feed until the first depth tick arrives or wait expires.
func firstDepth(ctx context.Context, f feed, wait time.Duration) (market.Tick, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticks := make(chan market.Tick, 16)
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- f.Run(ctx, ticks)
	}()
	for {
		select {
		case tick := <-ticks:
			if tick.Kind == market.KindDepth {
				return tick, nil
			}
		case err := <-feedErr:
			if err == nil || errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("no depth snapshot within %s", wait)
			}
			return market.Tick{}, err
		case <-ctx.Done():
			return market.Tick{}, fmt.Errorf("no depth snapshot within %s", wait)
		}
	}
}
