// Package app wires the venue clients, the market feed and the hedge engine
// into one long-running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"shadow-hedger/internal/alerts"
	"shadow-hedger/internal/config"
	"shadow-hedger/internal/hedge"
	"shadow-hedger/internal/huobi"
	"shadow-hedger/internal/huobi/ws"
	"shadow-hedger/internal/market"
	"shadow-hedger/internal/metrics"
	"shadow-hedger/internal/okx"
	"shadow-hedger/internal/state"
	"shadow-hedger/internal/state/sqlite"
	"shadow-hedger/internal/timescale"

	"go.uber.org/zap"
)

const metricsShutdownTimeout = 5 * time.Second

// feed is the part of market.Feed the run loop depends on.
type feed interface {
	Run(ctx context.Context, out chan<- market.Tick) error
}

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     state.Store
	feed      feed
	engine    *hedge.Engine
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	alerts    hedge.Notifier
	timescale *timescale.Writer

	// resolve runs once before the feed starts; startup fails on error.
	resolve func(ctx context.Context) error
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Credentials.RequireCredentials(); err != nil {
		return nil, err
	}
	pair, err := pairAssets(cfg.Hedge.Symbol)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	primaryClient, hedgeClient, err := venueClients(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var prom *metrics.Prometheus
	m := metrics.NewNoop()
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	tsWriter, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("timescale: %w", err)
	}

	notifier := alerts.NewTelegram(cfg.Telegram, log)
	engine, err := hedge.NewEngine(EngineConfig(cfg), hedge.Deps{
		Primary:  newPrimaryVenue(primaryClient, pair, store, log),
		Hedge:    newHedgeVenue(hedgeClient, pair, store, log),
		Log:      log,
		Metrics:  m,
		Notifier: notifier,
		Recorder: &recorder{store: store, timescale: tsWriter, log: log},
	})
	if err != nil {
		_ = store.Close()
		_ = tsWriter.Close()
		return nil, err
	}

	stream := ws.New(cfg.Feed.URL, cfg.Feed.ReconnectDelay, cfg.Feed.PingTimeout, log)
	stream.OnReconnect(m.FeedReconnects.Inc)
	marketFeed := market.NewFeed(stream, cfg.Primary.Symbol, log)
	marketFeed.OnDrop(m.FramesDropped.Inc)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		feed:      marketFeed,
		engine:    engine,
		metrics:   m,
		prom:      prom,
		alerts:    notifier,
		timescale: tsWriter,
		resolve: func(ctx context.Context) error {
			_, err := primaryClient.ResolveAccount(ctx)
			return err
		},
	}, nil
}

func venueClients(cfg *config.Config, log *zap.Logger) (*huobi.Client, *okx.Client, error) {
	primarySigner, err := huobi.NewSigner(cfg.Credentials.PrimaryKey, cfg.Credentials.PrimarySecret)
	if err != nil {
		return nil, nil, err
	}
	hedgeSigner, err := okx.NewSigner(cfg.Credentials.HedgeKey, cfg.Credentials.HedgeSecret, cfg.Credentials.HedgePassphrase)
	if err != nil {
		return nil, nil, err
	}
	primaryClient := huobi.NewClient(cfg.Primary.BaseURL, cfg.Primary.Timeout, cfg.Primary.RatePerSec, primarySigner, log)
	hedgeClient := okx.NewClient(cfg.Hedge.BaseURL, cfg.Hedge.Timeout, cfg.Hedge.RatePerSec, hedgeSigner, log)
	return primaryClient, hedgeClient, nil
}

// EngineConfig maps the strategy section onto the engine's parameters.
func EngineConfig(cfg *config.Config) hedge.Config {
	s := cfg.Strategy
	return hedge.Config{
		PrimarySymbol: cfg.Primary.Symbol,
		HedgeSymbol:   cfg.Hedge.Symbol,
		PriceDigits:   s.PriceDigits,
		SlipPoint:     s.PriceSlipPoint,
		SlipRatio:     s.SlipRatio,
		MaxLevels:     s.LadderLevels,
		Sizing: hedge.SizingParams{
			PriceDepth:    s.PriceDepth,
			Ratio:         s.UtilizationRatio,
			PrimaryMinLot: s.PrimaryMinSize,
			HedgeMinLot:   s.HedgeMinSize,
			FloorSize:     s.FloorSize,
			VolumeDigits:  s.VolumeDigits,
		},
	}
}

// Run resolves the primary account, starts the feed and feeds ticks to the
// engine one at a time until ctx ends or the feed fails.
func (a *App) Run(ctx context.Context) error {
	defer a.close()
	if a.resolve != nil {
		if err := a.resolve(ctx); err != nil {
			return fmt.Errorf("resolve primary account: %w", err)
		}
	}
	a.timescale.Start(ctx)
	a.startMetricsServer(ctx)
	a.log.Info("shadow hedger started",
		zap.String("primary_symbol", a.cfg.Primary.Symbol),
		zap.String("hedge_symbol", a.cfg.Hedge.Symbol),
		zap.String("feed_url", a.cfg.Feed.URL),
	)
	a.notify(ctx, fmt.Sprintf("shadow hedger started: %s / %s", a.cfg.Primary.Symbol, a.cfg.Hedge.Symbol))

	buffer := a.cfg.Feed.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	ticks := make(chan market.Tick, buffer)
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- a.feed.Run(ctx, ticks)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-feedErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil {
				err = errors.New("feed stopped")
			}
			a.notify(ctx, fmt.Sprintf("market feed stopped: %v", err))
			return fmt.Errorf("market feed: %w", err)
		case tick := <-ticks:
			a.handleTick(ctx, tick)
		}
	}
}

func (a *App) handleTick(ctx context.Context, tick market.Tick) {
	err := a.engine.HandleTick(ctx, tick)
	switch {
	case err == nil:
	case errors.Is(err, hedge.ErrNoLadder):
		a.log.Debug("trade tick ignored until depth arrives")
	default:
		a.log.Warn("cycle failed", zap.Stringer("kind", tick.Kind), zap.Error(err))
	}
}

func (a *App) startMetricsServer(ctx context.Context) {
	if a.prom == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("metrics server listening", zap.String("address", srv.Addr), zap.String("path", a.cfg.Metrics.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func (a *App) notify(ctx context.Context, message string) {
	if a.alerts == nil {
		return
	}
	if err := a.alerts.Send(ctx, message); err != nil {
		a.log.Warn("alert send failed", zap.Error(err))
	}
}

func (a *App) close() {
	if err := a.timescale.Close(); err != nil {
		a.log.Warn("timescale close failed", zap.Error(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("state store close failed", zap.Error(err))
		}
	}
}
