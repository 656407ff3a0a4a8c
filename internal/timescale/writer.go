package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"shadow-hedger/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// CycleRow is one completed or aborted cycle. Decimal fields are passed as
// strings and stored as NUMERIC.
type CycleRow struct {
	Time           time.Time
	Seq            uint64
	Aborted        bool
	AbortReason    string
	FillsHedged    int
	HedgeFailures  int
	Cancelled      int
	Placed         int
	PlaceFailures  int
	AskSize        string
	BidSize        string
	BestShadowAsk  string
	BestShadowBid  string
	PrimaryBase    string
	PrimaryQuote   string
	HedgeBase      string
	HedgeQuote     string
	FillCursor     string
	DurationMillis int64
}

type HedgeRow struct {
	Time          time.Time
	TradeID       string
	FillSide      string
	FillPrice     string
	Size          string
	HedgeSide     string
	HedgePrice    string
	OrderID       string
	ClientOrderID string
	Error         string
}

type Writer struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	cycles  chan CycleRow
	hedges  chan HedgeRow
	started atomic.Bool
	dropped atomic.Uint64
}

// New opens the database and ensures the schema. It returns a nil Writer
// when disabled; every method is safe on nil.
func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	w := newWriter(db, cfg.Schema, cfg.QueueSize, log)
	if err := w.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(db *sql.DB, schema string, queueSize int, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Writer{
		db:     db,
		log:    log,
		schema: schema,
		cycles: make(chan CycleRow, queueSize),
		hedges: make(chan HedgeRow, queueSize),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil || !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Dropped counts rows discarded because a queue was full.
func (w *Writer) Dropped() uint64 {
	if w == nil {
		return 0
	}
	return w.dropped.Load()
}

// EnqueueCycle never blocks; the row is dropped when the queue is full.
func (w *Writer) EnqueueCycle(row CycleRow) {
	if w == nil {
		return
	}
	select {
	case w.cycles <- row:
	default:
		w.drop("cycle")
	}
}

func (w *Writer) EnqueueHedge(row HedgeRow) {
	if w == nil {
		return
	}
	select {
	case w.hedges <- row:
	default:
		w.drop("hedge")
	}
}

func (w *Writer) drop(kind string) {
	if n := w.dropped.Add(1); n == 1 || n%100 == 0 {
		w.log.Warn("timescale queue full", zap.String("kind", kind), zap.Uint64("dropped", n))
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case row := <-w.cycles:
			w.writeCycle(ctx, row)
		case row := <-w.hedges:
			w.writeHedge(ctx, row)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		seq BIGINT NOT NULL,
		aborted BOOLEAN NOT NULL,
		abort_reason TEXT NOT NULL DEFAULT '',
		fills_hedged INTEGER NOT NULL,
		hedge_failures INTEGER NOT NULL,
		cancelled INTEGER NOT NULL,
		placed INTEGER NOT NULL,
		place_failures INTEGER NOT NULL,
		ask_size NUMERIC,
		bid_size NUMERIC,
		best_shadow_ask NUMERIC,
		best_shadow_bid NUMERIC,
		primary_base NUMERIC,
		primary_quote NUMERIC,
		hedge_base NUMERIC,
		hedge_quote NUMERIC,
		fill_cursor TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL
	)`, w.table("cycle_snapshots"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		trade_id TEXT NOT NULL,
		fill_side TEXT NOT NULL,
		fill_price NUMERIC NOT NULL,
		size NUMERIC NOT NULL,
		hedge_side TEXT NOT NULL,
		hedge_price NUMERIC NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		client_order_id TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	)`, w.table("hedge_records"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		w.log.Warn("timescale extension ensure failed", zap.Error(err))
		return nil
	}
	for _, name := range []string{"cycle_snapshots", "hedge_records"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(name))); err != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", name), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeCycle(ctx context.Context, row CycleRow) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, seq, aborted, abort_reason, fills_hedged, hedge_failures, cancelled, placed, place_failures,
		ask_size, bid_size, best_shadow_ask, best_shadow_bid,
		primary_base, primary_quote, hedge_base, hedge_quote, fill_cursor, duration_ms
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`, w.table("cycle_snapshots"))
	if _, err := w.db.ExecContext(ctx, query,
		row.Time, int64(row.Seq), row.Aborted, row.AbortReason,
		row.FillsHedged, row.HedgeFailures, row.Cancelled, row.Placed, row.PlaceFailures,
		numeric(row.AskSize), numeric(row.BidSize), numeric(row.BestShadowAsk), numeric(row.BestShadowBid),
		numeric(row.PrimaryBase), numeric(row.PrimaryQuote), numeric(row.HedgeBase), numeric(row.HedgeQuote),
		row.FillCursor, row.DurationMillis,
	); err != nil {
		w.log.Warn("timescale cycle insert failed", zap.Uint64("cycle", row.Seq), zap.Error(err))
	}
}

func (w *Writer) writeHedge(ctx context.Context, row HedgeRow) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, trade_id, fill_side, fill_price, size, hedge_side, hedge_price, order_id, client_order_id, error
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, w.table("hedge_records"))
	if _, err := w.db.ExecContext(ctx, query,
		row.Time, row.TradeID, row.FillSide, row.FillPrice, row.Size,
		row.HedgeSide, row.HedgePrice, row.OrderID, row.ClientOrderID, row.Error,
	); err != nil {
		w.log.Warn("timescale hedge insert failed", zap.String("trade_id", row.TradeID), zap.Error(err))
	}
}

// numeric maps an empty decimal string to NULL.
func numeric(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
