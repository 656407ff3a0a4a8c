package hedge

import (
	"context"
	"sync"
	"testing"
	"time"

	"shadow-hedger/internal/market"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func expectDecimal(t *testing.T, name, want string, got decimal.Decimal) {
	t.Helper()
	if !d(want).Equal(got) {
		t.Fatalf("expected %s %s, got %s", name, want, got)
	}
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

type fakePrimary struct {
	log      *callLog
	balances Balances
	balErr   error
	fees     FeeSchedule
	feeErr   error
	placeErr map[string]error
	placed   []OrderRequest
}

func (f *fakePrimary) Balances(context.Context) (Balances, error) {
	f.log.add("primary.Balances")
	return f.balances, f.balErr
}

func (f *fakePrimary) FeeSchedule(context.Context, string) (FeeSchedule, error) {
	f.log.add("primary.FeeSchedule")
	return f.fees, f.feeErr
}

func (f *fakePrimary) PlaceLimitOrder(_ context.Context, order OrderRequest) (string, error) {
	f.log.add("primary.Place")
	if err := f.placeErr[order.ClientOrderID]; err != nil {
		return "", err
	}
	f.placed = append(f.placed, order)
	return "p-" + order.ClientOrderID, nil
}

type fillPage struct {
	fills []Fill
	next  FillCursor
	err   error
}

type fakeHedge struct {
	log       *callLog
	balances  Balances
	balErr    error
	fees      FeeSchedule
	feeErr    error
	open      []string
	openErr   error
	openDelay time.Duration
	onOpen    func()
	cancelErr map[string]error
	cancelled []string
	pages     []fillPage
	cursors   []FillCursor
	placeErr  func(OrderRequest) error
	placed    []OrderRequest
}

func (f *fakeHedge) Balances(context.Context) (Balances, error) {
	f.log.add("hedge.Balances")
	return f.balances, f.balErr
}

func (f *fakeHedge) FeeSchedule(context.Context, string) (FeeSchedule, error) {
	f.log.add("hedge.FeeSchedule")
	return f.fees, f.feeErr
}

func (f *fakeHedge) PlaceLimitOrder(_ context.Context, order OrderRequest) (string, error) {
	f.log.add("hedge.Place")
	if f.placeErr != nil {
		if err := f.placeErr(order); err != nil {
			return "", err
		}
	}
	f.placed = append(f.placed, order)
	return "o" + order.Price.String(), nil
}

func (f *fakeHedge) OpenOrders(context.Context, string) ([]string, error) {
	f.log.add("hedge.OpenOrders")
	if f.openDelay > 0 {
		time.Sleep(f.openDelay)
	}
	if f.onOpen != nil {
		f.onOpen()
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	ids := f.open
	f.open = nil
	return ids, nil
}

func (f *fakeHedge) CancelOrder(_ context.Context, _ string, orderID string) error {
	f.log.add("hedge.Cancel")
	if err := f.cancelErr[orderID]; err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeHedge) FillsSince(_ context.Context, _ string, cursor FillCursor) ([]Fill, FillCursor, error) {
	f.log.add("hedge.FillsSince")
	f.cursors = append(f.cursors, cursor)
	if len(f.pages) == 0 {
		return nil, cursor, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	if page.err != nil {
		return nil, cursor, page.err
	}
	return page.fills, page.next, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Send(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	reports []CycleReport
	hedges  []HedgeRecord
}

func (r *fakeRecorder) RecordCycle(report CycleReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *fakeRecorder) RecordHedge(record HedgeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hedges = append(r.hedges, record)
}

func (r *fakeRecorder) last() CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports[len(r.reports)-1]
}

const baseMS = int64(1_700_000_000_000)

type harness struct {
	engine   *Engine
	log      *callLog
	primary  *fakePrimary
	hedge    *fakeHedge
	notifier *fakeNotifier
	recorder *fakeRecorder
}

func testConfig() Config {
	return Config{
		PrimarySymbol: "btcusdt",
		HedgeSymbol:   "BTC-USDT",
		PriceDigits:   2,
		SlipPoint:     d("0.10"),
		SlipRatio:     d("0.005"),
		Sizing: SizingParams{
			PriceDepth:    d("2"),
			Ratio:         d("0.8"),
			PrimaryMinLot: d("0.0001"),
			HedgeMinLot:   d("0.001"),
			FloorSize:     d("0.001"),
			VolumeDigits:  4,
		},
	}
}

func newHarness() *harness {
	log := &callLog{}
	h := &harness{
		log: log,
		primary: &fakePrimary{
			log:      log,
			balances: Balances{Base: d("0.01"), Quote: d("1000")},
			fees:     FeeSchedule{Taker: d("0.002"), Maker: d("0.002")},
		},
		hedge: &fakeHedge{
			log:      log,
			balances: Balances{Base: d("0.05"), Quote: d("10")},
			fees:     FeeSchedule{Taker: d("0.0015"), Maker: d("0.001")},
		},
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
	}
	engine, err := NewEngine(testConfig(), Deps{
		Primary:  h.primary,
		Hedge:    h.hedge,
		Notifier: h.notifier,
		Recorder: h.recorder,
		Now:      func() time.Time { return time.UnixMilli(baseMS) },
	})
	if err != nil {
		panic(err)
	}
	h.engine = engine
	return h
}

func depthTick(ts int64) market.Tick {
	return market.Tick{
		Kind:      market.KindDepth,
		Timestamp: ts,
		Asks: []market.Level{
			{Price: d("100.00"), Size: d("0.02")},
			{Price: d("100.50"), Size: d("0.5")},
		},
		Bids: []market.Level{
			{Price: d("99.90"), Size: d("0.03")},
			{Price: d("99.80"), Size: d("1")},
		},
	}
}

func tradeTick(ts int64) market.Tick {
	return market.Tick{
		Kind:      market.KindTrade,
		Timestamp: ts,
		Trade:     &market.Trade{ID: "1", IsBuy: true, Price: d("100.00"), Size: d("0.1")},
	}
}
