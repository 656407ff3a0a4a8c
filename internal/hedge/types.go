package hedge

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// FeeSchedule holds fee fractions (0.002 is 20 bps).
type FeeSchedule struct {
	Taker decimal.Decimal
	Maker decimal.Decimal
}

func (f FeeSchedule) Valid() bool {
	return !f.Taker.IsNegative() && !f.Maker.IsNegative()
}

type Balances struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

func (b Balances) Valid() bool {
	return !b.Base.IsNegative() && !b.Quote.IsNegative()
}

// Account is one venue's per-cycle capital and cost snapshot.
type Account struct {
	Balances Balances
	Fees     FeeSchedule
}

type Fill struct {
	TradeID string
	OrderID string
	Side    Side
	Price   decimal.Decimal
	Size    decimal.Decimal
}

// FillCursor is the venue-assigned marker of the newest reconciled fill.
// The zero value means nothing has been reconciled yet.
type FillCursor string

func (c FillCursor) Empty() bool { return c == "" }

type OrderRequest struct {
	Symbol        string
	Side          Side
	Price         decimal.Decimal
	Size          decimal.Decimal
	ClientOrderID string
}

// PrimaryExchange is the venue hedges are executed on.
type PrimaryExchange interface {
	Balances(ctx context.Context) (Balances, error)
	FeeSchedule(ctx context.Context, symbol string) (FeeSchedule, error)
	PlaceLimitOrder(ctx context.Context, order OrderRequest) (string, error)
}

// HedgeExchange is the venue the shadow ladder is quoted into.
type HedgeExchange interface {
	Balances(ctx context.Context) (Balances, error)
	FeeSchedule(ctx context.Context, symbol string) (FeeSchedule, error)
	PlaceLimitOrder(ctx context.Context, order OrderRequest) (string, error)
	OpenOrders(ctx context.Context, symbol string) ([]string, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	FillsSince(ctx context.Context, symbol string, cursor FillCursor) ([]Fill, FillCursor, error)
}

type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Recorder receives cycle and hedge records for offline analysis.
type Recorder interface {
	RecordCycle(report CycleReport)
	RecordHedge(record HedgeRecord)
}

type HedgeRecord struct {
	TimeMS        int64
	Fill          Fill
	Side          Side
	Price         decimal.Decimal
	OrderID       string
	ClientOrderID string
	Err           string
}

// After reports whether c is strictly newer than other. Numeric cursors are
// compared by value; opaque ones are newer whenever they differ.
func (c FillCursor) After(other FillCursor) bool {
	if c.Empty() || c == other {
		return false
	}
	if other.Empty() {
		return true
	}
	cur, err1 := strconv.ParseInt(string(c), 10, 64)
	prev, err2 := strconv.ParseInt(string(other), 10, 64)
	if err1 != nil || err2 != nil {
		return true
	}
	return cur > prev
}
