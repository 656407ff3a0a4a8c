package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shadow-hedger/internal/exec"
	"shadow-hedger/internal/hedge"
	"shadow-hedger/internal/huobi"
	"shadow-hedger/internal/okx"
	"shadow-hedger/internal/state"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	venuePrimary = "primary"
	venueHedge   = "hedge"
)

type primaryAPI interface {
	Balances(ctx context.Context) (huobi.Balances, error)
	FeeRate(ctx context.Context, symbol string) (huobi.FeeRate, error)
	PlaceOrder(ctx context.Context, order huobi.Order) (string, error)
}

type hedgeAPI interface {
	Available(ctx context.Context, currency string) (decimal.Decimal, error)
	TradeFee(ctx context.Context, instrument string) (okx.Fee, error)
	PendingOrders(ctx context.Context, instrument string) ([]string, error)
	CancelOrder(ctx context.Context, instrument, orderID string) error
	PlaceOrder(ctx context.Context, order okx.Order) (string, error)
	Fills(ctx context.Context, instrument, before string) ([]okx.Fill, string, error)
}

// assets are the lower-case base and quote currencies of the traded pair.
type assets struct {
	Base  string
	Quote string
}

// pairAssets splits an instrument id such as "BTC-USDT".
func pairAssets(instrument string) (assets, error) {
	base, quote, ok := strings.Cut(okx.NormalizeInstrument(instrument), "-")
	if !ok || base == "" || quote == "" {
		return assets{}, fmt.Errorf("cannot derive assets from instrument %q", instrument)
	}
	return assets{Base: strings.ToLower(base), Quote: strings.ToLower(quote)}, nil
}

// primaryVenue exposes the huobi client as hedge.PrimaryExchange. Orders go
// through an idempotent executor keyed by client order id.
type primaryVenue struct {
	api    primaryAPI
	assets assets
	orders *exec.Executor
}

func newPrimaryVenue(api primaryAPI, a assets, store state.Store, log *zap.Logger) *primaryVenue {
	p := &primaryVenue{api: api, assets: a}
	p.orders = exec.New(venuePrimary, exec.PlacerFunc(p.submit), store, log)
	return p
}

func (p *primaryVenue) Balances(ctx context.Context) (hedge.Balances, error) {
	balances, err := p.api.Balances(ctx)
	if err != nil {
		return hedge.Balances{}, err
	}
	return hedge.Balances{Base: balances.Get(p.assets.Base), Quote: balances.Get(p.assets.Quote)}, nil
}

func (p *primaryVenue) FeeSchedule(ctx context.Context, symbol string) (hedge.FeeSchedule, error) {
	rate, err := p.api.FeeRate(ctx, symbol)
	if err != nil {
		return hedge.FeeSchedule{}, err
	}
	return hedge.FeeSchedule{Taker: rate.Taker, Maker: rate.Maker}, nil
}

func (p *primaryVenue) PlaceLimitOrder(ctx context.Context, order hedge.OrderRequest) (string, error) {
	return p.orders.PlaceLimitOrder(ctx, order)
}

func (p *primaryVenue) submit(ctx context.Context, order hedge.OrderRequest) (string, error) {
	return p.api.PlaceOrder(ctx, huobi.Order{
		Symbol:        order.Symbol,
		IsBuy:         order.Side == hedge.SideBuy,
		Price:         order.Price,
		Amount:        order.Size,
		ClientOrderID: order.ClientOrderID,
	})
}

// hedgeVenue exposes the okx client as hedge.HedgeExchange.
type hedgeVenue struct {
	api    hedgeAPI
	assets assets
	orders *exec.Executor
}

func newHedgeVenue(api hedgeAPI, a assets, store state.Store, log *zap.Logger) *hedgeVenue {
	h := &hedgeVenue{api: api, assets: a}
	h.orders = exec.New(venueHedge, exec.PlacerFunc(h.submit), store, log)
	return h
}

func (h *hedgeVenue) Balances(ctx context.Context) (hedge.Balances, error) {
	base, err := h.api.Available(ctx, h.assets.Base)
	if err != nil {
		return hedge.Balances{}, err
	}
	quote, err := h.api.Available(ctx, h.assets.Quote)
	if err != nil {
		return hedge.Balances{}, err
	}
	return hedge.Balances{Base: base, Quote: quote}, nil
}

func (h *hedgeVenue) FeeSchedule(ctx context.Context, symbol string) (hedge.FeeSchedule, error) {
	fee, err := h.api.TradeFee(ctx, symbol)
	if err != nil {
		return hedge.FeeSchedule{}, err
	}
	return hedge.FeeSchedule{Taker: fee.Taker, Maker: fee.Maker}, nil
}

func (h *hedgeVenue) PlaceLimitOrder(ctx context.Context, order hedge.OrderRequest) (string, error) {
	return h.orders.PlaceLimitOrder(ctx, order)
}

func (h *hedgeVenue) submit(ctx context.Context, order hedge.OrderRequest) (string, error) {
	return h.api.PlaceOrder(ctx, okx.Order{
		Instrument:    order.Symbol,
		IsBuy:         order.Side == hedge.SideBuy,
		Price:         order.Price,
		Size:          order.Size,
		ClientOrderID: order.ClientOrderID,
	})
}

func (h *hedgeVenue) OpenOrders(ctx context.Context, symbol string) ([]string, error) {
	return h.api.PendingOrders(ctx, symbol)
}

func (h *hedgeVenue) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if orderID == "" {
		return errors.New("cancel order id is required")
	}
	return h.api.CancelOrder(ctx, symbol, orderID)
}

func (h *hedgeVenue) FillsSince(ctx context.Context, symbol string, cursor hedge.FillCursor) ([]hedge.Fill, hedge.FillCursor, error) {
	raw, next, err := h.api.Fills(ctx, symbol, string(cursor))
	if err != nil {
		return nil, cursor, err
	}
	fills := make([]hedge.Fill, 0, len(raw))
	for _, f := range raw {
		side := hedge.SideSell
		if f.IsBuy {
			side = hedge.SideBuy
		}
		fills = append(fills, hedge.Fill{
			TradeID: f.TradeID,
			OrderID: f.OrderID,
			Side:    side,
			Price:   f.Price,
			Size:    f.Size,
		})
	}
	return fills, hedge.FillCursor(next), nil
}
