// Package okx is the hedge venue client: the venue the shadow ladder is quoted
// into and whose fills are offset on the primary venue.
package okx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shadow-hedger/internal/venue"
	"shadow-hedger/internal/venue/rest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://www.okex.com"

	// post-only keeps the resting quotes on the maker side.
	orderTypePostOnly = "1"
	fillsPageLimit    = "100"
	headerBefore      = "OK-BEFORE"
	sideBuy           = "buy"
	sideSell          = "sell"
)

type Client struct {
	rest *rest.Client
	log  *zap.Logger
}

type Fee struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

func NewClient(baseURL string, timeout time.Duration, ratePerSec float64, signer *Signer, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	var s rest.Signer
	if signer != nil {
		s = signer
	}
	return &Client{rest: rest.New(baseURL, timeout, ratePerSec, s, log), log: log}
}

// Available returns the spendable amount of one currency.
func (c *Client) Available(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return decimal.Zero, errors.New("currency is required")
	}
	var acct accountResponse
	resp, err := c.rest.Get(ctx, "/api/spot/v3/accounts/"+currency, nil)
	if err := c.decode("account", resp, err, &acct); err != nil {
		return decimal.Zero, err
	}
	return acct.Available, nil
}

func (c *Client) TradeFee(ctx context.Context, instrument string) (Fee, error) {
	var fee feeResponse
	query := url.Values{}
	if instrument != "" {
		query.Set("instrument_id", NormalizeInstrument(instrument))
	}
	resp, err := c.rest.Get(ctx, "/api/spot/v3/trade_fee", query)
	if err := c.decode("trade-fee", resp, err, &fee); err != nil {
		return Fee{}, err
	}
	return Fee{Maker: fee.Maker, Taker: fee.Taker}, nil
}

// PendingOrders lists the ids of open orders on one instrument.
func (c *Client) PendingOrders(ctx context.Context, instrument string) ([]string, error) {
	var orders []pendingOrder
	resp, err := c.rest.Get(ctx, "/api/spot/v3/orders_pending", url.Values{"instrument_id": {NormalizeInstrument(instrument)}})
	if err := c.decode("orders-pending", resp, err, &orders); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		if order.OrderID == "" {
			continue
		}
		ids = append(ids, order.OrderID)
	}
	return ids, nil
}

func (c *Client) CancelOrder(ctx context.Context, instrument, orderID string) error {
	if orderID == "" {
		return errors.New("cancel order id is required")
	}
	var out placeResponse
	resp, err := c.rest.Post(ctx, "/api/spot/v3/cancel_orders/"+url.PathEscape(orderID), nil, cancelRequest{InstrumentID: NormalizeInstrument(instrument)})
	if err := c.decode("cancel-order", resp, err, &out); err != nil {
		return err
	}
	return resultError("cancel-order", out)
}

// PlaceOrder submits a post-only limit order. An empty client order id is
// replaced with a generated one.
func (c *Client) PlaceOrder(ctx context.Context, order Order) (string, error) {
	if !order.Size.IsPositive() || !order.Price.IsPositive() {
		return "", fmt.Errorf("invalid order size %s price %s", order.Size, order.Price)
	}
	side := sideSell
	if order.IsBuy {
		side = sideBuy
	}
	clientOID := order.ClientOrderID
	if clientOID == "" {
		clientOID = NewClientOID()
	}
	req := placeRequest{
		ClientOID:    clientOID,
		Type:         "limit",
		Side:         side,
		InstrumentID: NormalizeInstrument(order.Instrument),
		OrderType:    orderTypePostOnly,
		Price:        order.Price.String(),
		Size:         order.Size.String(),
	}
	var out placeResponse
	resp, err := c.rest.Post(ctx, "/api/spot/v3/orders", nil, req)
	if err := c.decode("place-order", resp, err, &out); err != nil {
		return "", err
	}
	if err := resultError("place-order", out); err != nil {
		return "", err
	}
	if out.OrderID == "" {
		return "", &venue.ProtocolError{Op: "place-order", Err: errors.New("missing order id")}
	}
	return out.OrderID, nil
}

// Fills returns the fills newer than the before cursor, oldest first, and the
// cursor to use next time. An empty before returns the latest page. When the
// venue reports no newer cursor the input cursor is returned unchanged.
func (c *Client) Fills(ctx context.Context, instrument, before string) ([]Fill, string, error) {
	instrument = NormalizeInstrument(instrument)
	query := url.Values{
		"instrument_id": {instrument},
		"limit":         {fillsPageLimit},
	}
	if before != "" {
		query.Set("before", before)
	}
	var entries []fillEntry
	resp, err := c.rest.Get(ctx, "/api/spot/v3/fills", query)
	if err := c.decode("fills", resp, err, &entries); err != nil {
		return nil, before, err
	}
	next := before
	if header := strings.TrimSpace(resp.Header.Get(headerBefore)); header != "" {
		next = header
	} else if len(entries) > 0 && entries[0].LedgerID != "" {
		next = entries[0].LedgerID
	}
	return collapseFills(entries, BaseCurrency(instrument)), next, nil
}

// collapseFills keeps one entry per trade (the venue reports a ledger line per
// currency leg) and reverses the newest-first page.
func collapseFills(entries []fillEntry, base string) []Fill {
	seen := make(map[string]struct{}, len(entries))
	fills := make([]Fill, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Currency != "" && base != "" && !strings.EqualFold(entry.Currency, base) {
			continue
		}
		key := entry.TradeID
		if key == "" {
			key = entry.LedgerID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fills = append(fills, Fill{
			LedgerID: entry.LedgerID,
			TradeID:  key,
			OrderID:  entry.OrderID,
			IsBuy:    strings.EqualFold(entry.Side, sideBuy),
			Price:    entry.Price,
			Size:     entry.Size,
		})
	}
	return fills
}

// NewClientOID returns an id that starts with a letter and fits in 32 characters.
func NewClientOID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "q" + id[:31]
}

func (c *Client) decode(op string, resp *rest.Response, err error, out any) error {
	if err != nil {
		var rej *venue.RejectionError
		if errors.As(err, &rej) && resp != nil {
			var body errorBody
			if rest.Decode(op, resp, &body) == nil {
				rej.Code = body.Code.String()
				if body.Message != "" {
					rej.Message = body.Message
				}
			}
		}
		return fmt.Errorf("okx %s: %w", op, err)
	}
	if err := rest.Decode(op, resp, out); err != nil {
		return fmt.Errorf("okx %s: %w", op, err)
	}
	return nil
}

func resultError(op string, out placeResponse) error {
	errCode := out.ErrorCode.String()
	if out.Result && (errCode == "" || errCode == "0") {
		return nil
	}
	return fmt.Errorf("okx %s: %w", op, &venue.RejectionError{Op: op, Code: errCode, Message: out.ErrorMessage})
}
