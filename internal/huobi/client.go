// Package huobi is the primary venue client: balances, fee rates and limit
// orders used to offset fills taken on the hedge venue.
package huobi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"shadow-hedger/internal/venue"
	"shadow-hedger/internal/venue/rest"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.huobi.pro"

	balanceTypeTrade = "trade"
	accountTypeSpot  = "spot"
	statusOK         = "ok"
)

var ErrAccountUnresolved = errors.New("huobi account id not resolved")

type Client struct {
	rest *rest.Client
	log  *zap.Logger

	mu        sync.RWMutex
	accountID string
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
	return &Client{
		rest: rest.New(baseURL, timeout, ratePerSec, s, log),
		log:  log,
	}
}

// ResolveAccount looks up the spot account id once. Every account-scoped call
// depends on it, so startup fails when it cannot be resolved.
func (c *Client) ResolveAccount(ctx context.Context) (string, error) {
	if id := c.AccountID(); id != "" {
		return id, nil
	}
	var accounts []account
	if err := c.call(ctx, "accounts", func() (*rest.Response, error) {
		return c.rest.Get(ctx, "/v1/account/accounts", nil)
	}, &accounts); err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", errors.New("huobi returned no accounts")
	}
	chosen := accounts[0]
	for _, acct := range accounts {
		if acct.Type == accountTypeSpot {
			chosen = acct
			break
		}
	}
	id := strconv.FormatInt(chosen.ID, 10)
	c.mu.Lock()
	c.accountID = id
	c.mu.Unlock()
	c.log.Info("huobi account resolved", zap.String("account_id", id), zap.String("type", chosen.Type))
	return id, nil
}

func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

// Balances returns the tradable (type "trade") balance per currency.
func (c *Client) Balances(ctx context.Context) (Balances, error) {
	id := c.AccountID()
	if id == "" {
		return nil, ErrAccountUnresolved
	}
	path := fmt.Sprintf("/v1/account/accounts/%s/balance", id)
	var data balanceData
	if err := c.call(ctx, "balance", func() (*rest.Response, error) {
		return c.rest.Get(ctx, path, url.Values{"account-id": {id}})
	}, &data); err != nil {
		return nil, err
	}
	out := make(Balances)
	for _, entry := range data.List {
		if entry.Type != balanceTypeTrade {
			continue
		}
		out[strings.ToLower(entry.Currency)] = entry.Balance
	}
	return out, nil
}

func (c *Client) FeeRate(ctx context.Context, symbol string) (FeeRate, error) {
	symbol = NormalizeSymbol(symbol)
	var rates []feeRate
	if err := c.call(ctx, "fee-rate", func() (*rest.Response, error) {
		return c.rest.Get(ctx, "/v1/fee/fee-rate/get", url.Values{"symbols": {symbol}})
	}, &rates); err != nil {
		return FeeRate{}, err
	}
	for _, rate := range rates {
		if rate.Symbol == "" || NormalizeSymbol(rate.Symbol) == symbol {
			return FeeRate{Maker: rate.MakerFee, Taker: rate.TakerFee}, nil
		}
	}
	return FeeRate{}, &venue.ProtocolError{Op: "fee-rate", Err: fmt.Errorf("no fee entry for %s", symbol)}
}

// PlaceOrder submits a limit order and returns the venue order id.
func (c *Client) PlaceOrder(ctx context.Context, order Order) (string, error) {
	id := c.AccountID()
	if id == "" {
		return "", ErrAccountUnresolved
	}
	if !order.Amount.IsPositive() || !order.Price.IsPositive() {
		return "", fmt.Errorf("invalid order amount %s price %s", order.Amount, order.Price)
	}
	orderType := "sell-limit"
	if order.IsBuy {
		orderType = "buy-limit"
	}
	req := placeRequest{
		AccountID:     id,
		Symbol:        NormalizeSymbol(order.Symbol),
		Type:          orderType,
		Amount:        order.Amount.String(),
		Price:         order.Price.String(),
		ClientOrderID: order.ClientOrderID,
	}
	var orderID string
	if err := c.call(ctx, "place-order", func() (*rest.Response, error) {
		return c.rest.Post(ctx, "/v1/order/orders/place", nil, req)
	}, &orderID); err != nil {
		return "", err
	}
	if orderID == "" {
		return "", &venue.ProtocolError{Op: "place-order", Err: errors.New("missing order id")}
	}
	return orderID, nil
}

func (c *Client) call(ctx context.Context, op string, send func() (*rest.Response, error), out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := send()
	if err != nil {
		return fmt.Errorf("huobi %s: %w", op, err)
	}
	var env envelope
	if err := rest.Decode(op, resp, &env); err != nil {
		return fmt.Errorf("huobi %s: %w", op, err)
	}
	if env.Status != statusOK {
		return fmt.Errorf("huobi %s: %w", op, &venue.RejectionError{Op: op, Code: env.ErrCode, Message: env.ErrMsg})
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("huobi %s: %w", op, &venue.ProtocolError{Op: op, Err: err})
	}
	return nil
}
