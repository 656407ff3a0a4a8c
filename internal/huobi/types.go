package huobi

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type envelope struct {
	Status  string          `json:"status"`
	ErrCode string          `json:"err-code"`
	ErrMsg  string          `json:"err-msg"`
	Data    json.RawMessage `json:"data"`
}

type account struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	State string `json:"state"`
}

type balanceData struct {
	ID   int64          `json:"id"`
	List []balanceEntry `json:"list"`
}

type balanceEntry struct {
	Currency string          `json:"currency"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
}

type feeRate struct {
	Symbol   string          `json:"symbol"`
	MakerFee decimal.Decimal `json:"maker-fee"`
	TakerFee decimal.Decimal `json:"taker-fee"`
}

type placeRequest struct {
	AccountID     string `json:"account-id"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Price         string `json:"price"`
	Source        string `json:"source,omitempty"`
	ClientOrderID string `json:"client-order-id,omitempty"`
}

// Balances holds the trade-type balances of one account keyed by lower-case currency.
type Balances map[string]decimal.Decimal

func (b Balances) Get(currency string) decimal.Decimal {
	return b[strings.ToLower(currency)]
}

type FeeRate struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

type Order struct {
	Symbol        string
	IsBuy         bool
	Price         decimal.Decimal
	Amount        decimal.Decimal
	ClientOrderID string
}

// NormalizeSymbol turns "btc_usdt" or "BTC-USDT" into "btcusdt".
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	symbol = strings.ReplaceAll(symbol, "_", "")
	symbol = strings.ReplaceAll(symbol, "-", "")
	symbol = strings.ReplaceAll(symbol, "/", "")
	return symbol
}
