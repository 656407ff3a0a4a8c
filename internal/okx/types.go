package okx

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// code is a venue error code sent either as a JSON number or string.
type code string

func (c *code) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = code(n.String())
	return nil
}

func (c code) String() string { return string(c) }

type errorBody struct {
	Code    code   `json:"code"`
	Message string `json:"message"`
}

type accountResponse struct {
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	Hold      decimal.Decimal `json:"hold"`
}

type feeResponse struct {
	Maker decimal.Decimal `json:"maker"`
	Taker decimal.Decimal `json:"taker"`
}

type pendingOrder struct {
	OrderID      string `json:"order_id"`
	ClientOID    string `json:"client_oid"`
	InstrumentID string `json:"instrument_id"`
	Side         string `json:"side"`
}

type placeRequest struct {
	ClientOID    string `json:"client_oid,omitempty"`
	Type         string `json:"type"`
	Side         string `json:"side"`
	InstrumentID string `json:"instrument_id"`
	OrderType    string `json:"order_type"`
	Price        string `json:"price"`
	Size         string `json:"size"`
}

type placeResponse struct {
	OrderID      string `json:"order_id"`
	ClientOID    string `json:"client_oid"`
	Result       bool   `json:"result"`
	ErrorCode    code   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type cancelRequest struct {
	InstrumentID string `json:"instrument_id"`
}

type fillEntry struct {
	LedgerID     string          `json:"ledger_id"`
	TradeID      string          `json:"trade_id"`
	OrderID      string          `json:"order_id"`
	InstrumentID string          `json:"instrument_id"`
	Currency     string          `json:"currency"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	ExecType     string          `json:"exec_type"`
	Timestamp    string          `json:"timestamp"`
}

// Fill is one executed trade on the hedge venue.
type Fill struct {
	LedgerID string
	TradeID  string
	OrderID  string
	IsBuy    bool
	Price    decimal.Decimal
	Size     decimal.Decimal
}

type Order struct {
	Instrument    string
	IsBuy         bool
	Price         decimal.Decimal
	Size          decimal.Decimal
	ClientOrderID string
}

// NormalizeInstrument turns "btc_usdt" or "btcusdt/usdt" style input into "BTC-USDT".
func NormalizeInstrument(instrument string) string {
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	instrument = strings.ReplaceAll(instrument, "_", "-")
	instrument = strings.ReplaceAll(instrument, "/", "-")
	return instrument
}

// BaseCurrency returns the base leg of an instrument id, "BTC" for "BTC-USDT".
func BaseCurrency(instrument string) string {
	base, _, _ := strings.Cut(NormalizeInstrument(instrument), "-")
	return base
}
