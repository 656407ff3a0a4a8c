package market

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shadow-hedger/internal/venue"

	"github.com/shopspring/decimal"
)

// MaxLevels caps each side of a depth tick.
const MaxLevels = 20

type frame struct {
	Channel string          `json:"ch"`
	TS      int64           `json:"ts"`
	Tick    json.RawMessage `json:"tick"`
	Status  string          `json:"status"`
	ID      string          `json:"id"`
	ErrCode string          `json:"err-code"`
	ErrMsg  string          `json:"err-msg"`
}

type depthPayload struct {
	Asks [][]decimal.Decimal `json:"asks"`
	Bids [][]decimal.Decimal `json:"bids"`
	TS   int64               `json:"ts"`
}

type tradePayload struct {
	TS   int64        `json:"ts"`
	Data []tradeEntry `json:"data"`
}

type tradeEntry struct {
	ID        json.Number     `json:"id"`
	TradeID   json.Number     `json:"tradeId"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	Direction string          `json:"direction"`
	TS        int64           `json:"ts"`
}

// Decode turns one inflated frame into a Tick. ok is false for frames that
// carry no market data (subscription acks, unknown channels).
func Decode(data []byte) (Tick, bool, error) {
	var f frame
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return Tick{}, false, &venue.ProtocolError{Op: "feed decode", Err: err}
	}
	if f.Status == "error" {
		return Tick{}, false, &venue.RejectionError{Op: "feed subscribe", Code: f.ErrCode, Message: f.ErrMsg}
	}
	switch {
	case f.Channel == "" || len(f.Tick) == 0:
		return Tick{}, false, nil
	case strings.Contains(f.Channel, ".depth."):
		return decodeDepth(f)
	case strings.Contains(f.Channel, ".trade."):
		return decodeTrade(f)
	default:
		return Tick{}, false, nil
	}
}

func decodeDepth(f frame) (Tick, bool, error) {
	var payload depthPayload
	if err := json.Unmarshal(f.Tick, &payload); err != nil {
		return Tick{}, false, &venue.ProtocolError{Op: "feed depth", Err: err}
	}
	asks, err := levels(payload.Asks)
	if err != nil {
		return Tick{}, false, err
	}
	bids, err := levels(payload.Bids)
	if err != nil {
		return Tick{}, false, err
	}
	return Tick{
		Kind:      KindDepth,
		Timestamp: f.TS,
		Asks:      capLevels(asks, MaxLevels),
		Bids:      capLevels(bids, MaxLevels),
	}, true, nil
}

func decodeTrade(f frame) (Tick, bool, error) {
	var payload tradePayload
	if err := json.Unmarshal(f.Tick, &payload); err != nil {
		return Tick{}, false, &venue.ProtocolError{Op: "feed trade", Err: err}
	}
	if len(payload.Data) == 0 {
		return Tick{}, false, &venue.ProtocolError{Op: "feed trade", Err: errors.New("trade tick without data")}
	}
	entry := payload.Data[0]
	id := entry.TradeID.String()
	if id == "" {
		id = entry.ID.String()
	}
	return Tick{
		Kind:      KindTrade,
		Timestamp: f.TS,
		Trade: &Trade{
			ID:    id,
			IsBuy: strings.EqualFold(entry.Direction, "buy"),
			Price: entry.Price,
			Size:  entry.Amount,
		},
	}, true, nil
}

func levels(raw [][]decimal.Decimal) ([]Level, error) {
	out := make([]Level, 0, len(raw))
	for i, pair := range raw {
		if len(pair) < 2 {
			return nil, &venue.ProtocolError{Op: "feed depth", Err: fmt.Errorf("level %d has %d fields", i, len(pair))}
		}
		out = append(out, Level{Price: pair[0], Size: pair[1]})
	}
	return out, nil
}
