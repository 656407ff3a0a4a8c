package market

import "github.com/shopspring/decimal"

type Kind int

const (
	KindDepth Kind = iota + 1
	KindTrade
)

func (k Kind) String() string {
	switch k {
	case KindDepth:
		return "depth"
	case KindTrade:
		return "trade"
	default:
		return "unknown"
	}
}

type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

type Trade struct {
	ID    string
	IsBuy bool
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Tick is one decoded feed event. Depth ticks carry both ladders ordered
// best to worst; trade ticks carry a single trade. Timestamp is exchange
// time in epoch milliseconds.
type Tick struct {
	Kind      Kind
	Timestamp int64
	Asks      []Level
	Bids      []Level
	Trade     *Trade
}

// Ladder is the cached order book used to derive prices.
type Ladder struct {
	Asks []Level
	Bids []Level
}

func (l Ladder) Empty() bool {
	return len(l.Asks) == 0 || len(l.Bids) == 0
}

func (l Ladder) BestAsk() (Level, bool) {
	if len(l.Asks) == 0 {
		return Level{}, false
	}
	return l.Asks[0], true
}

func (l Ladder) BestBid() (Level, bool) {
	if len(l.Bids) == 0 {
		return Level{}, false
	}
	return l.Bids[0], true
}

// AskPrices and BidPrices project the ladder onto its price column.
func (l Ladder) AskPrices() []decimal.Decimal {
	return prices(l.Asks)
}

func (l Ladder) BidPrices() []decimal.Decimal {
	return prices(l.Bids)
}

func prices(levels []Level) []decimal.Decimal {
	out := make([]decimal.Decimal, len(levels))
	for i, lvl := range levels {
		out[i] = lvl.Price
	}
	return out
}

func capLevels(levels []Level, max int) []Level {
	if max > 0 && len(levels) > max {
		levels = levels[:max]
	}
	return append([]Level(nil), levels...)
}
