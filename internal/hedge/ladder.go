package hedge

import "github.com/shopspring/decimal"

// ShadowLadder is the set of prices quoted on the hedge venue, in the same
// order as the source ladder.
type ShadowLadder struct {
	Asks []decimal.Decimal
	Bids []decimal.Decimal
}

func (s ShadowLadder) Empty() bool {
	return len(s.Asks) == 0 && len(s.Bids) == 0
}

type LadderInputs struct {
	Asks        []decimal.Decimal
	Bids        []decimal.Decimal
	Primary     FeeSchedule
	Hedge       FeeSchedule
	SlipPoint   decimal.Decimal
	PriceDigits int32
}

// BuildShadowLadder pushes every ask up and every bid down by the slip point
// plus the primary taker fee and the hedge maker fee, then floors to
// PriceDigits:
//
//	ask' = floor(p + slip + p*primaryTaker + (p+slip)*hedgeMaker)
//	bid' = floor(p - slip - p*primaryTaker - (p-slip)*hedgeMaker)
func BuildShadowLadder(in LadderInputs) ShadowLadder {
	out := ShadowLadder{
		Asks: make([]decimal.Decimal, len(in.Asks)),
		Bids: make([]decimal.Decimal, len(in.Bids)),
	}
	for i, p := range in.Asks {
		shifted := p.Add(in.SlipPoint)
		adj := shifted.Add(p.Mul(in.Primary.Taker)).Add(shifted.Mul(in.Hedge.Maker))
		out.Asks[i] = Floor(adj, in.PriceDigits)
	}
	for i, p := range in.Bids {
		shifted := p.Sub(in.SlipPoint)
		adj := shifted.Sub(p.Mul(in.Primary.Taker)).Sub(shifted.Mul(in.Hedge.Maker))
		out.Bids[i] = Floor(adj, in.PriceDigits)
	}
	return out
}

// HedgePrice is the limit price for offsetting a hedge-venue fill on the
// primary venue: a buy fill is sold at bestBid*(1-slip), a sell fill is bought
// at bestAsk*(1+slip).
func HedgePrice(fill Side, bestBid, bestAsk, slipRatio decimal.Decimal, digits int32) decimal.Decimal {
	if fill == SideBuy {
		return Floor(bestBid.Mul(decimal.NewFromInt(1).Sub(slipRatio)), digits)
	}
	return Floor(bestAsk.Mul(decimal.NewFromInt(1).Add(slipRatio)), digits)
}

// Floor drops digits beyond places; it never rounds up.
func Floor(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundFloor(places)
}
