package hedge

import "github.com/shopspring/decimal"

// SizingParams are the static inputs of the sizing rule.
type SizingParams struct {
	// PriceDepth spreads capital across the ladder; 2 means each quote may use half.
	PriceDepth    decimal.Decimal
	Ratio         decimal.Decimal
	PrimaryMinLot decimal.Decimal
	HedgeMinLot   decimal.Decimal
	// FloorSize replaces any size below either venue's minimum lot. This keeps
	// the quote alive at minimum risk instead of withdrawing it, even when it
	// exceeds the capital-derived capacity.
	FloorSize    decimal.Decimal
	VolumeDigits int32
}

type SizingInputs struct {
	Primary Balances
	Hedge   Balances
	// AskReference prices the primary quote balance into base units for the ask side.
	AskReference decimal.Decimal
	// BidReference is the best shadow bid; it prices the hedge quote balance
	// into base units for the bid side.
	BidReference decimal.Decimal
	TopAskSize   decimal.Decimal
	TopBidSize   decimal.Decimal
}

type OrderSizing struct {
	AskSize decimal.Decimal
	BidSize decimal.Decimal
	// AskFloored and BidFloored report that the floor size replaced the computed one.
	AskFloored bool
	BidFloored bool
}

// ComputeSizing sizes both sides. A resting ask on the hedge venue is hedged by
// buying on the primary venue, so the ask is bounded by primary quote capital
// and hedge base inventory; the bid by primary base inventory and the hedge
// quote capital the bid itself spends. That last cap is the whole balance
// priced at the best shadow bid, not split across PriceDepth.
func ComputeSizing(in SizingInputs, p SizingParams) OrderSizing {
	askPrimary := perLevel(quoteToBase(in.Primary.Quote, in.AskReference), p.PriceDepth)
	askHedge := perLevel(in.Hedge.Base, p.PriceDepth)
	bidPrimary := perLevel(in.Primary.Base, p.PriceDepth)
	bidHedge := quoteToBase(in.Hedge.Quote, in.BidReference)

	ask, askFloored := SideSize(askPrimary, askHedge, in.TopAskSize, p)
	bid, bidFloored := SideSize(bidPrimary, bidHedge, in.TopBidSize, p)
	return OrderSizing{AskSize: ask, BidSize: bid, AskFloored: askFloored, BidFloored: bidFloored}
}

// SideSize returns min(primaryCap, hedgeCap, topOfBook) * ratio floored to
// VolumeDigits, or FloorSize when that falls below either minimum lot.
func SideSize(primaryCap, hedgeCap, topOfBook decimal.Decimal, p SizingParams) (decimal.Decimal, bool) {
	size := decimal.Min(primaryCap, hedgeCap, topOfBook).Mul(p.Ratio)
	if size.LessThan(p.PrimaryMinLot) || size.LessThan(p.HedgeMinLot) {
		return p.FloorSize, true
	}
	return Floor(size, p.VolumeDigits), false
}

func quoteToBase(quote, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return quote.Div(price)
}

func perLevel(amount, depth decimal.Decimal) decimal.Decimal {
	if !depth.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(depth)
}
