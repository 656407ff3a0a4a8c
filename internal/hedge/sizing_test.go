package hedge

import "testing"

func exampleParams() SizingParams {
	return testConfig().Sizing
}

func TestComputeSizingExample(t *testing.T) {
	out := ComputeSizing(SizingInputs{
		Primary:      Balances{Quote: d("1000")},
		Hedge:        Balances{Base: d("0.05")},
		AskReference: d("100"),
		TopAskSize:   d("0.02"),
	}, exampleParams())

	// min(1000/100/2, 0.05/2, 0.02) * 0.8
	expectDecimal(t, "ask size", "0.016", out.AskSize)
	if out.AskFloored {
		t.Fatalf("ask should not be floored")
	}
}

// Anything below either minimum lot is replaced by the floor size, so quotes
// stay alive at minimum risk.
func TestComputeSizingFloorPolicy(t *testing.T) {
	out := ComputeSizing(SizingInputs{
		Primary:      Balances{Base: d("0.0000001"), Quote: d("0.01")},
		Hedge:        Balances{Base: d("0.0000001"), Quote: d("0.01")},
		AskReference: d("100"),
		BidReference: d("99"),
		TopAskSize:   d("5"),
		TopBidSize:   d("5"),
	}, exampleParams())

	expectDecimal(t, "ask size", "0.001", out.AskSize)
	expectDecimal(t, "bid size", "0.001", out.BidSize)
	if !out.AskFloored || !out.BidFloored {
		t.Fatalf("expected both sides floored, got %+v", out)
	}
}

func TestComputeSizingZeroReferenceFallsToFloor(t *testing.T) {
	out := ComputeSizing(SizingInputs{
		Primary:    Balances{Base: d("1"), Quote: d("1000")},
		Hedge:      Balances{Base: d("1"), Quote: d("1000")},
		TopAskSize: d("1"),
		TopBidSize: d("1"),
	}, exampleParams())
	if !out.AskFloored || !out.BidFloored {
		t.Fatalf("expected both sides floored, got %+v", out)
	}
}

func TestComputeSizingBidPrimaryInventoryBinds(t *testing.T) {
	out := ComputeSizing(SizingInputs{
		Primary:      Balances{Base: d("0.3")},
		Hedge:        Balances{Quote: d("500")},
		BidReference: d("100"),
		TopBidSize:   d("1"),
	}, exampleParams())

	// min(0.3/2, 500/100, 1) * 0.8 = 0.12
	expectDecimal(t, "bid size", "0.12", out.BidSize)
	if out.BidFloored {
		t.Fatalf("bid should not be floored")
	}
}

func TestComputeSizingBidHedgeCapitalIsNotSplitAcrossDepth(t *testing.T) {
	out := ComputeSizing(SizingInputs{
		Primary:      Balances{Base: d("1")},
		Hedge:        Balances{Quote: d("1")},
		BidReference: d("99.50"),
		TopBidSize:   d("1"),
	}, exampleParams())

	// min(1/2, 1/99.50, 1) * 0.8 = 0.00804..., truncated to four places.
	expectDecimal(t, "bid size", "0.008", out.BidSize)
	if out.BidFloored {
		t.Fatalf("bid should not be floored")
	}
}

func TestSideSizeTruncatesVolume(t *testing.T) {
	size, floored := SideSize(d("0.123456"), d("1"), d("1"), exampleParams())
	// 0.123456 * 0.8 = 0.0987648
	expectDecimal(t, "size", "0.0987", size)
	if floored {
		t.Fatalf("size should not be floored")
	}
}

func TestSideSizeHonoursLargerMinimumLot(t *testing.T) {
	// 0.0005 clears the primary lot (0.0001) but not the hedge lot (0.001).
	size, floored := SideSize(d("0.000625"), d("1"), d("1"), exampleParams())
	expectDecimal(t, "size", "0.001", size)
	if !floored {
		t.Fatalf("expected floored size")
	}
}

func TestComputeSizingIsIdempotent(t *testing.T) {
	in := SizingInputs{
		Primary:      Balances{Base: d("0.2"), Quote: d("1000")},
		Hedge:        Balances{Base: d("0.05"), Quote: d("300")},
		AskReference: d("100"),
		BidReference: d("99.5"),
		TopAskSize:   d("0.02"),
		TopBidSize:   d("0.03"),
	}
	first, second := ComputeSizing(in, exampleParams()), ComputeSizing(in, exampleParams())
	if !first.AskSize.Equal(second.AskSize) || !first.BidSize.Equal(second.BidSize) {
		t.Fatalf("sizing changed between calls: %+v vs %+v", first, second)
	}
}
