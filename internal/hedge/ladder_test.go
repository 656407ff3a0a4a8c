package hedge

import (
	"testing"

	"github.com/shopspring/decimal"
)

func exampleInputs() LadderInputs {
	return LadderInputs{
		Asks:        []decimal.Decimal{d("100.00"), d("100.50")},
		Bids:        []decimal.Decimal{d("99.90"), d("99.80")},
		Primary:     FeeSchedule{Taker: d("0.002")},
		Hedge:       FeeSchedule{Maker: d("0.001")},
		SlipPoint:   d("0.10"),
		PriceDigits: 2,
	}
}

func TestBuildShadowLadderExample(t *testing.T) {
	out := BuildShadowLadder(exampleInputs())

	// 100.00 + 0.10 + 0.20 + 0.1001 = 100.4001, truncated.
	expectDecimal(t, "ask 0", "100.40", out.Asks[0])
	expectDecimal(t, "ask 1", "100.90", out.Asks[1])
	expectDecimal(t, "bid 0", "99.50", out.Bids[0])
	expectDecimal(t, "bid 1", "99.40", out.Bids[1])
}

func TestBuildShadowLadderBoundsAndOrder(t *testing.T) {
	in := LadderInputs{
		Asks:        []decimal.Decimal{d("27001.17"), d("27001.5"), d("27010"), d("27100.99")},
		Bids:        []decimal.Decimal{d("27000.99"), d("26999"), d("26900.01")},
		Primary:     FeeSchedule{Taker: d("0.002")},
		Hedge:       FeeSchedule{Maker: d("0.0008")},
		SlipPoint:   d("0.3"),
		PriceDigits: 1,
	}
	out := BuildShadowLadder(in)
	if len(out.Asks) != len(in.Asks) || len(out.Bids) != len(in.Bids) {
		t.Fatalf("expected %d/%d levels, got %d/%d", len(in.Asks), len(in.Bids), len(out.Asks), len(out.Bids))
	}

	// Truncation may shave at most one tick off the adjusted price.
	tick := d("0.1")
	for i, p := range in.Asks {
		if out.Asks[i].LessThan(p.Add(in.SlipPoint).Sub(tick)) || !out.Asks[i].GreaterThan(p) {
			t.Fatalf("ask %d out of bounds: raw %s shadow %s", i, p, out.Asks[i])
		}
		if i > 0 && out.Asks[i].LessThan(out.Asks[i-1]) {
			t.Fatalf("ask order broken at %d", i)
		}
	}
	for i, p := range in.Bids {
		if out.Bids[i].GreaterThan(p.Sub(in.SlipPoint)) {
			t.Fatalf("bid %d out of bounds: raw %s shadow %s", i, p, out.Bids[i])
		}
		if i > 0 && out.Bids[i].GreaterThan(out.Bids[i-1]) {
			t.Fatalf("bid order broken at %d", i)
		}
	}
}

func TestBuildShadowLadderZeroFeesKeepsSlipOnly(t *testing.T) {
	out := BuildShadowLadder(LadderInputs{
		Asks:        []decimal.Decimal{d("10.00")},
		Bids:        []decimal.Decimal{d("9.99")},
		SlipPoint:   d("0.01"),
		PriceDigits: 2,
	})
	expectDecimal(t, "ask", "10.01", out.Asks[0])
	expectDecimal(t, "bid", "9.98", out.Bids[0])
}

func TestBuildShadowLadderIsIdempotent(t *testing.T) {
	in := exampleInputs()
	first := BuildShadowLadder(in)
	second := BuildShadowLadder(in)
	for i := range first.Asks {
		if !first.Asks[i].Equal(second.Asks[i]) {
			t.Fatalf("ask %d changed between builds", i)
		}
	}
	for i := range first.Bids {
		if !first.Bids[i].Equal(second.Bids[i]) {
			t.Fatalf("bid %d changed between builds", i)
		}
	}
	expectDecimal(t, "input ask", "100.00", in.Asks[0])
}

func TestBuildShadowLadderEmpty(t *testing.T) {
	if out := BuildShadowLadder(LadderInputs{PriceDigits: 2}); !out.Empty() {
		t.Fatalf("expected empty ladder, got %+v", out)
	}
}

func TestHedgePrice(t *testing.T) {
	expectDecimal(t, "buy fill hedge", "99.40", HedgePrice(SideBuy, d("99.90"), d("100.00"), d("0.005"), 2))
	expectDecimal(t, "sell fill hedge", "100.50", HedgePrice(SideSell, d("99.90"), d("100.00"), d("0.005"), 2))
	// 101 * 1.005 = 101.505 is truncated, never rounded up.
	expectDecimal(t, "truncated hedge", "101.50", HedgePrice(SideSell, d("100"), d("101"), d("0.005"), 2))
}

func TestFloorNeverRoundsUp(t *testing.T) {
	expectDecimal(t, "floor", "1.99", Floor(d("1.999"), 2))
	expectDecimal(t, "floor", "-1.21", Floor(d("-1.201"), 2))
	expectDecimal(t, "floor", "5", Floor(d("5.9"), 0))
}
