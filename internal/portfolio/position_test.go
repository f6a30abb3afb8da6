package portfolio

import (
	"math"
	"math/big"
	"testing"
)

func fullInput() PositionInput {
	return PositionInput{
		ShareBalance:     big.NewInt(1_000_000),
		AssetsEquivalent: big.NewInt(1_100_000),
		TotalAssets:      big.NewInt(11_000_000),
		TotalSupply:      big.NewInt(10_000_000),
		Decimals:         6,
		PriceUSD:         10,
		APY:              5,
	}
}

func TestResolvePosition(t *testing.T) {
	got := ResolvePosition(fullInput())

	if !got.Resolved {
		t.Fatalf("expected resolved position")
	}
	if math.Abs(got.SharePrice-1.1) > 1e-12 {
		t.Fatalf("share price: got %v want 1.1", got.SharePrice)
	}
	if math.Abs(got.TokenAmount-1.1) > 1e-9 {
		t.Fatalf("token amount: got %v want 1.1", got.TokenAmount)
	}
	if math.Abs(got.USDValue-11) > 1e-9 {
		t.Fatalf("usd value: got %v want 11", got.USDValue)
	}
	if got.APY != 5 {
		t.Fatalf("apy: got %v want 5", got.APY)
	}
}

func TestResolvePositionZeroSupply(t *testing.T) {
	in := fullInput()
	in.TotalSupply = big.NewInt(0)
	in.TotalAssets = big.NewInt(0)

	got := ResolvePosition(in)

	if got.SharePrice != 1.0 {
		t.Fatalf("empty vault must have unit share price: got %v", got.SharePrice)
	}
	if !got.Resolved {
		t.Fatalf("position with zero supply is still resolved")
	}
}

func TestResolvePositionMissingInput(t *testing.T) {
	cases := []func(*PositionInput){
		func(in *PositionInput) { in.ShareBalance = nil },
		func(in *PositionInput) { in.AssetsEquivalent = nil },
		func(in *PositionInput) { in.TotalAssets = nil },
		func(in *PositionInput) { in.TotalSupply = nil },
	}

	for i, clear := range cases {
		in := fullInput()
		clear(&in)
		got := ResolvePosition(in)
		if got.Resolved {
			t.Fatalf("case %d: missing input must yield unresolved position", i)
		}
		if got.USDValue != 0 {
			t.Fatalf("case %d: unresolved position must not carry a partial value", i)
		}
	}
}

func TestConversionDivergenceAgreement(t *testing.T) {
	in := fullInput()
	// assetsEquivalent 1.1 tokens exactly matches 1.0 shares at price 1.1.
	if got := ConversionDivergence(in); got > 1e-9 {
		t.Fatalf("agreeing sources must not diverge: %v", got)
	}
}

func TestConversionDivergenceDetected(t *testing.T) {
	in := fullInput()
	in.AssetsEquivalent = big.NewInt(2_200_000)

	got := ConversionDivergence(in)
	if got < 0.4 {
		t.Fatalf("doubled conversion must register: %v", got)
	}
}

func TestConversionDivergenceZeroPosition(t *testing.T) {
	in := fullInput()
	in.ShareBalance = big.NewInt(0)
	in.AssetsEquivalent = big.NewInt(0)

	if got := ConversionDivergence(in); got != 0 {
		t.Fatalf("empty position has no divergence: %v", got)
	}
}
