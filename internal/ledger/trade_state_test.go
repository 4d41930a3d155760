package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"soltrader/pkg/amount"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tokens(ui float64) amount.Amount { return amount.TokensUI(ui, 6) }

func lotsOf(t *testing.T, ts *TradeState) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, lot := range ts.Lots() {
		out[lot.Price.String()] = lot.Quantity.String()
	}
	return out
}

func TestAddTokenAmountMergesExactPriceMatch(t *testing.T) {
	ts := NewTradeState("MintA", 6)
	ts.AddTokenAmount(dec("10"), tokens(5))
	ts.AddTokenAmount(dec("10"), tokens(3))

	if ts.ActiveTradeCount() != 1 {
		t.Fatalf("lot count=%d, expected 1", ts.ActiveTradeCount())
	}
	if got := lotsOf(t, ts)["10"]; got != "8" {
		t.Fatalf("merged quantity=%s, expected 8", got)
	}
}

func TestAddTokenAmountKeepsDescendingOrder(t *testing.T) {
	ts := NewTradeState("MintA", 6)
	ts.AddTokenAmount(dec("8"), tokens(3))
	ts.AddTokenAmount(dec("10"), tokens(5))
	ts.AddTokenAmount(dec("9"), tokens(1))

	lots := ts.Lots()
	if len(lots) != 3 {
		t.Fatalf("lot count=%d, expected 3", len(lots))
	}
	for i := 1; i < len(lots); i++ {
		if !lots[i-1].Price.GreaterThan(lots[i].Price) {
			t.Fatalf("lots not strictly descending: %s then %s", lots[i-1].Price, lots[i].Price)
		}
	}
}

func TestSubtractTokenAmountConsumesHighestPriceFirst(t *testing.T) {
	// Given lots {10:5, 8:3}, disposing 6 leaves {8:2}.
	ts := NewTradeState("MintA", 6)
	ts.AddTokenAmount(dec("10"), tokens(5))
	ts.AddTokenAmount(dec("8"), tokens(3))

	ts.SubtractTokenAmount(tokens(6))

	lots := ts.Lots()
	if len(lots) != 1 {
		t.Fatalf("lot count=%d, expected 1 (got %v)", len(lots), lotsOf(t, ts))
	}
	if !lots[0].Price.Equal(dec("8")) || !lots[0].Quantity.Equal(dec("2")) {
		t.Fatalf("remaining lot=%s:%s, expected 8:2", lots[0].Price, lots[0].Quantity)
	}
}

func TestSubtractTokenAmountOversellDropsRemainder(t *testing.T) {
	ts := NewTradeState("MintA", 6)
	ts.AddTokenAmount(dec("10"), tokens(5))

	ts.SubtractTokenAmount(tokens(9))

	if ts.ActiveTradeCount() != 0 {
		t.Fatalf("lot count=%d, expected 0 after oversell", ts.ActiveTradeCount())
	}
	if held := ts.TotalTokensHeld(); held.IsNegative() {
		t.Fatalf("held went negative: %v", held.UI())
	}
}

func TestEstimatedPnl(t *testing.T) {
	tests := []struct {
		name         string
		lots         map[string]float64
		currentPrice string
		qty          float64
		wantPnl      string
		wantPercent  string
		wantComplete bool
	}{
		{
			name:         "single lot profit",
			lots:         map[string]float64{"2": 10},
			currentPrice: "3",
			qty:          10,
			wantPnl:      "10", // (3-2)*10
			wantPercent:  "50", // 10/20*100
			wantComplete: true,
		},
		{
			name:         "weighted average across lots",
			lots:         map[string]float64{"10": 5, "8": 3},
			currentPrice: "12",
			qty:          6,
			// cost = 10*5 + 8*1 = 58, avg = 58/6, pnl = (12-58/6)*6 = 14
			wantPnl:      "14",
			wantPercent:  "24.14", // 14/58*100 rounded at percent resolution
			wantComplete: false,   // one lot still holds quantity
		},
		{
			name:         "loss",
			lots:         map[string]float64{"4": 10},
			currentPrice: "3",
			qty:          10,
			wantPnl:      "-10",
			wantPercent:  "-25",
			wantComplete: true,
		},
		{
			name:         "partial match beyond lots",
			lots:         map[string]float64{"2": 4},
			currentPrice: "2",
			qty:          10,
			wantPnl:      "0",
			wantPercent:  "0",
			wantComplete: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := NewTradeState("MintA", 6)
			// insert lowest price first to exercise reordering
			for _, price := range []string{"2", "3", "4", "8", "10"} {
				if q, ok := tt.lots[price]; ok {
					ts.AddTokenAmount(dec(price), tokens(q))
				}
			}

			pl := ts.EstimatedPnl(dec(tt.currentPrice), tokens(tt.qty))
			if pl == nil {
				t.Fatal("EstimatedPnl returned nil")
			}
			if !pl.Pnl.UIDecimal().Equal(dec(tt.wantPnl)) {
				t.Fatalf("pnl=%s, expected %s", pl.Pnl.UIDecimal(), tt.wantPnl)
			}
			if !pl.PnlPercent.UIDecimal().Equal(dec(tt.wantPercent)) {
				t.Fatalf("percent=%s, expected %s", pl.PnlPercent.UIDecimal(), tt.wantPercent)
			}
			if pl.Complete != tt.wantComplete {
				t.Fatalf("complete=%v, expected %v", pl.Complete, tt.wantComplete)
			}
		})
	}
}

func TestEstimatedPnlEmptyLedgerUnknownPosition(t *testing.T) {
	ts := NewTradeState("MintA", 6)

	pl := ts.EstimatedPnl(dec("2"), tokens(5))
	if pl == nil {
		t.Fatal("EstimatedPnl returned nil")
	}
	// No basis recorded: percent stays 0 and the whole current value reports
	// as pnl (current value minus a zero basis).
	if !pl.PnlPercent.IsZero() {
		t.Fatalf("percent=%v, expected 0", pl.PnlPercent.UI())
	}
	if !pl.Pnl.UIDecimal().Equal(dec("10")) {
		t.Fatalf("pnl=%s, expected 10", pl.Pnl.UIDecimal())
	}
	if pl.Complete {
		t.Fatal("complete=true for unmatched quantity")
	}
}

func TestEstimatedPnlZeroQuantity(t *testing.T) {
	ts := NewTradeState("MintA", 6)
	ts.AddTokenAmount(dec("2"), tokens(10))

	pl := ts.EstimatedPnl(dec("3"), tokens(0))
	if pl == nil {
		t.Fatal("EstimatedPnl returned nil")
	}
	if !pl.Pnl.IsZero() || !pl.PnlPercent.IsZero() {
		t.Fatalf("pnl=%v percent=%v, expected zeros", pl.Pnl.UI(), pl.PnlPercent.UI())
	}
}

func TestLedgerQuantitiesNeverNegative(t *testing.T) {
	ts := NewTradeState("MintA", 6)
	buys := []struct {
		price string
		qty   float64
	}{{"5", 2}, {"6", 4}, {"5", 1}, {"4", 8}}
	sells := []float64{3, 1, 20, 2}

	for _, b := range buys {
		ts.AddTokenAmount(dec(b.price), tokens(b.qty))
	}
	for _, s := range sells {
		ts.SubtractTokenAmount(tokens(s))
		for _, lot := range ts.Lots() {
			if !lot.Quantity.IsPositive() {
				t.Fatalf("non-positive lot %s:%s survived", lot.Price, lot.Quantity)
			}
		}
	}
}
