package order

import (
	"testing"

	"soltrader/pkg/amount"
)

func testSettings() SwapSettings {
	return SwapSettings{
		AmountIn:    amount.SolUI(0.5),
		Slippage:    amount.PercentUI(2),
		PriorityFee: amount.SolUI(0.0002),
		Confirm:     true,
		Tip:         amount.SolUI(0),
	}
}

func TestSwapOrderSerializeRoundTrip(t *testing.T) {
	wallets := NewSignerWalletSettings("payer-1")
	original := NewSwapOrder(SideSell, "token-abc", testSettings(), wallets)

	parsed := SwapOrderFromMap(original.Serialize())
	if parsed == nil {
		t.Fatal("parse returned nil for a well-formed record")
	}
	if parsed.Token != "token-abc" {
		t.Errorf("token = %q, want token-abc", parsed.Token)
	}
	if parsed.OrderSide != SideSell {
		t.Errorf("side = %v, want SELL", parsed.OrderSide)
	}
	if got := parsed.Settings.AmountIn.UI(); got != 0.5 {
		t.Errorf("amount_in = %v, want 0.5", got)
	}
	if got := parsed.Settings.Slippage.UI(); got != 2 {
		t.Errorf("slippage = %v, want 2", got)
	}
	if parsed.Wallets == nil {
		t.Fatal("wallet settings dropped in round trip")
	}
	signer, ok := parsed.Wallets.DefaultSigner()
	if !ok || signer.Address != "payer-1" {
		t.Errorf("default signer = %v %v, want payer-1", signer, ok)
	}
}

func TestSwapOrderFromMapMissingToken(t *testing.T) {
	if o := SwapOrderFromMap(map[string]any{"order_type": "BUY"}); o != nil {
		t.Fatalf("expected nil for missing token_address, got %+v", o)
	}
}

func TestSwapOrderFromMapDefaults(t *testing.T) {
	o := SwapOrderFromMap(map[string]any{"token_address": "tok"})
	if o == nil {
		t.Fatal("parse returned nil")
	}
	if o.OrderSide != SideBuy {
		t.Errorf("side = %v, want default BUY", o.OrderSide)
	}
	if got := o.Settings.Slippage.UI(); got != DefaultSlippagePct {
		t.Errorf("slippage = %v, want default %v", got, DefaultSlippagePct)
	}
	if !o.Settings.Confirm {
		t.Error("confirm should default to true")
	}
}

func TestBundleCap(t *testing.T) {
	bundle := NewBundledSwapOrder(SideBuy, "tok", testSettings(), NewSignerWalletSettings("payer-1"))
	for i := 0; i < BundleLimit; i++ {
		if err := bundle.AddSwapOrder(NewSwapOrder(SideBuy, "tok", testSettings(), nil)); err != nil {
			t.Fatalf("sub-order %d rejected: %v", i+1, err)
		}
	}
	if err := bundle.AddSwapOrder(NewSwapOrder(SideBuy, "tok", testSettings(), nil)); err == nil {
		t.Fatal("6th sub-order accepted, want error")
	}
	if got := len(bundle.SubOrders()); got != BundleLimit {
		t.Errorf("bundle holds %d orders, want %d", got, BundleLimit)
	}
}

func TestLimitsStopsSellIsPending(t *testing.T) {
	o := NewLimitsStopsOrder(SideSell, "tok", amount.SolUI(0.001), testSettings(), false, nil)
	if o.Side() != SidePendingLimitSell {
		t.Fatalf("side = %v, want PENDING_LIMIT_SELL", o.Side())
	}
}

func TestAddPnlOptionFilesBySign(t *testing.T) {
	o := NewLimitsStopsOrder(SideSell, "tok", amount.SolUI(0.001), testSettings(), false, nil)
	o.AddPnlOption(PnlOption{TriggerAtPercent: amount.PercentUI(50), AllocationPercent: amount.PercentUI(100)})
	o.AddPnlOption(PnlOption{TriggerAtPercent: amount.PercentUI(-30), AllocationPercent: amount.PercentUI(100)})
	o.AddPnlOption(PnlOption{TriggerAtPercent: amount.PercentUI(0), AllocationPercent: amount.PercentUI(100)})

	if len(o.Limits) != 1 {
		t.Errorf("limits = %d, want 1", len(o.Limits))
	}
	if len(o.StopLosses) != 1 {
		t.Errorf("stop losses = %d, want 1", len(o.StopLosses))
	}
}

func TestLimitsStopsSerializeRoundTrip(t *testing.T) {
	o := NewLimitsStopsOrder(SideSell, "tok", amount.SolUI(0.002), testSettings(), true, nil)
	o.AddPnlOption(PnlOption{TriggerAtPercent: amount.PercentUI(75), AllocationPercent: amount.PercentUI(50)})
	o.AddPnlOption(PnlOption{TriggerAtPercent: amount.PercentUI(-40), AllocationPercent: amount.PercentUI(100)})

	parsed := LimitsStopsOrderFromMap(o.Serialize())
	if parsed == nil {
		t.Fatal("parse returned nil")
	}
	if parsed.Side() != SidePendingLimitSell {
		t.Errorf("side = %v, want PENDING_LIMIT_SELL", parsed.Side())
	}
	if !parsed.IsTrailing {
		t.Error("trailing flag dropped")
	}
	if got := parsed.EntryPrice.UI(); got != 0.002 {
		t.Errorf("entry price = %v, want 0.002", got)
	}
	if len(parsed.Limits) != 1 || parsed.Limits[0].TriggerAtPercent.UI() != 75 {
		t.Errorf("limits = %+v, want one rung at 75", parsed.Limits)
	}
	if len(parsed.StopLosses) != 1 || parsed.StopLosses[0].TriggerAtPercent.UI() != -40 {
		t.Errorf("stop losses = %+v, want one rung at -40", parsed.StopLosses)
	}
}

func TestMcapOrderRoundTrip(t *testing.T) {
	inner := NewLimitsStopsOrder(SideSell, "tok", amount.SolUI(0.001), testSettings(), false, nil)
	inner.AddPnlOption(PnlOption{TriggerAtPercent: amount.PercentUI(100), AllocationPercent: amount.PercentUI(100)})
	o := NewMcapOrder(SideBuy, "tok", testSettings(), amount.SolUI(50000), nil, inner)

	parsed := McapOrderFromMap(o.Serialize())
	if parsed == nil {
		t.Fatal("parse returned nil")
	}
	if got := parsed.TargetMcap.UI(); got != 50000 {
		t.Errorf("target mcap = %v, want 50000", got)
	}
	if parsed.LimitsStops == nil {
		t.Fatal("nested limits/stops dropped")
	}
	if len(parsed.LimitsStops.Limits) != 1 {
		t.Errorf("nested limits = %d, want 1", len(parsed.LimitsStops.Limits))
	}
}

func TestFromMapByKind(t *testing.T) {
	record := map[string]any{"token_address": "tok", "order_type": "BUY"}
	tests := []struct {
		name string
		kind Kind
		want Kind
	}{
		{"swap", KindSwap, KindSwap},
		{"limits", KindLimitsStops, KindLimitsStops},
		{"mcap", KindMcap, KindMcap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := FromMap(tt.kind, record)
			if o == nil {
				t.Fatal("parse returned nil")
			}
			if o.Kind() != tt.want {
				t.Errorf("kind = %v, want %v", o.Kind(), tt.want)
			}
		})
	}

	if o := FromMap(Kind(99), record); o != nil {
		t.Errorf("unknown kind parsed to %+v, want nil", o)
	}
}

func TestSignerWalletSettings(t *testing.T) {
	s := NewSignerWalletSettings("a")
	s.AddWallet(SignerWallet{Address: "b"})
	s.AddWallet(SignerWallet{Address: "a"}) // duplicate ignored

	if got := len(s.Wallets()); got != 2 {
		t.Fatalf("wallet count = %d, want 2", got)
	}
	s.SetDefaultSigner("b")
	signer, ok := s.DefaultSigner()
	if !ok || signer.Address != "b" {
		t.Errorf("default = %v %v, want b", signer, ok)
	}
	if s.HasCustomAmount() {
		t.Error("no custom amounts registered")
	}
	custom := amount.SolUI(1.5)
	s.AddWallet(SignerWallet{Address: "c", AmountIn: &custom})
	if !s.HasCustomAmount() {
		t.Error("custom amount not detected")
	}
}
