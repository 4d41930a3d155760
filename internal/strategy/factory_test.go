package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"soltrader/internal/events"
	"soltrader/internal/ledger"
	"soltrader/internal/order"
	"soltrader/pkg/amount"
)

// stubOps satisfies TradeOps for construction-time tests.
type stubOps struct {
	executed []order.ExecutableOrder
}

func (s *stubOps) Execute(o order.ExecutableOrder, maxTries int) []string {
	s.executed = append(s.executed, o)
	return []string{"sig"}
}
func (s *stubOps) GetPnl(string) *ledger.ProfitLoss { return nil }
func (s *stubOps) GetExchange(string, amount.Amount, bool) (amount.Amount, bool) {
	return amount.SolUI(0), false
}
func (s *stubOps) DefaultSwapSettings() order.SwapSettings {
	return order.DefaultSwapSettings(amount.SolUI(0.01))
}
func (s *stubOps) FastBuy(string)  {}
func (s *stubOps) FastSell(string) {}

func TestFactoryCreateByName(t *testing.T) {
	f := NewFactory()
	RegisterBuiltins(f)

	s, err := f.Create(&stubOps{}, events.NewBus(), map[string]any{
		"strategy_name": "SniperStrategy",
		"token_address": "tok",
		"target_price":  0.5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Name() != "SniperStrategy" {
		t.Errorf("name = %q, want SniperStrategy", s.Name())
	}
	if s.ID() == "" {
		t.Error("strategy id not assigned")
	}
}

func TestFactoryCreateErrors(t *testing.T) {
	f := NewFactory()
	RegisterBuiltins(f)
	bus := events.NewBus()

	tests := []struct {
		name     string
		settings map[string]any
	}{
		{"missing name", map[string]any{}},
		{"unknown name", map[string]any{"strategy_name": "NopeStrategy"}},
		{"sniper without token", map[string]any{"strategy_name": "SniperStrategy", "target_price": 1.0}},
		{"sniper without target", map[string]any{"strategy_name": "SniperStrategy", "token_address": "tok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.Create(&stubOps{}, bus, tt.settings); err == nil {
				t.Error("want error, got nil")
			}
		})
	}
}

func TestFactorySchema(t *testing.T) {
	f := NewFactory()
	RegisterBuiltins(f)

	schema := f.Schema("SniperStrategy")
	if schema == nil {
		t.Fatal("schema missing for registered strategy")
	}
	if schema["strategy_name"] != "SniperStrategy" {
		t.Errorf("strategy_name = %v", schema["strategy_name"])
	}
	if _, ok := schema["token_address"]; !ok {
		t.Error("custom field token_address missing")
	}
	if f.Schema("NopeStrategy") != nil {
		t.Error("schema for unknown strategy should be nil")
	}
}

func TestSniperBuysAtTarget(t *testing.T) {
	ops := &stubOps{}
	s, err := NewSniperStrategy(ops, events.NewBus(), map[string]any{
		"strategy_name": "SniperStrategy",
		"token_address": "tok",
		"target_price":  1.0,
		"amount_in":     0.25,
	})
	if err != nil {
		t.Fatal(err)
	}

	s.ProcessEvent(0, events.PriceTick{TokenAddress: "tok", PriceUI: 2})
	if len(ops.executed) != 0 {
		t.Fatal("bought above target")
	}
	s.ProcessEvent(1, events.PriceTick{TokenAddress: "other", PriceUI: 0.5})
	if len(ops.executed) != 0 {
		t.Fatal("bought the wrong token")
	}

	s.ProcessEvent(2, events.PriceTick{TokenAddress: "tok", PriceUI: 0.9})
	if len(ops.executed) != 1 {
		t.Fatal("did not buy at target")
	}
	swap, ok := ops.executed[0].(*order.SwapOrder)
	if !ok || swap.OrderSide != order.SideBuy || swap.Token != "tok" {
		t.Errorf("order = %#v, want a BUY of tok", ops.executed[0])
	}
	if got := swap.Settings.AmountIn.UI(); got != 0.25 {
		t.Errorf("amount_in = %v, want the settings override 0.25", got)
	}
	if s.State() != StateComplete {
		t.Errorf("state = %v, want COMPLETE after the snipe", s.State())
	}

	// A second trigger must not double-buy.
	s.ProcessEvent(3, events.PriceTick{TokenAddress: "tok", PriceUI: 0.8})
	if len(ops.executed) != 1 {
		t.Error("sniper fired twice")
	}
}

func TestLoadSettingsShapes(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "one.json")
	if err := os.WriteFile(jsonPath, []byte(`{"strategy_name":"SniperStrategy","target_price":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSettings(jsonPath)
	if err != nil {
		t.Fatalf("single object: %v", err)
	}
	if len(got) != 1 || got[0]["strategy_name"] != "SniperStrategy" {
		t.Errorf("single object parsed to %#v", got)
	}

	arrayPath := filepath.Join(dir, "many.json")
	if err := os.WriteFile(arrayPath, []byte(`[{"strategy_name":"a"},{"strategy_name":"b"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadSettings(arrayPath)
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if len(got) != 2 || got[1]["strategy_name"] != "b" {
		t.Errorf("array parsed to %#v", got)
	}

	yamlPath := filepath.Join(dir, "many.yaml")
	yamlDoc := "- strategy_name: a\n  target_price: 1.5\n- strategy_name: b\n"
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadSettings(yamlPath)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(got) != 2 || got[0]["strategy_name"] != "a" {
		t.Errorf("yaml parsed to %#v", got)
	}
}
