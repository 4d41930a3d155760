package executor

import (
	"context"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"soltrader/internal/events"
	"soltrader/internal/ledger"
	"soltrader/internal/market"
	"soltrader/internal/order"
	"soltrader/internal/strategy"
	"soltrader/pkg/amount"
)

// poolOps backs GetExchange with a fixed constant-product pool.
type poolOps struct {
	solReserve   decimal.Decimal
	tokenReserve decimal.Decimal
	executed     []order.ExecutableOrder
}

func newPoolOps() *poolOps {
	return &poolOps{
		solReserve:   decimal.NewFromInt(100),
		tokenReserve: decimal.NewFromInt(1_000_000),
	}
}

func (p *poolOps) Execute(o order.ExecutableOrder, maxTries int) []string {
	p.executed = append(p.executed, o)
	return []string{strconv.Itoa(len(p.executed) - 1)}
}

func (p *poolOps) GetPnl(string) *ledger.ProfitLoss { return nil }

func (p *poolOps) GetExchange(_ string, amountIn amount.Amount, isBuy bool) (amount.Amount, bool) {
	if isBuy {
		out := market.EstimateExchange(p.solReserve, p.tokenReserve, amountIn.UIDecimal())
		return amount.FromUI(out, 6), true
	}
	out := market.EstimateExchange(p.tokenReserve, p.solReserve, amountIn.UIDecimal())
	return amount.FromUI(out, amount.SolDecimals), true
}

func (p *poolOps) DefaultSwapSettings() order.SwapSettings {
	return order.DefaultSwapSettings(amount.SolUI(0.01))
}
func (p *poolOps) FastBuy(string)  {}
func (p *poolOps) FastSell(string) {}

func simWallets() *order.SignerWalletSettings {
	return order.NewSignerWalletSettings("sim-payer")
}

func newSim(t *testing.T) (*SimExecutor, *poolOps) {
	t.Helper()
	ops := newPoolOps()
	sim := NewSimExecutor(simWallets(), amount.SolUI(10))
	sim.BindOps(ops)
	return sim, ops
}

func buyOrder(sol float64) *order.SwapOrder {
	return order.NewSwapOrder(order.SideBuy, "tok", order.DefaultSwapSettings(amount.SolUI(sol)), simWallets())
}

func TestSimBuyUpdatesBalancesAndHistory(t *testing.T) {
	sim, _ := newSim(t)

	sigs := sim.Execute(context.Background(), buyOrder(1), 1)
	if len(sigs) != 1 || sigs[0] != "0" {
		t.Fatalf("signatures = %v, want [0]", sigs)
	}

	sol, ok := sim.GetSolBalance("sim-payer")
	if !ok || sol.UI() != 9 {
		t.Errorf("sol balance = %v %v, want 9", sol, ok)
	}
	tokens, ok := sim.GetTokenAccountBalance("tok", "sim-payer")
	if !ok || !tokens.IsPositive() {
		t.Fatalf("token balance = %v %v, want positive", tokens, ok)
	}

	infos := sim.GetSwapInfo(context.Background(), "0", "sim-payer", 1)
	if len(infos) != 1 {
		t.Fatalf("swap info entries = %d, want 1", len(infos))
	}
	if infos[0].SolBalanceChange != -1_000_000_000 {
		t.Errorf("sol change = %d, want -1000000000", infos[0].SolBalanceChange)
	}
	if !infos[0].TokenBalanceChange.IsPositive() {
		t.Errorf("token change = %v, want positive", infos[0].TokenBalanceChange)
	}
}

func TestSimSellDrainsPosition(t *testing.T) {
	sim, _ := newSim(t)
	sim.Execute(context.Background(), buyOrder(1), 1)
	tokens, _ := sim.GetTokenAccountBalance("tok", "sim-payer")

	sell := order.NewSwapOrder(order.SideSell, "tok",
		order.DefaultSwapSettings(tokens), simWallets())
	sigs := sim.Execute(context.Background(), sell, 1)
	if len(sigs) != 1 {
		t.Fatalf("signatures = %v, want one", sigs)
	}

	if _, ok := sim.GetTokenAccountBalance("tok", "sim-payer"); ok {
		t.Error("emptied token balance should be removed")
	}
	sol, _ := sim.GetSolBalance("sim-payer")
	if sol.UI() <= 9 {
		t.Errorf("sol balance = %v, want proceeds credited above 9", sol.UI())
	}
}

func TestSimHistoryEviction(t *testing.T) {
	sim, _ := newSim(t)
	ctx := context.Background()

	for i := 0; i < maxSwapHistory+1; i++ {
		if sigs := sim.Execute(ctx, buyOrder(0.01), 1); len(sigs) != 1 {
			t.Fatalf("fill %d returned %v", i, sigs)
		}
	}

	if got := sim.GetSwapInfo(ctx, "0", "sim-payer", 1); got != nil {
		t.Error("oldest entry should be evicted")
	}
	for i := 1; i <= maxSwapHistory; i++ {
		if got := sim.GetSwapInfo(ctx, strconv.Itoa(i), "sim-payer", 1); got == nil {
			t.Errorf("entry %d missing, want retained", i)
		}
	}
}

func TestSimUnknownOwner(t *testing.T) {
	sim, _ := newSim(t)
	o := order.NewSwapOrder(order.SideBuy, "tok",
		order.DefaultSwapSettings(amount.SolUI(1)), order.NewSignerWalletSettings("stranger"))
	if sigs := sim.Execute(context.Background(), o, 1); sigs != nil {
		t.Errorf("signatures = %v, want nil for unfunded owner", sigs)
	}
}

func TestFacetRoutingAndBackfill(t *testing.T) {
	bus := events.NewBus()
	runner := strategy.NewRunner(bus, 2)
	defer runner.Stop()

	sim, _ := newSim(t)
	facet := NewFacet(runner, simWallets())
	facet.Register(order.KindSwap, sim)

	// No wallet settings: the facet backfills the default.
	o := order.NewSwapOrder(order.SideBuy, "tok", order.DefaultSwapSettings(amount.SolUI(1)), nil)
	sigs := facet.Execute(context.Background(), o, 1)
	if len(sigs) != 1 {
		t.Fatalf("signatures = %v, want one", sigs)
	}
	if o.WalletSettings() == nil {
		t.Error("default wallet settings not backfilled")
	}

	// Unregistered kind degrades to nil, no error.
	mcap := order.NewMcapOrder(order.SideBuy, "tok", order.DefaultSwapSettings(amount.SolUI(1)), amount.SolUI(1000), nil, nil)
	if sigs := facet.Execute(context.Background(), mcap, 1); sigs != nil {
		t.Errorf("signatures = %v, want nil for unregistered kind", sigs)
	}
}

func TestLimitsExecutorRegistersWatcher(t *testing.T) {
	bus := events.NewBus()
	runner := strategy.NewRunner(bus, 2)
	defer runner.Stop()
	ops := newPoolOps()

	e := NewLimitsExecutor(runner, ops)
	ord := order.NewLimitsStopsOrder(order.SideSell, "tok", amount.SolUI(0.001),
		order.DefaultSwapSettings(amount.TokensUI(1000, 6)), false, simWallets())
	ord.AddPnlOption(order.PnlOption{TriggerAtPercent: amount.PercentUI(50), AllocationPercent: amount.PercentUI(100)})

	sigs := e.Execute(context.Background(), ord, 1)
	if len(sigs) != 1 {
		t.Fatalf("signatures = %v, want the watcher id", sigs)
	}
	watcher := runner.Get(sigs[0])
	if watcher == nil {
		t.Fatal("watcher id does not resolve on the runner")
	}
	if watcher.State() != strategy.StateRunning {
		t.Errorf("watcher state = %v, want RUNNING", watcher.State())
	}
}

func TestLimitsWatchTriggersSell(t *testing.T) {
	ops := newPoolOps()
	ord := order.NewLimitsStopsOrder(order.SideSell, "tok", amount.SolUI(0.001),
		order.DefaultSwapSettings(amount.TokensUI(1000, 6)), false, simWallets())
	ord.AddPnlOption(order.PnlOption{TriggerAtPercent: amount.PercentUI(50), AllocationPercent: amount.PercentUI(50)})
	ord.AddPnlOption(order.PnlOption{TriggerAtPercent: amount.PercentUI(-30), AllocationPercent: amount.PercentUI(100)})

	w := newLimitsWatch(ops, ord)

	// Flat price: nothing fires.
	w.ProcessEvent(0, events.PriceTick{TokenAddress: "tok", PriceUI: 0.001})
	if len(ops.executed) != 0 {
		t.Fatal("fired with no pnl movement")
	}

	// +60% hits the 50% limit rung for half the position.
	w.ProcessEvent(1, events.PriceTick{TokenAddress: "tok", PriceUI: 0.0016})
	if len(ops.executed) != 1 {
		t.Fatalf("executed %d orders, want 1 after limit trigger", len(ops.executed))
	}
	sell := ops.executed[0].(*order.SwapOrder)
	if sell.OrderSide != order.SideSell {
		t.Errorf("side = %v, want SELL", sell.OrderSide)
	}
	if got := sell.Settings.AmountIn.UI(); got != 500 {
		t.Errorf("sell amount = %v, want 500 (half of 1000)", got)
	}
	if w.State() == strategy.StateComplete {
		t.Fatal("completed while the stop rung is still pending")
	}

	// -40% hits the stop rung and completes the watcher.
	w.ProcessEvent(2, events.PriceTick{TokenAddress: "tok", PriceUI: 0.0006})
	if len(ops.executed) != 2 {
		t.Fatalf("executed %d orders, want 2 after stop trigger", len(ops.executed))
	}
	if w.State() != strategy.StateComplete {
		t.Errorf("state = %v, want COMPLETE once all rungs fired", w.State())
	}
}

func TestMcapWatchBuysAtTarget(t *testing.T) {
	bus := events.NewBus()
	ops := newPoolOps()
	m := market.NewManager(nil, bus)
	m.RegisterToken(market.TokenInfo{
		TokenAddress: "tok",
		Decimals:     6,
		SolVault:     amount.SolUI(100),
		TokenVault:   amount.TokensUI(1_000_000, 6),
		Supply:       decimal.NewFromInt(10_000_000),
	})

	ord := order.NewMcapOrder(order.SideBuy, "tok",
		order.DefaultSwapSettings(amount.SolUI(1)), amount.SolUI(500), simWallets(), nil)
	w := newMcapWatch(ops, m, ord)

	// Mcap is 1000 SOL, above the 500 target: a buy must wait.
	w.ProcessEvent(0, events.PriceTick{TokenAddress: "tok", PriceUI: 0.0001})
	if len(ops.executed) != 0 {
		t.Fatal("bought above the target mcap")
	}

	// Price halves, mcap 500: trigger.
	m.SetPrice("tok", 0.00005)
	w.ProcessEvent(1, events.PriceTick{TokenAddress: "tok", PriceUI: 0.00005})
	if len(ops.executed) != 1 {
		t.Fatalf("executed %d orders, want 1", len(ops.executed))
	}
	if w.State() != strategy.StateComplete {
		t.Errorf("state = %v, want COMPLETE", w.State())
	}
}
