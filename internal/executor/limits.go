package executor

import (
	"context"
	"fmt"
	"log"
	"sync"

	"soltrader/internal/events"
	"soltrader/internal/order"
	"soltrader/internal/strategy"
	"soltrader/pkg/amount"
)

// LimitsExecutor turns a limits/stops order into a price-watching strategy
// on the shared runner. The watcher's strategy id doubles as the returned
// signature so the manager can correlate the pending limit sell.
type LimitsExecutor struct {
	runner *strategy.Runner
	ops    strategy.TradeOps

	mu         sync.Mutex
	registered []string
}

func NewLimitsExecutor(runner *strategy.Runner, ops strategy.TradeOps) *LimitsExecutor {
	return &LimitsExecutor{runner: runner, ops: ops}
}

func (e *LimitsExecutor) Execute(_ context.Context, o order.ExecutableOrder, _ int) []string {
	typed, ok := o.(*order.LimitsStopsOrder)
	if !ok {
		log.Printf("limits executor: unsupported order kind %v", o.Kind())
		return nil
	}
	watcher := newLimitsWatch(e.ops, typed)
	id := e.runner.Execute(watcher)

	e.mu.Lock()
	e.registered = append(e.registered, id)
	e.mu.Unlock()
	return []string{id}
}

// Stop deletes every watcher this executor registered.
func (e *LimitsExecutor) Stop() {
	e.mu.Lock()
	ids := e.registered
	e.registered = nil
	e.mu.Unlock()
	for _, id := range ids {
		e.runner.Delete(id)
	}
}

// limitsWatch is the price watcher behind a limits/stops order. Each rung
// fires once; the watcher completes when no rungs remain.
type limitsWatch struct {
	strategy.Base
	ops strategy.TradeOps
	ord *order.LimitsStopsOrder

	mu     sync.Mutex
	limits []order.PnlOption
	stops  []order.PnlOption
	peak   float64
}

func newLimitsWatch(ops strategy.TradeOps, ord *order.LimitsStopsOrder) *limitsWatch {
	entry := ord.EntryPrice.UI()
	return &limitsWatch{
		Base:   strategy.NewBase("LimitsStopsWatch", []events.Topic{events.TopicPriceTick}, ord.Serialize()),
		ops:    ops,
		ord:    ord,
		limits: append([]order.PnlOption(nil), ord.Limits...),
		stops:  append([]order.PnlOption(nil), ord.StopLosses...),
		peak:   entry,
	}
}

func (w *limitsWatch) ProcessEvent(_ uint64, event any) {
	tick, ok := event.(events.PriceTick)
	if !ok || tick.TokenAddress != w.ord.Token {
		return
	}
	entry := w.ord.EntryPrice.UI()
	if entry <= 0 || tick.PriceUI <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if tick.PriceUI > w.peak {
		w.peak = tick.PriceUI
	}
	gainPct := (tick.PriceUI - entry) / entry * 100
	// Trailing stops measure the drawdown from the peak instead of the entry.
	stopPct := gainPct
	if w.ord.IsTrailing && w.peak > 0 {
		stopPct = (tick.PriceUI - w.peak) / w.peak * 100
	}

	kept := w.limits[:0]
	for _, rung := range w.limits {
		if gainPct >= rung.TriggerAtPercent.UI() {
			w.sellAllocation(rung.AllocationPercent)
		} else {
			kept = append(kept, rung)
		}
	}
	w.limits = kept

	kept = w.stops[:0]
	for _, rung := range w.stops {
		if stopPct <= rung.TriggerAtPercent.UI() {
			w.sellAllocation(rung.AllocationPercent)
		} else {
			kept = append(kept, rung)
		}
	}
	w.stops = kept

	if len(w.limits) == 0 && len(w.stops) == 0 {
		w.MarkComplete()
	}
}

// sellAllocation disposes the rung's share of the position the order covers.
func (w *limitsWatch) sellAllocation(allocation amount.Amount) {
	share := w.ord.Settings.AmountIn.UIDecimal().
		Mul(allocation.UIDecimal()).
		Div(hundred)
	if !share.IsPositive() {
		return
	}
	settings := w.ord.Settings
	settings.AmountIn = w.ord.Settings.AmountIn.WithUI(share)
	w.ops.Execute(order.NewSwapOrder(order.SideSell, w.ord.Token, settings, w.ord.Wallets), 3)
}

func (w *limitsWatch) Status() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fmt.Sprintf("watching %s: %d limits, %d stops pending", w.ord.Token, len(w.limits), len(w.stops))
}
