package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"soltrader/internal/events"
	"soltrader/internal/market"
	"soltrader/internal/order"
	"soltrader/internal/strategy"
)

var hundred = decimal.NewFromInt(100)

// McapExecutor registers a market-cap watcher on the runner for each order;
// the watcher's id is the returned signature.
type McapExecutor struct {
	runner *strategy.Runner
	ops    strategy.TradeOps
	market *market.Manager

	mu         sync.Mutex
	registered []string
}

func NewMcapExecutor(runner *strategy.Runner, ops strategy.TradeOps, m *market.Manager) *McapExecutor {
	return &McapExecutor{runner: runner, ops: ops, market: m}
}

func (e *McapExecutor) Execute(_ context.Context, o order.ExecutableOrder, _ int) []string {
	typed, ok := o.(*order.McapOrder)
	if !ok {
		log.Printf("mcap executor: unsupported order kind %v", o.Kind())
		return nil
	}
	watcher := newMcapWatch(e.ops, e.market, typed)
	id := e.runner.Execute(watcher)

	e.mu.Lock()
	e.registered = append(e.registered, id)
	e.mu.Unlock()
	return []string{id}
}

func (e *McapExecutor) Stop() {
	e.mu.Lock()
	ids := e.registered
	e.registered = nil
	e.mu.Unlock()
	for _, id := range ids {
		e.runner.Delete(id)
	}
}

// mcapWatch fires its swap once the token's market cap crosses the target:
// a BUY triggers at or below it, a SELL at or above. A nested limits/stops
// order is placed right after the fill.
type mcapWatch struct {
	strategy.Base
	ops    strategy.TradeOps
	market *market.Manager
	ord    *order.McapOrder
	fired  atomic.Bool
}

func newMcapWatch(ops strategy.TradeOps, m *market.Manager, ord *order.McapOrder) *mcapWatch {
	return &mcapWatch{
		Base:   strategy.NewBase("McapWatch", []events.Topic{events.TopicPriceTick}, ord.Serialize()),
		ops:    ops,
		market: m,
		ord:    ord,
	}
}

func (w *mcapWatch) ProcessEvent(_ uint64, event any) {
	tick, ok := event.(events.PriceTick)
	if !ok || tick.TokenAddress != w.ord.Token {
		return
	}
	mcap, ok := w.market.GetMcap(w.ord.Token)
	if !ok {
		return
	}
	target := w.ord.TargetMcap.UIDecimal()
	crossed := mcap.Cmp(target) <= 0
	if w.ord.OrderSide == order.SideSell {
		crossed = mcap.Cmp(target) >= 0
	}
	if !crossed {
		return
	}
	if !w.fired.CompareAndSwap(false, true) {
		return
	}

	w.ops.Execute(&w.ord.SwapOrder, 3)
	if w.ord.LimitsStops != nil {
		w.ops.Execute(w.ord.LimitsStops, 1)
	}
	w.MarkComplete()
}

func (w *mcapWatch) Status() string {
	if w.fired.Load() {
		return fmt.Sprintf("triggered at mcap target %v", w.ord.TargetMcap.UI())
	}
	return fmt.Sprintf("watching %s mcap for %v", w.ord.Token, w.ord.TargetMcap.UI())
}
