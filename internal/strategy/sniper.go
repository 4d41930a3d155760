package strategy

import (
	"fmt"
	"sync/atomic"

	"soltrader/internal/events"
	"soltrader/internal/order"
	"soltrader/pkg/amount"
)

// SniperStrategy watches price ticks for one token and buys once the price
// dips to its target, then completes.
type SniperStrategy struct {
	Base
	ops         TradeOps
	token       string
	targetPrice float64
	amountIn    amount.Amount
	fired       atomic.Bool
}

// NewSniperStrategy builds a sniper from its settings map. The token address
// and a positive target price are required.
func NewSniperStrategy(ops TradeOps, _ *events.Bus, settings map[string]any) (Strategy, error) {
	token, _ := settings["token_address"].(string)
	if token == "" {
		return nil, fmt.Errorf("sniper settings missing token_address")
	}
	target := numeric(settings["target_price"])
	if target <= 0 {
		return nil, fmt.Errorf("sniper settings need a positive target_price")
	}
	amountIn := ops.DefaultSwapSettings().AmountIn
	if in := numeric(settings["amount_in"]); in > 0 {
		amountIn = amount.SolUI(in)
	}
	return &SniperStrategy{
		Base:        NewBase("SniperStrategy", []events.Topic{events.TopicPriceTick}, settings),
		ops:         ops,
		token:       token,
		targetPrice: target,
		amountIn:    amountIn,
	}, nil
}

func (s *SniperStrategy) ProcessEvent(seq uint64, event any) {
	tick, ok := event.(events.PriceTick)
	if !ok || tick.TokenAddress != s.token {
		return
	}
	if tick.PriceUI > s.targetPrice {
		return
	}
	if !s.fired.CompareAndSwap(false, true) {
		return
	}
	settings := s.ops.DefaultSwapSettings()
	settings.AmountIn = s.amountIn
	s.ops.Execute(order.NewSwapOrder(order.SideBuy, s.token, settings, nil), 3)
	s.MarkComplete()
}

func (s *SniperStrategy) Status() string {
	if s.fired.Load() {
		return fmt.Sprintf("sniped %s", s.token)
	}
	return fmt.Sprintf("watching %s for <= %v", s.token, s.targetPrice)
}

// SniperStrategySchema documents the sniper's settings fields.
func SniperStrategySchema() map[string]any {
	return map[string]any{
		"token_address": "contract address",
		"target_price":  0.0,
		"amount_in":     0.0,
	}
}

// RegisterBuiltins adds the stock strategies to a factory.
func RegisterBuiltins(f *Factory) {
	f.Register("TemplateStrategy", NewTemplateStrategy, TemplateStrategySchema())
	f.Register("SniperStrategy", NewSniperStrategy, SniperStrategySchema())
}

// numeric reads a config number tolerating JSON and YAML decoder types.
func numeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
