package strategy

import (
	"fmt"

	"soltrader/internal/events"
	"soltrader/internal/order"
)

// TemplateStrategy is the starting point for custom strategies: copy it,
// pick the topics to consume, and fill in ProcessEvent.
type TemplateStrategy struct {
	Base
	ops TradeOps
}

// NewTemplateStrategy builds the template from its settings map.
func NewTemplateStrategy(ops TradeOps, _ *events.Bus, settings map[string]any) (Strategy, error) {
	return &TemplateStrategy{
		Base: NewBase("TemplateStrategy", []events.Topic{events.TopicUICommand}, settings),
		ops:  ops,
	}, nil
}

func (s *TemplateStrategy) ProcessEvent(seq uint64, event any) {
	// React to the subscribed topics here.
}

func (s *TemplateStrategy) Status() string {
	return fmt.Sprintf("%s %s", s.Name(), s.State())
}

// TemplateStrategySchema documents the settings fields the template accepts.
func TemplateStrategySchema() map[string]any {
	out := map[string]any{
		"custom_field": "define the fields your strategy needs and read them from its settings",
	}
	for k, v := range order.SwapSettingsSchema() {
		out[k] = v
	}
	for k, v := range order.SignerWalletSettingsSchema() {
		out[k] = v
	}
	return out
}
