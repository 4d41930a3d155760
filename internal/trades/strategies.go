package trades

import (
	"encoding/json"
	"fmt"
	"log"

	"soltrader/internal/events"
	"soltrader/internal/strategy"
	"soltrader/pkg/db"
)

// RunStrategy registers and starts a strategy, returning its id.
func (m *Manager) RunStrategy(s strategy.Strategy) string {
	id := m.facet.Runner().Execute(s)
	m.persistStrategy(s)
	return id
}

// RunStrategyFromSettings builds a strategy from a settings map via the
// factory and starts it. The map must carry a registered strategy_name.
func (m *Manager) RunStrategyFromSettings(settings map[string]any) (string, error) {
	s, err := m.factory.Create(m, m.bus, settings)
	if err != nil {
		return "", fmt.Errorf("create strategy: %w", err)
	}
	return m.RunStrategy(s), nil
}

// RunStrategies loads a strategy settings document (single object or array)
// and starts every entry. Entries that fail to build are logged and skipped.
func (m *Manager) RunStrategies(path string) ([]string, error) {
	entries, err := strategy.LoadSettings(path)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, settings := range entries {
		id, err := m.RunStrategyFromSettings(settings)
		if err != nil {
			log.Printf("trades: skipping strategy from %s: %v", path, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetStrategy returns a running strategy by id, nil when unknown.
func (m *Manager) GetStrategy(id string) strategy.Strategy {
	return m.facet.Runner().Get(id)
}

// RunningStrategies lists every registered strategy.
func (m *Manager) RunningStrategies() []strategy.Strategy {
	return m.facet.Runner().List()
}

// ToggleStrategy pauses a running strategy or resumes a paused one.
func (m *Manager) ToggleStrategy(id string) {
	m.facet.Runner().Toggle(id)
}

// DeleteStrategy stops and deregisters a strategy.
func (m *Manager) DeleteStrategy(id string) {
	m.facet.Runner().Delete(id)
	if m.store != nil {
		if err := m.store.DeleteStrategyInstance(m.ctx, id); err != nil {
			log.Printf("trades: delete strategy %s: %v", id, err)
		}
	}
}

// StrategySchema returns the default settings for a registered strategy name.
func (m *Manager) StrategySchema(name string) map[string]any {
	return m.factory.Schema(name)
}

// StrategyNames lists the registered strategy names.
func (m *Manager) StrategyNames() []string {
	return m.factory.Names()
}

// WatchCommands consumes UI commands and strategy state changes from the bus
// until the manager stops. Call once after Start.
func (m *Manager) WatchCommands() {
	commands, unsubCommands := m.bus.Subscribe(events.TopicUICommand, 16)
	states, unsubStates := m.bus.Subscribe(events.TopicStrategyState, 16)

	go func() {
		defer unsubCommands()
		defer unsubStates()
		for {
			select {
			case <-m.ctx.Done():
				return
			case event, ok := <-commands:
				if !ok {
					return
				}
				if cmd, ok := event.(events.UICommand); ok {
					m.handleCommand(cmd)
				}
			case event, ok := <-states:
				if !ok {
					return
				}
				if change, ok := event.(events.StrategyStateChange); ok {
					m.persistStrategyState(change)
				}
			}
		}
	}()
}

func (m *Manager) handleCommand(cmd events.UICommand) {
	switch cmd.Command {
	case events.CommandBuy:
		m.FastBuy(cmd.TokenAddress)
	case events.CommandSell:
		m.FastSell(cmd.TokenAddress)
	case events.CommandSellAll:
		m.SellAll()
	case events.CommandSweep:
		m.Sweep()
	default:
		log.Printf("trades: unknown command %q", cmd.Command)
	}
}

func (m *Manager) persistStrategy(s strategy.Strategy) {
	if m.store == nil {
		return
	}

	settings, err := json.Marshal(s.Settings())
	if err != nil {
		settings = []byte("{}")
	}
	rec := db.StrategyInstanceRecord{
		ID:           s.ID(),
		Name:         s.Name(),
		StrategyType: s.Name(),
		Settings:     string(settings),
		State:        s.State().String(),
	}
	if name, ok := s.Settings()["strategy_name"].(string); ok && name != "" {
		rec.StrategyType = name
	}
	if err := m.store.UpsertStrategyInstance(m.ctx, rec); err != nil {
		log.Printf("trades: persist strategy %s: %v", s.ID(), err)
	}
}

func (m *Manager) persistStrategyState(change events.StrategyStateChange) {
	if m.store == nil {
		return
	}
	if err := m.store.UpdateStrategyState(m.ctx, change.StrategyID, change.State); err != nil {
		log.Printf("trades: persist state %s: %v", change.StrategyID, err)
	}
}
