package strategy

import (
	"fmt"
	"sync"

	"soltrader/internal/events"
)

// Constructor builds a strategy from its settings map.
type Constructor func(ops TradeOps, bus *events.Bus, settings map[string]any) (Strategy, error)

// Factory maps strategy names to constructors and their settings schemas.
// The name in a config record's "strategy_name" field selects the entry.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	schemas      map[string]map[string]any
}

// NewFactory creates an empty registry.
func NewFactory() *Factory {
	return &Factory{
		constructors: make(map[string]Constructor),
		schemas:      make(map[string]map[string]any),
	}
}

// Register adds a strategy under its name, replacing any previous entry.
func (f *Factory) Register(name string, ctor Constructor, schema map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
	f.schemas[name] = schema
}

// Create resolves the constructor named by settings["strategy_name"] and
// builds the strategy. Unknown names and missing fields return an error.
func (f *Factory) Create(ops TradeOps, bus *events.Bus, settings map[string]any) (Strategy, error) {
	name, _ := settings["strategy_name"].(string)
	if name == "" {
		return nil, fmt.Errorf("strategy settings missing strategy_name")
	}
	f.mu.RLock()
	ctor, ok := f.constructors[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return ctor(ops, bus, settings)
}

// Schema returns the default settings document for a registered strategy,
// nil when the name is unknown.
func (f *Factory) Schema(name string) map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	custom, ok := f.schemas[name]
	if !ok {
		return nil
	}

	out := map[string]any{
		"strategy_name":  name,
		"strategy_title": "A Strategy",
	}
	for k, v := range custom {
		out[k] = v
	}
	return out
}

// Names lists the registered strategy names.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		out = append(out, name)
	}
	return out
}
