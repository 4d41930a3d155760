// Package strategy runs user-defined trading strategies as bus-subscribed
// event consumers with bounded dispatch.
package strategy

import (
	"sync"

	"github.com/google/uuid"

	"soltrader/internal/events"
	"soltrader/internal/ledger"
	"soltrader/internal/order"
	"soltrader/pkg/amount"
)

// State is a strategy lifecycle state. COMPLETE is terminal.
type State int

const (
	StateOff State = iota
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateRunning:
		return "RUNNING"
	case StateComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// TradeOps is the view of the trades manager that strategies and trigger
// executors are given. The manager implements it.
type TradeOps interface {
	Execute(o order.ExecutableOrder, maxTries int) []string
	GetPnl(token string) *ledger.ProfitLoss
	GetExchange(token string, amountIn amount.Amount, isBuy bool) (amount.Amount, bool)
	DefaultSwapSettings() order.SwapSettings
	FastBuy(token string)
	FastSell(token string)
}

// Strategy is one running trading process. Implementations embed Base and
// provide ProcessEvent; events arrive with a per-strategy sequence number
// assigned in order, though handling may complete out of order.
type Strategy interface {
	ID() string
	Name() string
	State() State
	SetState(State)
	Topics() []events.Topic
	Settings() map[string]any
	ProcessEvent(seq uint64, event any)
	Status() string
}

// Base carries the identity, lifecycle state and settings every strategy
// shares. Embed it and override ProcessEvent and Status.
type Base struct {
	id       string
	name     string
	topics   []events.Topic
	settings map[string]any

	mu    sync.Mutex
	state State
}

// NewBase builds the shared strategy core with a fresh instance id.
func NewBase(name string, topics []events.Topic, settings map[string]any) Base {
	return Base{
		id:       uuid.NewString(),
		name:     name,
		topics:   topics,
		settings: settings,
	}
}

func (b *Base) ID() string            { return b.id }
func (b *Base) Name() string          { return b.name }
func (b *Base) Topics() []events.Topic { return b.topics }
func (b *Base) Settings() map[string]any { return b.settings }

func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetState transitions the lifecycle state. COMPLETE is sticky: once set,
// OFF and RUNNING are ignored.
func (b *Base) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateComplete {
		return
	}
	b.state = s
}

// MarkComplete moves the strategy to its terminal state. The runner notices
// after the current dispatch and unsubscribes it.
func (b *Base) MarkComplete() {
	b.mu.Lock()
	b.state = StateComplete
	b.mu.Unlock()
}
