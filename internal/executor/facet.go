// Package executor routes executable orders to the executor registered for
// their kind and hosts the simulation and trigger executors.
package executor

import (
	"context"

	"soltrader/internal/order"
	"soltrader/internal/strategy"
	"soltrader/pkg/amount"
	"soltrader/pkg/solana"
)

// Executor submits one kind of order. Retry policy is the executor's own
// business; the facet only routes.
type Executor interface {
	Execute(ctx context.Context, o order.ExecutableOrder, maxTries int) []string
	Stop()
}

// AccountReader answers balance queries for the mode in effect (synthetic
// balances in sim, chain queries live).
type AccountReader interface {
	GetSolBalance(account string) (amount.Amount, bool)
	GetTokenAccountBalance(token, owner string) (amount.Amount, bool)
}

// SwapInfoSource resolves a submitted signature into per-token balance-change
// records, polling with bounded attempts. An empty result means "not yet
// confirmed".
type SwapInfoSource interface {
	GetSwapInfo(ctx context.Context, signature, payer string, maxTries int) []solana.SwapTransactionInfo
}

// Facet maps order kinds to executors. One facet serves the whole manager.
type Facet struct {
	runner         *strategy.Runner
	executors      map[order.Kind]Executor
	defaultWallets *order.SignerWalletSettings
}

// NewFacet builds an empty facet around the shared strategy runner.
func NewFacet(runner *strategy.Runner, defaultWallets *order.SignerWalletSettings) *Facet {
	return &Facet{
		runner:         runner,
		executors:      make(map[order.Kind]Executor),
		defaultWallets: defaultWallets,
	}
}

// Register binds an executor to an order kind, replacing any previous one.
func (f *Facet) Register(kind order.Kind, e Executor) {
	f.executors[kind] = e
}

// Runner exposes the strategy runner the trigger executors register into.
func (f *Facet) Runner() *strategy.Runner { return f.runner }

// Executor resolves the executor for an order, nil when its kind has none.
func (f *Facet) Executor(o order.ExecutableOrder) Executor {
	return f.executors[o.Kind()]
}

// Execute routes the order to its executor, backfilling the default wallet
// settings when the order carries none. Unknown kinds yield nil.
func (f *Facet) Execute(ctx context.Context, o order.ExecutableOrder, maxTries int) []string {
	e := f.Executor(o)
	if e == nil {
		return nil
	}
	if o.WalletSettings() == nil {
		o.SetWalletSettings(f.defaultWallets)
	}
	return e.Execute(ctx, o, maxTries)
}

// Stop cascades to every registered executor.
func (f *Facet) Stop() {
	for _, e := range f.executors {
		e.Stop()
	}
}
