// Package wallet tracks the signer wallets' on-chain balances.
package wallet

import (
	"context"
	"log"
	"sync"
	"time"

	"soltrader/internal/events"
	"soltrader/pkg/amount"
	"soltrader/pkg/solana"
)

// Tracker caches the SOL balance of watched accounts, refreshed by a
// periodic sync and by account notifications from the stream socket.
type Tracker struct {
	client *solana.Client
	stream *solana.StreamClient
	bus    *events.Bus

	syncInterval time.Duration

	mu       sync.RWMutex
	balances map[string]amount.Amount // key: account address
	watched  []string
}

// NewTracker builds a tracker for the given accounts.
func NewTracker(client *solana.Client, stream *solana.StreamClient, bus *events.Bus, accounts []string) *Tracker {
	return &Tracker{
		client:       client,
		stream:       stream,
		bus:          bus,
		syncInterval: time.Minute,
		balances:     make(map[string]amount.Amount),
		watched:      accounts,
	}
}

// Start wires up the account subscriptions and the periodic sync. Both run
// until the context is cancelled.
func (t *Tracker) Start(ctx context.Context) {
	t.sync(ctx)

	for _, account := range t.watched {
		if t.stream == nil {
			break
		}
		ch, stop, err := t.stream.SubscribeAccount(ctx, account)
		if err != nil {
			log.Printf("wallet: subscribe %s: %v", account, err)
			continue
		}
		go func(account string) {
			defer stop()
			for note := range ch {
				t.apply(note.AccountAddress, note.Lamports)
			}
		}(account)
	}

	go func() {
		ticker := time.NewTicker(t.syncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.sync(ctx)
			}
		}
	}()
}

// sync pulls fresh balances for every watched account.
func (t *Tracker) sync(ctx context.Context) {
	if t.client == nil {
		return
	}
	for _, account := range t.watched {
		lamports, err := t.client.GetSolBalance(ctx, account)
		if err != nil {
			log.Printf("wallet: sync %s: %v", account, err)
			continue
		}
		t.apply(account, lamports)
	}
}

// apply records a balance observation and republishes it.
func (t *Tracker) apply(account string, lamports int64) {
	t.mu.Lock()
	t.balances[account] = amount.SolScaled(lamports)
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Publish(events.TopicAccountUpdate, events.AccountUpdate{
			AccountAddress: account,
			Lamports:       lamports,
		})
	}
}

// GetSolBalance returns the cached balance for an account.
func (t *Tracker) GetSolBalance(account string) (amount.Amount, bool) {
	t.mu.RLock()
	b, ok := t.balances[account]
	t.mu.RUnlock()
	return b, ok
}

// GetTokenAccountBalance queries the chain for an owner's token balance;
// no caching, token balances change on every fill.
func (t *Tracker) GetTokenAccountBalance(token, owner string) (amount.Amount, bool) {
	if t.client == nil {
		return amount.Amount{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	balance, err := t.client.GetTokenAccountBalance(ctx, token, owner)
	if err != nil || balance == nil {
		return amount.Amount{}, false
	}
	return amount.FromUI(balance.Amount, balance.Decimals), true
}
