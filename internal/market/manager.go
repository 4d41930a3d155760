// Package market tracks token metadata, pool reserves and prices for the
// trading core.
package market

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/events"
	"soltrader/pkg/amount"
	"soltrader/pkg/cache"
	"soltrader/pkg/solana"
)

// TokenInfo is the tracked state of one token's pool.
type TokenInfo struct {
	TokenAddress string
	Symbol       string
	Decimals     int32
	SolVault     amount.Amount // pool SOL reserve
	TokenVault   amount.Amount // pool token reserve
	Supply       decimal.Decimal
}

// Price derives the spot price in SOL per token from the vault reserves.
func (t TokenInfo) Price() decimal.Decimal {
	tokens := t.TokenVault.UIDecimal()
	if tokens.IsZero() {
		return decimal.Zero
	}
	return t.SolVault.UIDecimal().Div(tokens)
}

// Mcap is the market cap in SOL at the current reserve price.
func (t TokenInfo) Mcap() decimal.Decimal {
	return t.Price().Mul(t.Supply)
}

// Manager caches token info and prices. Prices refresh from pool reserves
// and from ticks published on the bus.
type Manager struct {
	client *solana.Client
	bus    *events.Bus
	prices *cache.ShardedPriceCache

	mu     sync.RWMutex
	tokens map[string]*TokenInfo
}

// NewManager builds a market manager. The RPC client may be nil in sim mode;
// token info then comes only from RegisterToken.
func NewManager(client *solana.Client, bus *events.Bus) *Manager {
	return &Manager{
		client: client,
		bus:    bus,
		prices: cache.NewShardedPriceCache(),
		tokens: make(map[string]*TokenInfo),
	}
}

// RegisterToken seeds or replaces the tracked info for a token and primes
// the price cache from its reserves.
func (m *Manager) RegisterToken(info TokenInfo) {
	m.mu.Lock()
	m.tokens[info.TokenAddress] = &info
	m.mu.Unlock()

	if price := info.Price(); !price.IsZero() {
		m.prices.Set(info.TokenAddress, price.InexactFloat64())
	}
}

// GetTokenInfo returns the tracked info for a token, nil when unknown.
func (m *Manager) GetTokenInfo(token string) *TokenInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if info, ok := m.tokens[token]; ok {
		copied := *info
		return &copied
	}
	return nil
}

// GetPrice returns the latest SOL-per-token price. The tick cache wins;
// reserves are the fallback.
func (m *Manager) GetPrice(token string) (decimal.Decimal, bool) {
	if price, ok := m.prices.Get(token); ok {
		return decimal.NewFromFloat(price), true
	}
	if info := m.GetTokenInfo(token); info != nil {
		if price := info.Price(); !price.IsZero() {
			return price, true
		}
	}
	return decimal.Zero, false
}

// GetMcap returns the token's market cap in SOL, false when the token or
// its price is unknown.
func (m *Manager) GetMcap(token string) (decimal.Decimal, bool) {
	info := m.GetTokenInfo(token)
	if info == nil {
		return decimal.Zero, false
	}
	price, ok := m.GetPrice(token)
	if !ok {
		return decimal.Zero, false
	}
	return price.Mul(info.Supply), true
}

// SetPrice records a fresh price observation for a token.
func (m *Manager) SetPrice(token string, priceUI float64) {
	m.prices.Set(token, priceUI)
}

// PrunePrices drops tick observations older than maxAge so dead tokens fall
// back to their reserve-derived price. Returns how many were dropped.
func (m *Manager) PrunePrices(maxAge time.Duration) int {
	return m.prices.Cleanup(maxAge)
}

// PriceCacheStats reports the tick cache size and staleness.
func (m *Manager) PriceCacheStats() cache.CacheStats {
	return m.prices.Stats()
}

// WatchTicks consumes price ticks from the bus into the cache until the
// context is cancelled.
func (m *Manager) WatchTicks(ctx context.Context) {
	ch, unsub := m.bus.Subscribe(events.TopicPriceTick, 128)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				tick, ok := ev.(events.PriceTick)
				if !ok {
					continue
				}
				m.prices.Set(tick.TokenAddress, tick.PriceUI)
			}
		}
	}()
}

// RefreshBalancesFromChain updates the SOL reserve of every tracked token's
// pool from the node. No-op without an RPC client.
func (m *Manager) RefreshBalancesFromChain(ctx context.Context) {
	if m.client == nil {
		return
	}
	m.mu.RLock()
	addresses := make([]string, 0, len(m.tokens))
	for addr := range m.tokens {
		addresses = append(addresses, addr)
	}
	m.mu.RUnlock()

	for _, addr := range addresses {
		lamports, err := m.client.GetSolBalance(ctx, addr)
		if err != nil {
			log.Printf("market: refresh %s: %v", addr, err)
			continue
		}
		m.mu.Lock()
		if info, ok := m.tokens[addr]; ok {
			info.SolVault = amount.SolScaled(lamports)
		}
		m.mu.Unlock()
	}
}
