// Package trades hosts the orchestrator that submits orders, resolves their
// asynchronous confirmations, and folds confirmed fills into the cost-basis
// ledgers.
package trades

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/events"
	"soltrader/internal/executor"
	"soltrader/internal/ledger"
	"soltrader/internal/market"
	"soltrader/internal/order"
	"soltrader/internal/strategy"
	"soltrader/pkg/amount"
	"soltrader/pkg/db"
	"soltrader/pkg/solana"
)

const (
	// statsInterval paces the blockhash refresh and the unrealized PnL sweep.
	statsInterval = 10 * time.Second

	defaultConfirmWorkers  = 8
	defaultConfirmMaxTries = 30
	// fastTradeMaxTries bounds confirmation polling for the one-shot
	// convenience trades.
	fastTradeMaxTries = 3

	// priceStaleAfter is how long a tick observation may serve before the
	// stats loop ages it out of the price cache.
	priceStaleAfter = 10 * time.Minute
)

// Deps wires the manager's collaborators. Client may be nil in sim mode;
// Store may be nil when persistence is disabled.
type Deps struct {
	Bus      *events.Bus
	Facet    *executor.Facet
	Market   *market.Manager
	Factory  *strategy.Factory
	Client   *solana.Client
	Swaps    executor.SwapInfoSource
	Accounts executor.AccountReader
	Store    *db.Database

	DefaultSettings order.SwapSettings
	DefaultWallets  *order.SignerWalletSettings
	ConfirmWorkers  int
	ConfirmMaxTries int
}

// Manager correlates submitted orders with their on-chain confirmations and
// keeps per-token cost-basis ledgers current. It satisfies strategy.TradeOps,
// so strategies and trigger executors trade through it.
type Manager struct {
	bus      *events.Bus
	facet    *executor.Facet
	market   *market.Manager
	factory  *strategy.Factory
	client   *solana.Client
	swaps    executor.SwapInfoSource
	accounts executor.AccountReader
	store    *db.Database

	defaultSettings order.SwapSettings
	defaultWallets  *order.SignerWalletSettings
	defaultPayer    string
	confirmMaxTries int

	workerPool chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the ledgers, the resolved-trade cache, the wait handles
	// and the running totals. Confirmation workers and the stats loop both
	// take it.
	mu         sync.Mutex
	ledgers    map[string]*ledger.TradeState
	tradeInfos map[string]order.TradeInfo
	waiters    map[string]chan struct{}

	totalRealizedProfit amount.Amount
	totalRealizedLoss   amount.Amount
	totalUnrealized     amount.Amount
}

// NewManager builds the orchestrator. Call Start before submitting orders.
func NewManager(deps Deps) *Manager {
	workers := deps.ConfirmWorkers
	if workers <= 0 {
		workers = defaultConfirmWorkers
	}
	maxTries := deps.ConfirmMaxTries
	if maxTries <= 0 {
		maxTries = defaultConfirmMaxTries
	}

	payer := ""
	if deps.DefaultWallets != nil {
		if w, ok := deps.DefaultWallets.DefaultSigner(); ok {
			payer = w.Address
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		bus:             deps.Bus,
		facet:           deps.Facet,
		market:          deps.Market,
		factory:         deps.Factory,
		client:          deps.Client,
		swaps:           deps.Swaps,
		accounts:        deps.Accounts,
		store:           deps.Store,
		defaultSettings: deps.DefaultSettings,
		defaultWallets:  deps.DefaultWallets,
		defaultPayer:    payer,
		confirmMaxTries: maxTries,
		workerPool:      make(chan struct{}, workers),
		ctx:             ctx,
		cancel:          cancel,
		ledgers:         make(map[string]*ledger.TradeState),
		tradeInfos:      make(map[string]order.TradeInfo),
		waiters:         make(map[string]chan struct{}),

		totalRealizedProfit: amount.SolUI(0),
		totalRealizedLoss:   amount.SolUI(0),
		totalUnrealized:     amount.SolUI(0),
	}
}

// Start launches the periodic stats loop. It returns immediately.
func (m *Manager) Start() {
	go m.statsLoop()
}

// Stop cancels the background loops and cascades to the executors.
func (m *Manager) Stop() {
	m.cancel()
	m.facet.Stop()
}

// DefaultPayer returns the account the manager trades from.
func (m *Manager) DefaultPayer() string { return m.defaultPayer }

// ----------------------------------------
// Order submission and confirmation
// ----------------------------------------

// Execute routes the order through the facet and returns the submitted
// signatures immediately. Each signature gets an asynchronous confirmation
// worker; callers observe the result via WaitForTradeInfo or the bus.
func (m *Manager) Execute(o order.ExecutableOrder, maxTries int) []string {
	signatures := m.facet.Execute(m.ctx, o, maxTries)
	if len(signatures) == 0 {
		return nil
	}

	m.persistOrder(o, signatures)

	for _, signature := range signatures {
		m.workerPool <- struct{}{} // acquire confirmation slot
		go func(signature string) {
			defer func() { <-m.workerPool }()
			m.processTransaction(o, signature)
		}(signature)
	}
	return signatures
}

// processTransaction resolves one submitted signature. A signature that names
// a running strategy belongs to a pending limit sell; it gets a provisional
// record right away so consumers can show the active trade without waiting
// for the chain.
func (m *Manager) processTransaction(o order.ExecutableOrder, signature string) {
	if m.facet.Runner().Get(signature) != nil {
		if lso, ok := o.(*order.LimitsStopsOrder); ok {
			info := order.TradeInfo{
				TokenAddress: lso.TokenAddress(),
				Side:         lso.Side(),
				AmountIn:     amount.SolUI(0),
				AmountOut:    amount.SolUI(0),
				Fee:          amount.SolUI(0),
				TxSignature:  signature,
				Provisional:  true,
			}
			m.persistTrade(info)
			m.bus.Publish(events.TopicStrategyEvent, info)
			return
		}
	}

	info, ok := m.resolveTradeInfo(signature, m.confirmMaxTries)
	if !ok {
		log.Printf("trades: no confirmation for %s after %d tries", signature, m.confirmMaxTries)
		return
	}

	m.bus.Publish(events.TopicTradeEvent, info)

	if info.Side == order.SideSell {
		pl := m.realizeSell(info)
		if pl != nil {
			pl.TxSignature = info.TxSignature
			m.bus.Publish(events.TopicPnlAlert, *pl)
		}
	}

	m.recordActiveTrade(info)
	m.persistTrade(info)
}

// realizeSell computes the realized PnL of a confirmed sell against the
// ledger and folds it into the running totals. A sell with no ledger is a
// foreign disposal: the whole proceeds count as gain at an unknown basis.
func (m *Manager) realizeSell(info order.TradeInfo) *ledger.ProfitLoss {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.ledgers[info.TokenAddress]
	if !ok {
		return &ledger.ProfitLoss{
			TokenAddress: info.TokenAddress,
			Pnl:          info.AmountOut,
			PnlPercent:   amount.PercentUI(0),
			CostBasis:    info.AmountOut,
			DisposedQty:  info.AmountIn,
			Complete:     true,
		}
	}

	tokens := info.AmountIn.UIDecimal()
	if !tokens.IsPositive() {
		return nil
	}
	price := info.AmountOut.UIDecimal().Div(tokens)

	pl := state.EstimatedPnl(price, info.AmountIn)
	if pl == nil {
		return nil
	}
	if pl.Pnl.IsPositive() {
		m.totalRealizedProfit = m.totalRealizedProfit.Add(pl.Pnl)
	} else {
		m.totalRealizedLoss = m.totalRealizedLoss.Add(pl.Pnl)
	}
	return pl
}

// recordActiveTrade applies one confirmed fill to the token's ledger. A buy
// opens or extends a lot; a sell consumes lots and drops the ledger once it
// empties.
func (m *Manager) recordActiveTrade(info order.TradeInfo) {
	if info.Side != order.SideBuy && info.Side != order.SideSell {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.ledgers[info.TokenAddress]
	if !ok {
		state = ledger.NewTradeState(info.TokenAddress, info.TokenQuantity().Decimals())
		m.ledgers[info.TokenAddress] = state
	}

	switch info.Side {
	case order.SideBuy:
		state.AddTokenAmount(info.Price(), info.AmountOut)
	case order.SideSell:
		state.SubtractTokenAmount(info.AmountIn)
		if state.ActiveTradeCount() == 0 {
			delete(m.ledgers, info.TokenAddress)
		}
	}
}

// resolveTradeInfo reduces the raw per-token balance-change records of a
// confirmed transaction into one TradeInfo. Routes that pay out in wrapped
// SOL report the SOL leg as a WSOL token change; those records fold into the
// SOL side of the fill.
func (m *Manager) resolveTradeInfo(signature string, maxTries int) (order.TradeInfo, bool) {
	m.mu.Lock()
	if info, ok := m.tradeInfos[signature]; ok {
		m.mu.Unlock()
		return info, true
	}
	m.mu.Unlock()

	records := m.swaps.GetSwapInfo(m.ctx, signature, m.defaultPayer, maxTries)
	if len(records) == 0 {
		return order.TradeInfo{}, false
	}

	var (
		side      order.Side
		token     string
		tokenAmt  amount.Amount
		tokenSeen bool
		solAmt    = amount.SolUI(0)
		fee       = amount.SolUI(0)
	)

	for _, rec := range records {
		if rec.TokenAddress == solana.WrappedSolMint {
			// Earning WSOL means SOL came back, so the trade is a sell.
			side = sideOfChange(rec.TokenBalanceChange.Neg())
			solAmt = solAmt.AddUI(rec.TokenBalanceChange.Abs())
			continue
		}

		side = sideOfChange(rec.TokenBalanceChange)
		token = rec.TokenAddress
		tokenSeen = true
		fee = amount.SolScaled(rec.Fee)
		tokenAmt = amount.FromUI(rec.TokenBalanceChange.Abs(), rec.TokenDecimals)

		// A sell with a negative SOL delta paid out in WSOL; the SOL side
		// arrives on the WSOL record instead.
		if !(side == order.SideSell && rec.SolBalanceChange < 0) {
			solAmt = solAmt.AddScaled(decimal.NewFromInt(rec.SolBalanceChange).Abs())
		}
	}

	if !tokenSeen {
		return order.TradeInfo{}, false
	}

	info := order.TradeInfo{
		TokenAddress: token,
		Side:         side,
		Fee:          fee,
		TxSignature:  signature,
	}
	if side == order.SideBuy {
		info.AmountIn, info.AmountOut = solAmt, tokenAmt
	} else {
		info.AmountIn, info.AmountOut = tokenAmt, solAmt
	}

	m.mu.Lock()
	m.tradeInfos[signature] = info
	if waiter, ok := m.waiters[signature]; ok {
		close(waiter)
		delete(m.waiters, signature)
	}
	m.mu.Unlock()

	return info, true
}

func sideOfChange(balanceChange decimal.Decimal) order.Side {
	if balanceChange.IsPositive() {
		return order.SideBuy
	}
	return order.SideSell
}

// WaitForTradeInfo blocks until the signature's confirmation has been
// resolved or the timeout elapses. Nil means "not yet confirmed", never a
// stale value.
func (m *Manager) WaitForTradeInfo(signature string, timeout time.Duration) *order.TradeInfo {
	m.mu.Lock()
	if info, ok := m.tradeInfos[signature]; ok {
		m.mu.Unlock()
		return &info
	}
	waiter, ok := m.waiters[signature]
	if !ok {
		waiter = make(chan struct{})
		m.waiters[signature] = waiter
	}
	m.mu.Unlock()

	select {
	case <-waiter:
	case <-time.After(timeout):
	case <-m.ctx.Done():
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.tradeInfos[signature]; ok {
		return &info
	}
	return nil
}

// ----------------------------------------
// PnL queries and totals
// ----------------------------------------

// GetPnl estimates the profit of disposing the whole position at the current
// market price. Nil when no ledger or no price exists.
func (m *Manager) GetPnl(token string) *ledger.ProfitLoss {
	price, ok := m.market.GetPrice(token)
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.ledgers[token]
	if !ok {
		return nil
	}
	return state.EstimatedPnl(price, state.TotalTokensHeld())
}

// GetStatus renders a one-line PnL summary for a token.
func (m *Manager) GetStatus(token string) string {
	pl := m.GetPnl(token)
	if pl == nil {
		return ""
	}
	return fmt.Sprintf("PNL: %s", pl.Pnl.UIDecimal().Round(7))
}

// GetTotalProfit returns the accumulated realized profit in SOL.
func (m *Manager) GetTotalProfit() amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalRealizedProfit
}

// GetTotalLoss returns the accumulated realized loss in SOL. Losses
// accumulate as negative values.
func (m *Manager) GetTotalLoss() amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalRealizedLoss
}

// GetUnrealizedSol returns the unrealized PnL total from the last stats
// sweep.
func (m *Manager) GetUnrealizedSol() amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalUnrealized
}

// GetSolBalance returns the default payer's SOL balance.
func (m *Manager) GetSolBalance() (amount.Amount, bool) {
	return m.accounts.GetSolBalance(m.defaultPayer)
}

// LatestBlockhash returns the reference blockhash the stats loop keeps
// fresh, empty without an RPC client.
func (m *Manager) LatestBlockhash() string {
	if m.client == nil {
		return ""
	}
	return m.client.LatestBlockhash()
}

// GetTokenAccountBalance returns an owner's balance for a token.
func (m *Manager) GetTokenAccountBalance(token, owner string) (amount.Amount, bool) {
	return m.accounts.GetTokenAccountBalance(token, owner)
}

// GetExchange estimates the constant-product output of swapping amountIn
// against the token's pool. Buys quote SOL in, tokens out; sells the reverse.
func (m *Manager) GetExchange(token string, amountIn amount.Amount, isBuy bool) (amount.Amount, bool) {
	info := m.market.GetTokenInfo(token)
	if info == nil {
		return amount.Amount{}, false
	}

	if isBuy {
		out := market.EstimateExchange(info.SolVault.UIDecimal(), info.TokenVault.UIDecimal(), amountIn.UIDecimal())
		return amount.FromUI(out, info.TokenVault.Decimals()), true
	}
	out := market.EstimateExchange(info.TokenVault.UIDecimal(), info.SolVault.UIDecimal(), amountIn.UIDecimal())
	return amount.FromUI(out, amount.SolDecimals), true
}

// DefaultSwapSettings returns a copy of the stock trade settings.
func (m *Manager) DefaultSwapSettings() order.SwapSettings {
	return m.defaultSettings
}

// ActiveTokens lists the tokens with open ledgers.
func (m *Manager) ActiveTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := make([]string, 0, len(m.ledgers))
	for token := range m.ledgers {
		tokens = append(tokens, token)
	}
	return tokens
}

// ----------------------------------------
// Convenience trades
// ----------------------------------------

// FastBuy submits a one-shot buy with the default settings.
func (m *Manager) FastBuy(token string) {
	o := order.NewSwapOrder(order.SideBuy, token, m.defaultSettings, nil)
	m.Execute(o, fastTradeMaxTries)
}

// FastSell disposes the whole recorded position of a token. No ledger, no
// trade.
func (m *Manager) FastSell(token string) {
	m.mu.Lock()
	state, ok := m.ledgers[token]
	var held amount.Amount
	if ok {
		held = state.TotalTokensHeld()
	}
	m.mu.Unlock()
	if !ok || !held.IsPositive() {
		return
	}

	settings := m.defaultSettings
	settings.AmountIn = held
	o := order.NewSwapOrder(order.SideSell, token, settings, nil)
	m.Execute(o, fastTradeMaxTries)
}

// SellAll disposes every open position.
func (m *Manager) SellAll() {
	for _, token := range m.ActiveTokens() {
		m.FastSell(token)
	}
}

// Sweep disposes every position whose estimated PnL percent is at or below
// zero.
func (m *Manager) Sweep() {
	for _, token := range m.ActiveTokens() {
		pl := m.GetPnl(token)
		if pl != nil && !pl.PnlPercent.IsPositive() {
			m.FastSell(token)
		}
	}
}

// ----------------------------------------
// Background stats loop
// ----------------------------------------

// statsLoop refreshes the reference blockhash, ages stale prices out of the
// tick cache and recomputes total unrealized PnL on a fixed cadence until
// the manager stops.
func (m *Manager) statsLoop() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}

		if m.client != nil {
			if err := m.client.UpdateLatestBlockhash(m.ctx); err != nil {
				log.Printf("trades: blockhash refresh: %v", err)
			}
		}
		if removed := m.market.PrunePrices(priceStaleAfter); removed > 0 {
			log.Printf("trades: aged out %d stale prices", removed)
		}
		m.refreshUnrealized()
	}
}

func (m *Manager) refreshUnrealized() {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	for token, state := range m.ledgers {
		price, ok := m.market.GetPrice(token)
		if !ok {
			continue
		}
		held := state.TotalTokensHeld()
		if !held.IsPositive() {
			continue
		}
		if pl := state.EstimatedPnl(price, held); pl != nil {
			total = total.Add(pl.Pnl.UIDecimal())
		}
	}
	m.totalUnrealized = amount.FromUI(total, amount.SolDecimals)
}

// ----------------------------------------
// Persistence hooks
// ----------------------------------------

// persistOrder records a submission; failures log and never block trading.
func (m *Manager) persistOrder(o order.ExecutableOrder, signatures []string) {
	if m.store == nil {
		return
	}

	rec := db.OrderRecord{
		ID:           signatures[0],
		Kind:         o.Kind().String(),
		Side:         o.Side().String(),
		TokenAddress: o.TokenAddress(),
		Status:       db.OrderStatusSubmitted,
	}
	if so, ok := o.(*order.SwapOrder); ok {
		rec.AmountInSol = so.Settings.AmountIn.UI()
		rec.SlippagePct = so.Settings.Slippage.UI()
		rec.PriorityFeeSol = so.Settings.PriorityFee.UI()
	}
	if err := m.store.CreateOrder(m.ctx, rec); err != nil {
		log.Printf("trades: persist order %s: %v", rec.ID, err)
	}
}

func (m *Manager) persistTrade(info order.TradeInfo) {
	if m.store == nil {
		return
	}

	rec := db.TradeRecord{
		TxSignature:  info.TxSignature,
		TokenAddress: info.TokenAddress,
		Side:         info.Side.String(),
		Price:        info.Price().InexactFloat64(),
		FeeLamports:  info.Fee.Scaled().IntPart(),
		Payer:        m.defaultPayer,
		Provisional:  info.Provisional,
	}
	if info.Side == order.SideBuy {
		rec.SolAmount = info.AmountIn.UI()
		rec.TokenAmount = info.AmountOut.UI()
	} else {
		rec.SolAmount = info.AmountOut.UI()
		rec.TokenAmount = info.AmountIn.UI()
	}
	if err := m.store.CreateTrade(m.ctx, rec); err != nil {
		log.Printf("trades: persist trade %s: %v", rec.TxSignature, err)
	}
	if !info.Provisional {
		if err := m.store.UpdateOrderStatus(m.ctx, info.TxSignature, db.OrderStatusConfirmed); err != nil {
			log.Printf("trades: confirm order %s: %v", info.TxSignature, err)
		}
	}
}
