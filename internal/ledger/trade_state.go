// Package ledger tracks per-token cost basis as ordered lots and computes
// realized/unrealized profit-and-loss from them.
package ledger

import (
	"log"

	"github.com/shopspring/decimal"

	"soltrader/pkg/amount"
)

// Lot is a priced quantity of a token recorded at acquisition. Price is the
// SOL-per-token display price; Quantity the remaining display amount.
type Lot struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// TradeState is the cost-basis ledger for one token. Lots are kept sorted
// descending by price, and disposals consume the highest-priced lots first.
// Changing that ordering changes reported PnL; see DESIGN.md before touching.
//
// TradeState is not safe for concurrent use; the trades manager serializes
// access through its ledger lock.
type TradeState struct {
	TokenAddress  string
	TokenDecimals int32

	lots []Lot
}

// NewTradeState creates an empty ledger for a token.
func NewTradeState(tokenAddress string, tokenDecimals int32) *TradeState {
	return &TradeState{TokenAddress: tokenAddress, TokenDecimals: tokenDecimals}
}

// ActiveTradeCount returns the number of open lots.
func (t *TradeState) ActiveTradeCount() int {
	return len(t.lots)
}

// Lots returns a copy of the open lots in descending price order.
func (t *TradeState) Lots() []Lot {
	out := make([]Lot, len(t.lots))
	copy(out, t.lots)
	return out
}

// TotalTokensHeld sums the remaining quantity across all lots.
func (t *TradeState) TotalTokensHeld() amount.Amount {
	total := decimal.Zero
	for _, lot := range t.lots {
		total = total.Add(lot.Quantity)
	}
	return amount.FromUI(total, t.TokenDecimals)
}

// AddTokenAmount records a buy: merge into the lot at an exact price match,
// otherwise insert a new lot keeping descending price order.
func (t *TradeState) AddTokenAmount(price decimal.Decimal, qty amount.Amount) {
	q := qty.UIDecimal()
	if !q.IsPositive() {
		return
	}

	for i := range t.lots {
		if t.lots[i].Price.Equal(price) {
			t.lots[i].Quantity = t.lots[i].Quantity.Add(q)
			return
		}
	}

	// Insert before the first lot with a lower price.
	at := len(t.lots)
	for i, lot := range t.lots {
		if price.GreaterThan(lot.Price) {
			at = i
			break
		}
	}
	t.lots = append(t.lots, Lot{})
	copy(t.lots[at+1:], t.lots[at:])
	t.lots[at] = Lot{Price: price, Quantity: q}
}

// SubtractTokenAmount records a disposal: walk lots highest price first,
// consuming min(remaining, lot) from each. A disposal beyond the recorded
// lots silently drops the unmatched remainder; that is the documented
// convention for externally-held balances, not an error.
func (t *TradeState) SubtractTokenAmount(qty amount.Amount) {
	remaining := qty.UIDecimal()

	kept := t.lots[:0]
	for i, lot := range t.lots {
		if !remaining.IsPositive() {
			kept = append(kept, t.lots[i:]...)
			break
		}
		clipped := decimal.Min(remaining, lot.Quantity)
		remaining = remaining.Sub(clipped)
		left := lot.Quantity.Sub(clipped)
		if left.IsPositive() {
			kept = append(kept, Lot{Price: lot.Price, Quantity: left})
		}
		// fully consumed lots are dropped
	}
	t.lots = kept
}

// EstimatedPnl replays the disposal walk over up to qty tokens at the given
// current price and reports the quantity-weighted outcome. A nil result means
// "PnL unavailable"; arithmetic faults never propagate.
func (t *TradeState) EstimatedPnl(currentPrice decimal.Decimal, qty amount.Amount) (pl *ProfitLoss) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ledger: pnl computation failed for %s: %v", t.TokenAddress, r)
			pl = nil
		}
	}()

	requested := qty.UIDecimal()
	remaining := requested
	totalCost := decimal.Zero
	walked := 0

	for _, lot := range t.lots {
		if !remaining.IsPositive() {
			break
		}
		clipped := decimal.Min(remaining, lot.Quantity)
		totalCost = totalCost.Add(lot.Price.Mul(clipped))
		remaining = remaining.Sub(clipped)
		walked++
	}

	matched := requested.Sub(remaining)
	complete := remaining.IsZero() && walked == len(t.lots)

	var pnl decimal.Decimal
	percent := decimal.Zero
	switch {
	case totalCost.IsZero():
		// Unrecorded position: we don't know the basis, so the whole current
		// value counts as gain and the percent stays at zero.
		pnl = currentPrice.Mul(requested)
	case matched.IsZero():
		pnl = decimal.Zero
	default:
		avgCost := totalCost.Div(matched)
		pnl = currentPrice.Sub(avgCost).Mul(matched)
		percent = pnl.Div(totalCost).Mul(decimal.NewFromInt(100))
	}

	return &ProfitLoss{
		TokenAddress: t.TokenAddress,
		Pnl:          amount.FromUI(pnl, amount.SolDecimals),
		PnlPercent:   amount.FromUI(percent, amount.PercentDecimals),
		CostBasis:    amount.FromUI(totalCost, amount.SolDecimals),
		DisposedQty:  amount.FromUI(matched, t.TokenDecimals),
		Complete:     complete,
	}
}
