package order

import (
	"github.com/shopspring/decimal"

	"soltrader/pkg/amount"
)

// TradeInfo is one confirmed (or provisionally synthesized) fill. For a BUY
// AmountIn is the SOL spent and AmountOut the tokens received; a SELL is the
// reverse.
type TradeInfo struct {
	TokenAddress string
	Side         Side
	AmountIn     amount.Amount
	AmountOut    amount.Amount
	Fee          amount.Amount
	TxSignature  string
	// Provisional marks records synthesized for a pending limit sell before
	// any on-chain confirmation exists.
	Provisional bool
}

// Price returns the effective SOL-per-token price of the fill, zero when a
// leg is missing.
func (t TradeInfo) Price() decimal.Decimal {
	var sol, tokens decimal.Decimal
	if t.Side == SideBuy {
		sol, tokens = t.AmountIn.UIDecimal(), t.AmountOut.UIDecimal()
	} else {
		sol, tokens = t.AmountOut.UIDecimal(), t.AmountIn.UIDecimal()
	}
	if tokens.IsZero() {
		return decimal.Zero
	}
	return sol.Div(tokens)
}

// TokenQuantity returns the token-side leg of the fill.
func (t TradeInfo) TokenQuantity() amount.Amount {
	if t.Side == SideBuy {
		return t.AmountOut
	}
	return t.AmountIn
}
