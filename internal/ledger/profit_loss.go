package ledger

import "soltrader/pkg/amount"

// ProfitLoss reports the outcome of matching a disposal (real or hypothetical)
// against recorded lots. Complete is true only when the whole requested
// quantity was matched against fully exhausted lot data; partial matches mean
// the numbers cover only what the ledger knows about.
type ProfitLoss struct {
	TokenAddress string
	Pnl          amount.Amount // SOL
	PnlPercent   amount.Amount // percent of cost basis
	CostBasis    amount.Amount // SOL paid for the matched lots
	DisposedQty  amount.Amount // tokens matched
	Complete     bool
	TxSignature  string
}
