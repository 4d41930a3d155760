package solana

import "github.com/shopspring/decimal"

// WrappedSolMint is the mint address of wrapped SOL; swap routes that pay out
// in WSOL report it like any other token balance change.
const WrappedSolMint = "So11111111111111111111111111111111111111112"

// SwapTransactionInfo is one per-token balance-change record extracted from a
// confirmed transaction. Amounts are from the payer's point of view: positive
// means the payer's balance grew.
type SwapTransactionInfo struct {
	TxSignature        string
	TokenAddress       string
	SolBalanceChange   int64 // lamports
	TokenBalanceChange decimal.Decimal // display units
	TokenDecimals      int32
	Fee                int64 // lamports
	PayerAddress       string
	PayerTokenBalance  decimal.Decimal // display units after the swap
}

// TokenAccountBalance is the parsed balance of one token account.
type TokenAccountBalance struct {
	Amount   decimal.Decimal // display units
	Decimals int32
}
