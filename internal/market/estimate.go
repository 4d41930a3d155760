package market

import "github.com/shopspring/decimal"

// EstimateExchange prices a swap against a constant-product pool:
// out = outReserve * in / (inReserve + in). Fees are not modeled.
func EstimateExchange(inReserve, outReserve, in decimal.Decimal) decimal.Decimal {
	denominator := inReserve.Add(in)
	if denominator.IsZero() {
		return decimal.Zero
	}
	return outReserve.Mul(in).Div(denominator)
}

// ApplyExchange moves a fill through the pool reserves, returning the
// updated reserves. isBuy means SOL in, tokens out.
func ApplyExchange(solReserve, tokenReserve, in decimal.Decimal, isBuy bool) (decimal.Decimal, decimal.Decimal) {
	if isBuy {
		out := EstimateExchange(solReserve, tokenReserve, in)
		return solReserve.Add(in), tokenReserve.Sub(out)
	}
	out := EstimateExchange(tokenReserve, solReserve, in)
	return solReserve.Sub(out), tokenReserve.Add(in)
}
