// Package order defines the executable order variants the trading core
// routes, plus their settings and map-based serialization used by strategy
// configs and the API.
package order

import (
	"strings"

	"soltrader/pkg/amount"
)

// Side is the direction of a swap.
type Side int

const (
	SideBuy Side = iota
	SideSell
	// SidePendingLimitSell marks sells derived from a limits/stops order.
	// They settle later through a watcher strategy, never immediately.
	SidePendingLimitSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	case SidePendingLimitSell:
		return "PENDING_LIMIT_SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide maps a config string to a Side; unknown strings default to BUY.
func ParseSide(s string) Side {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SELL":
		return SideSell
	case "PENDING_LIMIT_SELL":
		return SidePendingLimitSell
	default:
		return SideBuy
	}
}

// Kind tags the concrete order variant. Executors register by Kind.
type Kind int

const (
	KindSwap Kind = iota
	KindBundledSwap
	KindLimitsStops
	KindMcap
)

func (k Kind) String() string {
	switch k {
	case KindSwap:
		return "swap"
	case KindBundledSwap:
		return "bundled_swap"
	case KindLimitsStops:
		return "limits_stops"
	case KindMcap:
		return "mcap"
	default:
		return "unknown"
	}
}

// ParseKind resolves a kind label back to its tag. The second result is
// false for unknown labels.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "swap":
		return KindSwap, true
	case "bundled_swap":
		return KindBundledSwap, true
	case "limits_stops":
		return KindLimitsStops, true
	case "mcap":
		return KindMcap, true
	default:
		return KindSwap, false
	}
}

// Defaults applied by the lenient parsers when a field is absent.
const (
	DefaultAmountInSol  = 0.0001
	DefaultSlippagePct  = 1
	DefaultPriorityFee  = 0.00001
	DefaultConfirmTrade = true
)

// SwapSettings carries the per-swap execution knobs.
type SwapSettings struct {
	AmountIn    amount.Amount
	Slippage    amount.Amount
	PriorityFee amount.Amount
	Confirm     bool
	Tip         amount.Amount // optional validator tip, zero when unused
}

// DefaultSwapSettings builds settings for the given spend with the stock
// slippage and fee defaults.
func DefaultSwapSettings(amountIn amount.Amount) SwapSettings {
	return SwapSettings{
		AmountIn:    amountIn,
		Slippage:    amount.PercentUI(DefaultSlippagePct),
		PriorityFee: amount.SolUI(DefaultPriorityFee),
		Confirm:     DefaultConfirmTrade,
		Tip:         amount.SolUI(0),
	}
}

func (s SwapSettings) serialize() map[string]any {
	return map[string]any{
		"amount_in":           s.AmountIn.UI(),
		"slippage":            s.Slippage.UI(),
		"priority_fee":        s.PriorityFee.UI(),
		"tip":                 s.Tip.UI(),
		"confirm_transaction": s.Confirm,
	}
}

func swapSettingsFromMap(values map[string]any) SwapSettings {
	return SwapSettings{
		AmountIn:    amount.SolUI(floatField(values, "amount_in", DefaultAmountInSol)),
		Slippage:    amount.PercentUI(floatField(values, "slippage", DefaultSlippagePct)),
		PriorityFee: amount.SolUI(floatField(values, "priority_fee", DefaultPriorityFee)),
		Tip:         amount.SolUI(floatField(values, "tip", 0)),
		Confirm:     boolField(values, "confirm_transaction", DefaultConfirmTrade),
	}
}

// SwapSettingsSchema describes the settings fields and their defaults for
// the strategy configurator.
func SwapSettingsSchema() map[string]any {
	return map[string]any{
		"amount_in":           DefaultAmountInSol,
		"slippage":            DefaultSlippagePct,
		"priority_fee":        DefaultPriorityFee,
		"tip":                 0.0,
		"confirm_transaction": DefaultConfirmTrade,
	}
}

// SignerWallet is one signing identity, optionally overriding the order's
// spend amount.
type SignerWallet struct {
	Address  string
	AmountIn *amount.Amount
}

// SignerWalletSettings is an ordered set of unique signer wallets with one
// designated default.
type SignerWalletSettings struct {
	wallets        []SignerWallet
	defaultAddress string
	hasCustomAmt   bool
}

// NewSignerWalletSettings builds settings with an optional default signer.
func NewSignerWalletSettings(defaultSigner string) *SignerWalletSettings {
	s := &SignerWalletSettings{}
	if defaultSigner != "" {
		s.AddWallet(SignerWallet{Address: defaultSigner})
		s.defaultAddress = defaultSigner
	}
	return s
}

// AddWallet appends a signer, ignoring duplicates by address.
func (s *SignerWalletSettings) AddWallet(w SignerWallet) {
	for _, have := range s.wallets {
		if have.Address == w.Address {
			return
		}
	}
	if w.AmountIn != nil {
		s.hasCustomAmt = true
	}
	s.wallets = append(s.wallets, w)
}

// SetDefaultSigner designates the default, adding the wallet if new.
func (s *SignerWalletSettings) SetDefaultSigner(address string) {
	s.AddWallet(SignerWallet{Address: address})
	s.defaultAddress = address
}

// DefaultSigner returns the designated default, falling back to the first
// registered wallet.
func (s *SignerWalletSettings) DefaultSigner() (SignerWallet, bool) {
	if s.defaultAddress != "" {
		for _, w := range s.wallets {
			if w.Address == s.defaultAddress {
				return w, true
			}
		}
	}
	if len(s.wallets) > 0 {
		return s.wallets[0], true
	}
	return SignerWallet{}, false
}

// Wallets returns the signers in registration order.
func (s *SignerWalletSettings) Wallets() []SignerWallet {
	out := make([]SignerWallet, len(s.wallets))
	copy(out, s.wallets)
	return out
}

func (s *SignerWalletSettings) IsSingleSigner() bool { return len(s.wallets) == 1 }

func (s *SignerWalletSettings) HasCustomAmount() bool { return s.hasCustomAmt }

func (s *SignerWalletSettings) serialize() map[string]any {
	keys := make([]map[string]any, 0, len(s.wallets))
	for _, w := range s.wallets {
		info := map[string]any{"pubkey": w.Address}
		if w.AmountIn != nil && w.AmountIn.IsPositive() {
			info["amount_in"] = w.AmountIn.UI()
		}
		keys = append(keys, info)
	}
	return map[string]any{"pubkeys": keys}
}

func signerWalletSettingsFromMap(values map[string]any) *SignerWalletSettings {
	raw, ok := values["pubkeys"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	settings := &SignerWalletSettings{}
	for _, entry := range raw {
		info, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		address, _ := info["pubkey"].(string)
		if address == "" {
			continue
		}
		wallet := SignerWallet{Address: address}
		if custom := floatField(info, "amount_in", 0); custom > 0 {
			a := amount.SolUI(custom)
			wallet.AmountIn = &a
		}
		settings.AddWallet(wallet)
	}
	if len(settings.wallets) == 0 {
		return nil
	}
	return settings
}

// SignerWalletSettingsSchema describes the wallet block for the configurator.
func SignerWalletSettingsSchema() map[string]any {
	return map[string]any{
		"pubkeys": []map[string]any{
			{"pubkey": "1st signer address", "amount_in": 0.0},
			{"pubkey": "2nd signer address and so forth", "amount_in": 0.0},
		},
	}
}

// PnlOption is one take-profit or stop-loss rung: trigger at a pnl percent,
// dispose an allocation percent of the position.
type PnlOption struct {
	TriggerAtPercent  amount.Amount
	AllocationPercent amount.Amount
}

func (p PnlOption) serialize() map[string]any {
	return map[string]any{
		"trigger_at_percent": p.TriggerAtPercent.UI(),
		"allocation_percent": p.AllocationPercent.UI(),
	}
}

func pnlOptionFromMap(values map[string]any) PnlOption {
	return PnlOption{
		TriggerAtPercent:  amount.PercentUI(floatField(values, "trigger_at_percent", 0)),
		AllocationPercent: amount.PercentUI(floatField(values, "allocation_percent", 100)),
	}
}

// floatField reads a numeric map entry tolerating the types JSON and YAML
// decoders produce.
func floatField(values map[string]any, key string, fallback float64) float64 {
	switch v := values[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func boolField(values map[string]any, key string, fallback bool) bool {
	switch v := values[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return fallback
	}
}

func stringField(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}
