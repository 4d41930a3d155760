package order

import (
	"fmt"

	"soltrader/pkg/amount"
)

// ExecutableOrder is the closed family of orders the facet can route.
// Kind identifies the variant for executor lookup; Serialize produces the
// map form stored in configs and the database.
type ExecutableOrder interface {
	Kind() Kind
	Side() Side
	TokenAddress() string
	WalletSettings() *SignerWalletSettings
	SetWalletSettings(*SignerWalletSettings)
	Serialize() map[string]any
}

// SwapOrder is a one-shot buy or sell of a single token.
type SwapOrder struct {
	OrderSide       Side
	Token           string
	Settings        SwapSettings
	Wallets         *SignerWalletSettings
	UseSignerAmount bool
}

// NewSwapOrder builds a plain swap.
func NewSwapOrder(side Side, token string, settings SwapSettings, wallets *SignerWalletSettings) *SwapOrder {
	return &SwapOrder{OrderSide: side, Token: token, Settings: settings, Wallets: wallets}
}

func (o *SwapOrder) Kind() Kind                             { return KindSwap }
func (o *SwapOrder) Side() Side                             { return o.OrderSide }
func (o *SwapOrder) TokenAddress() string                   { return o.Token }
func (o *SwapOrder) WalletSettings() *SignerWalletSettings  { return o.Wallets }
func (o *SwapOrder) SetWalletSettings(w *SignerWalletSettings) { o.Wallets = w }

// SignerAmount resolves the spend for one signer, preferring its custom
// override when set.
func (o *SwapOrder) SignerAmount(signer SignerWallet) amount.Amount {
	if signer.AmountIn != nil {
		return *signer.AmountIn
	}
	return o.Settings.AmountIn
}

func (o *SwapOrder) Serialize() map[string]any {
	out := map[string]any{
		"order_type":    o.OrderSide.String(),
		"token_address": o.Token,
	}
	mergeInto(out, o.Settings.serialize())
	if o.Wallets != nil {
		mergeInto(out, o.Wallets.serialize())
	}
	return out
}

// SwapOrderFromMap is the lenient parse: missing optionals get defaults,
// a missing token address yields nil.
func SwapOrderFromMap(values map[string]any) *SwapOrder {
	token := stringField(values, "token_address")
	if token == "" {
		return nil
	}
	return &SwapOrder{
		OrderSide: ParseSide(stringField(values, "order_type")),
		Token:     token,
		Settings:  swapSettingsFromMap(values),
		Wallets:   signerWalletSettingsFromMap(values),
	}
}

// SwapOrderSchema lists the fields a swap order record carries.
func SwapOrderSchema() map[string]any {
	out := map[string]any{
		"order_type":    "BUY | SELL",
		"token_address": "contract address",
	}
	mergeInto(out, SwapSettingsSchema())
	mergeInto(out, SignerWalletSettingsSchema())
	return out
}

// BundleLimit caps the sub-orders a bundle may carry.
const BundleLimit = 5

// BundledSwapOrder submits up to BundleLimit swaps in one atomic bundle.
// Signer amount overrides always apply inside a bundle.
type BundledSwapOrder struct {
	SwapOrder
	subOrders []*SwapOrder
}

// NewBundledSwapOrder builds an empty bundle around the shared settings.
func NewBundledSwapOrder(side Side, token string, settings SwapSettings, wallets *SignerWalletSettings) *BundledSwapOrder {
	o := &BundledSwapOrder{
		SwapOrder: SwapOrder{OrderSide: side, Token: token, Settings: settings, Wallets: wallets, UseSignerAmount: true},
	}
	return o
}

func (o *BundledSwapOrder) Kind() Kind { return KindBundledSwap }

// AddSwapOrder appends a sub-order. Exceeding BundleLimit is the one
// construction error surfaced to callers.
func (o *BundledSwapOrder) AddSwapOrder(sub *SwapOrder) error {
	if len(o.subOrders) == BundleLimit {
		return fmt.Errorf("bundle order exceeded the limit of %d", BundleLimit)
	}
	o.subOrders = append(o.subOrders, sub)
	return nil
}

// SubOrders returns the bundled swaps in insertion order.
func (o *BundledSwapOrder) SubOrders() []*SwapOrder {
	out := make([]*SwapOrder, len(o.subOrders))
	copy(out, o.subOrders)
	return out
}

// LimitsStopsOrder wraps a swap with ordered take-profit and stop-loss rungs.
// Its sells are pending limit sells by construction.
type LimitsStopsOrder struct {
	SwapOrder
	Limits     []PnlOption
	StopLosses []PnlOption
	EntryPrice amount.Amount
	IsTrailing bool
}

// NewLimitsStopsOrder builds a limits/stops wrapper. A SELL side is retagged
// PENDING_LIMIT_SELL so downstream consumers never see it as a plain sell.
func NewLimitsStopsOrder(side Side, token string, entryPrice amount.Amount, settings SwapSettings, isTrailing bool, wallets *SignerWalletSettings) *LimitsStopsOrder {
	if side == SideSell {
		side = SidePendingLimitSell
	}
	return &LimitsStopsOrder{
		SwapOrder:  SwapOrder{OrderSide: side, Token: token, Settings: settings, Wallets: wallets},
		EntryPrice: entryPrice,
		IsTrailing: isTrailing,
	}
}

func (o *LimitsStopsOrder) Kind() Kind { return KindLimitsStops }

// AddPnlOption files the rung under limits or stop losses by trigger sign.
// A zero trigger is dropped.
func (o *LimitsStopsOrder) AddPnlOption(opt PnlOption) {
	switch {
	case opt.TriggerAtPercent.IsPositive():
		o.Limits = append(o.Limits, opt)
	case opt.TriggerAtPercent.IsNegative():
		o.StopLosses = append(o.StopLosses, opt)
	}
}

// AsSwapOrder strips the limits/stops wrapper for direct execution.
func (o *LimitsStopsOrder) AsSwapOrder() *SwapOrder {
	return &SwapOrder{OrderSide: o.OrderSide, Token: o.Token, Settings: o.Settings, Wallets: o.Wallets}
}

func (o *LimitsStopsOrder) Serialize() map[string]any {
	limits := make([]map[string]any, 0, len(o.Limits))
	for _, l := range o.Limits {
		limits = append(limits, l.serialize())
	}
	stops := make([]map[string]any, 0, len(o.StopLosses))
	for _, s := range o.StopLosses {
		stops = append(stops, s.serialize())
	}
	out := o.SwapOrder.Serialize()
	out["base_token_price"] = o.EntryPrice.UI()
	out["is_trailing"] = o.IsTrailing
	out["limit_orders"] = limits
	out["stop_loss_orders"] = stops
	return out
}

// LimitsStopsOrderFromMap parses a limits/stops record; nil when the token
// address is absent.
func LimitsStopsOrderFromMap(values map[string]any) *LimitsStopsOrder {
	token := stringField(values, "token_address")
	if token == "" {
		return nil
	}
	o := NewLimitsStopsOrder(
		SideSell,
		token,
		amount.SolUI(floatField(values, "base_token_price", 0)),
		swapSettingsFromMap(values),
		boolField(values, "is_trailing", false),
		signerWalletSettingsFromMap(values),
	)
	for _, entry := range listField(values, "limit_orders") {
		o.AddPnlOption(pnlOptionFromMap(entry))
	}
	for _, entry := range listField(values, "stop_loss_orders") {
		o.AddPnlOption(pnlOptionFromMap(entry))
	}
	return o
}

// LimitsStopsOrderSchema lists the fields a limits/stops record carries.
func LimitsStopsOrderSchema() map[string]any {
	out := map[string]any{
		"token_address":    "contract address",
		"base_token_price": 0.0,
		"is_trailing":      false,
		"limit_orders":     []map[string]any{{"trigger_at_percent": 50, "allocation_percent": 100}},
		"stop_loss_orders": []map[string]any{{"trigger_at_percent": -99, "allocation_percent": 100}},
	}
	mergeInto(out, SwapSettingsSchema())
	return out
}

// McapOrder fires its swap when the token's market cap crosses the target.
type McapOrder struct {
	SwapOrder
	TargetMcap  amount.Amount
	LimitsStops *LimitsStopsOrder // optional follow-up placed after the fill
}

// NewMcapOrder builds a market-cap triggered swap.
func NewMcapOrder(side Side, token string, settings SwapSettings, targetMcap amount.Amount, wallets *SignerWalletSettings, limitsStops *LimitsStopsOrder) *McapOrder {
	return &McapOrder{
		SwapOrder:   SwapOrder{OrderSide: side, Token: token, Settings: settings, Wallets: wallets},
		TargetMcap:  targetMcap,
		LimitsStops: limitsStops,
	}
}

func (o *McapOrder) Kind() Kind { return KindMcap }

func (o *McapOrder) Serialize() map[string]any {
	out := o.SwapOrder.Serialize()
	out["target_mcap"] = o.TargetMcap.UI()
	if o.LimitsStops != nil {
		mergeInto(out, o.LimitsStops.Serialize())
	}
	return out
}

// McapOrderFromMap parses a market-cap order record; nil when the token
// address is absent. A nested limits/stops block is picked up when present.
func McapOrderFromMap(values map[string]any) *McapOrder {
	token := stringField(values, "token_address")
	if token == "" {
		return nil
	}
	var limitsStops *LimitsStopsOrder
	if _, ok := values["limit_orders"]; ok {
		limitsStops = LimitsStopsOrderFromMap(values)
	} else if _, ok := values["stop_loss_orders"]; ok {
		limitsStops = LimitsStopsOrderFromMap(values)
	}
	return NewMcapOrder(
		ParseSide(stringField(values, "order_type")),
		token,
		swapSettingsFromMap(values),
		amount.SolUI(floatField(values, "target_mcap", 0)),
		signerWalletSettingsFromMap(values),
		limitsStops,
	)
}

// McapOrderSchema lists the fields a market-cap order record carries.
func McapOrderSchema() map[string]any {
	out := map[string]any{"target_mcap": 0.0}
	mergeInto(out, SwapOrderSchema())
	mergeInto(out, LimitsStopsOrderSchema())
	return out
}

// FromMap resolves the variant by kind tag and delegates to its parser.
// Unknown kinds and malformed records yield nil.
func FromMap(kind Kind, values map[string]any) ExecutableOrder {
	switch kind {
	case KindSwap, KindBundledSwap:
		if o := SwapOrderFromMap(values); o != nil {
			return o
		}
	case KindLimitsStops:
		if o := LimitsStopsOrderFromMap(values); o != nil {
			return o
		}
	case KindMcap:
		if o := McapOrderFromMap(values); o != nil {
			return o
		}
	}
	return nil
}

// Schema returns the record schema for a kind, nil for unknown kinds.
func Schema(kind Kind) map[string]any {
	switch kind {
	case KindSwap, KindBundledSwap:
		return SwapOrderSchema()
	case KindLimitsStops:
		return LimitsStopsOrderSchema()
	case KindMcap:
		return McapOrderSchema()
	default:
		return nil
	}
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// listField reads a list of maps tolerating both []any (JSON) and
// []map[string]any shapes.
func listField(values map[string]any, key string) []map[string]any {
	switch v := values[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, entry := range v {
			if m, ok := entry.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
