package events

// Topic enumerates the closed set of channels inside the trading core.
type Topic string

const (
	TopicStrategyEvent  Topic = "strategy.event"   // provisional trades + lifecycle notices
	TopicTradeEvent     Topic = "trade.event"      // confirmed TradeInfo
	TopicPnlAlert       Topic = "pnl.alert"        // realized ProfitLoss on sells
	TopicUICommand      Topic = "ui.command"       // commands from the control surface
	TopicAccountUpdate  Topic = "account.update"   // wallet balance changes
	TopicPriceTick      Topic = "price.tick"       // market data refreshes
	TopicStrategyState  Topic = "strategy.state"   // strategy started/stopped/completed
)

// StrategyStateChange is published on TopicStrategyState when a strategy
// transitions between lifecycle states.
type StrategyStateChange struct {
	StrategyID string
	Name       string
	State      string
}

// UICommand is the payload carried on TopicUICommand.
type UICommand struct {
	Command      string
	TokenAddress string
}

// Command names accepted on TopicUICommand.
const (
	CommandBuy     = "BUY"
	CommandSell    = "SELL"
	CommandSellAll = "SELL_ALL"
	CommandSweep   = "SWEEP"
)

// PriceTick is published on TopicPriceTick whenever a token price refreshes.
type PriceTick struct {
	TokenAddress string
	PriceUI      float64
}

// AccountUpdate is published on TopicAccountUpdate when a watched wallet's
// balance changes.
type AccountUpdate struct {
	AccountAddress string
	Lamports       int64
}
