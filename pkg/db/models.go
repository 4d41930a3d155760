package db

import "time"

// OrderRecord is one submitted order as stored in the DB.
type OrderRecord struct {
	ID             string
	Kind           string
	Side           string
	TokenAddress   string
	AmountInSol    float64
	SlippagePct    float64
	PriorityFeeSol float64
	Status         string
	CreatedAt      time.Time
}

// Order statuses.
const (
	OrderStatusSubmitted = "SUBMITTED"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusFailed    = "FAILED"
)

// TradeRecord is one confirmed fill as stored in the DB. Amounts are
// display units; the fee stays in lamports.
type TradeRecord struct {
	TxSignature  string
	OrderID      string
	TokenAddress string
	Side         string
	SolAmount    float64
	TokenAmount  float64
	Price        float64
	FeeLamports  int64
	Payer        string
	Provisional  bool
	CreatedAt    time.Time
}

// StrategyInstanceRecord is one configured strategy row. Settings holds
// the creation-time settings serialized as JSON.
type StrategyInstanceRecord struct {
	ID           string
	Name         string
	StrategyType string
	Settings     string
	State        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User represents an API user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
