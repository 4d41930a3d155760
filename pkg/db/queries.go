package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ----------------------------------------
// Order queries
// ----------------------------------------

// CreateOrder inserts a submitted order row.
func (d *Database) CreateOrder(ctx context.Context, o OrderRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (
			id, kind, side, token_address, amount_in_sol, slippage_pct, priority_fee_sol, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.Kind, o.Side, o.TokenAddress, o.AmountInSol, o.SlippagePct, o.PriorityFeeSol, o.Status)
	return err
}

// UpdateOrderStatus moves an order to a new status.
func (d *Database) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE orders SET status = ? WHERE id = ?
	`, status, orderID)
	return err
}

// RecentOrders returns the latest submitted orders, newest first.
func (d *Database) RecentOrders(ctx context.Context, limit int) ([]OrderRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, kind, side, token_address, amount_in_sol, slippage_pct,
		       COALESCE(priority_fee_sol, 0), status, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []OrderRecord
	for rows.Next() {
		var o OrderRecord
		if err := rows.Scan(&o.ID, &o.Kind, &o.Side, &o.TokenAddress, &o.AmountInSol,
			&o.SlippagePct, &o.PriorityFeeSol, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ----------------------------------------
// Trade queries
// ----------------------------------------

// CreateTrade inserts a confirmed fill. Replaces any provisional row
// recorded earlier under the same signature.
func (d *Database) CreateTrade(ctx context.Context, t TradeRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (
			tx_signature, order_id, token_address, side, sol_amount, token_amount,
			price, fee_lamports, payer, provisional
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_signature) DO UPDATE SET
			sol_amount = excluded.sol_amount,
			token_amount = excluded.token_amount,
			price = excluded.price,
			fee_lamports = excluded.fee_lamports,
			provisional = excluded.provisional
	`, t.TxSignature, t.OrderID, t.TokenAddress, t.Side, t.SolAmount, t.TokenAmount,
		t.Price, t.FeeLamports, t.Payer, boolToInt(t.Provisional))
	return err
}

// TradesForToken returns all fills recorded for one token, oldest first.
func (d *Database) TradesForToken(ctx context.Context, tokenAddress string) ([]TradeRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT tx_signature, COALESCE(order_id, ''), token_address, side, sol_amount,
		       token_amount, price, COALESCE(fee_lamports, 0), COALESCE(payer, ''),
		       COALESCE(provisional, 0), created_at
		FROM trades
		WHERE token_address = ?
		ORDER BY created_at ASC
	`, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var (
			t    TradeRecord
			prov int
		)
		if err := rows.Scan(&t.TxSignature, &t.OrderID, &t.TokenAddress, &t.Side, &t.SolAmount,
			&t.TokenAmount, &t.Price, &t.FeeLamports, &t.Payer, &prov, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Provisional = prov != 0
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ----------------------------------------
// Strategy instance queries
// ----------------------------------------

// UpsertStrategyInstance records a running strategy instance.
func (d *Database) UpsertStrategyInstance(ctx context.Context, s StrategyInstanceRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO strategy_instances (id, name, strategy_type, settings, state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			settings = excluded.settings,
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP
	`, s.ID, s.Name, s.StrategyType, s.Settings, s.State)
	return err
}

// UpdateStrategyState records a state transition for a strategy instance.
func (d *Database) UpdateStrategyState(ctx context.Context, id, state string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE strategy_instances SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, state, id)
	return err
}

// DeleteStrategyInstance removes a strategy instance row.
func (d *Database) DeleteStrategyInstance(ctx context.Context, id string) error {
	_, err := d.DB.ExecContext(ctx, `DELETE FROM strategy_instances WHERE id = ?`, id)
	return err
}

// ListStrategyInstances returns every recorded strategy instance.
func (d *Database) ListStrategyInstances(ctx context.Context) ([]StrategyInstanceRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, name, strategy_type, settings, state, created_at, updated_at
		FROM strategy_instances
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query strategy instances: %w", err)
	}
	defer rows.Close()

	var instances []StrategyInstanceRecord
	for rows.Next() {
		var s StrategyInstanceRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.StrategyType, &s.Settings, &s.State,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan strategy instance: %w", err)
		}
		instances = append(instances, s)
	}
	return instances, rows.Err()
}

// ----------------------------------------
// User queries
// ----------------------------------------

// CreateUser inserts a new API user.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash)
	return err
}

// GetUserByEmail looks up a user for login.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
