package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// LedgerRepository owns ingredient quantities. Every mutation goes through
// Debit or Credit, which update the quantity and append the matching
// inventory_transactions row inside one database transaction. Concurrent
// mutations of the same ingredient serialize on the row lock; different
// ingredients do not block each other.
type LedgerRepository interface {
	Debit(ctx context.Context, ingredientID string, quantity int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error)
	Credit(ctx context.Context, ingredientID string, quantity int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error)
	FindByID(ctx context.Context, id string) (*models.Ingredient, error)
	FindAll(ctx context.Context) ([]*models.Ingredient, error)
	FindExpired(ctx context.Context, asOf time.Time) ([]*models.Ingredient, error)
	AvgDailyUsage(ctx context.Context, ingredientID string, lookbackDays int) (float64, error)
	NetOrderConsumption(ctx context.Context, orderID string) (map[string]int, error)
	RecentTransactions(ctx context.Context, limit int) ([]*models.InventoryTransaction, error)
	ConsumptionSince(ctx context.Context, since time.Time) (map[string]int, error)
	PruneTransactions(ctx context.Context, olderThan time.Time) (int64, error)
}

type ledgerRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

func NewLedgerRepository(db *sqlx.DB, lockTimeout time.Duration) LedgerRepository {
	return &ledgerRepository{db: db, lockTimeout: lockTimeout}
}

const ingredientColumns = `id, name, unit, current_quantity, par_level, reorder_point, max_capacity,
	shelf_life_days, expiration_date, storage_location, is_active, last_restocked, created_at, updated_at`

func (r *ledgerRepository) Debit(ctx context.Context, ingredientID string, quantity int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("debit quantity must be positive, got %d", quantity)
	}
	return r.apply(ctx, ingredientID, -quantity, kind, orderID, actor, reason)
}

func (r *ledgerRepository) Credit(ctx context.Context, ingredientID string, quantity int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("credit quantity must be positive, got %d", quantity)
	}
	return r.apply(ctx, ingredientID, quantity, kind, orderID, actor, reason)
}

// apply performs one atomic quantity change plus its audit row. A negative
// delta is a debit, positive a credit.
func (r *ledgerRepository) apply(ctx context.Context, ingredientID string, delta int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	// Bounded lock wait: a held row lock surfaces as 55P03 instead of
	// blocking the caller indefinitely.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	var ingredient models.Ingredient
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1 AND is_active FOR UPDATE`
	err = tx.GetContext(ctx, &ingredient, query, ingredientID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownIngredient, ingredientID)
	}
	if err != nil {
		return nil, classifyLockErr(err)
	}

	previous := ingredient.CurrentQuantity
	next := previous + delta
	if next < 0 {
		return nil, fmt.Errorf("%w: %s has %d, requested %d", models.ErrInsufficientStock, ingredientID, previous, -delta)
	}
	if next > ingredient.MaxCapacity {
		return nil, fmt.Errorf("%w: %s capacity %d, would hold %d", models.ErrOverCapacity, ingredientID, ingredient.MaxCapacity, next)
	}

	now := time.Now()
	if delta > 0 && kind == models.TxnRestock {
		_, err = tx.ExecContext(ctx,
			`UPDATE ingredients SET current_quantity = $1, last_restocked = $2, updated_at = $2 WHERE id = $3`,
			next, now, ingredientID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE ingredients SET current_quantity = $1, updated_at = $2 WHERE id = $3`,
			next, now, ingredientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update ingredient quantity: %w", err)
	}

	txn := &models.InventoryTransaction{
		IngredientID:     ingredientID,
		QuantityChange:   delta,
		PreviousQuantity: previous,
		NewQuantity:      next,
		Kind:             kind,
		OrderID:          orderID,
		Actor:            actor,
		Reason:           reason,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO inventory_transactions
			(ingredient_id, quantity_change, previous_quantity, new_quantity, kind, order_id, actor, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, ingredientID, delta, previous, next, kind, orderID, actor, reason, now).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append inventory transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	return txn, nil
}

func classifyLockErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
		return fmt.Errorf("%w: %v", models.ErrLedgerContention, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrLedgerContention, err)
	}
	return fmt.Errorf("failed to lock ingredient row: %w", err)
}

func (r *ledgerRepository) FindByID(ctx context.Context, id string) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1`

	err := r.db.GetContext(ctx, &ingredient, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownIngredient, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ingredient: %w", err)
	}

	return &ingredient, nil
}

func (r *ledgerRepository) FindAll(ctx context.Context) ([]*models.Ingredient, error) {
	var ingredients []*models.Ingredient
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE is_active ORDER BY name`

	if err := r.db.SelectContext(ctx, &ingredients, query); err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}

	return ingredients, nil
}

func (r *ledgerRepository) FindExpired(ctx context.Context, asOf time.Time) ([]*models.Ingredient, error) {
	var ingredients []*models.Ingredient
	query := `SELECT ` + ingredientColumns + ` FROM ingredients
	          WHERE is_active AND current_quantity > 0 AND expiration_date IS NOT NULL AND expiration_date < $1`

	if err := r.db.SelectContext(ctx, &ingredients, query, asOf); err != nil {
		return nil, fmt.Errorf("failed to find expired ingredients: %w", err)
	}

	return ingredients, nil
}

// AvgDailyUsage is the mean absolute daily consumption over the lookback
// window, computed from usage and waste transactions.
func (r *ledgerRepository) AvgDailyUsage(ctx context.Context, ingredientID string, lookbackDays int) (float64, error) {
	var total sql.NullFloat64
	query := `
		SELECT SUM(ABS(quantity_change))
		FROM inventory_transactions
		WHERE ingredient_id = $1
		  AND kind IN ('usage', 'waste')
		  AND created_at >= NOW() - make_interval(days => $2)
	`

	if err := r.db.GetContext(ctx, &total, query, ingredientID, lookbackDays); err != nil {
		return 0, fmt.Errorf("failed to compute usage rate: %w", err)
	}
	if !total.Valid {
		return 0, nil
	}

	return total.Float64 / float64(lookbackDays), nil
}

// NetOrderConsumption returns, per ingredient, the quantity an order still
// holds: usage debits minus any compensating credits already applied. Used
// to size the credit-back on failure or cancellation without double
// crediting.
func (r *ledgerRepository) NetOrderConsumption(ctx context.Context, orderID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ingredient_id, -SUM(quantity_change)
		FROM inventory_transactions
		WHERE order_id = $1 AND kind IN ('usage', 'adjustment')
		GROUP BY ingredient_id
		HAVING SUM(quantity_change) < 0
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute order consumption: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var id string
		var held int
		if err := rows.Scan(&id, &held); err != nil {
			return nil, fmt.Errorf("failed to scan consumption row: %w", err)
		}
		result[id] = held
	}

	return result, rows.Err()
}

func (r *ledgerRepository) RecentTransactions(ctx context.Context, limit int) ([]*models.InventoryTransaction, error) {
	var txns []*models.InventoryTransaction
	query := `
		SELECT id, ingredient_id, quantity_change, previous_quantity, new_quantity, kind, order_id, actor, reason, created_at
		FROM inventory_transactions
		ORDER BY id DESC
		LIMIT $1
	`

	if err := r.db.SelectContext(ctx, &txns, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txns, nil
}

func (r *ledgerRepository) ConsumptionSince(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ingredient_id, SUM(ABS(quantity_change))
		FROM inventory_transactions
		WHERE kind IN ('usage', 'waste') AND created_at >= $1
		GROUP BY ingredient_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate consumption: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var id string
		var total int
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("failed to scan consumption row: %w", err)
		}
		result[id] = total
	}

	return result, rows.Err()
}

func (r *ledgerRepository) PruneTransactions(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM inventory_transactions WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transactions: %w", err)
	}

	return result.RowsAffected()
}
