package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/jmoiron/sqlx"
)

type AutoOrderRepository interface {
	// CreateIfNone inserts a pending request unless the ingredient already
	// has an open one. Returns (nil, nil) when a request already exists.
	CreateIfNone(ctx context.Context, req *models.AutoOrderRequest) (*models.AutoOrderRequest, error)
	FindOpen(ctx context.Context) ([]*models.AutoOrderRequest, error)
	UpdateStatus(ctx context.Context, id int64, status models.AutoOrderStatus) error
}

type autoOrderRepository struct {
	db *sqlx.DB
}

func NewAutoOrderRepository(db *sqlx.DB) AutoOrderRepository {
	return &autoOrderRepository{db: db}
}

func (r *autoOrderRepository) CreateIfNone(ctx context.Context, req *models.AutoOrderRequest) (*models.AutoOrderRequest, error) {
	// The partial unique index on open requests makes this race-safe: a
	// concurrent insert for the same ingredient hits ON CONFLICT instead of
	// creating a duplicate.
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO auto_order_requests
			(ingredient_id, quantity, trigger_reason, status, expected_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, $5)
		ON CONFLICT (ingredient_id) WHERE status IN ('pending', 'ordered') DO NOTHING
		RETURNING id, created_at, updated_at
	`, req.IngredientID, req.Quantity, req.TriggerReason, req.ExpectedDelivery, now).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-order request: %w", err)
	}

	req.Status = models.AutoOrderPending
	return req, nil
}

func (r *autoOrderRepository) FindOpen(ctx context.Context) ([]*models.AutoOrderRequest, error) {
	var requests []*models.AutoOrderRequest
	query := `
		SELECT id, ingredient_id, quantity, trigger_reason, status, expected_delivery, created_at, updated_at
		FROM auto_order_requests
		WHERE status IN ('pending', 'ordered')
		ORDER BY created_at
	`

	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("failed to list open auto-orders: %w", err)
	}

	return requests, nil
}

// UpdateStatus advances a request's lifecycle on behalf of the procurement
// collaborator.
func (r *autoOrderRepository) UpdateStatus(ctx context.Context, id int64, status models.AutoOrderStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auto_order_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update auto-order status: %w", err)
	}
	return nil
}
