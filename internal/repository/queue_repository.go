package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/jmoiron/sqlx"
)

type QueueRepository interface {
	Enqueue(ctx context.Context, orderID string, priority models.OrderPriority) (*models.QueueEntry, error)
	Dequeue(ctx context.Context) (*models.QueueEntry, error)
	Remove(ctx context.Context, orderID string) error
	Open(ctx context.Context) ([]*models.QueueEntry, error)
}

type queueRepository struct {
	db *sqlx.DB
}

func NewQueueRepository(db *sqlx.DB) QueueRepository {
	return &queueRepository{db: db}
}

const queueColumns = `id, order_id, position, priority, enqueued_at, dequeued_at`

// Enqueue assigns the next position after the current maximum among open
// entries. The table lock makes position assignment a single admission
// critical section, so concurrent enqueues cannot produce duplicate or
// gapped positions.
func (r *queueRepository) Enqueue(ctx context.Context, orderID string, priority models.OrderPriority) (*models.QueueEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin enqueue: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE order_queue IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, fmt.Errorf("failed to lock queue: %w", err)
	}

	entry := &models.QueueEntry{
		OrderID:  orderID,
		Priority: priority,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_queue (order_id, position, priority, enqueued_at)
		SELECT $1, COALESCE(MAX(position), 0) + 1, $2, $3
		FROM order_queue
		WHERE dequeued_at IS NULL
		RETURNING id, position, enqueued_at
	`, orderID, priority, time.Now()).Scan(&entry.ID, &entry.Position, &entry.EnqueuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue order %s: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit enqueue: %w", err)
	}

	return entry, nil
}

// Dequeue claims the open entry with the lowest (priority rank, position).
// SKIP LOCKED lets concurrent station workers claim distinct entries without
// blocking each other.
func (r *queueRepository) Dequeue(ctx context.Context) (*models.QueueEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin dequeue: %w", err)
	}
	defer tx.Rollback()

	var entry models.QueueEntry
	err = tx.GetContext(ctx, &entry, `
		SELECT `+queueColumns+`
		FROM order_queue
		WHERE dequeued_at IS NULL
		ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END, position
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)
	if err == sql.ErrNoRows {
		return nil, models.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select queue head: %w", err)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `UPDATE order_queue SET dequeued_at = $1 WHERE id = $2`, now, entry.ID); err != nil {
		return nil, fmt.Errorf("failed to stamp dequeue time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dequeue: %w", err)
	}

	entry.DequeuedAt = &now
	return &entry, nil
}

// Remove closes the open entry for an order, used when an order is cancelled
// before a station picks it up.
func (r *queueRepository) Remove(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE order_queue SET dequeued_at = $1 WHERE order_id = $2 AND dequeued_at IS NULL`,
		time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to remove order from queue: %w", err)
	}
	return nil
}

func (r *queueRepository) Open(ctx context.Context) ([]*models.QueueEntry, error) {
	var entries []*models.QueueEntry
	query := `
		SELECT ` + queueColumns + `
		FROM order_queue
		WHERE dequeued_at IS NULL
		ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END, position
	`

	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	return entries, nil
}
