package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/jmoiron/sqlx"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindAll(ctx context.Context, limit, offset int64) ([]*models.Order, error)
	FindActive(ctx context.Context) ([]*models.Order, error)
	Transition(ctx context.Context, id string, newStatus models.OrderStatus, description string) (*models.Order, error)
	AssignStation(ctx context.Context, id, stationGroup string) error
	SetPaymentStatus(ctx context.Context, id, paymentStatus string) error
	History(ctx context.Context, orderID string) ([]*models.OrderEvent, error)
	RecordFault(ctx context.Context, fault *models.StationFault) error
	RecentFaults(ctx context.Context, limit int) ([]*models.StationFault, error)
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

type orderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, order_type, burger_variant, customizations, side, drink,
	subtotal, tax, total, payment_method, payment_status, status, priority, station_group,
	special_instructions, created_at, updated_at, started_cooking_at, finished_cooking_at,
	assembled_at, delivered_at, actual_prep_seconds`

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders
			(id, order_number, order_type, burger_variant, customizations, side, drink,
			 subtotal, tax, total, payment_method, payment_status, status, priority,
			 special_instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	`,
		order.ID, order.OrderNumber, order.OrderType, order.BurgerVariant, order.Customizations,
		order.Side, order.Drink, order.Subtotal, order.Tax, order.Total,
		order.PaymentMethod, order.PaymentStatus, order.Status, order.Priority,
		order.SpecialInstructions, now)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	err := r.db.GetContext(ctx, &order, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return &order, nil
}

func (r *orderRepository) FindAll(ctx context.Context, limit, offset int64) ([]*models.Order, error) {
	var orders []*models.Order
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	if err := r.db.SelectContext(ctx, &orders, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) FindActive(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE status NOT IN ('delivered', 'cancelled', 'failed')
	          ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("failed to find active orders: %w", err)
	}

	return orders, nil
}

// Transition validates the status change against the transition table and
// applies it together with the milestone timestamp and the history row, all
// in one database transaction. The current status is read under a row lock
// so a stale caller cannot clobber a more advanced state.
func (r *orderRepository) Transition(ctx context.Context, id string, newStatus models.OrderStatus, description string) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, newStatus)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transition: %w", err)
	}
	defer tx.Rollback()

	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	err = tx.GetContext(ctx, &order, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, newStatus)
	}

	now := time.Now()
	previous := order.Status

	set := `status = $1, updated_at = $2`
	args := []interface{}{newStatus, now}
	if col := newStatus.MilestoneColumn(); col != "" {
		set += fmt.Sprintf(", %s = $%d", col, len(args)+1)
		args = append(args, now)
	}
	if newStatus == models.StatusDelivered {
		prep := int(now.Sub(order.CreatedAt).Seconds())
		set += fmt.Sprintf(", actual_prep_seconds = $%d", len(args)+1)
		args = append(args, prep)
		order.ActualPrepSeconds = &prep
	}
	args = append(args, id)

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`UPDATE orders SET %s WHERE id = $%d`, set, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_events (order_id, event_type, previous_status, new_status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, "status_changed", previous, newStatus, description, now)
	if err != nil {
		return nil, fmt.Errorf("failed to append order event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	order.Status = newStatus
	order.UpdatedAt = now
	switch newStatus {
	case models.StatusCooking:
		order.StartedCookingAt = &now
	case models.StatusAssembling:
		order.FinishedCookingAt = &now
	case models.StatusReady:
		order.AssembledAt = &now
	case models.StatusDelivered:
		order.DeliveredAt = &now
	}

	return &order, nil
}

func (r *orderRepository) AssignStation(ctx context.Context, id, stationGroup string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET station_group = $1, updated_at = $2 WHERE id = $3`,
		stationGroup, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to assign station: %w", err)
	}
	return nil
}

func (r *orderRepository) SetPaymentStatus(ctx context.Context, id, paymentStatus string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3`,
		paymentStatus, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	return nil
}

func (r *orderRepository) History(ctx context.Context, orderID string) ([]*models.OrderEvent, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID); err != nil {
		return nil, fmt.Errorf("failed to check order existence: %w", err)
	}
	if !exists {
		return nil, models.ErrOrderNotFound
	}

	var events []*models.OrderEvent
	query := `
		SELECT id, order_id, event_type, previous_status, new_status, description, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY id
	`

	if err := r.db.SelectContext(ctx, &events, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to find order history: %w", err)
	}

	return events, nil
}

func (r *orderRepository) RecordFault(ctx context.Context, fault *models.StationFault) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO station_faults (order_id, fault_type, component, message, requires_intervention, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, fault.OrderID, fault.FaultType, fault.Component, fault.Message, fault.RequiresIntervention, time.Now()).Scan(&fault.ID)
	if err != nil {
		return fmt.Errorf("failed to record fault: %w", err)
	}
	return nil
}

func (r *orderRepository) RecentFaults(ctx context.Context, limit int) ([]*models.StationFault, error) {
	var faults []*models.StationFault
	query := `
		SELECT id, order_id, fault_type, component, message, requires_intervention, created_at
		FROM station_faults
		ORDER BY id DESC
		LIMIT $1
	`

	if err := r.db.SelectContext(ctx, &faults, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list faults: %w", err)
	}

	return faults, nil
}

func (r *orderRepository) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM order_events WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune order events: %w", err)
	}

	return result.RowsAffected()
}
