package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Erikli15/hamburger-machine/internal/messaging"
	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/Erikli15/hamburger-machine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentAuthorizer is the opaque payment collaborator. Authorize either
// succeeds or returns an error; capture and refunds are out of scope.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, orderID string, amount float64, method string) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetAllOrders(ctx context.Context, limit, offset int64) ([]*models.Order, error)
	GetActiveOrders(ctx context.Context) ([]*models.Order, error)
	GetHistory(ctx context.Context, orderID string) ([]*models.OrderEvent, error)
	QueueContents(ctx context.Context) ([]*models.QueueEntry, error)
	RecentFaults(ctx context.Context, limit int) ([]*models.StationFault, error)
}

type orderService struct {
	orders   repository.OrderRepository
	queue    repository.QueueRepository
	recipes  repository.RecipeRepository
	payments PaymentAuthorizer
	producer messaging.EventProducer
	logger   *zap.Logger
	taxRate  float64
}

func NewOrderService(orders repository.OrderRepository, queue repository.QueueRepository, recipes repository.RecipeRepository, payments PaymentAuthorizer, producer messaging.EventProducer, logger *zap.Logger, taxRate float64) OrderService {
	return &orderService{
		orders:   orders,
		queue:    queue,
		recipes:  recipes,
		payments: payments,
		producer: producer,
		logger:   logger,
		taxRate:  taxRate,
	}
}

// CreateOrder validates the request against the recipe catalog, prices it,
// authorizes payment, persists the order as received and pushes it onto the
// fulfillment queue. Any validation or payment failure rejects the order
// with a descriptive reason.
func (s *orderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	recipe, err := s.recipes.FindByID(ctx, req.BurgerVariant)
	if err != nil {
		return nil, fmt.Errorf("unknown burger variant %q: %w", req.BurgerVariant, err)
	}

	components, err := s.recipes.Components(ctx, recipe.ID)
	if err != nil {
		return nil, err
	}

	// Resolve now so malformed customizations reject the order at intake
	// instead of failing it later at the ledger.
	if _, err := resolveRequirements(components, req.Customizations); err != nil {
		return nil, fmt.Errorf("invalid customization: %w", err)
	}

	subtotal := recipe.BasePrice + customizationSurcharge(components, req.Customizations)
	tax := subtotal * s.taxRate

	priority := models.OrderPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityNormal
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = "kiosk"
	}

	id := uuid.New().String()
	order := &models.Order{
		ID:                  id,
		OrderNumber:         newOrderNumber(id),
		OrderType:           orderType,
		BurgerVariant:       recipe.ID,
		Customizations:      req.Customizations,
		Side:                req.Side,
		Drink:               req.Drink,
		Subtotal:            subtotal,
		Tax:                 tax,
		Total:               subtotal + tax,
		PaymentMethod:       req.PaymentMethod,
		PaymentStatus:       "pending",
		Status:              models.StatusReceived,
		Priority:            priority,
		SpecialInstructions: req.SpecialInstructions,
	}

	if err := s.payments.Authorize(ctx, order.ID, order.Total, order.PaymentMethod); err != nil {
		return nil, fmt.Errorf("payment authorization failed: %w", err)
	}
	order.PaymentStatus = "authorized"

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	entry, err := s.queue.Enqueue(ctx, order.ID, order.Priority)
	if err != nil {
		return nil, fmt.Errorf("failed to queue order %s: %w", order.ID, err)
	}

	s.logger.Info("order received",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("burger_variant", order.BurgerVariant),
		zap.Int64("queue_position", entry.Position),
		zap.String("priority", string(order.Priority)),
	)

	event := &models.OrderStatusEvent{
		Type:        models.EventOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		NewStatus:   order.Status,
		Timestamp:   order.CreatedAt,
	}
	if err := s.producer.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish order created event",
			zap.Error(err),
			zap.String("order_id", order.ID),
		)
	}

	return order, nil
}

func newOrderNumber(id string) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])
}

func (s *orderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.FindByID(ctx, id)
}

func (s *orderService) GetAllOrders(ctx context.Context, limit, offset int64) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return s.orders.FindAll(ctx, limit, offset)
}

func (s *orderService) GetActiveOrders(ctx context.Context) ([]*models.Order, error) {
	return s.orders.FindActive(ctx)
}

func (s *orderService) GetHistory(ctx context.Context, orderID string) ([]*models.OrderEvent, error) {
	return s.orders.History(ctx, orderID)
}

func (s *orderService) QueueContents(ctx context.Context) ([]*models.QueueEntry, error) {
	return s.queue.Open(ctx)
}

func (s *orderService) RecentFaults(ctx context.Context, limit int) ([]*models.StationFault, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return s.orders.RecentFaults(ctx, limit)
}

// NoopAuthorizer approves every payment. Stands in for the real payment
// collaborator in development and tests.
type NoopAuthorizer struct{}

func (NoopAuthorizer) Authorize(ctx context.Context, orderID string, amount float64, method string) error {
	if amount <= 0 {
		return fmt.Errorf("cannot authorize non-positive amount %.2f for order %s", amount, orderID)
	}
	if method == "" {
		return fmt.Errorf("payment method is required")
	}
	return nil
}

var _ PaymentAuthorizer = NoopAuthorizer{}
