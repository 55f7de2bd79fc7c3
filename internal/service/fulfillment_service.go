package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/messaging"
	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/Erikli15/hamburger-machine/internal/repository"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// FulfillmentService drives orders from the queue through the physical
// pipeline: recipe resolution, ledger debits, state advancement and station
// signal handling. One worker per station group; an order is owned by a
// single worker for its whole lifecycle.
type FulfillmentService interface {
	messaging.StationEventHandler
	Run(ctx context.Context)
	CancelOrder(ctx context.Context, orderID, reason string) (*models.Order, error)
}

type fulfillmentService struct {
	orders   repository.OrderRepository
	queue    repository.QueueRepository
	recipes  repository.RecipeRepository
	ledger   LedgerService
	producer messaging.EventProducer
	logger   *zap.Logger

	stationGroups int
	maxRetries    int
	retryBackoff  time.Duration
	pollInterval  time.Duration
}

func NewFulfillmentService(orders repository.OrderRepository, queue repository.QueueRepository, recipes repository.RecipeRepository, ledger LedgerService, producer messaging.EventProducer, logger *zap.Logger, stationGroups, maxRetries int, retryBackoff time.Duration) FulfillmentService {
	return &fulfillmentService{
		orders:        orders,
		queue:         queue,
		recipes:       recipes,
		ledger:        ledger,
		producer:      producer,
		logger:        logger,
		stationGroups: stationGroups,
		maxRetries:    maxRetries,
		retryBackoff:  retryBackoff,
		pollInterval:  500 * time.Millisecond,
	}
}

// Run starts one worker per station group and blocks until ctx is done.
func (s *fulfillmentService) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < s.stationGroups; i++ {
		wg.Add(1)
		station := fmt.Sprintf("station-%d", i+1)
		go func() {
			defer wg.Done()
			s.worker(ctx, station)
		}()
	}
	wg.Wait()
}

func (s *fulfillmentService) worker(ctx context.Context, station string) {
	logger := s.logger.With(zap.String("station_group", station))
	logger.Info("fulfillment worker started")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("fulfillment worker stopping")
			return
		case <-ticker.C:
		}

		entry, err := s.queue.Dequeue(ctx)
		if errors.Is(err, models.ErrQueueEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("dequeue failed", zap.Error(err))
			}
			continue
		}

		if err := s.startOrder(ctx, entry.OrderID, station); err != nil {
			logger.Error("order startup failed",
				zap.Error(err),
				zap.String("order_id", entry.OrderID),
			)
		}
	}
}

// startOrder debits all required ingredients and moves the order from
// received to processing. On insufficient stock, every debit the order still
// holds is credited back before the order is failed: an order never keeps a
// partial ingredient debit.
func (s *fulfillmentService) startOrder(ctx context.Context, orderID, station string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != models.StatusReceived {
		// Cancelled (or otherwise moved on) while queued; nothing to do.
		s.logger.Info("skipping queued order in non-received state",
			zap.String("order_id", orderID),
			zap.String("status", string(order.Status)),
		)
		return nil
	}

	if err := s.orders.AssignStation(ctx, orderID, station); err != nil {
		return err
	}

	components, err := s.recipes.Components(ctx, order.BurgerVariant)
	if err != nil {
		return s.failOrder(ctx, order, fmt.Sprintf("recipe lookup failed: %v", err))
	}

	requirements, err := resolveRequirements(components, order.Customizations)
	if err != nil {
		return s.failOrder(ctx, order, fmt.Sprintf("unresolvable customization: %v", err))
	}

	for _, req := range requirements {
		if err := s.debitWithRetry(ctx, req.IngredientID, req.Quantity, orderID); err != nil {
			s.compensateOrder(ctx, orderID)
			if errors.Is(err, models.ErrInsufficientStock) {
				return s.failOrder(ctx, order, fmt.Sprintf("insufficient stock of %s", req.IngredientID))
			}
			return s.failOrder(ctx, order, fmt.Sprintf("stock debit of %s failed: %v", req.IngredientID, err))
		}
	}

	if _, err := s.transition(ctx, orderID, models.StatusProcessing, "ingredients reserved, preparation started"); err != nil {
		// The order went terminal while its ingredients were being
		// reserved. Whoever moved it there has already credited what it
		// held at that point; crediting the net consumption here returns
		// only the debits that landed after.
		s.compensateOrder(ctx, orderID)
		if errors.Is(err, models.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	s.logger.Info("order started",
		zap.String("order_id", orderID),
		zap.String("station_group", station),
		zap.Int("ingredients", len(requirements)),
	)
	return nil
}

// debitWithRetry retries ledger contention with exponential backoff up to
// the configured bound. Insufficient stock and unknown ingredients are
// terminal and returned immediately.
func (s *fulfillmentService) debitWithRetry(ctx context.Context, ingredientID string, quantity int, orderID string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.maxRetries)), ctx)

	return backoff.Retry(func() error {
		_, err := s.ledger.ConsumeForOrder(ctx, ingredientID, quantity, orderID)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrLedgerContention) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// compensateOrder credits back whatever the order still holds according to
// the ledger. Reading the net consumption rather than a caller-side list of
// debits keeps the compensation idempotent: credits already recorded against
// the order reduce the net, so a second compensator returns nothing twice.
func (s *fulfillmentService) compensateOrder(ctx context.Context, orderID string) {
	held, err := s.ledger.NetOrderConsumption(ctx, orderID)
	if err != nil {
		s.logger.Error("net consumption lookup for compensation failed",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return
	}
	reason := fmt.Sprintf("rollback for order %s", orderID)
	for ingredientID, quantity := range held {
		if _, err := s.ledger.CreditBack(ctx, ingredientID, quantity, orderID, reason); err != nil {
			s.logger.Error("compensating credit failed",
				zap.Error(err),
				zap.String("order_id", orderID),
				zap.String("ingredient_id", ingredientID),
				zap.Int("quantity", quantity),
			)
		}
	}
}

func (s *fulfillmentService) failOrder(ctx context.Context, order *models.Order, description string) error {
	if _, err := s.transition(ctx, order.ID, models.StatusFailed, description); err != nil {
		return fmt.Errorf("failed to fail order %s: %w", order.ID, err)
	}
	s.logger.Warn("order failed",
		zap.String("order_id", order.ID),
		zap.String("reason", description),
	)
	return nil
}

// transition applies a validated status change and publishes the update.
func (s *fulfillmentService) transition(ctx context.Context, orderID string, newStatus models.OrderStatus, description string) (*models.Order, error) {
	before, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Transition(ctx, orderID, newStatus, description)
	if err != nil {
		return nil, err
	}

	eventType := models.EventOrderStatus
	if newStatus == models.StatusFailed {
		eventType = models.EventOrderFailed
	}
	event := &models.OrderStatusEvent{
		Type:           eventType,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: before.Status,
		NewStatus:      newStatus,
		Description:    description,
		Timestamp:      order.UpdatedAt,
	}
	if err := s.producer.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish order status event",
			zap.Error(err),
			zap.String("order_id", order.ID),
		)
	}

	return order, nil
}

// nextActiveStatus maps a station completion signal onto the pipeline: the
// station that finished reports against the order's current stage.
func nextActiveStatus(current models.OrderStatus) (models.OrderStatus, bool) {
	switch current {
	case models.StatusProcessing:
		return models.StatusCooking, true
	case models.StatusCooking:
		return models.StatusAssembling, true
	case models.StatusAssembling:
		return models.StatusPackaging, true
	case models.StatusPackaging:
		return models.StatusReady, true
	}
	return "", false
}

// HandleStationEvent reacts to signals from the hardware collaborator.
func (s *fulfillmentService) HandleStationEvent(ctx context.Context, event *models.StationEvent) error {
	switch event.Type {
	case models.StationEventCompleted:
		order, err := s.orders.FindByID(ctx, event.OrderID)
		if err != nil {
			return err
		}
		next, ok := nextActiveStatus(order.Status)
		if !ok {
			return fmt.Errorf("%w: completion signal for order %s in state %s", models.ErrInvalidTransition, order.ID, order.Status)
		}
		_, err = s.transition(ctx, event.OrderID, next, fmt.Sprintf("%s completed", event.StationGroup))
		return err

	case models.StationEventDelivered:
		_, err := s.transition(ctx, event.OrderID, models.StatusDelivered, "delivery confirmed")
		return err

	case models.StationEventFault:
		fault := &models.StationFault{
			OrderID:              event.OrderID,
			FaultType:            event.FaultType,
			Component:            event.Component,
			Message:              event.Message,
			RequiresIntervention: event.FaultType == models.FaultSafety,
		}
		if err := s.orders.RecordFault(ctx, fault); err != nil {
			return err
		}
		return s.failOrderByID(ctx, event.OrderID, fmt.Sprintf("%s fault in %s: %s", event.FaultType, event.Component, event.Message))

	default:
		return fmt.Errorf("unknown station event type %q", event.Type)
	}
}

func (s *fulfillmentService) failOrderByID(ctx context.Context, orderID, description string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return nil
	}
	return s.failOrder(ctx, order, description)
}

// CancelOrder cancels a non-terminal order. Any ingredients the order still
// holds are credited back before the cancelled state commits.
func (s *fulfillmentService) CancelOrder(ctx context.Context, orderID, reason string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is already %s", models.ErrInvalidTransition, orderID, order.Status)
	}

	if err := s.queue.Remove(ctx, orderID); err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "cancelled by customer"
	}
	// The transition is the serialization point: it only succeeds against a
	// non-terminal order, so exactly one caller wins the cancellation and
	// credits back what the order holds at that moment. A worker still
	// reserving ingredients credits its own late debits when it observes
	// the cancelled state.
	cancelled, err := s.transition(ctx, orderID, models.StatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	s.compensateOrder(ctx, orderID)
	return cancelled, nil
}
