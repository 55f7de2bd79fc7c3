package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/messaging"
	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/Erikli15/hamburger-machine/internal/repository"
	"go.uber.org/zap"
)

// ReorderEvaluator is implemented by the reorder monitor. The ledger calls
// it after every successful mutation.
type ReorderEvaluator interface {
	Evaluate(ctx context.Context, ingredientID string) (*ReorderAssessment, error)
}

// LedgerService fronts the ledger repository: every mutation publishes a
// stock event and re-evaluates the ingredient's reorder status.
type LedgerService interface {
	ConsumeForOrder(ctx context.Context, ingredientID string, quantity int, orderID string) (*models.InventoryTransaction, error)
	CreditBack(ctx context.Context, ingredientID string, quantity int, orderID, reason string) (*models.InventoryTransaction, error)
	Restock(ctx context.Context, ingredientID string, quantity int, actor, reason string) (*models.InventoryTransaction, error)
	RecordWaste(ctx context.Context, ingredientID string, quantity int, actor, reason string) (*models.InventoryTransaction, error)
	Adjust(ctx context.Context, ingredientID string, delta int, actor, reason string) (*models.InventoryTransaction, error)
	NetOrderConsumption(ctx context.Context, orderID string) (map[string]int, error)
	StockLevels(ctx context.Context) ([]*models.StockLevel, error)
	RecentTransactions(ctx context.Context, limit int) ([]*models.InventoryTransaction, error)
	ConsumptionSince(ctx context.Context, since time.Time) (map[string]int, error)
	SweepExpired(ctx context.Context) (int, error)
}

type ledgerService struct {
	repo     repository.LedgerRepository
	monitor  ReorderEvaluator
	producer messaging.EventProducer
	logger   *zap.Logger

	lookbackDays  int
	criticalRatio float64
}

func NewLedgerService(repo repository.LedgerRepository, monitor ReorderEvaluator, producer messaging.EventProducer, logger *zap.Logger, lookbackDays int, criticalRatio float64) LedgerService {
	return &ledgerService{
		repo:          repo,
		monitor:       monitor,
		producer:      producer,
		logger:        logger,
		lookbackDays:  lookbackDays,
		criticalRatio: criticalRatio,
	}
}

func (s *ledgerService) ConsumeForOrder(ctx context.Context, ingredientID string, quantity int, orderID string) (*models.InventoryTransaction, error) {
	txn, err := s.repo.Debit(ctx, ingredientID, quantity, models.TxnUsage, &orderID, "fulfillment", fmt.Sprintf("order %s", orderID))
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, txn)
	return txn, nil
}

func (s *ledgerService) CreditBack(ctx context.Context, ingredientID string, quantity int, orderID, reason string) (*models.InventoryTransaction, error) {
	txn, err := s.repo.Credit(ctx, ingredientID, quantity, models.TxnAdjustment, &orderID, "fulfillment", reason)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, txn)
	return txn, nil
}

func (s *ledgerService) Restock(ctx context.Context, ingredientID string, quantity int, actor, reason string) (*models.InventoryTransaction, error) {
	txn, err := s.repo.Credit(ctx, ingredientID, quantity, models.TxnRestock, nil, actor, reason)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, txn)
	return txn, nil
}

func (s *ledgerService) RecordWaste(ctx context.Context, ingredientID string, quantity int, actor, reason string) (*models.InventoryTransaction, error) {
	txn, err := s.repo.Debit(ctx, ingredientID, quantity, models.TxnWaste, nil, actor, reason)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, txn)
	return txn, nil
}

func (s *ledgerService) Adjust(ctx context.Context, ingredientID string, delta int, actor, reason string) (*models.InventoryTransaction, error) {
	var txn *models.InventoryTransaction
	var err error
	switch {
	case delta > 0:
		txn, err = s.repo.Credit(ctx, ingredientID, delta, models.TxnAdjustment, nil, actor, reason)
	case delta < 0:
		txn, err = s.repo.Debit(ctx, ingredientID, -delta, models.TxnAdjustment, nil, actor, reason)
	default:
		return nil, fmt.Errorf("adjustment delta cannot be zero")
	}
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, txn)
	return txn, nil
}

// afterMutation publishes the stock event and re-evaluates reorder status.
// Neither failure undoes the committed ledger mutation; they are logged and
// the dashboard catches up from the persisted transactions.
func (s *ledgerService) afterMutation(ctx context.Context, txn *models.InventoryTransaction) {
	event := &models.StockEvent{
		Type:             models.EventStockChanged,
		IngredientID:     txn.IngredientID,
		QuantityChange:   txn.QuantityChange,
		PreviousQuantity: txn.PreviousQuantity,
		NewQuantity:      txn.NewQuantity,
		Kind:             txn.Kind,
		Timestamp:        txn.CreatedAt,
	}
	if txn.OrderID != nil {
		event.OrderID = *txn.OrderID
	}

	if err := s.producer.PublishStockEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish stock event",
			zap.Error(err),
			zap.String("ingredient_id", txn.IngredientID),
		)
	}

	if _, err := s.monitor.Evaluate(ctx, txn.IngredientID); err != nil {
		s.logger.Error("reorder evaluation failed",
			zap.Error(err),
			zap.String("ingredient_id", txn.IngredientID),
		)
	}
}

func (s *ledgerService) NetOrderConsumption(ctx context.Context, orderID string) (map[string]int, error) {
	return s.repo.NetOrderConsumption(ctx, orderID)
}

func (s *ledgerService) StockLevels(ctx context.Context) ([]*models.StockLevel, error) {
	ingredients, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	levels := make([]*models.StockLevel, 0, len(ingredients))
	for _, ing := range ingredients {
		rate, err := s.repo.AvgDailyUsage(ctx, ing.ID, s.lookbackDays)
		if err != nil {
			return nil, err
		}

		levels = append(levels, &models.StockLevel{
			Ingredient:     *ing,
			Status:         Classify(ing.CurrentQuantity, ing.ReorderPoint, s.criticalRatio),
			AvgDailyUsage:  rate,
			DaysUntilEmpty: DaysUntilEmpty(ing.CurrentQuantity, rate),
		})
	}

	return levels, nil
}

func (s *ledgerService) RecentTransactions(ctx context.Context, limit int) ([]*models.InventoryTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return s.repo.RecentTransactions(ctx, limit)
}

func (s *ledgerService) ConsumptionSince(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.repo.ConsumptionSince(ctx, since)
}

// SweepExpired zeroes out expired ingredients through waste debits so the
// audit trail and reorder evaluation both fire.
func (s *ledgerService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.FindExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, ing := range expired {
		if _, err := s.RecordWaste(ctx, ing.ID, ing.CurrentQuantity, "system", "expired"); err != nil {
			s.logger.Error("failed to waste expired ingredient",
				zap.Error(err),
				zap.String("ingredient_id", ing.ID),
			)
			continue
		}
		swept++
		s.logger.Warn("expired ingredient wasted",
			zap.String("ingredient_id", ing.ID),
			zap.Int("quantity", ing.CurrentQuantity),
		)
	}

	return swept, nil
}
