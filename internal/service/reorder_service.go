package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/messaging"
	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/Erikli15/hamburger-machine/internal/repository"
	"go.uber.org/zap"
)

// ReorderAssessment is the outcome of evaluating one ingredient.
type ReorderAssessment struct {
	IngredientID   string             `json:"ingredient_id"`
	Status         models.StockStatus `json:"status"`
	AvgDailyUsage  float64            `json:"avg_daily_usage"`
	DaysUntilEmpty int                `json:"days_until_empty"`
	// Request is set when this evaluation created a new auto-order.
	Request *models.AutoOrderRequest `json:"request,omitempty"`
}

// Classify maps a quantity against the reorder point. Critical strictly
// dominates low: quantity at or below criticalRatio of the reorder point is
// critical even though it also satisfies the low condition.
func Classify(quantity, reorderPoint int, criticalRatio float64) models.StockStatus {
	if float64(quantity) <= criticalRatio*float64(reorderPoint) {
		return models.StockCritical
	}
	if quantity <= reorderPoint {
		return models.StockLow
	}
	return models.StockOK
}

// DaysUntilEmpty estimates how long the current quantity lasts at the given
// daily usage rate. Returns -1 when the rate is zero and no estimate exists.
func DaysUntilEmpty(quantity int, avgDailyUsage float64) int {
	if avgDailyUsage <= 0 {
		return -1
	}
	return int(math.Ceil(float64(quantity) / avgDailyUsage))
}

type ReorderService interface {
	ReorderEvaluator
	OpenRequests(ctx context.Context) ([]*models.AutoOrderRequest, error)
	AdvanceRequest(ctx context.Context, id int64, status models.AutoOrderStatus) error
}

type reorderService struct {
	ledger    repository.LedgerRepository
	autoOrder repository.AutoOrderRepository
	producer  messaging.EventProducer
	logger    *zap.Logger

	lookbackDays  int
	leadDays      int
	criticalRatio float64
}

func NewReorderService(ledger repository.LedgerRepository, autoOrder repository.AutoOrderRepository, producer messaging.EventProducer, logger *zap.Logger, lookbackDays, leadDays int, criticalRatio float64) ReorderService {
	return &reorderService{
		ledger:        ledger,
		autoOrder:     autoOrder,
		producer:      producer,
		logger:        logger,
		lookbackDays:  lookbackDays,
		leadDays:      leadDays,
		criticalRatio: criticalRatio,
	}
}

// Evaluate re-checks one ingredient against its reorder point. For low or
// critical stock it creates an auto-order sized to restore twice the reorder
// point, unless an open request already exists. Safe to call repeatedly.
func (s *reorderService) Evaluate(ctx context.Context, ingredientID string) (*ReorderAssessment, error) {
	ingredient, err := s.ledger.FindByID(ctx, ingredientID)
	if err != nil {
		return nil, err
	}

	rate, err := s.ledger.AvgDailyUsage(ctx, ingredientID, s.lookbackDays)
	if err != nil {
		return nil, err
	}

	assessment := &ReorderAssessment{
		IngredientID:   ingredientID,
		Status:         Classify(ingredient.CurrentQuantity, ingredient.ReorderPoint, s.criticalRatio),
		AvgDailyUsage:  rate,
		DaysUntilEmpty: DaysUntilEmpty(ingredient.CurrentQuantity, rate),
	}

	if assessment.Status == models.StockOK {
		return assessment, nil
	}

	quantity := 2*ingredient.ReorderPoint - ingredient.CurrentQuantity
	if quantity <= 0 {
		return assessment, nil
	}

	req := &models.AutoOrderRequest{
		IngredientID: ingredientID,
		Quantity:     quantity,
		TriggerReason: fmt.Sprintf("%s stock: %d %s on hand, reorder point %d, ~%d days left",
			assessment.Status, ingredient.CurrentQuantity, ingredient.Unit, ingredient.ReorderPoint, assessment.DaysUntilEmpty),
		ExpectedDelivery: time.Now().AddDate(0, 0, s.leadDays),
	}

	created, err := s.autoOrder.CreateIfNone(ctx, req)
	if err != nil {
		return nil, err
	}
	if created == nil {
		// An open request already covers this ingredient.
		return assessment, nil
	}

	assessment.Request = created
	s.logger.Info("auto-order created",
		zap.String("ingredient_id", ingredientID),
		zap.Int("quantity", created.Quantity),
		zap.String("stock_status", string(assessment.Status)),
	)

	event := &models.AutoOrderEvent{
		Type:             models.EventAutoOrderCreated,
		RequestID:        created.ID,
		IngredientID:     ingredientID,
		Quantity:         created.Quantity,
		StockStatus:      assessment.Status,
		TriggerReason:    created.TriggerReason,
		ExpectedDelivery: created.ExpectedDelivery,
		Timestamp:        created.CreatedAt,
	}
	if err := s.producer.PublishAutoOrderEvent(ctx, event); err != nil {
		// The request row is durable; procurement can also poll it.
		s.logger.Error("failed to publish auto-order event",
			zap.Error(err),
			zap.String("ingredient_id", ingredientID),
		)
	}

	return assessment, nil
}

func (s *reorderService) OpenRequests(ctx context.Context) ([]*models.AutoOrderRequest, error) {
	return s.autoOrder.FindOpen(ctx)
}

func (s *reorderService) AdvanceRequest(ctx context.Context, id int64, status models.AutoOrderStatus) error {
	return s.autoOrder.UpdateStatus(ctx, id, status)
}
