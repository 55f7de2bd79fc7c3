package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/google/uuid"
)

// fakeLedgerRepo is an in-memory stand-in for the Postgres ledger. It keeps
// the same contract: quantity bounds are enforced and every mutation appends
// one transaction row. contentionLeft lets tests inject transient lock
// failures per ingredient.
type fakeLedgerRepo struct {
	mu             sync.Mutex
	ingredients    map[string]*models.Ingredient
	txns           []*models.InventoryTransaction
	usageRates     map[string]float64
	contentionLeft map[string]int
	nextID         int64
	lastTxnLimit   int
}

func newFakeLedgerRepo(ingredients ...*models.Ingredient) *fakeLedgerRepo {
	r := &fakeLedgerRepo{
		ingredients:    make(map[string]*models.Ingredient),
		usageRates:     make(map[string]float64),
		contentionLeft: make(map[string]int),
	}
	for _, ing := range ingredients {
		r.ingredients[ing.ID] = ing
	}
	return r
}

func (r *fakeLedgerRepo) apply(ingredientID string, delta int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if left := r.contentionLeft[ingredientID]; left > 0 {
		r.contentionLeft[ingredientID] = left - 1
		return nil, fmt.Errorf("row lock timed out: %w", models.ErrLedgerContention)
	}

	ing, ok := r.ingredients[ingredientID]
	if !ok {
		return nil, models.ErrUnknownIngredient
	}

	next := ing.CurrentQuantity + delta
	if next < 0 {
		return nil, fmt.Errorf("%s has %d, need %d: %w", ingredientID, ing.CurrentQuantity, -delta, models.ErrInsufficientStock)
	}
	if next > ing.MaxCapacity {
		return nil, fmt.Errorf("%s capacity %d exceeded: %w", ingredientID, ing.MaxCapacity, models.ErrOverCapacity)
	}

	r.nextID++
	txn := &models.InventoryTransaction{
		ID:               r.nextID,
		IngredientID:     ingredientID,
		QuantityChange:   delta,
		PreviousQuantity: ing.CurrentQuantity,
		NewQuantity:      next,
		Kind:             kind,
		OrderID:          orderID,
		Actor:            actor,
		Reason:           reason,
		CreatedAt:        time.Now(),
	}
	ing.CurrentQuantity = next
	r.txns = append(r.txns, txn)
	return txn, nil
}

func (r *fakeLedgerRepo) Debit(ctx context.Context, ingredientID string, quantity int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("debit quantity must be positive, got %d", quantity)
	}
	return r.apply(ingredientID, -quantity, kind, orderID, actor, reason)
}

func (r *fakeLedgerRepo) Credit(ctx context.Context, ingredientID string, quantity int, kind models.TransactionKind, orderID *string, actor, reason string) (*models.InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("credit quantity must be positive, got %d", quantity)
	}
	return r.apply(ingredientID, quantity, kind, orderID, actor, reason)
}

func (r *fakeLedgerRepo) FindByID(ctx context.Context, id string) (*models.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ing, ok := r.ingredients[id]
	if !ok {
		return nil, models.ErrUnknownIngredient
	}
	copy := *ing
	return &copy, nil
}

func (r *fakeLedgerRepo) FindAll(ctx context.Context) ([]*models.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.ingredients))
	for id := range r.ingredients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*models.Ingredient, 0, len(ids))
	for _, id := range ids {
		copy := *r.ingredients[id]
		out = append(out, &copy)
	}
	return out, nil
}

func (r *fakeLedgerRepo) FindExpired(ctx context.Context, asOf time.Time) ([]*models.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ingredient
	for _, ing := range r.ingredients {
		if ing.ExpirationDate != nil && ing.ExpirationDate.Before(asOf) && ing.CurrentQuantity > 0 {
			copy := *ing
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) AvgDailyUsage(ctx context.Context, ingredientID string, lookbackDays int) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usageRates[ingredientID], nil
}

func (r *fakeLedgerRepo) NetOrderConsumption(ctx context.Context, orderID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	net := make(map[string]int)
	for _, txn := range r.txns {
		if txn.OrderID == nil || *txn.OrderID != orderID {
			continue
		}
		if txn.Kind != models.TxnUsage && txn.Kind != models.TxnAdjustment {
			continue
		}
		net[txn.IngredientID] -= txn.QuantityChange
	}
	for id, qty := range net {
		if qty <= 0 {
			delete(net, id)
		}
	}
	return net, nil
}

func (r *fakeLedgerRepo) RecentTransactions(ctx context.Context, limit int) ([]*models.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastTxnLimit = limit
	out := make([]*models.InventoryTransaction, len(r.txns))
	copy(out, r.txns)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeLedgerRepo) ConsumptionSince(ctx context.Context, since time.Time) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, txn := range r.txns {
		if txn.Kind == models.TxnUsage && txn.CreatedAt.After(since) {
			out[txn.IngredientID] += -txn.QuantityChange
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) PruneTransactions(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeLedgerRepo) quantity(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ingredients[id].CurrentQuantity
}

func (r *fakeLedgerRepo) txnCount(kind models.TransactionKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, txn := range r.txns {
		if txn.Kind == kind {
			n++
		}
	}
	return n
}

// fakeAutoOrders mirrors the partial-unique-index behavior: at most one open
// request per ingredient.
type fakeAutoOrders struct {
	mu       sync.Mutex
	requests []*models.AutoOrderRequest
	nextID   int64
}

func (f *fakeAutoOrders) CreateIfNone(ctx context.Context, req *models.AutoOrderRequest) (*models.AutoOrderRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.requests {
		if existing.IngredientID == req.IngredientID &&
			(existing.Status == models.AutoOrderPending || existing.Status == models.AutoOrderOrdered) {
			return nil, nil
		}
	}
	f.nextID++
	req.ID = f.nextID
	req.Status = models.AutoOrderPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	f.requests = append(f.requests, req)
	return req, nil
}

func (f *fakeAutoOrders) FindOpen(ctx context.Context) ([]*models.AutoOrderRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AutoOrderRequest
	for _, req := range f.requests {
		if req.Status == models.AutoOrderPending || req.Status == models.AutoOrderOrdered {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeAutoOrders) UpdateStatus(ctx context.Context, id int64, status models.AutoOrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.ID == id {
			req.Status = status
			req.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("auto-order request %d not found", id)
}

// fakeProducer records every published event.
type fakeProducer struct {
	mu          sync.Mutex
	stockEvents []*models.StockEvent
	orderEvents []*models.OrderStatusEvent
	autoOrders  []*models.AutoOrderEvent
}

func (p *fakeProducer) PublishStockEvent(ctx context.Context, event *models.StockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stockEvents = append(p.stockEvents, event)
	return nil
}

func (p *fakeProducer) PublishOrderEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderEvents = append(p.orderEvents, event)
	return nil
}

func (p *fakeProducer) PublishAutoOrderEvent(ctx context.Context, event *models.AutoOrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoOrders = append(p.autoOrders, event)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) lastOrderEvent() *models.OrderStatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.orderEvents) == 0 {
		return nil
	}
	return p.orderEvents[len(p.orderEvents)-1]
}

// fakeOrderRepo keeps orders in memory and enforces the transition table the
// same way the Postgres repository does.
type fakeOrderRepo struct {
	mu             sync.Mutex
	orders         map[string]*models.Order
	events         []*models.OrderEvent
	faults         []*models.StationFault
	lastFaultLimit int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	copy := *order
	r.orders[order.ID] = &copy
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	copy := *order
	return &copy, nil
}

func (r *fakeOrderRepo) FindAll(ctx context.Context, limit, offset int64) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, order := range r.orders {
		copy := *order
		out = append(out, &copy)
	}
	return out, nil
}

func (r *fakeOrderRepo) FindActive(ctx context.Context) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, order := range r.orders {
		if !order.Status.IsTerminal() {
			copy := *order
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Transition(ctx context.Context, id string, newStatus models.OrderStatus, description string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%s -> %s: %w", order.Status, newStatus, models.ErrInvalidTransition)
	}
	now := time.Now()
	r.events = append(r.events, &models.OrderEvent{
		OrderID:        id,
		EventType:      "status_change",
		PreviousStatus: order.Status,
		NewStatus:      newStatus,
		Description:    description,
		CreatedAt:      now,
	})
	order.Status = newStatus
	order.UpdatedAt = now
	if newStatus == models.StatusDelivered {
		secs := int(now.Sub(order.CreatedAt).Seconds())
		order.ActualPrepSeconds = &secs
	}
	copy := *order
	return &copy, nil
}

func (r *fakeOrderRepo) AssignStation(ctx context.Context, id, stationGroup string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	order.StationGroup = stationGroup
	return nil
}

func (r *fakeOrderRepo) SetPaymentStatus(ctx context.Context, id, paymentStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	order.PaymentStatus = paymentStatus
	return nil
}

func (r *fakeOrderRepo) History(ctx context.Context, orderID string) ([]*models.OrderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return nil, models.ErrOrderNotFound
	}
	var out []*models.OrderEvent
	for _, ev := range r.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) RecordFault(ctx context.Context, fault *models.StationFault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fault.CreatedAt = time.Now()
	r.faults = append(r.faults, fault)
	return nil
}

func (r *fakeOrderRepo) RecentFaults(ctx context.Context, limit int) ([]*models.StationFault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFaultLimit = limit
	out := make([]*models.StationFault, len(r.faults))
	copy(out, r.faults)
	return out, nil
}

func (r *fakeOrderRepo) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOrderRepo) status(id string) models.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Status
}

// fakeQueue orders entries by priority rank then position.
type fakeQueue struct {
	mu      sync.Mutex
	entries []*models.QueueEntry
	nextPos int64
}

func (q *fakeQueue) Enqueue(ctx context.Context, orderID string, priority models.OrderPriority) (*models.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextPos++
	entry := &models.QueueEntry{
		ID:         q.nextPos,
		OrderID:    orderID,
		Position:   q.nextPos,
		Priority:   priority,
		EnqueuedAt: time.Now(),
	}
	q.entries = append(q.entries, entry)
	return entry, nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*models.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var best *models.QueueEntry
	for _, entry := range q.entries {
		if entry.DequeuedAt != nil {
			continue
		}
		if best == nil ||
			entry.Priority.Rank() < best.Priority.Rank() ||
			(entry.Priority.Rank() == best.Priority.Rank() && entry.Position < best.Position) {
			best = entry
		}
	}
	if best == nil {
		return nil, models.ErrQueueEmpty
	}
	now := time.Now()
	best.DequeuedAt = &now
	return best, nil
}

func (q *fakeQueue) Remove(ctx context.Context, orderID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.OrderID == orderID && entry.DequeuedAt == nil {
			now := time.Now()
			entry.DequeuedAt = &now
		}
	}
	return nil
}

func (q *fakeQueue) Open(ctx context.Context) ([]*models.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*models.QueueEntry
	for _, entry := range q.entries {
		if entry.DequeuedAt == nil {
			out = append(out, entry)
		}
	}
	return out, nil
}

// fakeRecipes serves a static menu.
type fakeRecipes struct {
	recipes    map[string]*models.Recipe
	components map[string][]*models.RecipeComponent
}

func (f *fakeRecipes) FindByID(ctx context.Context, id string) (*models.Recipe, error) {
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, models.ErrRecipeNotFound
	}
	return recipe, nil
}

func (f *fakeRecipes) Components(ctx context.Context, recipeID string) ([]*models.RecipeComponent, error) {
	return f.components[recipeID], nil
}

func newTestMenu() *fakeRecipes {
	return &fakeRecipes{
		recipes: map[string]*models.Recipe{
			"classic": {ID: "classic", Name: "Classic Burger", BasePrice: 59.00, IsAvailable: true},
		},
		components: map[string][]*models.RecipeComponent{
			"classic": {
				{RecipeID: "classic", IngredientID: "bun", Quantity: 1, StepOrder: 1},
				{RecipeID: "classic", IngredientID: "patty", Quantity: 1, StepOrder: 2},
				{RecipeID: "classic", IngredientID: "cheese_slice", Quantity: 1, StepOrder: 3, IsOptional: true, ExtraCost: 4.00},
				{RecipeID: "classic", IngredientID: "tomato_slice", Quantity: 2, StepOrder: 4, IsOptional: true, ExtraCost: 1.50},
			},
		},
	}
}

func testIngredient(id string, quantity, reorderPoint, maxCapacity int) *models.Ingredient {
	return &models.Ingredient{
		ID:              id,
		Name:            id,
		Unit:            "pieces",
		CurrentQuantity: quantity,
		ReorderPoint:    reorderPoint,
		MaxCapacity:     maxCapacity,
		IsActive:        true,
	}
}

func newTestOrderID() string {
	return uuid.New().String()
}
