package models

// OrderStatus is the lifecycle state of an order. The zero value is not a
// valid status; orders are created as StatusReceived.
type OrderStatus string

const (
	StatusReceived   OrderStatus = "received"
	StatusProcessing OrderStatus = "processing"
	StatusCooking    OrderStatus = "cooking"
	StatusAssembling OrderStatus = "assembling"
	StatusPackaging  OrderStatus = "packaging"
	StatusReady      OrderStatus = "ready"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusFailed     OrderStatus = "failed"
)

// orderTransitions is the closed transition table. cancelled and failed are
// reachable from every non-terminal state and are appended below.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusReceived:   {StatusProcessing},
	StatusProcessing: {StatusCooking},
	StatusCooking:    {StatusAssembling},
	StatusAssembling: {StatusPackaging},
	StatusPackaging:  {StatusReady},
	StatusReady:      {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
	StatusFailed:     {},
}

func init() {
	for from := range orderTransitions {
		if from.IsTerminal() {
			continue
		}
		orderTransitions[from] = append(orderTransitions[from], StatusCancelled, StatusFailed)
	}
}

// IsValid reports whether s is one of the defined statuses.
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MilestoneColumn maps a status to the orders column stamped when the order
// enters that status. Empty string means the status has no milestone column.
func (s OrderStatus) MilestoneColumn() string {
	switch s {
	case StatusCooking:
		return "started_cooking_at"
	case StatusAssembling:
		return "finished_cooking_at"
	case StatusReady:
		return "assembled_at"
	case StatusDelivered:
		return "delivered_at"
	}
	return ""
}

// OrderPriority orders entries in the fulfillment queue. Lower rank wins.
type OrderPriority string

const (
	PriorityUrgent OrderPriority = "urgent"
	PriorityHigh   OrderPriority = "high"
	PriorityNormal OrderPriority = "normal"
)

// Rank returns the sort rank for a priority; unknown values sort last.
func (p OrderPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	}
	return 3
}

func (p OrderPriority) IsValid() bool {
	return p == PriorityUrgent || p == PriorityHigh || p == PriorityNormal
}

// TransactionKind classifies an inventory transaction.
type TransactionKind string

const (
	TxnRestock    TransactionKind = "restock"
	TxnUsage      TransactionKind = "usage"
	TxnWaste      TransactionKind = "waste"
	TxnAdjustment TransactionKind = "adjustment"
	TxnTransfer   TransactionKind = "transfer"
)

func (k TransactionKind) IsValid() bool {
	switch k {
	case TxnRestock, TxnUsage, TxnWaste, TxnAdjustment, TxnTransfer:
		return true
	}
	return false
}

// StockStatus is the reorder classification of an ingredient.
type StockStatus string

const (
	StockOK       StockStatus = "ok"
	StockLow      StockStatus = "low"
	StockCritical StockStatus = "critical"
)

// AutoOrderStatus is the lifecycle of a procurement request.
type AutoOrderStatus string

const (
	AutoOrderPending   AutoOrderStatus = "pending"
	AutoOrderOrdered   AutoOrderStatus = "ordered"
	AutoOrderDelivered AutoOrderStatus = "delivered"
	AutoOrderCancelled AutoOrderStatus = "cancelled"
)

// FaultType classifies a station-reported failure.
type FaultType string

const (
	FaultHardware FaultType = "hardware"
	FaultSafety   FaultType = "safety"
)
