package models

import "time"

// Event types published to Kafka.
const (
	EventStockChanged     = "inventory.stock_changed"
	EventStockLow         = "inventory.stock_low"
	EventAutoOrderCreated = "procurement.auto_order_created"
	EventOrderCreated     = "order.created"
	EventOrderStatus      = "order.status_updated"
	EventOrderFailed      = "order.failed"
)

// Station event types consumed from the hardware topic.
const (
	StationEventCompleted = "station.completed"
	StationEventFault     = "station.fault"
	StationEventDelivered = "station.delivered"
)

// StockEvent is published after every successful ledger mutation.
type StockEvent struct {
	Type             string          `json:"type"`
	IngredientID     string          `json:"ingredient_id"`
	QuantityChange   int             `json:"quantity_change"`
	PreviousQuantity int             `json:"previous_quantity"`
	NewQuantity      int             `json:"new_quantity"`
	Kind             TransactionKind `json:"kind"`
	OrderID          string          `json:"order_id,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// AutoOrderEvent notifies the procurement collaborator of a new request.
type AutoOrderEvent struct {
	Type             string      `json:"type"`
	RequestID        int64       `json:"request_id"`
	IngredientID     string      `json:"ingredient_id"`
	Quantity         int         `json:"quantity"`
	StockStatus      StockStatus `json:"stock_status"`
	TriggerReason    string      `json:"trigger_reason"`
	ExpectedDelivery time.Time   `json:"expected_delivery"`
	Timestamp        time.Time   `json:"timestamp"`
}

// OrderStatusEvent is published on every order status change.
type OrderStatusEvent struct {
	Type           string      `json:"type"`
	OrderID        string      `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	PreviousStatus OrderStatus `json:"previous_status"`
	NewStatus      OrderStatus `json:"new_status"`
	Description    string      `json:"description,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// StationEvent is emitted by the hardware/station collaborator.
// Completed events carry the station that finished its step for the order;
// fault events carry the failing component. Fire and forget, no reply.
type StationEvent struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"order_id"`
	StationGroup string    `json:"station_group"`
	Component    string    `json:"component,omitempty"`
	FaultType    FaultType `json:"fault_type,omitempty"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
