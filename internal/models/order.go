package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Customizations maps option names to counts, e.g. {"extra_cheese": 1,
// "onion": 0}. Zero removes a default ingredient, values above the default
// add extras. Stored as JSONB.
type Customizations map[string]int

// Value implements driver.Valuer for JSONB storage.
func (c Customizations) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Customizations) Scan(src interface{}) error {
	if src == nil {
		*c = Customizations{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Customizations", src)
	}
	return json.Unmarshal(b, c)
}

// Order is the canonical order record. Status is only moved by the
// fulfillment coordinator through the transition table.
type Order struct {
	ID                  string         `db:"id" json:"id"`
	OrderNumber         string         `db:"order_number" json:"order_number"`
	OrderType           string         `db:"order_type" json:"order_type"`
	BurgerVariant       string         `db:"burger_variant" json:"burger_variant"`
	Customizations      Customizations `db:"customizations" json:"customizations"`
	Side                string         `db:"side" json:"side,omitempty"`
	Drink               string         `db:"drink" json:"drink,omitempty"`
	Subtotal            float64        `db:"subtotal" json:"subtotal"`
	Tax                 float64        `db:"tax" json:"tax"`
	Total               float64        `db:"total" json:"total"`
	PaymentMethod       string         `db:"payment_method" json:"payment_method"`
	PaymentStatus       string         `db:"payment_status" json:"payment_status"`
	Status              OrderStatus    `db:"status" json:"status"`
	Priority            OrderPriority  `db:"priority" json:"priority"`
	StationGroup        string         `db:"station_group" json:"station_group,omitempty"`
	SpecialInstructions string         `db:"special_instructions" json:"special_instructions,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
	StartedCookingAt    *time.Time     `db:"started_cooking_at" json:"started_cooking_at,omitempty"`
	FinishedCookingAt   *time.Time     `db:"finished_cooking_at" json:"finished_cooking_at,omitempty"`
	AssembledAt         *time.Time     `db:"assembled_at" json:"assembled_at,omitempty"`
	DeliveredAt         *time.Time     `db:"delivered_at" json:"delivered_at,omitempty"`
	ActualPrepSeconds   *int           `db:"actual_prep_seconds" json:"actual_prep_seconds,omitempty"`
}

// OrderEvent is one append-only history row, written in the same database
// transaction as the status change it records.
type OrderEvent struct {
	ID             int64       `db:"id" json:"id"`
	OrderID        string      `db:"order_id" json:"order_id"`
	EventType      string      `db:"event_type" json:"event_type"`
	PreviousStatus OrderStatus `db:"previous_status" json:"previous_status"`
	NewStatus      OrderStatus `db:"new_status" json:"new_status"`
	Description    string      `db:"description" json:"description"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// StationFault records a station-reported hardware or safety failure.
type StationFault struct {
	ID                   int64     `db:"id" json:"id"`
	OrderID              string    `db:"order_id" json:"order_id"`
	FaultType            FaultType `db:"fault_type" json:"fault_type"`
	Component            string    `db:"component" json:"component"`
	Message              string    `db:"message" json:"message"`
	RequiresIntervention bool      `db:"requires_intervention" json:"requires_intervention"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// QueueEntry is one row in the fulfillment queue. Open entries have a nil
// DequeuedAt; an order has at most one open entry.
type QueueEntry struct {
	ID         int64         `db:"id" json:"id"`
	OrderID    string        `db:"order_id" json:"order_id"`
	Position   int64         `db:"position" json:"position"`
	Priority   OrderPriority `db:"priority" json:"priority"`
	EnqueuedAt time.Time     `db:"enqueued_at" json:"enqueued_at"`
	DequeuedAt *time.Time    `db:"dequeued_at" json:"dequeued_at,omitempty"`
}

// CreateOrderRequest is the intake payload.
type CreateOrderRequest struct {
	OrderType           string         `json:"order_type"`
	BurgerVariant       string         `json:"burger_variant"`
	Customizations      Customizations `json:"customizations"`
	Side                string         `json:"side"`
	Drink               string         `json:"drink"`
	PaymentMethod       string         `json:"payment_method"`
	Priority            string         `json:"priority"`
	SpecialInstructions string         `json:"special_instructions"`
}

func (r *CreateOrderRequest) Validate() error {
	if r.BurgerVariant == "" {
		return errors.New("burger_variant is required")
	}
	if r.PaymentMethod == "" {
		return errors.New("payment_method is required")
	}
	if r.Priority != "" && !OrderPriority(r.Priority).IsValid() {
		return fmt.Errorf("unknown priority %q", r.Priority)
	}
	for name, count := range r.Customizations {
		if name == "" {
			return errors.New("customization name cannot be empty")
		}
		if count < 0 {
			return fmt.Errorf("customization %q: count cannot be negative", name)
		}
	}
	return nil
}
