package models

import (
	"errors"
	"time"
)

// Ingredient is the authoritative stock record for one ingredient. The
// quantity fields are only ever written through the ledger repository.
type Ingredient struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Unit            string     `db:"unit" json:"unit"`
	CurrentQuantity int        `db:"current_quantity" json:"current_quantity"`
	ParLevel        int        `db:"par_level" json:"par_level"`
	ReorderPoint    int        `db:"reorder_point" json:"reorder_point"`
	MaxCapacity     int        `db:"max_capacity" json:"max_capacity"`
	ShelfLifeDays   int        `db:"shelf_life_days" json:"shelf_life_days"`
	ExpirationDate  *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	StorageLocation string     `db:"storage_location" json:"storage_location"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	LastRestocked   *time.Time `db:"last_restocked" json:"last_restocked,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// InventoryTransaction is one immutable audit row. Exactly one row is written
// per ledger mutation, inside the same database transaction.
type InventoryTransaction struct {
	ID               int64           `db:"id" json:"id"`
	IngredientID     string          `db:"ingredient_id" json:"ingredient_id"`
	QuantityChange   int             `db:"quantity_change" json:"quantity_change"`
	PreviousQuantity int             `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int             `db:"new_quantity" json:"new_quantity"`
	Kind             TransactionKind `db:"kind" json:"kind"`
	OrderID          *string         `db:"order_id" json:"order_id,omitempty"`
	Actor            string          `db:"actor" json:"actor"`
	Reason           string          `db:"reason" json:"reason"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// StockLevel is the dashboard view of an ingredient: the current snapshot
// plus the reorder classification and usage estimate.
type StockLevel struct {
	Ingredient
	Status         StockStatus `json:"status"`
	AvgDailyUsage  float64     `json:"avg_daily_usage"`
	DaysUntilEmpty int         `json:"days_until_empty"` // -1 when not estimable
}

// StockChangeRequest is the admin payload for restock/waste/adjustment.
type StockChangeRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
	Actor    string `json:"actor"`
}

func (r *StockChangeRequest) Validate() error {
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}

// AutoOrderRequest is a system-generated procurement request. Its status is
// advanced by the external procurement collaborator.
type AutoOrderRequest struct {
	ID               int64           `db:"id" json:"id"`
	IngredientID     string          `db:"ingredient_id" json:"ingredient_id"`
	Quantity         int             `db:"quantity" json:"quantity"`
	TriggerReason    string          `db:"trigger_reason" json:"trigger_reason"`
	Status           AutoOrderStatus `db:"status" json:"status"`
	ExpectedDelivery time.Time       `db:"expected_delivery" json:"expected_delivery"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
