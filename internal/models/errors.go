package models

import "errors"

var (
	// ErrInsufficientStock is returned by a ledger debit that would take an
	// ingredient below zero. The ingredient is left untouched.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrLedgerContention is returned when the per-ingredient row lock could
	// not be acquired within the configured timeout. Callers may retry.
	ErrLedgerContention = errors.New("ledger contention")

	// ErrInvalidTransition is returned when an order status change is not
	// allowed by the transition table. The order is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation marks a request rejected before any state changed.
	ErrValidation = errors.New("invalid request")

	ErrUnknownIngredient = errors.New("ingredient not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrRecipeNotFound    = errors.New("recipe not found")
	ErrQueueEmpty        = errors.New("queue is empty")
	ErrOverCapacity      = errors.New("credit exceeds max capacity")
)
