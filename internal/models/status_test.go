package models

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{StatusReceived, StatusProcessing, true},
		{StatusProcessing, StatusCooking, true},
		{StatusCooking, StatusAssembling, true},
		{StatusAssembling, StatusPackaging, true},
		{StatusPackaging, StatusReady, true},
		{StatusReady, StatusDelivered, true},

		// No skipping stages or moving backwards.
		{StatusReceived, StatusCooking, false},
		{StatusCooking, StatusReceived, false},
		{StatusPackaging, StatusDelivered, false},

		// Cancellation and failure from any non-terminal state.
		{StatusReceived, StatusCancelled, true},
		{StatusCooking, StatusCancelled, true},
		{StatusReady, StatusFailed, true},

		// Terminal states are closed.
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusFailed, StatusFailed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{StatusDelivered, StatusCancelled, StatusFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	active := []OrderStatus{StatusReceived, StatusProcessing, StatusCooking, StatusAssembling, StatusPackaging, StatusReady}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	if OrderStatus("frying").IsValid() {
		t.Error("unknown status should not be valid")
	}
	if !StatusPackaging.IsValid() {
		t.Error("packaging should be valid")
	}
}

func TestMilestoneColumn(t *testing.T) {
	tests := []struct {
		status OrderStatus
		column string
	}{
		{StatusCooking, "started_cooking_at"},
		{StatusAssembling, "finished_cooking_at"},
		{StatusReady, "assembled_at"},
		{StatusDelivered, "delivered_at"},
		{StatusReceived, ""},
		{StatusProcessing, ""},
		{StatusCancelled, ""},
	}

	for _, tt := range tests {
		if got := tt.status.MilestoneColumn(); got != tt.column {
			t.Errorf("MilestoneColumn(%s) = %q, want %q", tt.status, got, tt.column)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityUrgent.Rank() < PriorityHigh.Rank() && PriorityHigh.Rank() < PriorityNormal.Rank()) {
		t.Error("priority ranks must order urgent < high < normal")
	}
	if OrderPriority("whenever").Rank() <= PriorityNormal.Rank() {
		t.Error("unknown priorities must sort after normal")
	}
}
