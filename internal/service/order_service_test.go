package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"go.uber.org/zap"
)

func newTestOrderService() (OrderService, *fakeOrderRepo, *fakeQueue, *fakeProducer) {
	orders := newFakeOrderRepo()
	queue := &fakeQueue{}
	producer := &fakeProducer{}
	svc := NewOrderService(orders, queue, newTestMenu(), NoopAuthorizer{}, producer, zap.NewNop(), 0.12)
	return svc, orders, queue, producer
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCreateOrderPricing(t *testing.T) {
	svc, _, queue, producer := newTestOrderService()

	order, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
		BurgerVariant: "classic",
		PaymentMethod: "card",
		// Double cheese: one above the recipe default of one.
		Customizations: models.Customizations{"cheese_slice": 2},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if !almostEqual(order.Subtotal, 63.00) {
		t.Errorf("subtotal = %.2f, want 63.00", order.Subtotal)
	}
	if !almostEqual(order.Tax, 7.56) {
		t.Errorf("tax = %.2f, want 7.56", order.Tax)
	}
	if !almostEqual(order.Total, 70.56) {
		t.Errorf("total = %.2f, want 70.56", order.Total)
	}
	if order.Status != models.StatusReceived {
		t.Errorf("status = %s, want received", order.Status)
	}
	if order.PaymentStatus != "authorized" {
		t.Errorf("payment status = %s, want authorized", order.PaymentStatus)
	}

	if !strings.HasPrefix(order.OrderNumber, "ORD-") || len(order.OrderNumber) != 12 {
		t.Errorf("order number %q, want ORD- plus 8 characters", order.OrderNumber)
	}

	open, _ := queue.Open(context.Background())
	if len(open) != 1 || open[0].OrderID != order.ID {
		t.Errorf("expected order %s queued, got %+v", order.ID, open)
	}

	ev := producer.lastOrderEvent()
	if ev == nil || ev.Type != models.EventOrderCreated {
		t.Errorf("expected an order created event, got %+v", ev)
	}
}

func TestCreateOrderDefaults(t *testing.T) {
	svc, _, _, _ := newTestOrderService()

	order, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
		BurgerVariant: "classic",
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if order.Priority != models.PriorityNormal {
		t.Errorf("priority = %s, want normal", order.Priority)
	}
	if order.OrderType != "kiosk" {
		t.Errorf("order type = %s, want kiosk", order.OrderType)
	}
	if !almostEqual(order.Subtotal, 59.00) {
		t.Errorf("subtotal = %.2f, want base price 59.00", order.Subtotal)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, queue, _ := newTestOrderService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *models.CreateOrderRequest
	}{
		{"missing variant", &models.CreateOrderRequest{PaymentMethod: "card"}},
		{"missing payment method", &models.CreateOrderRequest{BurgerVariant: "classic"}},
		{"unknown priority", &models.CreateOrderRequest{BurgerVariant: "classic", PaymentMethod: "card", Priority: "asap"}},
		{"negative customization", &models.CreateOrderRequest{BurgerVariant: "classic", PaymentMethod: "card", Customizations: models.Customizations{"cheese_slice": -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tt.req)
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	// Rejected orders never reach the queue.
	if open, _ := queue.Open(ctx); len(open) != 0 {
		t.Errorf("queue length = %d, want 0", len(open))
	}
}

func TestCreateOrderUnknownVariant(t *testing.T) {
	svc, _, _, _ := newTestOrderService()

	_, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
		BurgerVariant: "quattro_formaggi",
		PaymentMethod: "card",
	})
	if !errors.Is(err, models.ErrRecipeNotFound) {
		t.Fatalf("err = %v, want ErrRecipeNotFound", err)
	}
}

func TestCreateOrderRejectsForeignCustomization(t *testing.T) {
	svc, _, _, _ := newTestOrderService()

	_, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
		BurgerVariant:  "classic",
		PaymentMethod:  "card",
		Customizations: models.Customizations{"pineapple": 1},
	})
	if !errors.Is(err, models.ErrUnknownIngredient) {
		t.Fatalf("err = %v, want ErrUnknownIngredient", err)
	}
}

func TestResolveRequirements(t *testing.T) {
	components := newTestMenu().components["classic"]

	t.Run("defaults", func(t *testing.T) {
		reqs, err := resolveRequirements(components, nil)
		if err != nil {
			t.Fatalf("resolveRequirements: %v", err)
		}
		want := map[string]int{"bun": 1, "patty": 1, "cheese_slice": 1, "tomato_slice": 2}
		if len(reqs) != len(want) {
			t.Fatalf("requirements = %+v, want %v", reqs, want)
		}
		for _, r := range reqs {
			if want[r.IngredientID] != r.Quantity {
				t.Errorf("%s quantity = %d, want %d", r.IngredientID, r.Quantity, want[r.IngredientID])
			}
		}
	})

	t.Run("removing an optional ingredient", func(t *testing.T) {
		reqs, err := resolveRequirements(components, models.Customizations{"cheese_slice": 0})
		if err != nil {
			t.Fatalf("resolveRequirements: %v", err)
		}
		for _, r := range reqs {
			if r.IngredientID == "cheese_slice" {
				t.Error("removed ingredient still present")
			}
		}
	})

	t.Run("removing a required ingredient fails", func(t *testing.T) {
		if _, err := resolveRequirements(components, models.Customizations{"patty": 0}); err == nil {
			t.Error("expected error removing a non-optional ingredient")
		}
	})

	t.Run("extras raise the quantity", func(t *testing.T) {
		reqs, err := resolveRequirements(components, models.Customizations{"tomato_slice": 4})
		if err != nil {
			t.Fatalf("resolveRequirements: %v", err)
		}
		for _, r := range reqs {
			if r.IngredientID == "tomato_slice" && r.Quantity != 4 {
				t.Errorf("tomato_slice quantity = %d, want 4", r.Quantity)
			}
		}
	})
}

func TestCustomizationSurcharge(t *testing.T) {
	components := newTestMenu().components["classic"]

	tests := []struct {
		name           string
		customizations models.Customizations
		want           float64
	}{
		{"no customizations", nil, 0},
		{"extra cheese", models.Customizations{"cheese_slice": 2}, 4.00},
		{"two extra tomato", models.Customizations{"tomato_slice": 4}, 3.00},
		{"removals are free", models.Customizations{"cheese_slice": 0}, 0},
		{"mixed", models.Customizations{"cheese_slice": 2, "tomato_slice": 0}, 4.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := customizationSurcharge(components, tt.customizations); !almostEqual(got, tt.want) {
				t.Errorf("surcharge = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestRecentFaultsClampsLimit(t *testing.T) {
	svc, orders, _, _ := newTestOrderService()
	ctx := context.Background()

	cases := []struct {
		limit int
		want  int
	}{
		{limit: -1, want: 20},
		{limit: 0, want: 20},
		{limit: 15, want: 15},
		{limit: 5000, want: 200},
	}
	for _, tc := range cases {
		if _, err := svc.RecentFaults(ctx, tc.limit); err != nil {
			t.Fatalf("RecentFaults(%d): %v", tc.limit, err)
		}
		if orders.lastFaultLimit != tc.want {
			t.Errorf("limit %d reached repository as %d, want %d", tc.limit, orders.lastFaultLimit, tc.want)
		}
	}
}
