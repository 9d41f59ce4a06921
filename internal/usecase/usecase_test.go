package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/domain/repository"
	"github.com/soloviev-d/ordercore/internal/pkg/signature"
	"github.com/soloviev-d/ordercore/internal/test"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

const testServerKey = "test-server-key"

type testEnv struct {
	store    *test.Store
	notifier *test.NotifierStub
	cache    *test.StatusCacheStub
	gateway  *test.GatewayStub

	checkout  *usecase.CheckoutUseCase
	machine   *usecase.OrderStateMachine
	webhooks  *usecase.WebhookProcessor
	refunds   *usecase.RefundCoordinator
	inventory *usecase.InventoryUseCase
	sweeper   *usecase.ReconcileUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	env := &testEnv{
		store:    test.NewStore(),
		notifier: &test.NotifierStub{},
		cache:    test.NewStatusCacheStub(),
		gateway:  &test.GatewayStub{},
	}
	env.checkout = usecase.NewCheckoutUseCase(env.store, 15*time.Minute, env.notifier, env.cache, logger)
	env.machine = usecase.NewOrderStateMachine(env.store, env.notifier, env.cache, logger)
	env.webhooks = usecase.NewWebhookProcessor(env.store, env.store, env.store, env.machine, testServerKey, env.cache, env.notifier, logger)
	env.refunds = usecase.NewRefundCoordinator(env.store, env.store.Refunds(), env.machine, env.notifier, env.cache, logger)
	env.inventory = usecase.NewInventoryUseCase(env.store, logger)
	env.sweeper = usecase.NewReconcileUseCase(env.store, env.store, env.machine, env.webhooks, env.gateway,
		env.notifier, 24*time.Hour, 7*24*time.Hour, logger)
	return env
}

// placeOrder seeds stock and checks out a single-line cart.
func (env *testEnv) placeOrder(t *testing.T, productID int64, stock, qty int, unitPrice int64) *model.Order {
	t.Helper()
	env.store.SeedStock(model.SKU{ProductID: productID}, stock)
	order, err := env.checkout.Checkout(context.Background(), usecase.CheckoutInput{
		Items: []repository.CheckoutItem{{ProductID: productID, Quantity: qty, UnitPrice: unitPrice}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return order
}

// settle sends a signed settlement webhook moving the order to PROCESSING.
func (env *testEnv) settle(t *testing.T, order *model.Order, txID string) {
	t.Helper()
	n := env.notification(order, txID, "settlement")
	result, err := env.webhooks.Process(context.Background(), n)
	if err != nil {
		t.Fatalf("settlement webhook failed: %v", err)
	}
	if result.Duplicate || !result.Applied {
		t.Fatalf("settlement not applied: %+v", result)
	}
}

// advance walks the order through the given statuses as an admin.
func (env *testEnv) advance(t *testing.T, orderID int64, statuses ...model.OrderStatus) *model.Order {
	t.Helper()
	var order *model.Order
	var err error
	for _, status := range statuses {
		order, err = env.machine.Transition(context.Background(), orderID, status, "admin-1", "test")
		if err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}
	return order
}

func (env *testEnv) notification(order *model.Order, txID, status string) model.GatewayNotification {
	n := model.GatewayNotification{
		OrderNumber:       order.Number,
		TransactionID:     txID,
		TransactionStatus: status,
		GrossAmount:       order.Total,
	}
	n.Signature = signature.Compute(n.OrderNumber, n.TransactionID, n.GrossAmount, testServerKey)
	return n
}

func (env *testEnv) onHand(t *testing.T, productID int64) int {
	t.Helper()
	qty, err := env.store.OnHand(context.Background(), model.SKU{ProductID: productID})
	if err != nil {
		t.Fatalf("on hand lookup failed: %v", err)
	}
	return qty
}

func (env *testEnv) sawEvent(eventType string) bool {
	for _, e := range env.notifier.Events() {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}
