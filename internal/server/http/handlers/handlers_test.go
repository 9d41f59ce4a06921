package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
	"github.com/soloviev-d/ordercore/internal/server/http/dto"
	"github.com/soloviev-d/ordercore/internal/server/http/middleware"
	testhelpers "github.com/soloviev-d/ordercore/internal/test"
	"github.com/soloviev-d/ordercore/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func performRequest(t *testing.T, method, path string, handler gin.HandlerFunc, setup func(*gin.Context), body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCurrentActor(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentActor(c); got != "" {
		t.Fatalf("expected empty actor when not set, got %q", got)
	}

	c.Set(middleware.ActorContextKey, "admin-7")
	if got := CurrentActor(c); got != "admin-7" {
		t.Fatalf("expected admin-7, got %q", got)
	}
}

func TestOrderHandlerCheckout(t *testing.T) {
	body, _ := json.Marshal(dto.CheckoutRequest{
		Items:         []dto.CheckoutItemRequest{{ProductID: 7, Quantity: 2, UnitPrice: 1500}},
		ShippingCost:  500,
		PaymentMethod: "gateway",
	})
	handler := NewOrderHandler(testhelpers.FacadeStub{CheckoutFn: func(ctx context.Context, input usecase.CheckoutInput) (*model.Order, error) {
		if len(input.Items) != 1 || input.Items[0].ProductID != 7 || input.Items[0].Quantity != 2 {
			t.Fatalf("unexpected checkout input %+v", input)
		}
		return &model.Order{
			ID:     1,
			Number: "ORD-20260829-AB12CD34EF",
			Status: model.OrderStatusPendingPayment,
			Total:  3500,
			Items:  []model.OrderItem{{ProductID: 7, Quantity: 2, UnitPrice: 1500, Subtotal: 3000}},
		}, nil
	}}, testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodPost, "/checkout", handler.Checkout, nil, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var order dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.Number != "ORD-20260829-AB12CD34EF" || order.Status != "PENDING_PAYMENT" || order.Total != 3500 {
		t.Fatalf("unexpected order response %+v", order)
	}
}

func TestOrderHandlerCheckoutShortage(t *testing.T) {
	variant := int64(3)
	body, _ := json.Marshal(dto.CheckoutRequest{Items: []dto.CheckoutItemRequest{{ProductID: 7, Quantity: 5}}})
	handler := NewOrderHandler(testhelpers.FacadeStub{CheckoutFn: func(ctx context.Context, input usecase.CheckoutInput) (*model.Order, error) {
		return nil, &domainErrors.InsufficientStockError{Shortages: []domainErrors.StockShortage{
			{ProductID: 7, VariantID: &variant, Requested: 5, Available: 2},
		}}
	}}, testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodPost, "/checkout", handler.Checkout, nil, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	var payload struct {
		Error     string                 `json:"error"`
		Shortages []dto.ShortageResponse `json:"shortages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error != "insufficient stock" || len(payload.Shortages) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	s := payload.Shortages[0]
	if s.ProductID != 7 || s.VariantID == nil || *s.VariantID != 3 || s.Requested != 5 || s.Available != 2 {
		t.Fatalf("unexpected shortage %+v", s)
	}
}

func TestOrderHandlerCheckoutFailures(t *testing.T) {
	validBody, _ := json.Marshal(dto.CheckoutRequest{Items: []dto.CheckoutItemRequest{{ProductID: 1, Quantity: 1}}})
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{name: "malformed body", body: []byte("{"), status: http.StatusBadRequest},
		{name: "invalid amount", body: validBody, err: domainErrors.ErrInvalidAmount, status: http.StatusUnprocessableEntity},
		{name: "storage failure", body: validBody, err: errors.New("db down"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewOrderHandler(testhelpers.FacadeStub{CheckoutFn: func(ctx context.Context, input usecase.CheckoutInput) (*model.Order, error) {
				return nil, tt.err
			}}, testhelpers.FacadeStub{})
			resp := performRequest(t, http.MethodPost, "/checkout", handler.Checkout, nil, tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestOrderHandlerGet(t *testing.T) {
	txID := "tx-100"
	handler := NewOrderHandler(testhelpers.FacadeStub{
		OrderFn: func(ctx context.Context, number string) (*model.Order, error) {
			if number != "ORD-1" {
				t.Fatalf("unexpected number %q", number)
			}
			return &model.Order{ID: 5, Number: number, Status: model.OrderStatusProcessing, Total: 3000}, nil
		},
		PaymentFn: func(ctx context.Context, orderID int64) (*model.Payment, error) {
			return &model.Payment{OrderID: orderID, Method: "gateway", Amount: 3000, Status: model.PaymentStatusSuccess, GatewayTransactionID: &txID}, nil
		},
		StatusLogFn: func(ctx context.Context, orderID int64) ([]model.StatusLogEntry, error) {
			return []model.StatusLogEntry{{OrderID: orderID, FromStatus: model.OrderStatusPendingPayment, ToStatus: model.OrderStatusProcessing, Actor: "payment-gateway"}}, nil
		},
	}, testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodGet, "/orders/ORD-1", handler.Get, func(c *gin.Context) {
		c.Params = gin.Params{{Key: "number", Value: "ORD-1"}}
	}, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var detail dto.OrderDetailResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if detail.Status != "PROCESSING" {
		t.Fatalf("unexpected status %q", detail.Status)
	}
	if detail.Payment == nil || detail.Payment.TransactionID == nil || *detail.Payment.TransactionID != "tx-100" {
		t.Fatalf("expected payment with transaction id, got %+v", detail.Payment)
	}
	if len(detail.History) != 1 || detail.History[0].Actor != "payment-gateway" {
		t.Fatalf("unexpected history %+v", detail.History)
	}
}

func TestOrderHandlerGetNotFound(t *testing.T) {
	handler := NewOrderHandler(testhelpers.FacadeStub{OrderFn: func(ctx context.Context, number string) (*model.Order, error) {
		return nil, domainErrors.ErrOrderNotFound
	}}, testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodGet, "/orders/ORD-404", handler.Get, nil, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestOrderHandlerTransition(t *testing.T) {
	body, _ := json.Marshal(dto.TransitionRequest{Target: "SHIPPED", Reason: "handed to courier"})
	handler := NewOrderHandler(testhelpers.FacadeStub{TransitionFn: func(ctx context.Context, number string, target model.OrderStatus, actor, reason string) (*model.Order, error) {
		if number != "ORD-1" || target != model.OrderStatusShipped || actor != "admin-1" || reason != "handed to courier" {
			t.Fatalf("unexpected transition args %q %q %q %q", number, target, actor, reason)
		}
		return &model.Order{ID: 1, Number: number, Status: target}, nil
	}}, testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodPost, "/orders/ORD-1/transition", handler.Transition, func(c *gin.Context) {
		c.Params = gin.Params{{Key: "number", Value: "ORD-1"}}
		c.Set(middleware.ActorContextKey, "admin-1")
	}, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var order dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.Status != "SHIPPED" {
		t.Fatalf("unexpected status %q", order.Status)
	}
}

func TestOrderHandlerTransitionFailures(t *testing.T) {
	validBody, _ := json.Marshal(dto.TransitionRequest{Target: "DELIVERED"})
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{name: "malformed body", body: []byte("not json"), status: http.StatusBadRequest},
		{name: "unknown order", body: validBody, err: domainErrors.ErrOrderNotFound, status: http.StatusNotFound},
		{name: "illegal edge", body: validBody, err: domainErrors.ErrInvalidTransition, status: http.StatusConflict},
		{name: "storage failure", body: validBody, err: errors.New("db down"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewOrderHandler(testhelpers.FacadeStub{TransitionFn: func(ctx context.Context, number string, target model.OrderStatus, actor, reason string) (*model.Order, error) {
				return nil, tt.err
			}}, testhelpers.FacadeStub{})
			resp := performRequest(t, http.MethodPost, "/orders/ORD-1/transition", handler.Transition, nil, tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestOrderHandlerConfirmCOD(t *testing.T) {
	handler := NewOrderHandler(testhelpers.FacadeStub{}, testhelpers.FacadeStub{ConfirmCODFn: func(ctx context.Context, number, actor string) (*model.Order, error) {
		if number != "ORD-1" || actor != "courier-9" {
			t.Fatalf("unexpected args %q %q", number, actor)
		}
		return &model.Order{ID: 1, Number: number, Status: model.OrderStatusProcessing}, nil
	}})
	resp := performRequest(t, http.MethodPost, "/orders/ORD-1/cod/confirm", handler.ConfirmCOD, func(c *gin.Context) {
		c.Params = gin.Params{{Key: "number", Value: "ORD-1"}}
		c.Set(middleware.ActorContextKey, "courier-9")
	}, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestOrderHandlerConfirmCODConflict(t *testing.T) {
	handler := NewOrderHandler(testhelpers.FacadeStub{}, testhelpers.FacadeStub{ConfirmCODFn: func(ctx context.Context, number, actor string) (*model.Order, error) {
		return nil, domainErrors.ErrInvalidTransition
	}})
	resp := performRequest(t, http.MethodPost, "/orders/ORD-1/cod/confirm", handler.ConfirmCOD, nil, nil, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestOrderHandlerStatus(t *testing.T) {
	handler := NewOrderHandler(testhelpers.FacadeStub{OrderStatusFn: func(ctx context.Context, number string) (model.OrderStatus, error) {
		if number != "ORD-1" {
			t.Fatalf("unexpected number %q", number)
		}
		return model.OrderStatusShipped, nil
	}}, testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodGet, "/orders/ORD-1/status", handler.Status, func(c *gin.Context) {
		c.Params = gin.Params{{Key: "number", Value: "ORD-1"}}
	}, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var status dto.OrderStatusResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Number != "ORD-1" || status.Status != "SHIPPED" {
		t.Fatalf("unexpected response %+v", status)
	}
}

func TestOrderHandlerStatusNotFound(t *testing.T) {
	handler := NewOrderHandler(testhelpers.FacadeStub{OrderStatusFn: func(ctx context.Context, number string) (model.OrderStatus, error) {
		return "", domainErrors.ErrOrderNotFound
	}}, testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodGet, "/orders/ORD-404/status", handler.Status, nil, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestStockHandlerReceive(t *testing.T) {
	body, _ := json.Marshal(dto.StockChangeRequest{ProductID: 7, Quantity: 25})
	handler := NewStockHandler(testhelpers.FacadeStub{ReceiveStockFn: func(ctx context.Context, sku model.SKU, qty int) (int, error) {
		if sku.ProductID != 7 || qty != 25 {
			t.Fatalf("unexpected args %+v %d", sku, qty)
		}
		return 25, nil
	}})
	resp := performRequest(t, http.MethodPost, "/stock/receive", handler.Receive, nil, body, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var level dto.StockLevelResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &level); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if level.ProductID != 7 || level.OnHand != 25 {
		t.Fatalf("unexpected response %+v", level)
	}
}

func TestStockHandlerWithdrawFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{"malformed json", []byte("{"), nil, http.StatusBadRequest},
		{"missing product", []byte(`{"quantity":1}`), nil, http.StatusBadRequest},
		{"insufficient stock", nil, domainErrors.ErrInsufficientStock, http.StatusConflict},
		{"invalid amount", nil, domainErrors.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{"unknown sku", nil, domainErrors.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body, _ = json.Marshal(dto.StockChangeRequest{ProductID: 7, Quantity: 3})
			}
			handler := NewStockHandler(testhelpers.FacadeStub{WithdrawStockFn: func(ctx context.Context, sku model.SKU, qty int) (int, error) {
				return 0, tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/stock/withdraw", handler.Withdraw, nil, body, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestStockHandlerOnHand(t *testing.T) {
	handler := NewStockHandler(testhelpers.FacadeStub{StockOnHandFn: func(ctx context.Context, sku model.SKU) (int, error) {
		if sku.ProductID != 7 || sku.VariantID == nil || *sku.VariantID != 2 {
			t.Fatalf("unexpected sku %+v", sku)
		}
		return 4, nil
	}})
	router := gin.New()
	router.GET("/stock", handler.OnHand)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stock?product_id=7&variant_id=2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var level dto.StockLevelResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &level); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if level.OnHand != 4 {
		t.Fatalf("unexpected response %+v", level)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stock", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without product_id, got %d", resp.Code)
	}
}

func webhookBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"order_id":           "ORD-1",
		"transaction_id":     "tx-1",
		"transaction_status": "settlement",
		"payment_type":       "bank_transfer",
		"gross_amount":       "3500",
		"signature_key":      "deadbeef",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func TestWebhookHandlerAck(t *testing.T) {
	handler := NewWebhookHandler(testhelpers.FacadeStub{WebhookFn: func(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error) {
		if n.OrderNumber != "ORD-1" || n.TransactionID != "tx-1" || n.GrossAmount != 3500 || n.Signature != "deadbeef" {
			t.Fatalf("unexpected notification %+v", n)
		}
		return &usecase.WebhookResult{OrderNumber: n.OrderNumber, Applied: true}, nil
	}}, discardLogger())
	resp := performRequest(t, http.MethodPost, "/payments/webhook", handler.Receive, nil, webhookBody(t), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var ack dto.WebhookResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ack.Status != "ok" || ack.Duplicate {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestWebhookHandlerDuplicate(t *testing.T) {
	handler := NewWebhookHandler(testhelpers.FacadeStub{WebhookFn: func(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error) {
		return &usecase.WebhookResult{OrderNumber: n.OrderNumber, Duplicate: true}, nil
	}}, discardLogger())
	resp := performRequest(t, http.MethodPost, "/payments/webhook", handler.Receive, nil, webhookBody(t), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var ack dto.WebhookResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ack.Status != "ok" || !ack.Duplicate {
		t.Fatalf("expected duplicate ack, got %+v", ack)
	}
}

func TestWebhookHandlerMalformedPayloadStillAcknowledged(t *testing.T) {
	handler := NewWebhookHandler(testhelpers.FacadeStub{WebhookFn: func(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error) {
		t.Fatal("facade must not be called for malformed payload")
		return nil, nil
	}}, discardLogger())
	resp := performRequest(t, http.MethodPost, "/payments/webhook", handler.Receive, nil, []byte(`{"order_id":`), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var ack dto.WebhookResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ack.Status != "ignored" {
		t.Fatalf("expected ignored, got %q", ack.Status)
	}
}

func TestWebhookHandlerUnrecoverableErrorsAcknowledged(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "bad signature", err: domainErrors.ErrInvalidSignature},
		{name: "unknown order", err: domainErrors.ErrOrderNotFound},
		{name: "amount mismatch", err: domainErrors.ErrAmountMismatch},
		{name: "illegal transition", err: domainErrors.ErrInvalidTransition},
		{name: "unknown status", err: domainErrors.ErrUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewWebhookHandler(testhelpers.FacadeStub{WebhookFn: func(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error) {
				return nil, tt.err
			}}, discardLogger())
			resp := performRequest(t, http.MethodPost, "/payments/webhook", handler.Receive, nil, webhookBody(t), map[string]string{"Content-Type": "application/json"})
			if resp.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", resp.Code)
			}
			var ack dto.WebhookResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if ack.Status != "rejected" {
				t.Fatalf("expected rejected, got %q", ack.Status)
			}
		})
	}
}

func TestWebhookHandlerPersistenceFailureReturns500(t *testing.T) {
	handler := NewWebhookHandler(testhelpers.FacadeStub{WebhookFn: func(ctx context.Context, n model.GatewayNotification) (*usecase.WebhookResult, error) {
		return nil, errors.New("db down")
	}}, discardLogger())
	resp := performRequest(t, http.MethodPost, "/payments/webhook", handler.Receive, nil, webhookBody(t), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestRefundHandlerRequest(t *testing.T) {
	body, _ := json.Marshal(dto.RefundRequest{Reason: "damaged on arrival", Type: "partial", Amount: 1500, Evidence: "photo-123"})
	handler := NewRefundHandler(testhelpers.FacadeStub{RequestRefundFn: func(ctx context.Context, number, reason string, refundType model.RefundType, amount int64, evidence string) (*model.RefundRequest, error) {
		if number != "ORD-1" || refundType != model.RefundTypePartial || amount != 1500 || evidence != "photo-123" {
			t.Fatalf("unexpected refund args %q %v %d %q", number, refundType, amount, evidence)
		}
		return &model.RefundRequest{ID: 9, OrderID: 1, Type: refundType, Amount: amount, Status: model.RefundStatusPending, Reason: reason}, nil
	}})
	resp := performRequest(t, http.MethodPost, "/orders/ORD-1/refund", handler.Request, func(c *gin.Context) {
		c.Params = gin.Params{{Key: "number", Value: "ORD-1"}}
	}, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var refund dto.RefundResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &refund); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if refund.ID != 9 || refund.Type != "PARTIAL" || refund.Status != "PENDING" {
		t.Fatalf("unexpected refund response %+v", refund)
	}
}

func TestRefundHandlerRequestFailures(t *testing.T) {
	validBody, _ := json.Marshal(dto.RefundRequest{Reason: "damaged", Type: "FULL"})
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{name: "malformed body", body: []byte("{"), status: http.StatusBadRequest},
		{name: "unknown order", body: validBody, err: domainErrors.ErrOrderNotFound, status: http.StatusNotFound},
		{name: "order not refundable", body: validBody, err: domainErrors.ErrRefundNotAllowed, status: http.StatusConflict},
		{name: "active refund exists", body: validBody, err: domainErrors.ErrAlreadyExists, status: http.StatusConflict},
		{name: "bad amount", body: validBody, err: domainErrors.ErrInvalidAmount, status: http.StatusUnprocessableEntity},
		{name: "storage failure", body: validBody, err: errors.New("db down"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRefundHandler(testhelpers.FacadeStub{RequestRefundFn: func(ctx context.Context, number, reason string, refundType model.RefundType, amount int64, evidence string) (*model.RefundRequest, error) {
				return nil, tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/orders/ORD-1/refund", handler.Request, nil, tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestRefundHandlerResolve(t *testing.T) {
	body, _ := json.Marshal(dto.RefundResolveRequest{Decision: "approve", Note: "verified"})
	handler := NewRefundHandler(testhelpers.FacadeStub{ResolveRefundFn: func(ctx context.Context, refundID int64, decision usecase.RefundDecision, adminID, note string) (*model.RefundRequest, error) {
		if refundID != 9 || decision != usecase.RefundDecisionApprove || adminID != "admin-1" || note != "verified" {
			t.Fatalf("unexpected resolve args %d %q %q %q", refundID, decision, adminID, note)
		}
		return &model.RefundRequest{ID: refundID, Status: model.RefundStatusCompleted, ResolvedBy: &adminID}, nil
	}})
	resp := performRequest(t, http.MethodPost, "/refunds/9/resolve", handler.Resolve, func(c *gin.Context) {
		c.Params = gin.Params{{Key: "id", Value: "9"}}
		c.Set(middleware.ActorContextKey, "admin-1")
	}, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var refund dto.RefundResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &refund); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if refund.Status != "COMPLETED" || refund.ResolvedBy == nil || *refund.ResolvedBy != "admin-1" {
		t.Fatalf("unexpected refund response %+v", refund)
	}
}

func TestRefundHandlerResolveFailures(t *testing.T) {
	validBody, _ := json.Marshal(dto.RefundResolveRequest{Decision: "REJECT"})
	tests := []struct {
		name   string
		id     string
		body   []byte
		err    error
		status int
	}{
		{name: "bad id", id: "abc", body: validBody, status: http.StatusBadRequest},
		{name: "malformed body", id: "9", body: []byte("{"), status: http.StatusBadRequest},
		{name: "unknown refund", id: "9", body: validBody, err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "already resolved", id: "9", body: validBody, err: domainErrors.ErrAlreadyResolved, status: http.StatusConflict},
		{name: "illegal transition", id: "9", body: validBody, err: domainErrors.ErrInvalidTransition, status: http.StatusConflict},
		{name: "storage failure", id: "9", body: validBody, err: errors.New("db down"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRefundHandler(testhelpers.FacadeStub{ResolveRefundFn: func(ctx context.Context, refundID int64, decision usecase.RefundDecision, adminID, note string) (*model.RefundRequest, error) {
				return nil, tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/refunds/"+tt.id+"/resolve", handler.Resolve, func(c *gin.Context) {
				c.Params = gin.Params{{Key: "id", Value: tt.id}}
			}, tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestSystemHandlerHealth(t *testing.T) {
	handler := NewSystemHandler(testhelpers.FacadeStub{})
	resp := performRequest(t, http.MethodGet, "/health", handler.Health, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	handler = NewSystemHandler(testhelpers.FacadeStub{HealthFn: func(ctx context.Context) error {
		return errors.New("pool closed")
	}})
	resp = performRequest(t, http.MethodGet, "/health", handler.Health, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
}

func TestSystemHandlerReconcile(t *testing.T) {
	handler := NewSystemHandler(testhelpers.FacadeStub{
		ExpireFn:        func(ctx context.Context, limit int) (int, error) { return 3, nil },
		PaymentsSweepFn: func(ctx context.Context, limit int) (int, error) { return 2, nil },
		ShipmentSweepFn: func(ctx context.Context, limit int) (int, error) { return 1, nil },
	})
	resp := performRequest(t, http.MethodPost, "/internal/reconcile", handler.Reconcile, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var counts map[string]int
	if err := json.Unmarshal(resp.Body.Bytes(), &counts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if counts["reservations_released"] != 3 || counts["payments_resolved"] != 2 || counts["shipments_flagged"] != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestSystemHandlerReconcileFailure(t *testing.T) {
	handler := NewSystemHandler(testhelpers.FacadeStub{PaymentsSweepFn: func(ctx context.Context, limit int) (int, error) {
		return 0, errors.New("gateway timeout")
	}})
	resp := performRequest(t, http.MethodPost, "/internal/reconcile", handler.Reconcile, nil, nil, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}
