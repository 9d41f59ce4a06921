package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soloviev-d/ordercore/internal/config"
	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := NewHTTPClient("://bad-url", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPClient("/relative", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestStatusDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/ORD-20260829-TEST123456/status" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"order_id": "ORD-20260829-TEST123456",
			"transaction_id": "tx-77",
			"transaction_status": "settlement",
			"gross_amount": "25000"
		}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	status, err := client.Status(context.Background(), "ORD-20260829-TEST123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.TransactionID != "tx-77" || status.TransactionStatus != "settlement" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.GrossAmount != 25000 {
		t.Fatalf("expected gross amount 25000, got %d", status.GrossAmount)
	}
}

func TestStatusMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Status(context.Background(), "ORD-MISSING"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatusLogsServerErrors(t *testing.T) {
	called := make(chan struct{}, 1)
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey && a.Value.Any() == slog.LevelError {
			select {
			case called <- struct{}{}:
			default:
			}
		}
		return a
	}})
	logger := slog.New(handler)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, logger)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Status(context.Background(), "ORD-1"); err == nil {
		t.Fatal("expected error from server")
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected error log to be written")
	}
}

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{GatewayAddress: "http://example.com"}
	client, err := newClient(clientParams{Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}
}
