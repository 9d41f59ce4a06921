package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	domainErrors "github.com/soloviev-d/ordercore/internal/domain/errors"
	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// Client queries the payment gateway for the authoritative transaction
// status of an order. Used by the reconciler when a webhook never made
// it through.
type Client interface {
	Status(ctx context.Context, orderNumber string) (*model.GatewayStatus, error)
}

// HTTPClient implements Client against the gateway's status API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// response mirrors the gateway's status payload. GrossAmount arrives as
// a decimal string of minor units.
type response struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	GrossAmount       int64  `json:"gross_amount,string"`
}

// NewHTTPClient creates a gateway status client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Status fetches the current transaction status for an order number.
// An order the gateway never saw maps to ErrNotFound.
func (c *HTTPClient) Status(ctx context.Context, orderNumber string) (*model.GatewayStatus, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v2", orderNumber, "status")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data response
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, err
		}
		return &model.GatewayStatus{
			OrderNumber:       data.OrderID,
			TransactionID:     data.TransactionID,
			TransactionStatus: data.TransactionStatus,
			GrossAmount:       data.GrossAmount,
		}, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("order %s: %w", orderNumber, domainErrors.ErrNotFound)
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("gateway status request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, fmt.Errorf("gateway error: %s", resp.Status)
	}
}
