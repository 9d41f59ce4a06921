package repository

import (
	"context"

	"github.com/soloviev-d/ordercore/internal/domain/model"
)

// WebhookRepository reads the processed-webhook dedup table. Writes go
// through PaymentRepository.ApplyOutcome so recording stays inside the
// outcome transaction; this read path answers "was this exact
// notification applied before" without starting one.
type WebhookRepository interface {
	// Get returns the record of a processed (transaction, status) pair,
	// or ErrNotFound.
	Get(ctx context.Context, transactionID, transactionStatus string) (*model.ProcessedWebhook, error)
}
