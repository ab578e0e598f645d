package repository

import (
	"context"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
)

// SubmissionLogRepository es append-only: no hay Update ni Delete.
type SubmissionLogRepository interface {
	Create(ctx context.Context, log *entity.SubmissionLog) error
	// ListByInvoice devuelve los intentos más recientes primero.
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.SubmissionLog, error)
}
