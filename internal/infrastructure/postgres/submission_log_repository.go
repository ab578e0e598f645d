package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
)

var _ repository.SubmissionLogRepository = (*SubmissionLogRepo)(nil)

// SubmissionLogRepo registro append-only de intentos de envío.
type SubmissionLogRepo struct {
	q Querier
}

// NewSubmissionLogRepository construye el adaptador (pool o tx).
func NewSubmissionLogRepository(q Querier) *SubmissionLogRepo {
	return &SubmissionLogRepo{q: q}
}

// Create inserta el intento. Sin CreatedAt se usa NOW().
func (r *SubmissionLogRepo) Create(ctx context.Context, l *entity.SubmissionLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fotara_submission_logs
			(id, invoice_id, company_id, status, generated_xml, response_body, error_text, document_digest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))`
	var createdAt any
	if !l.CreatedAt.IsZero() {
		createdAt = l.CreatedAt
	}
	_, err := r.q.Exec(ctx, query,
		l.ID, l.InvoiceID, l.CompanyID, l.Status,
		nullIfEmpty(l.GeneratedXML), l.ResponseBody, nullIfEmpty(l.ErrorText), nullIfEmpty(l.DocumentDigest),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission log: %w", err)
	}
	return nil
}

// ListByInvoice devuelve los intentos de la factura, más recientes primero.
func (r *SubmissionLogRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.SubmissionLog, error) {
	query := `
		SELECT id, invoice_id, company_id, status, COALESCE(generated_xml, ''), response_body,
		       COALESCE(error_text, ''), COALESCE(document_digest, ''), created_at
		FROM fotara_submission_logs WHERE invoice_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list submission logs: %w", err)
	}
	defer rows.Close()

	var out []*entity.SubmissionLog
	for rows.Next() {
		var l entity.SubmissionLog
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.CompanyID, &l.Status, &l.GeneratedXML, &l.ResponseBody,
			&l.ErrorText, &l.DocumentDigest, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission log: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
