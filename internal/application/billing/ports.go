package billing

import (
	"context"
	"time"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
)

// IssuanceTxRunner ejecuta fn en una transacción con los repos de empresa y factura.
// El bloqueo de contadores tomado con LockCounter dura hasta el commit/rollback.
type IssuanceTxRunner interface {
	RunIssuance(ctx context.Context, fn func(
		companyRepo repository.CompanyRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}

// SettlementTxRunner ejecuta fn en una transacción para persistir el estado final y el log.
type SettlementTxRunner interface {
	RunSettlement(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		logRepo repository.SubmissionLogRepository,
	) error) error
}

// TxRunner agrupa ambos tipos de transacción.
type TxRunner interface {
	IssuanceTxRunner
	SettlementTxRunner
}

// Job es el trabajo de la fase asíncrona de envío.
type Job struct {
	InvoiceID   string             `json:"invoice_id"`
	CompanyID   string             `json:"company_id"`
	ActorID     string             `json:"actor_id,omitempty"` // vacío = sin notificación
	Identifiers entity.Identifiers `json:"identifiers"`
	EnqueuedAt  time.Time          `json:"enqueued_at"`
}

// JobHandler procesa un Job; no devuelve error porque siempre resuelve a un estado final.
type JobHandler func(ctx context.Context, job Job)

// JobQueue es el puerto de encolado de la fase asíncrona.
type JobQueue interface {
	Enqueue(ctx context.Context, job Job) error
}

// JobConsumer arranca workers que consumen la cola hasta que ctx se cancela.
type JobConsumer interface {
	Start(ctx context.Context, handle JobHandler)
}

// Notification es el resultado final entregado al actor que disparó el envío.
type Notification struct {
	InvoiceID  string `json:"invoice_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// Notifier publica el resultado por el canal asíncrono del actor.
type Notifier interface {
	Notify(ctx context.Context, actorID string, n Notification) error
}
