package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
	"github.com/jhoicas/fotara-api/pkg/secret"
)

// Ensure TxRunner implements billing.TxRunner.
var _ billing.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
	box  *secret.Box
}

// NewTxRunner construye el runner con el pool. box abre los secretos de las empresas leídas en la tx.
func NewTxRunner(pool *pgxpool.Pool, box *secret.Box) *TxRunner {
	return &TxRunner{pool: pool, box: box}
}

// RunIssuance abre la transacción de asignación de identificadores. El FOR UPDATE que toma
// LockCounter se libera en el commit o rollback de esta función.
func (r *TxRunner) RunIssuance(ctx context.Context, fn func(
	companyRepo repository.CompanyRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewCompanyRepository(tx, r.box), NewInvoiceRepository(tx))
	})
}

// RunSettlement persiste el estado final y el log del intento de forma atómica.
func (r *TxRunner) RunSettlement(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	logRepo repository.SubmissionLogRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewInvoiceRepository(tx), NewSubmissionLogRepository(tx))
	})
}

func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
