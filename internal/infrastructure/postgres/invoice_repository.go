package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, company_id, COALESCE(customer_id::text, ''), COALESCE(customer_name, ''), COALESCE(customer_address_id::text, ''),
	doc_status, date, is_return, COALESCE(return_against::text, ''), COALESCE(return_reason, ''),
	is_pos, COALESCE(payment_type, ''), grand_total, allowance_total, COALESCE(remarks, ''),
	COALESCE(fotara_document_id, ''), COALESCE(fotara_document_uuid, ''), COALESCE(fotara_audit_counter, 0),
	COALESCE(fotara_status, ''), COALESCE(fotara_qr_code, ''), fotara_queued_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.CustomerName, &inv.CustomerAddressID,
		&inv.DocStatus, &inv.Date, &inv.IsReturn, &inv.ReturnAgainst, &inv.ReturnReason,
		&inv.IsPOS, &inv.PaymentType, &inv.GrandTotal, &inv.AllowanceTotal, &inv.Remarks,
		&inv.DocumentID, &inv.DocumentUUID, &inv.AuditCounter,
		&inv.Status, &inv.QRCode, &inv.QueuedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByID devuelve la factura con ítems e impuestos en su orden original.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if inv.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	if inv.Taxes, err = r.taxes(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepo) items(ctx context.Context, invoiceID string) ([]entity.InvoiceItem, error) {
	query := `
		SELECT COALESCE(item_code, ''), item_name, COALESCE(uom, ''), qty, net_amount, template_tax_rate
		FROM invoice_items WHERE invoice_id = $1 ORDER BY idx`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	var out []entity.InvoiceItem
	for rows.Next() {
		var (
			it   entity.InvoiceItem
			rate decimal.NullDecimal
		)
		if err := rows.Scan(&it.ItemCode, &it.ItemName, &it.UOM, &it.Qty, &it.NetAmount, &rate); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		if rate.Valid {
			v := rate.Decimal
			it.TemplateTaxRate = &v
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *InvoiceRepo) taxes(ctx context.Context, invoiceID string) ([]entity.InvoiceTax, error) {
	rows, err := r.q.Query(ctx,
		`SELECT COALESCE(description, ''), rate FROM invoice_taxes WHERE invoice_id = $1 ORDER BY idx`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice taxes: %w", err)
	}
	defer rows.Close()

	var out []entity.InvoiceTax
	for rows.Next() {
		var t entity.InvoiceTax
		if err := rows.Scan(&t.Description, &t.Rate); err != nil {
			return nil, fmt.Errorf("scan invoice tax: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AssignIdentifiers escribe la tripleta una sola vez y deja la factura en Queued.
func (r *InvoiceRepo) AssignIdentifiers(ctx context.Context, id string, ids entity.Identifiers, queuedAt time.Time) error {
	query := `
		UPDATE invoices
		SET fotara_document_id = $2, fotara_document_uuid = $3, fotara_audit_counter = $4,
		    fotara_status = 'Queued', fotara_queued_at = $5, updated_at = NOW()
		WHERE id = $1 AND fotara_document_id IS NULL`
	tag, err := r.q.Exec(ctx, query, id, ids.DocumentID, ids.DocumentUUID, ids.AuditCounter, queuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: identificadores duplicados para la factura %s", domain.ErrConflict, id)
		}
		return fmt.Errorf("assign identifiers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: la factura %s ya tiene identificadores o no existe", domain.ErrConflict, id)
	}
	return nil
}

// MarkQueued vuelve a dejar en Queued una factura que ya tiene identificadores.
func (r *InvoiceRepo) MarkQueued(ctx context.Context, id string, queuedAt time.Time) error {
	query := `
		UPDATE invoices SET fotara_status = 'Queued', fotara_queued_at = $2, updated_at = NOW()
		WHERE id = $1`
	return r.exec(ctx, "mark queued", id, query, id, queuedAt)
}

// RefreshQueued renueva fotara_queued_at solo mientras la factura siga en Queued.
func (r *InvoiceRepo) RefreshQueued(ctx context.Context, id string, queuedAt time.Time) error {
	query := `
		UPDATE invoices SET fotara_queued_at = $2, updated_at = NOW()
		WHERE id = $1 AND fotara_status = 'Queued'`
	tag, err := r.q.Exec(ctx, query, id, queuedAt)
	if err != nil {
		return fmt.Errorf("refresh queued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura %s ya no está en cola", domain.ErrConflict, id)
	}
	return nil
}

// SetOutcome registra el estado final. Un qrCode vacío conserva el existente.
func (r *InvoiceRepo) SetOutcome(ctx context.Context, id, status, qrCode string) error {
	query := `
		UPDATE invoices
		SET fotara_status = $2, fotara_qr_code = COALESCE($3, fotara_qr_code), updated_at = NOW()
		WHERE id = $1`
	return r.exec(ctx, "set outcome", id, query, id, status, nullIfEmpty(qrCode))
}

func (r *InvoiceRepo) exec(ctx context.Context, op, id, query string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	return nil
}

// ListStaleQueued lista (sin ítems) las facturas en Queued desde antes de olderThan, más antiguas primero.
func (r *InvoiceRepo) ListStaleQueued(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE fotara_status = 'Queued' AND fotara_queued_at < $1
		ORDER BY fotara_queued_at LIMIT $2`
	rows, err := r.q.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale queued: %w", err)
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
