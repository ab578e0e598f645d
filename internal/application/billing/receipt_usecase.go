package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
)

// ReceiptData contenido del comprobante impreso de una factura aceptada.
type ReceiptData struct {
	Invoice   *entity.Invoice
	Company   *entity.Company
	Customer  *entity.Customer
	TypeCode  string
	IssueDate string
	Breakdown domfotara.Breakdown
}

// ReceiptGenerator renderiza el comprobante.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

// ReceiptUseCase genera el PDF de una factura aceptada por JoFotara con su QR.
type ReceiptUseCase struct {
	invoiceRepo repository.InvoiceRepository
	companyRepo repository.CompanyRepository
	docs        *DocumentService
	generator   ReceiptGenerator
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	docs *DocumentService,
	generator ReceiptGenerator,
) *ReceiptUseCase {
	return &ReceiptUseCase{invoiceRepo: invoiceRepo, companyRepo: companyRepo, docs: docs, generator: generator}
}

// Download devuelve los bytes del PDF y el nombre de archivo sugerido.
//
// Retorna:
//   - domain.ErrNotFound     si la factura no existe.
//   - domain.ErrForbidden    si la factura no pertenece a la empresa del token.
//   - domain.ErrInvalidInput si la factura aún no fue aceptada por JoFotara.
func (uc *ReceiptUseCase) Download(ctx context.Context, companyID, invoiceID string) ([]byte, string, error) {
	// ── 1. Factura ────────────────────────────────────────────────────────────
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}
	if inv.EffectiveStatus() != entity.FotaraStatusSuccess {
		return nil, "", fmt.Errorf("%w: la factura está en estado %s, el comprobante solo existe tras la aceptación",
			domain.ErrInvalidInput, inv.EffectiveStatus())
	}

	// ── 2. Empresa + desglose ─────────────────────────────────────────────────
	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, "", fmt.Errorf("receipt: obtener empresa: %w", err)
	}
	in, doc, err := uc.docs.Build(ctx, inv, company)
	if err != nil {
		return nil, "", fmt.Errorf("receipt: desglose: %w", err)
	}

	issueDate := doc.IssueDate
	if !inv.Date.IsZero() {
		issueDate = inv.Date.Format("2006-01-02")
	}

	// ── 3. PDF ────────────────────────────────────────────────────────────────
	pdf, err := uc.generator.GenerateReceipt(ctx, ReceiptData{
		Invoice:   inv,
		Company:   company,
		Customer:  in.Customer,
		TypeCode:  doc.TypeCode,
		IssueDate: issueDate,
		Breakdown: doc.Breakdown,
	})
	if err != nil {
		return nil, "", fmt.Errorf("receipt: generación fallida: %w", err)
	}
	return pdf, fmt.Sprintf("jofotara_%s.pdf", inv.DocumentID), nil
}
