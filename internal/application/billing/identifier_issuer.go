package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
)

// IdentifierIssuer asigna (document_id, document_uuid, ICV) de forma atómica por empresa.
// La lectura-modificación-escritura del contador ocurre con la fila de la empresa bloqueada.
type IdentifierIssuer struct {
	tx      IssuanceTxRunner
	loc     *time.Location
	now     func() time.Time
	newUUID func() string
}

// NewIdentifierIssuer construye el emisor. loc fija la fecha de negocio.
func NewIdentifierIssuer(tx IssuanceTxRunner, loc *time.Location) *IdentifierIssuer {
	if loc == nil {
		loc = time.UTC
	}
	return &IdentifierIssuer{tx: tx, loc: loc, now: time.Now, newUUID: uuid.NewString}
}

// WithClock reemplaza el reloj (tests).
func (s *IdentifierIssuer) WithClock(now func() time.Time) *IdentifierIssuer {
	s.now = now
	return s
}

// Allocate devuelve los identificadores de la factura y la deja en Queued.
// Si la factura ya tiene document_id se reutilizan sin tocar el contador.
func (s *IdentifierIssuer) Allocate(ctx context.Context, companyID, invoiceID string) (entity.Identifiers, error) {
	var ids entity.Identifiers
	err := s.tx.RunIssuance(ctx, func(companyRepo repository.CompanyRepository, invoiceRepo repository.InvoiceRepository) error {
		company, err := companyRepo.LockCounter(ctx, companyID)
		if err != nil {
			return err
		}

		inv, err := invoiceRepo.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.CompanyID != company.ID {
			return domain.ErrForbidden
		}
		switch inv.EffectiveStatus() {
		case entity.FotaraStatusQueued:
			return fmt.Errorf("%w: %s", domain.ErrSubmissionInFlight, invoiceID)
		case entity.FotaraStatusSuccess:
			return fmt.Errorf("%w: la factura %s ya fue aceptada por JoFotara", domain.ErrValidation, invoiceID)
		}

		now := s.now()
		if inv.HasIdentifiers() {
			ids = inv.Identifiers()
			return invoiceRepo.MarkQueued(ctx, invoiceID, now)
		}

		alloc := domfotara.NextCounters(company.Counter, domfotara.BusinessDate(now, s.loc))
		ids = entity.Identifiers{
			DocumentID:   domfotara.FormatDocumentID(company.Abbr, alloc.Date, alloc.DailySeq),
			DocumentUUID: s.newUUID(),
			AuditCounter: alloc.AuditCounter,
		}
		if err := companyRepo.UpdateCounter(ctx, company.ID, alloc.State); err != nil {
			return fmt.Errorf("actualizar contadores: %w", err)
		}
		if err := invoiceRepo.AssignIdentifiers(ctx, invoiceID, ids, now); err != nil {
			return fmt.Errorf("asignar identificadores: %w", err)
		}
		return nil
	})
	if err != nil {
		return entity.Identifiers{}, err
	}
	return ids, nil
}
