package repository

import (
	"context"
	"time"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus campos JoFotara.
type InvoiceRepository interface {
	// GetByID devuelve la factura con ítems e impuestos.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)

	// AssignIdentifiers escribe la tripleta y deja la factura en Queued.
	AssignIdentifiers(ctx context.Context, id string, ids entity.Identifiers, queuedAt time.Time) error

	// MarkQueued vuelve a encolar una factura que ya tiene identificadores.
	MarkQueued(ctx context.Context, id string, queuedAt time.Time) error

	// RefreshQueued renueva queued_at solo si la factura sigue en Queued; si no, ErrConflict.
	RefreshQueued(ctx context.Context, id string, queuedAt time.Time) error

	// SetOutcome registra el estado final del intento. qrCode vacío conserva el existente.
	SetOutcome(ctx context.Context, id, status, qrCode string) error

	// ListStaleQueued lista facturas en Queued desde antes de olderThan.
	ListStaleQueued(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Invoice, error)
}
