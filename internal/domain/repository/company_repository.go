package repository

import (
	"context"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)

	// LockCounter lee la empresa tomando un bloqueo exclusivo sobre su fila de contadores.
	// Solo tiene sentido dentro de una transacción; el bloqueo se libera en commit/rollback.
	LockCounter(ctx context.Context, id string) (*entity.Company, error)

	// UpdateCounter persiste el nuevo estado de contadores de la empresa.
	UpdateCounter(ctx context.Context, id string, state entity.CounterState) error
}
