package repository

import (
	"context"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
)

// CustomerRepository define el puerto de lectura para Customer.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}

// AddressRepository define el puerto de lectura para direcciones.
type AddressRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Address, error)
	// GetPrimaryForCompany devuelve la dirección registrada de la empresa; ErrNotFound si no tiene.
	GetPrimaryForCompany(ctx context.Context, companyID string) (*entity.Address, error)
}
