package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
)

var (
	_ repository.CustomerRepository = (*CustomerRepo)(nil)
	_ repository.AddressRepository  = (*AddressRepo)(nil)
)

// CustomerRepo lectura de clientes (pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador.
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `
		SELECT id, company_id, name, COALESCE(tax_id, ''), COALESCE(identification_type, ''), created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.TaxID, &c.IdentificationType, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// AddressRepo lectura de direcciones de empresa y cliente.
type AddressRepo struct {
	q Querier
}

// NewAddressRepository construye el adaptador.
func NewAddressRepository(q Querier) *AddressRepo {
	return &AddressRepo{q: q}
}

const addressColumns = `
	id, company_id, COALESCE(customer_id::text, ''), COALESCE(country, ''), COALESCE(country_code, ''),
	COALESCE(pincode, ''), COALESCE(phone, ''), COALESCE(city_code, '')`

// GetByID obtiene una dirección por ID.
func (r *AddressRepo) GetByID(ctx context.Context, id string) (*entity.Address, error) {
	return r.get(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id)
}

// GetPrimaryForCompany devuelve la dirección principal de la empresa (sin cliente).
func (r *AddressRepo) GetPrimaryForCompany(ctx context.Context, companyID string) (*entity.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses
		WHERE company_id = $1 AND customer_id IS NULL AND is_primary
		ORDER BY created_at LIMIT 1`
	return r.get(ctx, query, companyID)
}

func (r *AddressRepo) get(ctx context.Context, query, arg string) (*entity.Address, error) {
	var a entity.Address
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.CompanyID, &a.CustomerID, &a.Country, &a.CountryCode, &a.Pincode, &a.Phone, &a.CityCode,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: dirección %s", domain.ErrNotFound, arg)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return &a, nil
}
