package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
	infrafotara "github.com/jhoicas/fotara-api/internal/infrastructure/fotara"
)

// DocumentBuilder construye el documento canónico a partir de los datos ya resueltos.
type DocumentBuilder interface {
	Build(in *infrafotara.DocumentInput) (*infrafotara.Document, error)
}

var _ DocumentBuilder = (*infrafotara.XMLBuilder)(nil)

// DocumentService resuelve cliente, direcciones y factura original, y delega en el builder.
type DocumentService struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	addressRepo  repository.AddressRepository
	builder      DocumentBuilder
	now          func() time.Time
}

// NewDocumentService crea el servicio.
func NewDocumentService(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	addressRepo repository.AddressRepository,
	builder DocumentBuilder,
) *DocumentService {
	return &DocumentService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		addressRepo:  addressRepo,
		builder:      builder,
		now:          time.Now,
	}
}

// WithClock reemplaza el reloj usado para IssuedAt (tests).
func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	s.now = now
	return s
}

// Input arma el DocumentInput de la factura. Las direcciones y el original ausentes quedan en nil.
func (s *DocumentService) Input(ctx context.Context, inv *entity.Invoice, company *entity.Company) (*infrafotara.DocumentInput, error) {
	in := &infrafotara.DocumentInput{
		Invoice:  inv,
		Company:  company,
		IssuedAt: s.now(),
	}

	if inv.CustomerID != "" {
		c, err := s.customerRepo.GetByID(ctx, inv.CustomerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("obtener cliente: %w", err)
		}
		in.Customer = c
	}
	if in.Customer == nil {
		// Consumidor final: solo el nombre impreso en la factura.
		in.Customer = &entity.Customer{ID: inv.CustomerID, CompanyID: inv.CompanyID, Name: inv.CustomerName}
	}

	if inv.CustomerAddressID != "" {
		a, err := s.addressRepo.GetByID(ctx, inv.CustomerAddressID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("obtener dirección del cliente: %w", err)
		}
		in.CustomerAddress = a
	}

	a, err := s.addressRepo.GetPrimaryForCompany(ctx, company.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("obtener dirección de la empresa: %w", err)
	}
	in.CompanyAddress = a

	if inv.IsReturn && inv.ReturnAgainst != "" {
		orig, err := s.invoiceRepo.GetByID(ctx, inv.ReturnAgainst)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("obtener factura original: %w", err)
		}
		in.Original = orig
	}
	return in, nil
}

// Build resuelve los datos y construye el documento.
func (s *DocumentService) Build(ctx context.Context, inv *entity.Invoice, company *entity.Company) (*infrafotara.DocumentInput, *infrafotara.Document, error) {
	in, err := s.Input(ctx, inv, company)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.builder.Build(in)
	if err != nil {
		return in, nil, err
	}
	return in, doc, nil
}
