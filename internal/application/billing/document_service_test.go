package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	infrafotara "github.com/jhoicas/fotara-api/internal/infrastructure/fotara"
	"github.com/jhoicas/fotara-api/internal/infrastructure/memory"
)

func newDocumentService(t *testing.T, store *memory.Store) *billing.DocumentService {
	builder := infrafotara.NewXMLBuilder(infrafotara.BuilderConfig{HomeCountry: "JO", Location: ammanLoc(t)})
	return billing.NewDocumentService(store.Invoices(), store.Customers(), store.Addresses(), builder).
		WithClock(fixedClock(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)))
}

func TestDocumentService_ResuelvePartesYDirecciones(t *testing.T) {
	store := memory.NewStore()
	company := &entity.Company{ID: "co", Name: "Corex LLC", Abbr: "CX"}
	store.PutCompany(company)
	store.PutCustomer(&entity.Customer{ID: "cust", Name: "Acme GmbH", TaxID: "DE123"})
	store.PutAddress(&entity.Address{ID: "a-co", CompanyID: "co", Pincode: "11118", CityCode: "JO-IR"})
	store.PutAddress(&entity.Address{ID: "a-cust", CompanyID: "co", CustomerID: "cust", CountryCode: "DE"})

	inv := sampleInvoice("inv")
	inv.CustomerAddressID = "a-cust"
	inv.DocumentID, inv.DocumentUUID, inv.AuditCounter = "CX-2024-05-02-00001", "u-1", 1

	in, doc, err := newDocumentService(t, store).Build(context.Background(), inv, company)
	require.NoError(t, err)

	assert.Equal(t, "Acme GmbH", in.Customer.Name)
	assert.Equal(t, "a-co", in.CompanyAddress.ID)
	assert.Equal(t, "DE", in.CustomerAddress.CountryCode)
	assert.True(t, doc.Export)
	assert.Equal(t, "DE", doc.BuyerCode)
	assert.Equal(t, "2024-05-02", doc.IssueDate)
}

func TestDocumentService_ClienteInexistenteUsaNombreDeFactura(t *testing.T) {
	store := memory.NewStore()
	company := &entity.Company{ID: "co", Abbr: "CX"}
	inv := sampleInvoice("inv")
	inv.CustomerID = "ghost"
	inv.CustomerName = "Walk-in"

	in, err := newDocumentService(t, store).Input(context.Background(), inv, company)
	require.NoError(t, err)
	assert.Equal(t, "Walk-in", in.Customer.Name)
	assert.Nil(t, in.CompanyAddress)
	assert.Nil(t, in.CustomerAddress)
}

func TestDocumentService_DevolucionSinOriginalEsValidacion(t *testing.T) {
	store := memory.NewStore()
	company := &entity.Company{ID: "co", Abbr: "CX"}
	inv := sampleInvoice("ret")
	inv.IsReturn, inv.ReturnAgainst = true, "missing"
	inv.DocumentID, inv.DocumentUUID = "CX-2024-05-02-00002", "u-2"

	_, _, err := newDocumentService(t, store).Build(context.Background(), inv, company)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
