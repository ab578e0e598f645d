package pdf_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbilling "github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	"github.com/jhoicas/fotara-api/internal/infrastructure/pdf"
)

func TestGenerateReceipt_GeneraPDFConQR(t *testing.T) {
	data := appbilling.ReceiptData{
		Invoice: &entity.Invoice{
			DocumentID: "CX-2024-05-02-00001", DocumentUUID: "uuid-1", AuditCounter: 1,
			Status: entity.FotaraStatusSuccess, QRCode: "QR-DATA",
		},
		Company:   &entity.Company{Name: "Corex LLC", TaxID: "12345678"},
		Customer:  &entity.Customer{Name: "Ahmad Traders"},
		TypeCode:  "388",
		IssueDate: "2024-05-02",
		Breakdown: domfotara.Breakdown{
			Lines: []domfotara.Line{{
				Name: "Widget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10),
				LineExtension: decimal.NewFromInt(20), TaxCategory: "S", TaxPercent: decimal.NewFromInt(16),
				TaxAmount: decimal.RequireFromString("3.2"), RoundingAmount: decimal.RequireFromString("23.2"),
			}},
			Totals: domfotara.Totals{
				TaxExclusive: decimal.NewFromInt(20), TotalTax: decimal.RequireFromString("3.2"),
				TaxInclusive: decimal.RequireFromString("23.2"), Payable: decimal.RequireFromString("23.2"),
			},
		},
	}

	out, err := pdf.NewMarotoReceiptGenerator().GenerateReceipt(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateReceipt_SinFacturaFalla(t *testing.T) {
	_, err := pdf.NewMarotoReceiptGenerator().GenerateReceipt(context.Background(), appbilling.ReceiptData{})
	assert.Error(t, err)
}
