package fotara_test

import (
	"testing"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/fotara"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestCalculate_UnaLineaDieciseisPorCiento(t *testing.T) {
	inv := &entity.Invoice{
		Items: []entity.InvoiceItem{{ItemName: "Widget", UOM: "Nos", Qty: dec("2"), NetAmount: dec("20")}},
		Taxes: []entity.InvoiceTax{{Description: "VAT", Rate: dec("16")}},
	}
	b := fotara.Calculate(inv, false)

	require.Len(t, b.Lines, 1)
	l := b.Lines[0]
	assert.Equal(t, 1, l.Index)
	assert.Equal(t, "2.000000000", fotara.Format(l.Quantity))
	assert.Equal(t, "10.000000000", fotara.Format(l.UnitPrice))
	assert.Equal(t, "20.000000000", fotara.Format(l.LineExtension))
	assert.Equal(t, "3.200000000", fotara.Format(l.TaxAmount))
	assert.Equal(t, "23.200000000", fotara.Format(l.RoundingAmount))
	assert.Equal(t, "S", l.TaxCategory)

	assert.Equal(t, "20.000000000", fotara.Format(b.Totals.TaxExclusive))
	assert.Equal(t, "3.200000000", fotara.Format(b.Totals.TotalTax))
	assert.Equal(t, "23.200000000", fotara.Format(b.Totals.TaxInclusive))
	assert.Equal(t, "0.000000000", fotara.Format(b.Totals.Allowance))
	assert.Equal(t, "23.200000000", fotara.Format(b.Totals.Payable))
}

func TestCalculate_DevolucionUsaValorAbsoluto(t *testing.T) {
	inv := &entity.Invoice{
		IsReturn: true,
		Items:    []entity.InvoiceItem{{Qty: dec("-2"), NetAmount: dec("-20")}},
		Taxes:    []entity.InvoiceTax{{Rate: dec("16")}},
	}
	b := fotara.Calculate(inv, false)
	assert.Equal(t, "20.000000000", fotara.Format(b.Lines[0].LineExtension))
	assert.Equal(t, "23.200000000", fotara.Format(b.Totals.Payable))
}

func TestCalculateLine_PrecioNetoAbsorbeDescuento(t *testing.T) {
	l := fotara.CalculateLine(1, entity.InvoiceItem{Qty: dec("3"), NetAmount: dec("10")}, decimal.Zero, false)
	assert.Equal(t, "3.333333333", fotara.Format(l.UnitPrice))
	assert.Equal(t, "9.999999999", fotara.Format(l.LineExtension))
	assert.Equal(t, "Z", l.TaxCategory)
}

func TestCalculateLine_CantidadCero(t *testing.T) {
	l := fotara.CalculateLine(1, entity.InvoiceItem{Qty: decimal.Zero, NetAmount: dec("5")}, dec("16"), false)
	assert.True(t, l.UnitPrice.IsZero())
	assert.True(t, l.LineExtension.IsZero())
}

func TestEffectiveTaxRate(t *testing.T) {
	taxes := []entity.InvoiceTax{{Rate: dec("10")}, {Rate: dec("6")}}

	assert.Equal(t, "16.000000000", fotara.Format(fotara.EffectiveTaxRate(entity.InvoiceItem{}, taxes)))
	assert.Equal(t, "4.000000000", fotara.Format(fotara.EffectiveTaxRate(entity.InvoiceItem{TemplateTaxRate: ptr(dec("4"))}, taxes)))
	assert.Equal(t, "0.000000000", fotara.Format(fotara.EffectiveTaxRate(entity.InvoiceItem{TemplateTaxRate: ptr(decimal.Zero)}, taxes)))
	assert.True(t, fotara.EffectiveTaxRate(entity.InvoiceItem{}, nil).IsZero())
}

func TestGroupSubtotals_OrdenDeAparicion(t *testing.T) {
	inv := &entity.Invoice{
		Items: []entity.InvoiceItem{
			{Qty: dec("1"), NetAmount: dec("5"), TemplateTaxRate: ptr(decimal.Zero)},
			{Qty: dec("1"), NetAmount: dec("10"), TemplateTaxRate: ptr(dec("16"))},
			{Qty: dec("2"), NetAmount: dec("4"), TemplateTaxRate: ptr(decimal.Zero)},
		},
	}
	b := fotara.Calculate(inv, false)

	require.Len(t, b.Subtotals, 2)
	assert.Equal(t, "Z", b.Subtotals[0].Category)
	assert.Equal(t, "9.000000000", fotara.Format(b.Subtotals[0].TaxableAmount))
	assert.Equal(t, "0.000000000", fotara.Format(b.Subtotals[0].TaxAmount))
	assert.Equal(t, "S", b.Subtotals[1].Category)
	assert.Equal(t, "10.000000000", fotara.Format(b.Subtotals[1].TaxableAmount))
	assert.Equal(t, "1.600000000", fotara.Format(b.Subtotals[1].TaxAmount))
	assert.Equal(t, "16.000000000", fotara.Format(b.Subtotals[1].Percent))
}

func TestCalculateTotals_DescuentoNuncaDejaPagableNegativo(t *testing.T) {
	lines := []fotara.Line{{LineExtension: dec("10"), TaxAmount: dec("1.6")}}

	tot := fotara.CalculateTotals(lines, dec("-2"))
	assert.Equal(t, "2.000000000", fotara.Format(tot.Allowance))
	assert.Equal(t, "9.600000000", fotara.Format(tot.Payable))

	tot = fotara.CalculateTotals(lines, dec("50"))
	assert.Equal(t, "0.000000000", fotara.Format(tot.Payable))
}

func TestCalculate_CompradorExtranjeroTasaCero(t *testing.T) {
	inv := &entity.Invoice{Items: []entity.InvoiceItem{{Qty: dec("1"), NetAmount: dec("100")}}}
	b := fotara.Calculate(inv, true)
	assert.Equal(t, "O", b.Lines[0].TaxCategory)
	require.Len(t, b.Subtotals, 1)
	assert.Equal(t, "O", b.Subtotals[0].Category)
}
