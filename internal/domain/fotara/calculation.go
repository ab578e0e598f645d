package fotara

import (
	"github.com/jhoicas/fotara-api/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// Line es una línea de factura ya calculada. El descuento va absorbido en UnitPrice.
type Line struct {
	Index          int
	Name           string
	UOM            string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	LineExtension  decimal.Decimal
	TaxCategory    string
	TaxPercent     decimal.Decimal
	TaxAmount      decimal.Decimal
	RoundingAmount decimal.Decimal // LineExtension + TaxAmount
}

// TaxSubtotal agrupa base e impuesto por categoría.
type TaxSubtotal struct {
	Category      string
	Percent       decimal.Decimal // tasa de la primera línea de la categoría
	TaxableAmount decimal.Decimal
	TaxAmount     decimal.Decimal
}

// Totals son los totales de LegalMonetaryTotal y TaxTotal.
type Totals struct {
	TaxExclusive decimal.Decimal
	TaxInclusive decimal.Decimal
	TotalTax     decimal.Decimal
	Allowance    decimal.Decimal
	Payable      decimal.Decimal
}

// Breakdown es el resultado completo del cálculo de una factura.
type Breakdown struct {
	Lines     []Line
	Subtotals []TaxSubtotal
	Totals    Totals
}

// EffectiveTaxRate usa la tasa de la plantilla del ítem; sin plantilla, suma las tasas de la factura.
func EffectiveTaxRate(item entity.InvoiceItem, taxes []entity.InvoiceTax) decimal.Decimal {
	if item.TemplateTaxRate != nil {
		return Quantize(*item.TemplateTaxRate)
	}
	sum := decimal.Zero
	for _, t := range taxes {
		sum = sum.Add(t.Rate)
	}
	return Quantize(sum)
}

// CalculateLine deriva precio unitario neto, base, impuesto y redondeo de una línea.
// Cantidad y monto se toman en valor absoluto para que las devoluciones compartan la aritmética.
func CalculateLine(index int, item entity.InvoiceItem, rate decimal.Decimal, export bool) Line {
	qty := Quantize(item.Qty.Abs())
	net := Quantize(item.NetAmount.Abs())

	price := decimal.Zero
	if !qty.IsZero() {
		price = Quantize(net.Div(qty))
	}
	ext := Quantize(qty.Mul(price))
	tax := Percent(ext, rate)

	return Line{
		Index:          index,
		Name:           item.ItemName,
		UOM:            item.UOM,
		Quantity:       qty,
		UnitPrice:      price,
		LineExtension:  ext,
		TaxCategory:    TaxCategory(rate, export),
		TaxPercent:     rate,
		TaxAmount:      tax,
		RoundingAmount: Quantize(ext.Add(tax)),
	}
}

// Calculate procesa todas las líneas y agrega subtotales y totales.
func Calculate(inv *entity.Invoice, export bool) Breakdown {
	lines := make([]Line, 0, len(inv.Items))
	for i, item := range inv.Items {
		rate := EffectiveTaxRate(item, inv.Taxes)
		lines = append(lines, CalculateLine(i+1, item, rate, export))
	}
	return Breakdown{
		Lines:     lines,
		Subtotals: GroupSubtotals(lines),
		Totals:    CalculateTotals(lines, inv.AllowanceTotal),
	}
}

// GroupSubtotals agrupa por categoría en orden de aparición.
func GroupSubtotals(lines []Line) []TaxSubtotal {
	var out []TaxSubtotal
	pos := make(map[string]int)
	for _, l := range lines {
		i, ok := pos[l.TaxCategory]
		if !ok {
			pos[l.TaxCategory] = len(out)
			out = append(out, TaxSubtotal{Category: l.TaxCategory, Percent: l.TaxPercent})
			i = len(out) - 1
		}
		out[i].TaxableAmount = Quantize(out[i].TaxableAmount.Add(l.LineExtension))
		out[i].TaxAmount = Quantize(out[i].TaxAmount.Add(l.TaxAmount))
	}
	return out
}

// CalculateTotals: payable = inclusivo - |descuento|, nunca negativo.
func CalculateTotals(lines []Line, allowance decimal.Decimal) Totals {
	exclusive, tax := decimal.Zero, decimal.Zero
	for _, l := range lines {
		exclusive = exclusive.Add(l.LineExtension)
		tax = tax.Add(l.TaxAmount)
	}
	exclusive = Quantize(exclusive)
	tax = Quantize(tax)
	inclusive := Quantize(exclusive.Add(tax))
	allow := Quantize(allowance.Abs())

	payable := Quantize(inclusive.Sub(allow))
	if payable.IsNegative() {
		payable = decimal.Zero
	}
	return Totals{
		TaxExclusive: exclusive,
		TaxInclusive: inclusive,
		TotalTax:     tax,
		Allowance:    allow,
		Payable:      payable,
	}
}
