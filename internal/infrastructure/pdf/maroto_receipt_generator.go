// Package pdf implementa el comprobante impreso de una factura aceptada por JoFotara.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + TN          │  Document ID + Fecha        │
//	│  COMPRADOR: Nombre + identificación                         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Cat | IVA% | Total    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Sin impuesto / Impuesto / Descuento / A pagar     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: UUID + ICV + QR devuelto por JoFotara              │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/fotara-api/internal/application/billing"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	catalog "github.com/jhoicas/fotara-api/pkg/fotara"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 98, Blue: 65}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ appbilling.ReceiptGenerator = (*MarotoReceiptGenerator)(nil)

// MarotoReceiptGenerator implementa billing.ReceiptGenerator con Maroto v2.
type MarotoReceiptGenerator struct{}

// NewMarotoReceiptGenerator construye el generador.
func NewMarotoReceiptGenerator() *MarotoReceiptGenerator { return &MarotoReceiptGenerator{} }

// GenerateReceipt genera el PDF y devuelve sus bytes.
func (g *MarotoReceiptGenerator) GenerateReceipt(_ context.Context, d appbilling.ReceiptData) ([]byte, error) {
	if d.Invoice == nil || d.Company == nil {
		return nil, fmt.Errorf("pdf: faltan factura o empresa")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("JoFotara "+d.Invoice.DocumentID, true).
		WithAuthor(d.Company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(d))
	m.AddRows(buyerRow(d))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.4}))

	m.AddRows(tableHeaderRow())
	m.AddRows(lineRows(d.Breakdown.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(d.Breakdown.Totals))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRows(d)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(d appbilling.ReceiptData) core.Row {
	title := "TAX INVOICE"
	if d.TypeCode == catalog.InvoiceTypeReturn {
		title = "CREDIT NOTE"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(d.Company.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("TN: "+nonEmpty(d.Company.TaxID, "-"), props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(d.Invoice.DocumentID, props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7}),
			text.New("Date: "+d.IssueDate, props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

func buyerRow(d appbilling.ReceiptData) core.Row {
	name, taxID := d.Invoice.CustomerName, ""
	if d.Customer != nil {
		name = nonEmpty(d.Customer.Name, name)
		taxID = d.Customer.TaxID
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("BUYER", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(name, "-"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New("ID: "+nonEmpty(taxID, "-"), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Qty", 1, align.Center),
		h("Description", 4, align.Left),
		h("Unit price", 2, align.Right),
		h("Cat", 1, align.Center),
		h("VAT %", 1, align.Center),
		h("Total", 3, align.Right),
	)
}

func lineRows(lines []domfotara.Line) []core.Row {
	out := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		out = append(out, row.New(7).Add(
			col.New(1).Add(text.New(money(l.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(l.Name, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(money(l.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(l.TaxCategory, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(1).Add(text.New(l.TaxPercent.StringFixed(0), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(money(l.RoundingAmount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return out
}

func totalsRow(t domfotara.Totals) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	return row.New(24).Add(
		col.New(5),
		col.New(4).Add(
			label("Total excl. tax:"),
			text.New("VAT:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("Discount:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 10}),
			text.New("PAYABLE:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 2, Top: 16, Color: colorPrimary}),
		),
		col.New(3).Add(
			value(money(t.TaxExclusive)+" "+catalog.CurrencyCode, 0),
			value(money(t.TotalTax)+" "+catalog.CurrencyCode, 5),
			value(money(t.Allowance)+" "+catalog.CurrencyCode, 10),
			text.New(money(t.Payable)+" "+catalog.CurrencyCode, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 1, Top: 16, Color: colorPrimary,
			}),
		),
	)
}

func footerRows(d appbilling.ReceiptData) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("JOFOTARA", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New("UUID: "+d.Invoice.DocumentUUID, props.Text{Size: 7, Color: colorGray, Top: 1}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New("ICV: "+strconv.FormatInt(d.Invoice.AuditCounter, 10), props.Text{Size: 7, Color: colorGray, Top: 1}),
		)),
	}
	if d.Invoice.QRCode != "" {
		rows = append(rows, row.New(50).Add(
			col.New(4).Add(code.NewQr(d.Invoice.QRCode, props.Rect{Percent: 95, Center: true})),
			col.New(8).Add(text.New("Scan to verify this invoice with the Income and Sales Tax Department.",
				props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray})),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

// money muestra 3 decimales (fils) en el comprobante; el documento enviado conserva 9.
func money(v decimal.Decimal) string {
	return v.StringFixed(3)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
