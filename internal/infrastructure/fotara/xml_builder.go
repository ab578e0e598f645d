package fotara

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	catalog "github.com/jhoicas/fotara-api/pkg/fotara"
)

// Namespaces UBL 2.1.
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
)

// writeSettings fija la serialización: etiquetas de cierre explícitas y escapado mínimo.
var writeSettings = etree.WriteSettings{CanonicalEndTags: true, CanonicalText: true, CanonicalAttrVal: true}

// BuilderConfig parámetros fijos del constructor.
type BuilderConfig struct {
	HomeCountry     string         // ISO alfa-2 del país de origen (JO)
	DefaultCityCode string         // gobernación usada si ni la empresa ni la dirección la definen
	Location        *time.Location // zona horaria de la fecha de emisión
}

// XMLBuilder construye el documento UBL de JoFotara. No guarda estado entre llamadas.
type XMLBuilder struct {
	home        string
	defaultCity string
	loc         *time.Location
}

// NewXMLBuilder crea el constructor.
func NewXMLBuilder(cfg BuilderConfig) *XMLBuilder {
	b := &XMLBuilder{
		home:        strings.ToUpper(cfg.HomeCountry),
		defaultCity: cfg.DefaultCityCode,
		loc:         cfg.Location,
	}
	if b.home == "" {
		b.home = catalog.HomeCountryCode
	}
	if b.defaultCity == "" {
		b.defaultCity = catalog.DefaultCityCode
	}
	if b.loc == nil {
		b.loc = time.UTC
	}
	return b
}

// party datos resueltos de emisor o comprador.
type party struct {
	name       string
	taxID      string
	scheme     string
	postalCode string
	cityCode   string
	country    string
	phone      string
}

// Build genera el documento canónico y su desglose.
func (b *XMLBuilder) Build(in *DocumentInput) (*Document, error) {
	if in == nil || in.Invoice == nil || in.Company == nil {
		return nil, fmt.Errorf("%w: faltan invoice o company", domain.ErrInvalidInput)
	}
	inv := in.Invoice
	if inv.DocumentID == "" || inv.DocumentUUID == "" {
		return nil, fmt.Errorf("%w: la factura %s no tiene identificadores asignados", domain.ErrValidation, inv.ID)
	}
	if inv.IsReturn {
		if in.Original == nil || in.Original.DocumentUUID == "" {
			return nil, fmt.Errorf("%w: la factura original %s no ha sido enviada a JoFotara",
				domain.ErrValidation, inv.ReturnAgainst)
		}
	}

	buyerCountry, export := b.buyerCountry(in.CustomerAddress)
	nature := domfotara.EffectivePaymentNature(inv.PaymentType, inv.IsPOS)
	breakdown := domfotara.Calculate(inv, export)

	out := &Document{
		TypeCode:    domfotara.InvoiceTypeCode(inv.IsReturn),
		SubtypeCode: domfotara.SubtypeCode(export, nature, in.Company.VATRegistered),
		IssueDate:   domfotara.BusinessDate(in.IssuedAt, b.loc),
		Export:      export,
		BuyerCode:   buyerCountry,
		Breakdown:   breakdown,
	}

	seller := b.seller(in.Company, in.CompanyAddress)
	buyer := b.buyer(in, buyerCountry)
	// B2C anónimo: venta doméstica de contado sin identificación fiscal.
	anonymous := !export && nature == entity.PaymentCash && (in.Customer == nil || in.Customer.TaxID == "")

	doc := etree.NewDocument()
	doc.WriteSettings = writeSettings
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Invoice")
	root.CreateAttr("xmlns", NsInvoice)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)
	root.CreateAttr("xmlns:ext", NsExt)

	// ── encabezado ──────────────────────────────────────────────────────────
	text(root, "cbc:ProfileID", catalog.ProfileID)
	text(root, "cbc:ID", inv.DocumentID)
	text(root, "cbc:UUID", inv.DocumentUUID)
	text(root, "cbc:IssueDate", out.IssueDate)
	text(root, "cbc:InvoiceTypeCode", out.TypeCode).CreateAttr("name", out.SubtypeCode)
	if inv.Remarks != "" {
		text(root, "cbc:Note", clean(inv.Remarks))
	}
	text(root, "cbc:DocumentCurrencyCode", catalog.CurrencyCode)
	text(root, "cbc:TaxCurrencyCode", catalog.CurrencyCode)

	if inv.IsReturn {
		ref := root.CreateElement("cac:BillingReference").CreateElement("cac:InvoiceDocumentReference")
		text(ref, "cbc:ID", in.Original.DocumentID)
		text(ref, "cbc:UUID", in.Original.DocumentUUID)
		text(ref, "cbc:DocumentDescription", domfotara.Format(in.Original.GrandTotal.Abs()))
	}

	icv := root.CreateElement("cac:AdditionalDocumentReference")
	text(icv, "cbc:ID", catalog.AuditCounterRefID)
	text(icv, "cbc:UUID", strconv.FormatInt(inv.AuditCounter, 10))

	// ── partes ──────────────────────────────────────────────────────────────
	writeSupplier(root, seller)
	writeCustomer(root, buyer, anonymous)

	income := root.CreateElement("cac:SellerSupplierParty").CreateElement("cac:Party").CreateElement("cac:PartyIdentification")
	text(income, "cbc:ID", in.Company.IncomeSourceSequence)

	if inv.IsReturn {
		pm := root.CreateElement("cac:PaymentMeans")
		text(pm, "cbc:PaymentMeansCode", catalog.PaymentMeansCode).CreateAttr("listID", catalog.PaymentMeansListID)
		reason := inv.ReturnReason
		if reason == "" {
			reason = "return"
		}
		text(pm, "cbc:InstructionNote", clean(reason))
	}

	// ── totales ─────────────────────────────────────────────────────────────
	tot := breakdown.Totals
	ac := root.CreateElement("cac:AllowanceCharge")
	text(ac, "cbc:ChargeIndicator", "false")
	text(ac, "cbc:AllowanceChargeReason", catalog.AllowanceReasonTotal)
	amount(ac, "cbc:Amount", tot.Allowance)

	taxTotal := root.CreateElement("cac:TaxTotal")
	amount(taxTotal, "cbc:TaxAmount", tot.TotalTax)
	for _, st := range breakdown.Subtotals {
		writeTaxSubtotal(taxTotal, st.TaxableAmount, st.TaxAmount, st.Category, st.Percent)
	}

	lmt := root.CreateElement("cac:LegalMonetaryTotal")
	amount(lmt, "cbc:TaxExclusiveAmount", tot.TaxExclusive)
	amount(lmt, "cbc:TaxInclusiveAmount", tot.TaxInclusive)
	amount(lmt, "cbc:AllowanceTotalAmount", tot.Allowance)
	amount(lmt, "cbc:PayableAmount", tot.Payable)

	// ── líneas ──────────────────────────────────────────────────────────────
	uom := catalog.NewUOMTable(in.Company.UOMMappings)
	for _, l := range breakdown.Lines {
		writeLine(root, l, uom.Code(l.UOM))
	}

	raw, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("fotara: serializar XML: %w", err)
	}
	out.Text = Canonicalize(raw)
	return out, nil
}

// buyerCountry resuelve el código de país del comprador y si la venta es exportación.
// Sin dirección o sin país, la venta es doméstica.
func (b *XMLBuilder) buyerCountry(addr *entity.Address) (string, bool) {
	if addr == nil {
		return b.home, false
	}
	code := strings.ToUpper(strings.TrimSpace(addr.CountryCode))
	if len(code) > 2 {
		code = code[:2]
	}
	if code != "" {
		return code, code != b.home
	}
	if addr.Country != "" && !strings.EqualFold(addr.Country, catalog.HomeCountryName) {
		return b.home, true
	}
	return b.home, false
}

func (b *XMLBuilder) seller(c *entity.Company, addr *entity.Address) party {
	p := party{
		name:    c.Name,
		taxID:   c.TaxID,
		country: b.home,
	}
	var addrCity string
	if addr != nil {
		p.postalCode = addr.Pincode
		addrCity = addr.CityCode
	}
	p.cityCode = b.cityCode(addrCity, c.DefaultCityCode)
	return p
}

func (b *XMLBuilder) buyer(in *DocumentInput, country string) party {
	p := party{
		name:    in.Invoice.CustomerName,
		scheme:  catalog.SchemeNationalID,
		country: country,
	}
	if in.Customer != nil {
		p.taxID = in.Customer.TaxID
		p.scheme = catalog.IdentificationScheme(in.Customer.IdentificationType)
		if p.name == "" {
			p.name = in.Customer.Name
		}
	}
	var addrCity string
	if in.CustomerAddress != nil {
		addrCity = in.CustomerAddress.CityCode
		p.postalCode = in.CustomerAddress.Pincode
		p.phone = in.CustomerAddress.Phone
	}
	p.cityCode = b.cityCode(addrCity, in.Company.DefaultCityCode)
	return p
}

func (b *XMLBuilder) cityCode(candidates ...string) string {
	return catalog.ResolveCityCode(append(candidates, b.defaultCity)...)
}

// ── escritura de grupos ─────────────────────────────────────────────────────

func writeSupplier(root *etree.Element, p party) {
	pt := root.CreateElement("cac:AccountingSupplierParty").CreateElement("cac:Party")
	writePostalAddress(pt, p)
	ts := pt.CreateElement("cac:PartyTaxScheme")
	text(ts, "cbc:CompanyID", p.taxID)
	text(ts.CreateElement("cac:TaxScheme"), "cbc:ID", catalog.TaxSchemeVAT)
	text(pt.CreateElement("cac:PartyLegalEntity"), "cbc:RegistrationName", clean(p.name))
}

func writeCustomer(root *etree.Element, p party, anonymous bool) {
	acp := root.CreateElement("cac:AccountingCustomerParty")
	pt := acp.CreateElement("cac:Party")
	if !anonymous {
		text(pt.CreateElement("cac:PartyIdentification"), "cbc:ID", p.taxID).CreateAttr("schemeID", p.scheme)
	}
	writePostalAddress(pt, p)
	ts := pt.CreateElement("cac:PartyTaxScheme")
	if !anonymous && p.taxID != "" {
		text(ts, "cbc:CompanyID", p.taxID)
	}
	text(ts.CreateElement("cac:TaxScheme"), "cbc:ID", catalog.TaxSchemeVAT)
	text(pt.CreateElement("cac:PartyLegalEntity"), "cbc:RegistrationName", clean(p.name))
	if p.phone != "" {
		text(acp.CreateElement("cac:AccountingContact"), "cbc:Telephone", p.phone)
	}
}

func writePostalAddress(parent *etree.Element, p party) {
	addr := parent.CreateElement("cac:PostalAddress")
	if p.postalCode != "" {
		text(addr, "cbc:PostalZone", p.postalCode)
	}
	text(addr, "cbc:CountrySubentityCode", p.cityCode)
	text(addr.CreateElement("cac:Country"), "cbc:IdentificationCode", p.country)
}

func writeTaxSubtotal(parent *etree.Element, taxable, tax decimal.Decimal, category string, percent decimal.Decimal) {
	st := parent.CreateElement("cac:TaxSubtotal")
	amount(st, "cbc:TaxableAmount", taxable)
	amount(st, "cbc:TaxAmount", tax)
	cat := st.CreateElement("cac:TaxCategory")
	id := text(cat, "cbc:ID", category)
	id.CreateAttr("schemeAgencyID", catalog.TaxSchemeAgencyID)
	id.CreateAttr("schemeID", catalog.TaxCategorySchemeID)
	text(cat, "cbc:Percent", domfotara.Format(percent))
	schemeID := text(cat.CreateElement("cac:TaxScheme"), "cbc:ID", catalog.TaxSchemeVAT)
	schemeID.CreateAttr("schemeAgencyID", catalog.TaxSchemeAgencyID)
	schemeID.CreateAttr("schemeID", catalog.TaxSchemeSchemeID)
}

func writeLine(root *etree.Element, l domfotara.Line, unitCode string) {
	il := root.CreateElement("cac:InvoiceLine")
	text(il, "cbc:ID", strconv.Itoa(l.Index))
	text(il, "cbc:InvoicedQuantity", domfotara.Format(l.Quantity)).CreateAttr("unitCode", unitCode)
	amount(il, "cbc:LineExtensionAmount", l.LineExtension)

	tt := il.CreateElement("cac:TaxTotal")
	amount(tt, "cbc:TaxAmount", l.TaxAmount)
	amount(tt, "cbc:RoundingAmount", l.RoundingAmount)
	writeTaxSubtotal(tt, l.LineExtension, l.TaxAmount, l.TaxCategory, l.TaxPercent)

	text(il.CreateElement("cac:Item"), "cbc:Name", clean(l.Name))

	price := il.CreateElement("cac:Price")
	amount(price, "cbc:PriceAmount", l.UnitPrice)
	// El descuento ya está absorbido en PriceAmount.
	ac := price.CreateElement("cac:AllowanceCharge")
	text(ac, "cbc:ChargeIndicator", "false")
	text(ac, "cbc:AllowanceChargeReason", "DISCOUNT")
	amount(ac, "cbc:Amount", decimal.Zero)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func text(parent *etree.Element, tag, value string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(value)
	return el
}

func amount(parent *etree.Element, tag string, v decimal.Decimal) *etree.Element {
	el := text(parent, tag, domfotara.Format(v))
	el.CreateAttr("currencyID", catalog.AmountCurrencyID)
	return el
}

// clean normaliza a NFC y recorta espacios.
func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
