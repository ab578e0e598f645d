// Package fotara contiene catálogos y códigos del sistema nacional de facturación
// electrónica JoFotara (Jordania), perfil UBL 2.1 "reporting:1.0".
package fotara

import "strings"

// =============================================================================
// Encabezado del documento
// =============================================================================

const (
	ProfileID            = "reporting:1.0"
	InvoiceTypeSales     = "388" // factura de venta
	InvoiceTypeReturn    = "381" // nota de crédito / devolución
	CurrencyCode         = "JOD"
	AmountCurrencyID     = "JO" // atributo currencyID de los montos
	AuditCounterRefID    = "ICV"
	PaymentMeansCode     = "10"
	PaymentMeansListID   = "UN/ECE 4461"
	TaxCategorySchemeID  = "UN/ECE 5305"
	TaxSchemeSchemeID    = "UN/ECE 5153"
	TaxSchemeAgencyID    = "6"
	TaxSchemeVAT         = "VAT"
	DefaultCityCode      = "JO-AM"
	HomeCountryCode      = "JO"
	HomeCountryName      = "Jordan"
	DefaultUnitCode      = "PCE"
	AllowanceReasonTotal = "discount"
)

// =============================================================================
// Dígitos del subtipo (InvoiceTypeCode@name): exportación, pago, registro IVA
// =============================================================================

const (
	SubtypeDomestic = "0"
	SubtypeExport   = "1"

	SubtypeCash   = "1"
	SubtypeCredit = "2"

	SubtypeNotVATRegistered = "1"
	SubtypeVATRegistered    = "2"
)

// =============================================================================
// Categorías de impuesto (UN/ECE 5305)
// =============================================================================

const (
	TaxCategoryStandard   = "S" // tasa > 0
	TaxCategoryExempt     = "Z" // tasa 0, comprador doméstico
	TaxCategoryOutOfScope = "O" // tasa 0, comprador extranjero
)

// =============================================================================
// Esquemas de identificación del comprador
// =============================================================================

const (
	SchemeNationalID = "NIN"
	SchemeTaxID      = "TN"
	SchemePassport   = "PN"
)

// IdentificationScheme traduce el tipo de identificación del cliente al esquema JoFotara.
// Cualquier valor desconocido o vacío se trata como identificación nacional.
func IdentificationScheme(identificationType string) string {
	switch identificationType {
	case "Tax ID":
		return SchemeTaxID
	case "Passport":
		return SchemePassport
	default:
		return SchemeNationalID
	}
}

// =============================================================================
// Gobernaciones (CountrySubentityCode)
// =============================================================================

// ValidCityCodes contiene los códigos de gobernación aceptados.
var ValidCityCodes = map[string]bool{
	"JO-AM": true, // Amman
	"JO-AQ": true, // Aqaba
	"JO-AT": true, // Tafilah
	"JO-AZ": true, // Zarqa
	"JO-BA": true, // Balqa
	"JO-IR": true, // Irbid
	"JO-JA": true, // Jerash
	"JO-KA": true, // Karak
	"JO-MA": true, // Mafraq
	"JO-MD": true, // Madaba
	"JO-MN": true, // Ma'an
}

// ResolveCityCode devuelve el primer código válido de la lista, o DefaultCityCode.
func ResolveCityCode(candidates ...string) string {
	for _, c := range candidates {
		c = strings.ToUpper(strings.TrimSpace(c))
		if ValidCityCodes[c] {
			return c
		}
	}
	return DefaultCityCode
}

// =============================================================================
// Unidades de medida
// =============================================================================

// DefaultUOMCodes es el mapeo base de UOM locales a códigos JoFotara.
var DefaultUOMCodes = map[string]string{
	"Nos":   "PCE",
	"Unit":  "PCE",
	"Kg":    "KGM",
	"Litre": "LTR",
	"Meter": "MTR",
}

// UOMTable combina el mapeo base con las sobreescrituras de la empresa.
type UOMTable map[string]string

// NewUOMTable construye la tabla; overrides gana sobre DefaultUOMCodes.
func NewUOMTable(overrides map[string]string) UOMTable {
	t := make(UOMTable, len(DefaultUOMCodes)+len(overrides))
	for k, v := range DefaultUOMCodes {
		t[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			t[k] = v
		}
	}
	return t
}

// Code devuelve el código JoFotara para uom, o DefaultUnitCode si no hay mapeo.
func (t UOMTable) Code(uom string) string {
	if c, ok := t[uom]; ok {
		return c
	}
	return DefaultUnitCode
}
