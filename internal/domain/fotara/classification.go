package fotara

import (
	"strings"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
	pkgfotara "github.com/jhoicas/fotara-api/pkg/fotara"

	"github.com/shopspring/decimal"
)

// InvoiceTypeCode: 381 para devoluciones, 388 para ventas.
func InvoiceTypeCode(isReturn bool) string {
	if isReturn {
		return pkgfotara.InvoiceTypeReturn
	}
	return pkgfotara.InvoiceTypeSales
}

// EffectivePaymentNature resuelve el selector de pago a Cash o Credit.
// Auto deriva del punto de venta: POS = contado, resto = crédito.
func EffectivePaymentNature(paymentType string, isPOS bool) string {
	switch paymentType {
	case entity.PaymentCredit:
		return entity.PaymentCredit
	case entity.PaymentAuto:
		if isPOS {
			return entity.PaymentCash
		}
		return entity.PaymentCredit
	default:
		return entity.PaymentCash
	}
}

// IsExport compara el país del comprador con el país de origen. Sin país = doméstico.
func IsExport(buyerCountryCode, homeCountryCode string) bool {
	if buyerCountryCode == "" {
		return false
	}
	return !strings.EqualFold(buyerCountryCode, homeCountryCode)
}

// SubtypeCode arma el código de 3 dígitos: exportación, naturaleza de pago, registro IVA.
func SubtypeCode(export bool, paymentNature string, vatRegistered bool) string {
	var b strings.Builder
	if export {
		b.WriteString(pkgfotara.SubtypeExport)
	} else {
		b.WriteString(pkgfotara.SubtypeDomestic)
	}
	if paymentNature == entity.PaymentCredit {
		b.WriteString(pkgfotara.SubtypeCredit)
	} else {
		b.WriteString(pkgfotara.SubtypeCash)
	}
	if vatRegistered {
		b.WriteString(pkgfotara.SubtypeVATRegistered)
	} else {
		b.WriteString(pkgfotara.SubtypeNotVATRegistered)
	}
	return b.String()
}

// TaxCategory clasifica la línea: S si la tasa es positiva; con tasa cero, Z para
// comprador doméstico y O para comprador extranjero.
func TaxCategory(rate decimal.Decimal, export bool) string {
	if rate.IsPositive() {
		return pkgfotara.TaxCategoryStandard
	}
	if export {
		return pkgfotara.TaxCategoryOutOfScope
	}
	return pkgfotara.TaxCategoryExempt
}
