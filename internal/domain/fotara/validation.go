package fotara

import (
	"fmt"
	"strings"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// DefaultCreditIDThreshold es el total a partir del cual se exige identificación fiscal del comprador.
var DefaultCreditIDThreshold = decimal.NewFromInt(10000)

// Rules agrupa los parámetros de validación previos al envío.
type Rules struct {
	CreditIDThreshold decimal.Decimal
}

// DefaultRules devuelve las reglas con el umbral por defecto.
func DefaultRules() Rules {
	return Rules{CreditIDThreshold: DefaultCreditIDThreshold}
}

// ParseRules construye las reglas desde el umbral en texto. Vacío = DefaultRules;
// un 0 explícito exige identificación fiscal en toda venta con total distinto de cero.
func ParseRules(threshold string) (Rules, error) {
	threshold = strings.TrimSpace(threshold)
	if threshold == "" {
		return DefaultRules(), nil
	}
	v, err := decimal.NewFromString(threshold)
	if err != nil {
		return Rules{}, fmt.Errorf("%w: umbral %q: %v", domain.ErrConfiguration, threshold, err)
	}
	if v.IsNegative() {
		return Rules{}, fmt.Errorf("%w: umbral %q negativo", domain.ErrConfiguration, threshold)
	}
	return Rules{CreditIDThreshold: v}, nil
}

// RequiresBuyerTaxID: ventas a crédito efectivas o con |total| mayor al umbral.
func (r Rules) RequiresBuyerTaxID(inv *entity.Invoice) bool {
	if EffectivePaymentNature(inv.PaymentType, inv.IsPOS) == entity.PaymentCredit {
		return true
	}
	return inv.GrandTotal.Abs().GreaterThan(r.CreditIDThreshold)
}

// CheckBuyerTaxID falla con ErrValidation si la factura exige identificación fiscal y el cliente no la tiene.
func (r Rules) CheckBuyerTaxID(inv *entity.Invoice, customer *entity.Customer) error {
	if !r.RequiresBuyerTaxID(inv) {
		return nil
	}
	if customer == nil || customer.TaxID == "" {
		return fmt.Errorf("%w: el cliente requiere identificación fiscal para ventas a crédito o mayores a %s JOD",
			domain.ErrValidation, r.CreditIDThreshold.String())
	}
	return nil
}

// CheckSubmittable valida el estado de la factura antes de asignar identificadores.
func CheckSubmittable(inv *entity.Invoice) error {
	if inv.DocStatus != entity.DocStatusSubmitted {
		return fmt.Errorf("%w: la factura %s no está finalizada", domain.ErrValidation, inv.ID)
	}
	if inv.EffectiveStatus() == entity.FotaraStatusSuccess {
		return fmt.Errorf("%w: la factura %s ya fue aceptada por JoFotara", domain.ErrValidation, inv.ID)
	}
	if inv.IsReturn && inv.ReturnAgainst == "" {
		return fmt.Errorf("%w: la devolución debe referenciar la factura original", domain.ErrValidation)
	}
	return nil
}

// CheckReturnOriginal valida la factura original de una devolución.
// Con requireSuccess también exige que el original haya sido aceptado.
func CheckReturnOriginal(original *entity.Invoice, requireSuccess bool) error {
	if original == nil {
		return fmt.Errorf("%w: factura original no encontrada", domain.ErrValidation)
	}
	if requireSuccess && original.EffectiveStatus() != entity.FotaraStatusSuccess {
		return fmt.Errorf("%w: la factura original %s no fue aceptada por JoFotara", domain.ErrValidation, original.ID)
	}
	if original.DocumentUUID == "" {
		return fmt.Errorf("%w: la factura original %s no ha sido enviada a JoFotara", domain.ErrValidation, original.ID)
	}
	return nil
}

// CheckCancellable bloquea la cancelación de facturas aceptadas.
func CheckCancellable(inv *entity.Invoice) error {
	if inv.EffectiveStatus() == entity.FotaraStatusSuccess {
		return fmt.Errorf("%w: no se puede cancelar la factura %s aceptada por JoFotara; emita una devolución",
			domain.ErrValidation, inv.ID)
	}
	return nil
}
