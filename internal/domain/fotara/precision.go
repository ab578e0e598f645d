// Package fotara contiene las reglas de dominio de la facturación electrónica JoFotara:
// aritmética de precisión fija, clasificación fiscal, cálculo de líneas y totales,
// validaciones previas al envío y la asignación de contadores.
package fotara

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale es el número de decimales exigido por JoFotara en todos los montos.
const Scale int32 = 9

var hundred = decimal.NewFromInt(100)

// Quantize redondea a Scale decimales, mitad hacia arriba (lejos de cero).
func Quantize(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}

// QuantizePtr trata nil como cero.
func QuantizePtr(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return Quantize(*v)
}

// FromFloat convierte un float64 pasando por su representación decimal más corta.
func FromFloat(f float64) decimal.Decimal {
	return Quantize(decimal.NewFromFloat(f))
}

// Parse convierte texto a decimal cuantizado. Cadena vacía = cero.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("monto inválido %q: %w", s, err)
	}
	return Quantize(d), nil
}

// Format devuelve el valor en punto fijo con exactamente Scale decimales (nunca notación científica).
func Format(v decimal.Decimal) string {
	return Quantize(v).StringFixed(Scale)
}

// Percent aplica una tasa porcentual: v * rate / 100, cuantizado.
func Percent(v, rate decimal.Decimal) decimal.Decimal {
	return Quantize(v.Mul(rate).Div(hundred))
}
