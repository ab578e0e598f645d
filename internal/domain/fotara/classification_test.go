package fotara_test

import (
	"testing"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/fotara"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceTypeCode(t *testing.T) {
	assert.Equal(t, "388", fotara.InvoiceTypeCode(false))
	assert.Equal(t, "381", fotara.InvoiceTypeCode(true))
}

func TestEffectivePaymentNature(t *testing.T) {
	assert.Equal(t, entity.PaymentCash, fotara.EffectivePaymentNature("", false))
	assert.Equal(t, entity.PaymentCash, fotara.EffectivePaymentNature(entity.PaymentCash, false))
	assert.Equal(t, entity.PaymentCredit, fotara.EffectivePaymentNature(entity.PaymentCredit, true))
	assert.Equal(t, entity.PaymentCash, fotara.EffectivePaymentNature(entity.PaymentAuto, true))
	assert.Equal(t, entity.PaymentCredit, fotara.EffectivePaymentNature(entity.PaymentAuto, false))
}

func TestSubtypeCode_DomesticoAutoNoPOSRegistradoIVA(t *testing.T) {
	nature := fotara.EffectivePaymentNature(entity.PaymentAuto, false)
	assert.Equal(t, "022", fotara.SubtypeCode(false, nature, true))
}

func TestSubtypeCode_Combinaciones(t *testing.T) {
	assert.Equal(t, "011", fotara.SubtypeCode(false, entity.PaymentCash, false))
	assert.Equal(t, "112", fotara.SubtypeCode(true, entity.PaymentCash, true))
	assert.Equal(t, "121", fotara.SubtypeCode(true, entity.PaymentCredit, false))
}

func TestIsExport(t *testing.T) {
	assert.False(t, fotara.IsExport("", "JO"))
	assert.False(t, fotara.IsExport("jo", "JO"))
	assert.True(t, fotara.IsExport("SA", "JO"))
}

func TestTaxCategory(t *testing.T) {
	assert.Equal(t, "S", fotara.TaxCategory(decimal.NewFromInt(16), false))
	assert.Equal(t, "S", fotara.TaxCategory(decimal.NewFromInt(16), true))
	assert.Equal(t, "Z", fotara.TaxCategory(decimal.Zero, false))
	assert.Equal(t, "O", fotara.TaxCategory(decimal.Zero, true))
}
