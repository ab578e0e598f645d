package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de envío a JoFotara. Pending -> Queued -> {Success | Error}; Error admite reintento.
const (
	FotaraStatusPending = "Pending"
	FotaraStatusQueued  = "Queued"
	FotaraStatusSuccess = "Success"
	FotaraStatusError   = "Error"
)

// Estado del documento en el sistema anfitrión.
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1 // finalizada
	DocStatusCancelled = 2
)

// Naturaleza de pago declarada en la factura.
const (
	PaymentCash   = "Cash"
	PaymentCredit = "Credit"
	PaymentAuto   = "Auto" // deriva de IsPOS
)

// Invoice representa la cabecera de una factura de venta o devolución.
type Invoice struct {
	ID                string
	CompanyID         string
	CustomerID        string
	CustomerName      string
	CustomerAddressID string
	DocStatus         int
	Date              time.Time

	IsReturn      bool
	ReturnAgainst string // ID de la factura original
	ReturnReason  string

	IsPOS       bool
	PaymentType string // ver constantes Payment*; vacío = Cash

	GrandTotal     decimal.Decimal
	AllowanceTotal decimal.Decimal // descuento a nivel de factura
	Remarks        string

	Items []InvoiceItem
	Taxes []InvoiceTax

	// Identificadores JoFotara (se escriben una sola vez).
	DocumentID   string
	DocumentUUID string
	AuditCounter int64 // ICV
	Status       string
	QRCode       string // EINV_QR devuelto por JoFotara
	QueuedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceItem es una línea de la factura. NetAmount ya incluye el descuento de línea.
type InvoiceItem struct {
	ItemCode        string
	ItemName        string
	UOM             string
	Qty             decimal.Decimal
	NetAmount       decimal.Decimal
	TemplateTaxRate *decimal.Decimal // tasa de la plantilla de impuestos del ítem; nil = sin plantilla
}

// InvoiceTax es una fila de impuestos a nivel de factura.
type InvoiceTax struct {
	Description string
	Rate        decimal.Decimal
}

// Identifiers es la tripleta asignada por el emisor.
type Identifiers struct {
	DocumentID   string
	DocumentUUID string
	AuditCounter int64
}

// Identifiers devuelve la tripleta almacenada en la factura.
func (i *Invoice) Identifiers() Identifiers {
	return Identifiers{DocumentID: i.DocumentID, DocumentUUID: i.DocumentUUID, AuditCounter: i.AuditCounter}
}

// HasIdentifiers indica si ya se asignó document_id.
func (i *Invoice) HasIdentifiers() bool {
	return i.DocumentID != ""
}

// EffectiveStatus trata el estado vacío como Pending.
func (i *Invoice) EffectiveStatus() string {
	if i.Status == "" {
		return FotaraStatusPending
	}
	return i.Status
}
