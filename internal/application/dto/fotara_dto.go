package dto

import "time"

// SubmitInvoiceResponse acuse de POST /api/fotara/invoices/:id/submit.
// El resultado final llega por el canal de notificaciones del usuario.
type SubmitInvoiceResponse struct {
	InvoiceID    string `json:"invoice_id"`
	DocumentID   string `json:"document_id"`
	DocumentUUID string `json:"document_uuid"`
	AuditCounter int64  `json:"audit_counter"`
	Status       string `json:"status"` // Queued
}

// InvoiceHookRequest body de los ganchos del ciclo de vida de la factura.
type InvoiceHookRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// HookTriggeredResponse respuesta del gancho de factura finalizada.
type HookTriggeredResponse struct {
	Triggered  bool                   `json:"triggered"`
	Submission *SubmitInvoiceResponse `json:"submission,omitempty"`
}

// CancelCheckResponse respuesta del gancho previo a la cancelación.
type CancelCheckResponse struct {
	Cancellable bool `json:"cancellable"`
}

// FotaraStatusResponse estado JoFotara de una factura (polling).
type FotaraStatusResponse struct {
	InvoiceID    string `json:"invoice_id"`
	DocumentID   string `json:"document_id,omitempty"`
	DocumentUUID string `json:"document_uuid,omitempty"`
	AuditCounter int64  `json:"audit_counter,omitempty"`
	Status       string `json:"status"` // Pending|Queued|Success|Error
	QRCode       string `json:"qr_code,omitempty"`
}

// SubmissionLogResponse intento registrado. GeneratedXML solo con ?include_xml=true.
type SubmissionLogResponse struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	ErrorText      string    `json:"error_text,omitempty"`
	ResponseBody   string    `json:"response_body"`
	DocumentDigest string    `json:"document_digest,omitempty"`
	GeneratedXML   string    `json:"generated_xml,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
