package entity

import "time"

// SubmissionLog es el registro inmutable de un intento de envío.
type SubmissionLog struct {
	ID             string
	InvoiceID      string
	CompanyID      string
	Status         string
	GeneratedXML   string
	ResponseBody   string
	ErrorText      string
	DocumentDigest string // sha256 hex de la forma canónica c14n
	CreatedAt      time.Time
}
