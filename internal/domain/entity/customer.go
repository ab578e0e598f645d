package entity

import "time"

// Tipos de identificación del cliente (selector del registro maestro).
const (
	IdentificationNationalID = "National ID"
	IdentificationTaxID      = "Tax ID"
	IdentificationPassport   = "Passport"
)

// Customer representa un cliente de la empresa (facturación).
type Customer struct {
	ID                 string
	CompanyID          string
	Name               string
	TaxID              string
	IdentificationType string // ver constantes Identification*; vacío = National ID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
