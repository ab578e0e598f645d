package entity

import "time"

// Company representa una organización/tenant con la integración JoFotara (Jordania).
type Company struct {
	ID            string
	Name          string
	Abbr          string // prefijo del document_id
	TaxID         string
	VATRegistered bool

	FotaraEnabled bool
	AutoSend      bool // enviar automáticamente al finalizar la factura
	SaveLogs      bool // conservar SubmissionLog por intento
	ClientID      string
	SecretKey     string // ya descifrada por el repositorio

	IncomeSourceSequence string
	DefaultCityCode      string
	UOMMappings          map[string]string // UOM local -> código JoFotara

	Counter   CounterState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CounterState es la fila de contadores compartida por todas las facturas de la empresa.
// LatestCounter nunca decrece.
type CounterState struct {
	StarterCounter   int64
	LatestCounter    int64
	LastDailySeqDate string // YYYY-MM-DD en la zona horaria de negocio; vacío = nunca
	LastDailySeqNo   int
}

// HasCredentials indica si la empresa tiene client id y secret configurados.
func (c *Company) HasCredentials() bool {
	return c.ClientID != "" && c.SecretKey != ""
}
