// Package fotara implementa la generación del documento UBL 2.1 de JoFotara (Jordania),
// su forma canónica y el cliente HTTP del endpoint de cumplimiento.
package fotara

import (
	"time"

	"github.com/jhoicas/fotara-api/internal/domain/entity"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
)

// DocumentInput reúne todo lo necesario para construir el documento de una factura.
type DocumentInput struct {
	Invoice         *entity.Invoice
	Company         *entity.Company // emisor (AccountingSupplierParty)
	Customer        *entity.Customer
	CustomerAddress *entity.Address // opcional
	CompanyAddress  *entity.Address // opcional
	Original        *entity.Invoice // factura original; obligatoria en devoluciones

	// IssuedAt se captura una sola vez por construcción; IssueDate sale de aquí.
	IssuedAt time.Time
}

// Document es el resultado de Build: texto canónico más el desglose usado para validar.
type Document struct {
	Text        string
	TypeCode    string
	SubtypeCode string
	IssueDate   string
	Export      bool
	BuyerCode   string // país del comprador (ISO alfa-2)
	Breakdown   domfotara.Breakdown
}
