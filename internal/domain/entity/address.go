package entity

// Address es una dirección registrada de empresa o cliente.
type Address struct {
	ID          string
	CompanyID   string
	CustomerID  string // vacío para direcciones de la propia empresa
	Country     string // nombre del país, p. ej. "Jordan"
	CountryCode string // ISO 3166-1 alfa-2
	Pincode     string
	Phone       string
	CityCode    string // código JoFotara (JO-AM, JO-IR, ...)
}
