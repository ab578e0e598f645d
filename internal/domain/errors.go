package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Taxonomía de errores de la integración JoFotara.
var (
	// ErrConfiguration: integración deshabilitada o credenciales ausentes. Síncrono, sin reintento.
	ErrConfiguration = errors.New("configuración JoFotara incompleta")
	// ErrValidation: la factura no puede enviarse en su estado actual. No muta estado.
	ErrValidation = errors.New("validación JoFotara fallida")
	// ErrTransport: timeout, conexión o respuesta HTTP distinta de 200. Reintentable.
	ErrTransport = errors.New("error de transporte JoFotara")
	// ErrBusinessValidation: HTTP 200 pero el motor de cumplimiento rechazó el documento.
	ErrBusinessValidation = errors.New("documento rechazado por JoFotara")
	// ErrSystem: fallo no controlado en la fase asíncrona.
	ErrSystem = errors.New("error interno de envío")
	// ErrSubmissionInFlight: ya hay un envío en cola para la factura.
	ErrSubmissionInFlight = errors.New("envío en curso para la factura")
)
