package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fotara-api/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator     *billing.FotaraOrchestrator
	Receipt          *billing.ReceiptUseCase
	JWTSecret        string
	JWTIssuer        string
	SubmitRatePerMin int
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	fotara := api.Group("/fotara", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	h := NewFotaraHandler(deps.Orchestrator, deps.Receipt)
	limiter := NewCompanyRateLimiter(deps.SubmitRatePerMin)

	// sistema solo entra por los ganchos; los logs traen XML y respuestas completas.
	staff := RequireRole(RoleAdmin, RoleVendedor)
	invoices := fotara.Group("/invoices")
	invoices.Post("/:id/submit", staff, limiter.Handler(), h.Submit)
	invoices.Get("/:id/status", staff, h.Status)
	invoices.Get("/:id/logs", RequireRole(RoleAdmin), h.Logs)
	invoices.Get("/:id/receipt", staff, h.Receipt)

	// Ganchos del ciclo de vida de la factura (ERP / integraciones)
	hooks := fotara.Group("/hooks", RequireRole(RoleAdmin, RoleVendedor, RoleSistema))
	hooks.Post("/invoice-submitted", limiter.Handler(), h.InvoiceSubmitted)
	hooks.Post("/invoice-before-cancel", h.InvoiceBeforeCancel)
}
