package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/internal/application/dto"
	"github.com/jhoicas/fotara-api/internal/domain"
)

// FotaraHandler expone el envío a JoFotara y sus consultas (protegido).
type FotaraHandler struct {
	orch    *billing.FotaraOrchestrator
	receipt *billing.ReceiptUseCase
}

// NewFotaraHandler construye el handler.
func NewFotaraHandler(orch *billing.FotaraOrchestrator, receipt *billing.ReceiptUseCase) *FotaraHandler {
	return &FotaraHandler{orch: orch, receipt: receipt}
}

// Submit godoc
// @Summary      Enviar factura a JoFotara
// @Description  Valida, asigna identificadores y encola el envío. El resultado final se
//
//	notifica por el canal del usuario.
//
// @Tags         fotara
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      202  {object}  dto.SubmitInvoiceResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      429  {object}  dto.ErrorResponse
// @Router       /api/fotara/invoices/{id}/submit [post]
func (h *FotaraHandler) Submit(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	ack, err := h.orch.Submit(c.UserContext(), companyID, c.Params("id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(toSubmitResponse(ack))
}

// Status godoc
// @Summary      Estado JoFotara de la factura
// @Tags         fotara
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la factura"
// @Success      200  {object}  dto.FotaraStatusResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fotara/invoices/{id}/status [get]
func (h *FotaraHandler) Status(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	inv, err := h.orch.Status(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FotaraStatusResponse{
		InvoiceID:    inv.ID,
		DocumentID:   inv.DocumentID,
		DocumentUUID: inv.DocumentUUID,
		AuditCounter: inv.AuditCounter,
		Status:       inv.EffectiveStatus(),
		QRCode:       inv.QRCode,
	})
}

// Logs godoc
// @Summary      Intentos de envío registrados
// @Tags         fotara
// @Security     Bearer
// @Produce      json
// @Param        id           path   string  true   "ID de la factura"
// @Param        include_xml  query  bool    false  "Incluir el XML generado"
// @Success      200  {array}   dto.SubmissionLogResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fotara/invoices/{id}/logs [get]
func (h *FotaraHandler) Logs(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	logs, err := h.orch.Logs(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	includeXML := c.QueryBool("include_xml", false)
	out := make([]dto.SubmissionLogResponse, 0, len(logs))
	for _, l := range logs {
		r := dto.SubmissionLogResponse{
			ID:             l.ID,
			Status:         l.Status,
			ErrorText:      l.ErrorText,
			ResponseBody:   l.ResponseBody,
			DocumentDigest: l.DocumentDigest,
			CreatedAt:      l.CreatedAt,
		}
		if includeXML {
			r.GeneratedXML = l.GeneratedXML
		}
		out = append(out, r)
	}
	return c.JSON(out)
}

// Receipt godoc
// @Summary      Comprobante PDF de factura aceptada
// @Tags         fotara
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fotara/invoices/{id}/receipt [get]
func (h *FotaraHandler) Receipt(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	pdf, filename, err := h.receipt.Download(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}

// InvoiceSubmitted godoc
// @Summary      Gancho: factura finalizada
// @Description  Dispara el envío si la empresa tiene integración y auto-envío activos.
// @Tags         fotara
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.InvoiceHookRequest  true  "invoice_id"
// @Success      200   {object}  dto.HookTriggeredResponse
// @Success      202   {object}  dto.HookTriggeredResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/fotara/hooks/invoice-submitted [post]
func (h *FotaraHandler) InvoiceSubmitted(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	in, ok := parseHook(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invoice_id requerido"})
	}
	triggered, ack, err := h.orch.OnInvoiceSubmitted(c.UserContext(), companyID, in.InvoiceID, userID)
	if err != nil {
		return writeError(c, err)
	}
	if !triggered {
		return c.JSON(dto.HookTriggeredResponse{Triggered: false})
	}
	resp := toSubmitResponse(ack)
	return c.Status(fiber.StatusAccepted).JSON(dto.HookTriggeredResponse{Triggered: true, Submission: &resp})
}

// InvoiceBeforeCancel godoc
// @Summary      Gancho: antes de cancelar la factura
// @Description  Rechaza la cancelación de facturas aceptadas por JoFotara.
// @Tags         fotara
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.InvoiceHookRequest  true  "invoice_id"
// @Success      200   {object}  dto.CancelCheckResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/fotara/hooks/invoice-before-cancel [post]
func (h *FotaraHandler) InvoiceBeforeCancel(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	in, ok := parseHook(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invoice_id requerido"})
	}
	if err := h.orch.EnsureCancellable(c.UserContext(), companyID, in.InvoiceID); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CANCEL_BLOCKED", Message: err.Error()})
		}
		return writeError(c, err)
	}
	return c.JSON(dto.CancelCheckResponse{Cancellable: true})
}

// ── helpers ───────────────────────────────────────────────────────────────────

func parseHook(c *fiber.Ctx) (dto.InvoiceHookRequest, bool) {
	var in dto.InvoiceHookRequest
	if err := c.BodyParser(&in); err != nil || in.InvoiceID == "" {
		return in, false
	}
	return in, true
}

func toSubmitResponse(ack *billing.SubmitAck) dto.SubmitInvoiceResponse {
	return dto.SubmitInvoiceResponse{
		InvoiceID:    ack.InvoiceID,
		DocumentID:   ack.Identifiers.DocumentID,
		DocumentUUID: ack.Identifiers.DocumentUUID,
		AuditCounter: ack.Identifiers.AuditCounter,
		Status:       ack.Status,
	}
}
