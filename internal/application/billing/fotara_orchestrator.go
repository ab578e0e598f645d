package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
	infrafotara "github.com/jhoicas/fotara-api/internal/infrastructure/fotara"
	"github.com/jhoicas/fotara-api/pkg/logger"
)

const (
	businessErrorPrefix = "JoFotara Validation Error: "
	unknownErrorMessage = "Unknown Error"
	staleBatchSize      = 500
)

// FotaraOrchestrator orquesta el ciclo de envío a JoFotara:
//
//	Validar → Asignar identificadores (lock por empresa) → Encolar
//	Worker: Revalidar → XML UBL → POST → Interpretar → Persistir + Log → Notificar
//
// La fase síncrona termina al encolar; la red nunca corre con el bloqueo de contadores tomado.
type FotaraOrchestrator struct {
	companyRepo repository.CompanyRepository
	invoiceRepo repository.InvoiceRepository
	logRepo     repository.SubmissionLogRepository
	tx          SettlementTxRunner
	issuer      *IdentifierIssuer
	docs        *DocumentService
	submitter   infrafotara.Submitter
	queue       JobQueue
	notifier    Notifier
	rules       domfotara.Rules
	log         *logger.Logger
	now         func() time.Time
}

// OrchestratorDeps dependencias del orquestador.
type OrchestratorDeps struct {
	Companies      repository.CompanyRepository
	Invoices       repository.InvoiceRepository
	SubmissionLogs repository.SubmissionLogRepository
	Tx             SettlementTxRunner
	Issuer         *IdentifierIssuer
	Documents      *DocumentService
	Submitter      infrafotara.Submitter
	Queue          JobQueue
	Notifier       Notifier // nil = sin notificaciones
	Rules          *domfotara.Rules // nil = DefaultRules
	Logger         *logger.Logger
}

// NewFotaraOrchestrator construye el orquestador.
func NewFotaraOrchestrator(d OrchestratorDeps) *FotaraOrchestrator {
	lg := d.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	rules := domfotara.DefaultRules()
	if d.Rules != nil {
		rules = *d.Rules
	}
	return &FotaraOrchestrator{
		companyRepo: d.Companies,
		invoiceRepo: d.Invoices,
		logRepo:     d.SubmissionLogs,
		tx:          d.Tx,
		issuer:      d.Issuer,
		docs:        d.Documents,
		submitter:   d.Submitter,
		queue:       d.Queue,
		notifier:    d.Notifier,
		rules:       rules,
		log:         lg.Component("fotara"),
		now:         time.Now,
	}
}

// SubmitAck acuse de la fase síncrona.
type SubmitAck struct {
	InvoiceID   string
	Identifiers entity.Identifiers
	Status      string
}

// Submit ejecuta la fase síncrona: valida, asigna identificadores y encola la fase asíncrona.
// Los errores de configuración y validación se devuelven antes de mutar estado.
func (o *FotaraOrchestrator) Submit(ctx context.Context, companyID, invoiceID, actorID string) (*SubmitAck, error) {
	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Validaciones síncronas
	// ═══════════════════════════════════════════════════════════════════════════
	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	company, err := o.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := checkIntegration(company); err != nil {
		return nil, err
	}
	if err := domfotara.CheckSubmittable(inv); err != nil {
		return nil, err
	}
	if inv.IsReturn {
		orig, err := o.findOriginal(ctx, inv)
		if err != nil {
			return nil, err
		}
		if err := domfotara.CheckReturnOriginal(orig, true); err != nil {
			return nil, err
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Identificadores (transacción con bloqueo de contadores; commit al volver)
	// ═══════════════════════════════════════════════════════════════════════════
	ids, err := o.issuer.Allocate(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	o.log.Info().
		Str("invoice_id", invoiceID).
		Str("company_id", companyID).
		Str("document_id", ids.DocumentID).
		Int64("audit_counter", ids.AuditCounter).
		Msg("factura en cola para JoFotara")

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Encolar fase asíncrona
	// ═══════════════════════════════════════════════════════════════════════════
	job := Job{
		InvoiceID:   invoiceID,
		CompanyID:   companyID,
		ActorID:     actorID,
		Identifiers: ids,
		EnqueuedAt:  o.now(),
	}
	if err := o.queue.Enqueue(ctx, job); err != nil {
		o.settle(context.WithoutCancel(ctx), job, company, &attempt{
			status:  entity.FotaraStatusError,
			errText: "no se pudo encolar el envío: " + err.Error(),
		})
		return nil, fmt.Errorf("encolar envío: %w", err)
	}

	return &SubmitAck{InvoiceID: invoiceID, Identifiers: ids, Status: entity.FotaraStatusQueued}, nil
}

// attempt resultado de un intento de la fase asíncrona.
type attempt struct {
	status   string
	qrCode   string
	xml      string
	digest   string
	response map[string]any
	errText  string
}

// Process ejecuta la fase asíncrona de un Job. Siempre termina en Success o Error,
// incluso ante un panic, y notifica al actor que disparó el envío.
func (o *FotaraOrchestrator) Process(ctx context.Context, job Job) {
	ctx = context.WithoutCancel(ctx)
	lg := o.log.With().Str("invoice_id", job.InvoiceID).Str("document_id", job.Identifiers.DocumentID).Logger()

	var (
		company *entity.Company
		docText string
	)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		stack := string(debug.Stack())
		lg.Error().Interface("panic", r).Str("stack", stack).Msg("panic en envío JoFotara")
		o.settle(ctx, job, company, &attempt{
			status:  entity.FotaraStatusError,
			xml:     docText,
			errText: fmt.Sprintf("%v: %v\n%s", domain.ErrSystem, r, stack),
		})
	}()

	// markError cierra el intento en Error con el texto dado.
	markError := func(step string, err error) {
		lg.Warn().Err(err).Str("step", step).Msg("envío JoFotara fallido")
		o.settle(ctx, job, company, &attempt{status: entity.FotaraStatusError, xml: docText, errText: err.Error()})
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 0. Datos frescos
	// ═══════════════════════════════════════════════════════════════════════════
	inv, err := o.invoiceRepo.GetByID(ctx, job.InvoiceID)
	if err != nil {
		markError("fetch-invoice", err)
		return
	}
	switch inv.EffectiveStatus() {
	case entity.FotaraStatusSuccess:
		lg.Info().Msg("factura ya aceptada, se omite el trabajo")
		return
	case entity.FotaraStatusPending:
		lg.Warn().Msg("factura sin identificadores asignados, se omite el trabajo")
		return
	}

	company, err = o.companyRepo.GetByID(ctx, inv.CompanyID)
	if err != nil {
		markError("fetch-company", err)
		return
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Revalidar reglas de negocio
	// ═══════════════════════════════════════════════════════════════════════════
	in, err := o.docs.Input(ctx, inv, company)
	if err != nil {
		markError("fetch-parties", err)
		return
	}
	if err := o.rules.CheckBuyerTaxID(inv, in.Customer); err != nil {
		markError("validate", err)
		return
	}
	if inv.IsReturn {
		if err := domfotara.CheckReturnOriginal(in.Original, false); err != nil {
			markError("validate", err)
			return
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Documento UBL canónico
	// ═══════════════════════════════════════════════════════════════════════════
	doc, err := o.docs.builder.Build(in)
	if err != nil {
		markError("xml-build", err)
		return
	}
	docText = doc.Text
	digest, err := infrafotara.Digest(doc.Text)
	if err != nil {
		lg.Warn().Err(err).Msg("no se pudo calcular el digest c14n")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Envío
	// ═══════════════════════════════════════════════════════════════════════════
	res, sendErr := o.submitter.Submit(ctx, company.ClientID, company.SecretKey, doc.Text)

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Interpretar (transporte + resultado de negocio)
	// ═══════════════════════════════════════════════════════════════════════════
	a := interpret(res, sendErr)
	a.xml = doc.Text
	a.digest = digest

	status := 0
	if res != nil {
		status = res.StatusCode
	}
	ev := lg.Info()
	if a.status == entity.FotaraStatusError {
		ev = lg.Warn().Str("error", a.errText)
	}
	ev.Int("http_status", status).Str("status", a.status).Msg("respuesta de JoFotara")

	// ═══════════════════════════════════════════════════════════════════════════
	// 5. Persistir + log + notificación
	// ═══════════════════════════════════════════════════════════════════════════
	o.settle(ctx, job, company, a)
}

// interpret traduce el resultado del transporte al estado final del intento.
func interpret(res *infrafotara.SubmitResult, sendErr error) *attempt {
	if res == nil {
		msg := "Unknown Connection Error"
		if sendErr != nil {
			msg = sendErr.Error()
		}
		return &attempt{status: entity.FotaraStatusError, errText: msg}
	}
	if !res.Success || sendErr != nil {
		msg := res.Error
		if msg == "" && sendErr != nil {
			msg = sendErr.Error()
		}
		return &attempt{status: entity.FotaraStatusError, response: res.Response, errText: msg}
	}

	results, _ := res.Response["EINV_RESULTS"].(map[string]any)
	if s, _ := results["status"].(string); strings.EqualFold(s, "ERROR") {
		return &attempt{
			status:   entity.FotaraStatusError,
			response: res.Response,
			errText:  businessErrorPrefix + businessMessages(results["ERRORS"]),
		}
	}

	qr, _ := res.Response["EINV_QR"].(string)
	return &attempt{status: entity.FotaraStatusSuccess, qrCode: qr, response: res.Response}
}

// businessMessages concatena EINV_MESSAGE de cada error con saltos de línea.
func businessMessages(v any) string {
	list, _ := v.([]any)
	msgs := make([]string, 0, len(list))
	for _, e := range list {
		m, _ := e.(map[string]any)
		msg, _ := m["EINV_MESSAGE"].(string)
		if msg == "" {
			msg = unknownErrorMessage
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "\n")
}

// settle persiste el estado final y el log en una transacción y luego notifica.
// company puede ser nil si no se pudo leer; en ese caso no se escribe log.
func (o *FotaraOrchestrator) settle(ctx context.Context, job Job, company *entity.Company, a *attempt) {
	err := o.tx.RunSettlement(ctx, func(invoiceRepo repository.InvoiceRepository, logRepo repository.SubmissionLogRepository) error {
		if err := invoiceRepo.SetOutcome(ctx, job.InvoiceID, a.status, a.qrCode); err != nil {
			return fmt.Errorf("actualizar estado: %w", err)
		}
		if company == nil || !company.SaveLogs {
			return nil
		}
		return logRepo.Create(ctx, &entity.SubmissionLog{
			ID:             uuid.NewString(),
			InvoiceID:      job.InvoiceID,
			CompanyID:      job.CompanyID,
			Status:         a.status,
			GeneratedXML:   a.xml,
			ResponseBody:   responseBody(a.response),
			ErrorText:      a.errText,
			DocumentDigest: a.digest,
			CreatedAt:      o.now(),
		})
	})
	if err != nil {
		o.log.Error().Err(err).Str("invoice_id", job.InvoiceID).Str("status", a.status).
			Msg("no se pudo persistir el estado final")
	}
	o.notify(ctx, job, a)
}

func (o *FotaraOrchestrator) notify(ctx context.Context, job Job, a *attempt) {
	if o.notifier == nil || job.ActorID == "" {
		return
	}
	n := Notification{
		InvoiceID:  job.InvoiceID,
		DocumentID: job.Identifiers.DocumentID,
		Status:     a.status,
	}
	if a.status == entity.FotaraStatusError {
		n.Message = firstLine(a.errText)
	}
	if err := o.notifier.Notify(ctx, job.ActorID, n); err != nil {
		o.log.Warn().Err(err).Str("invoice_id", job.InvoiceID).Str("actor_id", job.ActorID).
			Msg("no se pudo notificar el resultado")
	}
}

// responseBody serializa la respuesta con sangría de 2 espacios; "{}" si no hay cuerpo.
func responseBody(resp map[string]any) string {
	if len(resp) == 0 {
		return "{}"
	}
	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ── ganchos del ciclo de vida de la factura ──────────────────────────────────

// OnInvoiceSubmitted dispara el envío automático si la empresa lo tiene configurado.
// Devuelve false sin error cuando la integración o el auto-envío están apagados.
func (o *FotaraOrchestrator) OnInvoiceSubmitted(ctx context.Context, companyID, invoiceID, actorID string) (bool, *SubmitAck, error) {
	company, err := o.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return false, nil, err
	}
	if !company.FotaraEnabled || !company.AutoSend {
		return false, nil, nil
	}
	ack, err := o.Submit(ctx, companyID, invoiceID, actorID)
	if err != nil {
		return false, nil, err
	}
	return true, ack, nil
}

// EnsureCancellable rechaza la cancelación de una factura aceptada por JoFotara.
func (o *FotaraOrchestrator) EnsureCancellable(ctx context.Context, companyID, invoiceID string) error {
	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.CompanyID != companyID {
		return domain.ErrForbidden
	}
	return domfotara.CheckCancellable(inv)
}

// RequeueStale vuelve a encolar las facturas en Queued desde antes de olderThan.
// Reutiliza los identificadores guardados; nunca asigna nuevos. Sin actor, no hay notificación.
// queued_at se renueva antes de encolar, así un barrido posterior no duplica el trabajo.
func (o *FotaraOrchestrator) RequeueStale(ctx context.Context, olderThan time.Time) (int, error) {
	stale, err := o.invoiceRepo.ListStaleQueued(ctx, olderThan, staleBatchSize)
	if err != nil {
		return 0, fmt.Errorf("listar facturas en cola: %w", err)
	}
	n := 0
	for _, inv := range stale {
		if err := o.invoiceRepo.RefreshQueued(ctx, inv.ID, o.now()); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue // terminó entre el listado y ahora
			}
			return n, fmt.Errorf("renovar %s: %w", inv.ID, err)
		}
		job := Job{
			InvoiceID:   inv.ID,
			CompanyID:   inv.CompanyID,
			Identifiers: inv.Identifiers(),
			EnqueuedAt:  o.now(),
		}
		if err := o.queue.Enqueue(ctx, job); err != nil {
			return n, fmt.Errorf("reencolar %s: %w", inv.ID, err)
		}
		n++
	}
	if n > 0 {
		o.log.Info().Int("count", n).Time("older_than", olderThan).Msg("facturas reencoladas")
	}
	return n, nil
}

// SweepStale ejecuta RequeueStale cada interval hasta que ctx se cancele.
// Recupera lo que quedó en Queued después de un corte sin esperar al próximo arranque.
func (o *FotaraOrchestrator) SweepStale(ctx context.Context, interval, staleAfter time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.RequeueStale(ctx, o.now().Add(-staleAfter)); err != nil && ctx.Err() == nil {
				o.log.Error().Err(err).Msg("barrido de envíos pendientes")
			}
		}
	}
}

// ── consultas ────────────────────────────────────────────────────────────────

// Status devuelve la factura si pertenece a la empresa.
func (o *FotaraOrchestrator) Status(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error) {
	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

// Logs devuelve los intentos registrados de la factura, del más reciente al más antiguo.
func (o *FotaraOrchestrator) Logs(ctx context.Context, companyID, invoiceID string) ([]*entity.SubmissionLog, error) {
	if _, err := o.Status(ctx, companyID, invoiceID); err != nil {
		return nil, err
	}
	return o.logRepo.ListByInvoice(ctx, invoiceID)
}

// Preview construye el documento de una factura con identificadores sin enviarlo.
func (o *FotaraOrchestrator) Preview(ctx context.Context, invoiceID string) (*infrafotara.Document, error) {
	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.HasIdentifiers() {
		return nil, fmt.Errorf("%w: la factura %s aún no tiene identificadores JoFotara", domain.ErrValidation, invoiceID)
	}
	company, err := o.companyRepo.GetByID(ctx, inv.CompanyID)
	if err != nil {
		return nil, err
	}
	_, doc, err := o.docs.Build(ctx, inv, company)
	return doc, err
}

// ── helpers privados ──────────────────────────────────────────────────────────

func checkIntegration(c *entity.Company) error {
	if !c.FotaraEnabled {
		return fmt.Errorf("%w: la integración no está habilitada para %s", domain.ErrConfiguration, c.Name)
	}
	if !c.HasCredentials() {
		return fmt.Errorf("%w: faltan Client-Id o Secret-Key de %s", domain.ErrConfiguration, c.Name)
	}
	return nil
}

func (o *FotaraOrchestrator) findOriginal(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error) {
	orig, err := o.invoiceRepo.GetByID(ctx, inv.ReturnAgainst)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return orig, err
}
