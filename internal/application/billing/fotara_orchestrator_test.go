package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	infrafotara "github.com/jhoicas/fotara-api/internal/infrastructure/fotara"
	"github.com/jhoicas/fotara-api/internal/infrastructure/memory"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeSubmitter struct {
	mu     sync.Mutex
	calls  int
	result *infrafotara.SubmitResult
	err    error
	panic  string
	delay  time.Duration
}

func (f *fakeSubmitter) Submit(_ context.Context, _, _, _ string) (*infrafotara.SubmitResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panic != "" {
		panic(f.panic)
	}
	return f.result, f.err
}

func (f *fakeSubmitter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []billing.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job billing.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type sent struct {
	actor string
	n     billing.Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingNotifier) Notify(_ context.Context, actorID string, n billing.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{actorID, n})
	return nil
}

// ── harness ──────────────────────────────────────────────────────────────────

type harness struct {
	store    *memory.Store
	orch     *billing.FotaraOrchestrator
	sub      *fakeSubmitter
	queue    *recordingQueue
	notifier *recordingNotifier
}

func jsonBody(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

// newHarness arma el orquestador sobre el store en memoria; opts ajusta las dependencias.
func newHarness(t *testing.T, opts ...func(*billing.OrchestratorDeps)) *harness {
	t.Helper()
	loc := ammanLoc(t)
	store := memory.NewStore()
	store.PutCompany(&entity.Company{
		ID: "co", Name: "Corex LLC", Abbr: "CX", TaxID: "12345678", VATRegistered: true,
		FotaraEnabled: true, SaveLogs: true, ClientID: "client", SecretKey: "secret",
		IncomeSourceSequence: "9876543",
	})
	store.PutCustomer(&entity.Customer{ID: "cust", CompanyID: "co", Name: "Ahmad Traders", TaxID: "99887766",
		IdentificationType: entity.IdentificationTaxID})
	store.PutInvoice(sampleInvoice("inv"))

	h := &harness{
		store:    store,
		sub:      &fakeSubmitter{},
		queue:    &recordingQueue{},
		notifier: &recordingNotifier{},
	}
	builder := infrafotara.NewXMLBuilder(infrafotara.BuilderConfig{HomeCountry: "JO", Location: loc})
	clock := fixedClock(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	deps := billing.OrchestratorDeps{
		Companies:      store.Companies(),
		Invoices:       store.Invoices(),
		SubmissionLogs: store.SubmissionLogs(),
		Tx:             store,
		Issuer:         billing.NewIdentifierIssuer(store, loc).WithClock(clock),
		Documents:      billing.NewDocumentService(store.Invoices(), store.Customers(), store.Addresses(), builder).WithClock(clock),
		Submitter:      h.sub,
		Queue:          h.queue,
		Notifier:       h.notifier,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.orch = billing.NewFotaraOrchestrator(deps)
	return h
}

func sampleInvoice(id string) *entity.Invoice {
	return &entity.Invoice{
		ID: id, CompanyID: "co", CustomerID: "cust", CustomerName: "Ahmad Traders",
		DocStatus: entity.DocStatusSubmitted, PaymentType: entity.PaymentAuto,
		GrandTotal: decimal.RequireFromString("23.2"),
		Items: []entity.InvoiceItem{
			{ItemName: "Widget", UOM: "Nos", Qty: decimal.NewFromInt(2), NetAmount: decimal.NewFromInt(20)},
		},
		Taxes: []entity.InvoiceTax{{Description: "VAT 16%", Rate: decimal.NewFromInt(16)}},
	}
}

// submitAndProcess ejecuta ambas fases de forma sincrónica.
func (h *harness) submitAndProcess(t *testing.T, invoiceID string) *billing.SubmitAck {
	t.Helper()
	ack, err := h.orch.Submit(context.Background(), "co", invoiceID, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, h.queue.jobs)
	h.orch.Process(context.Background(), h.queue.jobs[len(h.queue.jobs)-1])
	return ack
}

// ── fase síncrona ────────────────────────────────────────────────────────────

func TestSubmit_EncolaConIdentificadores(t *testing.T) {
	h := newHarness(t)

	ack, err := h.orch.Submit(context.Background(), "co", "inv", "user-1")
	require.NoError(t, err)

	assert.Equal(t, entity.FotaraStatusQueued, ack.Status)
	assert.Equal(t, "CX-2024-05-02-00001", ack.Identifiers.DocumentID)
	assert.Equal(t, int64(1), ack.Identifiers.AuditCounter)
	require.Len(t, h.queue.jobs, 1)
	assert.Equal(t, "user-1", h.queue.jobs[0].ActorID)
	assert.Equal(t, ack.Identifiers, h.queue.jobs[0].Identifiers)
	assert.Equal(t, entity.FotaraStatusQueued, h.store.Invoice("inv").Status)
	assert.Zero(t, h.sub.Calls())
}

func TestSubmit_ConfiguracionIncompleta(t *testing.T) {
	cases := map[string]func(c *entity.Company){
		"deshabilitada":  func(c *entity.Company) { c.FotaraEnabled = false },
		"sin_client_id":  func(c *entity.Company) { c.ClientID = "" },
		"sin_secret_key": func(c *entity.Company) { c.SecretKey = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			c := h.store.Company("co")
			mutate(c)
			h.store.PutCompany(c)

			_, err := h.orch.Submit(context.Background(), "co", "inv", "user-1")
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Empty(t, h.queue.jobs)
			assert.Empty(t, h.store.Invoice("inv").DocumentID)
			assert.Zero(t, h.store.Company("co").Counter.LatestCounter)
		})
	}
}

func TestSubmit_FacturaNoFinalizada(t *testing.T) {
	h := newHarness(t)
	inv := sampleInvoice("draft")
	inv.DocStatus = entity.DocStatusDraft
	h.store.PutInvoice(inv)

	_, err := h.orch.Submit(context.Background(), "co", "draft", "user-1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, h.store.Invoice("draft").DocumentID)
}

func TestSubmit_DevolucionExigeOriginalAceptado(t *testing.T) {
	h := newHarness(t)
	orig := sampleInvoice("orig")
	orig.Status = entity.FotaraStatusError
	orig.DocumentID, orig.DocumentUUID, orig.AuditCounter = "CX-2024-05-01-00001", "uuid-orig", 1
	h.store.PutInvoice(orig)

	ret := sampleInvoice("ret")
	ret.IsReturn, ret.ReturnAgainst = true, "orig"
	h.store.PutInvoice(ret)

	_, err := h.orch.Submit(context.Background(), "co", "ret", "user-1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	ret2 := sampleInvoice("ret-missing")
	ret2.IsReturn, ret2.ReturnAgainst = true, "no-existe"
	h.store.PutInvoice(ret2)
	_, err = h.orch.Submit(context.Background(), "co", "ret-missing", "user-1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, h.queue.jobs)
}

func TestSubmit_SegundoEnvioEnCursoSeRechaza(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Submit(context.Background(), "co", "inv", "user-1")
	require.NoError(t, err)

	_, err = h.orch.Submit(context.Background(), "co", "inv", "user-1")
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	assert.Len(t, h.queue.jobs, 1)
	assert.Equal(t, int64(1), h.store.Company("co").Counter.LatestCounter)
}

func TestSubmit_FallaAlEncolarDejaError(t *testing.T) {
	h := newHarness(t)
	h.queue.err = errors.New("redis caído")

	_, err := h.orch.Submit(context.Background(), "co", "inv", "user-1")
	require.Error(t, err)

	inv := h.store.Invoice("inv")
	assert.Equal(t, entity.FotaraStatusError, inv.Status)
	assert.NotEmpty(t, inv.DocumentID)
}

// ── fase asíncrona ───────────────────────────────────────────────────────────

func TestProcess_AceptadaGuardaQRLogYNotifica(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &infrafotara.SubmitResult{
		Success: true, StatusCode: 200,
		Response: jsonBody(t, `{"EINV_RESULTS":{"status":"PASS"},"EINV_QR":"QR-DATA"}`),
	}

	ack := h.submitAndProcess(t, "inv")

	inv := h.store.Invoice("inv")
	assert.Equal(t, entity.FotaraStatusSuccess, inv.Status)
	assert.Equal(t, "QR-DATA", inv.QRCode)
	assert.Equal(t, 1, h.sub.Calls())

	logs := h.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, entity.FotaraStatusSuccess, logs[0].Status)
	assert.Contains(t, logs[0].GeneratedXML, "<cbc:ID>"+ack.Identifiers.DocumentID+"</cbc:ID>")
	assert.Contains(t, logs[0].ResponseBody, "\n  \"EINV_QR\": \"QR-DATA\"")
	assert.Len(t, logs[0].DocumentDigest, 64)
	assert.Empty(t, logs[0].ErrorText)

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, "user-1", h.notifier.sent[0].actor)
	assert.Equal(t, billing.Notification{
		InvoiceID: "inv", DocumentID: ack.Identifiers.DocumentID, Status: entity.FotaraStatusSuccess,
	}, h.notifier.sent[0].n)
}

func TestProcess_WarningCuentaComoExito(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &infrafotara.SubmitResult{
		Success: true, StatusCode: 200,
		Response: jsonBody(t, `{"EINV_RESULTS":{"status":"WARNING","WARNINGS":[{"EINV_MESSAGE":"x"}]}}`),
	}
	h.submitAndProcess(t, "inv")
	assert.Equal(t, entity.FotaraStatusSuccess, h.store.Invoice("inv").Status)
}

func TestProcess_Error200DeNegocioQuedaEnError(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &infrafotara.SubmitResult{
		Success: true, StatusCode: 200,
		Response: jsonBody(t, `{"EINV_RESULTS":{"status":"ERROR","ERRORS":[{"EINV_MESSAGE":"Invalid total"},{"EINV_CODE":"E2"}]}}`),
	}

	h.submitAndProcess(t, "inv")

	inv := h.store.Invoice("inv")
	assert.Equal(t, entity.FotaraStatusError, inv.Status)
	assert.Empty(t, inv.QRCode)

	logs := h.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "JoFotara Validation Error: Invalid total\nUnknown Error", logs[0].ErrorText)
	assert.Equal(t, entity.FotaraStatusError, h.notifier.sent[0].n.Status)
	assert.Equal(t, "JoFotara Validation Error: Invalid total", h.notifier.sent[0].n.Message)
}

func TestProcess_ErrorDeTransporte(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &infrafotara.SubmitResult{Failure: infrafotara.FailureTimeout, Error: "timeout al conectar con JoFotara"}
	h.sub.err = domain.ErrTransport

	h.submitAndProcess(t, "inv")

	assert.Equal(t, entity.FotaraStatusError, h.store.Invoice("inv").Status)
	logs := h.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "timeout al conectar con JoFotara", logs[0].ErrorText)
	assert.Equal(t, "{}", logs[0].ResponseBody)
}

func TestProcess_ReintentoTrasErrorReutilizaIdentificadores(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &infrafotara.SubmitResult{Failure: infrafotara.FailureConnection, Error: "sin conexión"}
	first := h.submitAndProcess(t, "inv")

	h.sub.result = &infrafotara.SubmitResult{Success: true, StatusCode: 200, Response: map[string]any{}}
	h.sub.err = nil
	second := h.submitAndProcess(t, "inv")

	assert.Equal(t, first.Identifiers, second.Identifiers)
	assert.Equal(t, entity.FotaraStatusSuccess, h.store.Invoice("inv").Status)
	assert.Equal(t, int64(1), h.store.Company("co").Counter.LatestCounter)
	assert.Len(t, h.store.Logs(), 2)
}

func TestProcess_DevolucionSinUUIDOriginalNoLlamaRed(t *testing.T) {
	h := newHarness(t)
	orig := sampleInvoice("orig")
	orig.Status = entity.FotaraStatusSuccess
	h.store.PutInvoice(orig)

	ret := sampleInvoice("ret")
	ret.IsReturn, ret.ReturnAgainst = true, "orig"
	ret.Status = entity.FotaraStatusQueued
	ret.DocumentID, ret.DocumentUUID, ret.AuditCounter = "CX-2024-05-02-00002", "uuid-ret", 2
	h.store.PutInvoice(ret)

	h.orch.Process(context.Background(), billing.Job{InvoiceID: "ret", CompanyID: "co", ActorID: "user-1",
		Identifiers: h.store.Invoice("ret").Identifiers()})

	assert.Zero(t, h.sub.Calls())
	assert.Equal(t, entity.FotaraStatusError, h.store.Invoice("ret").Status)
	require.Len(t, h.store.Logs(), 1)
	assert.Contains(t, h.store.Logs()[0].ErrorText, "no ha sido enviada")
}

func TestProcess_CreditoSinIdentificacionFiscal(t *testing.T) {
	h := newHarness(t)
	h.store.PutCustomer(&entity.Customer{ID: "anon", CompanyID: "co", Name: "Walk-in"})
	inv := sampleInvoice("credit")
	inv.CustomerID = "anon"
	inv.PaymentType = entity.PaymentCredit
	h.store.PutInvoice(inv)

	h.submitAndProcess(t, "credit")

	assert.Zero(t, h.sub.Calls())
	assert.Equal(t, entity.FotaraStatusError, h.store.Invoice("credit").Status)
}

func TestProcess_UmbralCeroExigeIdentificacionEnContado(t *testing.T) {
	zero := domfotara.Rules{CreditIDThreshold: decimal.Zero}
	for name, tc := range map[string]struct {
		opts []func(*billing.OrchestratorDeps)
		want string
	}{
		"umbral por defecto": {want: entity.FotaraStatusSuccess},
		"umbral cero":        {opts: []func(*billing.OrchestratorDeps){func(d *billing.OrchestratorDeps) { d.Rules = &zero }}, want: entity.FotaraStatusError},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, tc.opts...)
			h.sub.result = &infrafotara.SubmitResult{Success: true, StatusCode: 200, Response: jsonBody(t, `{"EINV_RESULTS":{"status":"PASS"}}`)}
			h.store.PutCustomer(&entity.Customer{ID: "anon", CompanyID: "co", Name: "Walk-in"})
			inv := sampleInvoice("cash")
			inv.CustomerID = "anon"
			inv.PaymentType = entity.PaymentCash
			h.store.PutInvoice(inv)

			h.submitAndProcess(t, "cash")

			assert.Equal(t, tc.want, h.store.Invoice("cash").Status)
		})
	}
}

func TestProcess_PanicTerminaEnErrorYNotifica(t *testing.T) {
	h := newHarness(t)
	h.sub.panic = "boom"

	assert.NotPanics(t, func() { h.submitAndProcess(t, "inv") })

	assert.Equal(t, entity.FotaraStatusError, h.store.Invoice("inv").Status)
	logs := h.store.Logs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].ErrorText, "boom")
	assert.Contains(t, logs[0].ErrorText, "goroutine")
	assert.NotEmpty(t, logs[0].GeneratedXML)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, entity.FotaraStatusError, h.notifier.sent[0].n.Status)
}

func TestProcess_OmiteFacturaYaAceptada(t *testing.T) {
	h := newHarness(t)
	inv := sampleInvoice("done")
	inv.Status = entity.FotaraStatusSuccess
	inv.DocumentID, inv.DocumentUUID, inv.AuditCounter = "CX-2024-05-02-00001", "u", 1
	h.store.PutInvoice(inv)

	h.orch.Process(context.Background(), billing.Job{InvoiceID: "done", CompanyID: "co", ActorID: "user-1"})

	assert.Zero(t, h.sub.Calls())
	assert.Empty(t, h.store.Logs())
	assert.Empty(t, h.notifier.sent)
}

func TestProcess_SinSaveLogsNoEscribeLog(t *testing.T) {
	h := newHarness(t)
	c := h.store.Company("co")
	c.SaveLogs = false
	h.store.PutCompany(c)
	h.sub.result = &infrafotara.SubmitResult{Success: true, StatusCode: 200, Response: map[string]any{}}

	h.submitAndProcess(t, "inv")

	assert.Equal(t, entity.FotaraStatusSuccess, h.store.Invoice("inv").Status)
	assert.Empty(t, h.store.Logs())
}

func TestProcess_ContextoCanceladoIgualTermina(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &infrafotara.SubmitResult{Success: true, StatusCode: 200, Response: map[string]any{}}
	_, err := h.orch.Submit(context.Background(), "co", "inv", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.orch.Process(ctx, h.queue.jobs[0])

	assert.Equal(t, entity.FotaraStatusSuccess, h.store.Invoice("inv").Status)
	assert.Empty(t, h.notifier.sent, "sin actor no hay notificación")
}

// ── ganchos y recuperación ───────────────────────────────────────────────────

func TestOnInvoiceSubmitted_RespetaAutoEnvio(t *testing.T) {
	h := newHarness(t)

	triggered, _, err := h.orch.OnInvoiceSubmitted(context.Background(), "co", "inv", "user-1")
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, h.queue.jobs)

	c := h.store.Company("co")
	c.AutoSend = true
	h.store.PutCompany(c)

	triggered, ack, err := h.orch.OnInvoiceSubmitted(context.Background(), "co", "inv", "user-1")
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Equal(t, entity.FotaraStatusQueued, ack.Status)
	assert.Len(t, h.queue.jobs, 1)
}

func TestEnsureCancellable_BloqueaFacturaAceptada(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.orch.EnsureCancellable(context.Background(), "co", "inv"))

	inv := h.store.Invoice("inv")
	inv.Status = entity.FotaraStatusSuccess
	h.store.PutInvoice(inv)
	assert.ErrorIs(t, h.orch.EnsureCancellable(context.Background(), "co", "inv"), domain.ErrValidation)
	assert.ErrorIs(t, h.orch.EnsureCancellable(context.Background(), "otra", "inv"), domain.ErrForbidden)
}

func TestRequeueStale_ReencolaSinAsignar(t *testing.T) {
	h := newHarness(t)
	old := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	inv := sampleInvoice("stuck")
	inv.Status = entity.FotaraStatusQueued
	inv.DocumentID, inv.DocumentUUID, inv.AuditCounter = "CX-2024-05-02-00007", "uuid-7", 7
	inv.QueuedAt = &old
	h.store.PutInvoice(inv)

	recent := time.Date(2024, 5, 2, 8, 59, 0, 0, time.UTC)
	fresh := sampleInvoice("fresh")
	fresh.Status = entity.FotaraStatusQueued
	fresh.DocumentID = "CX-2024-05-02-00008"
	fresh.QueuedAt = &recent
	h.store.PutInvoice(fresh)

	n, err := h.orch.RequeueStale(context.Background(), time.Date(2024, 5, 2, 8, 45, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, h.queue.jobs, 1)
	job := h.queue.jobs[0]
	assert.Equal(t, "stuck", job.InvoiceID)
	assert.Empty(t, job.ActorID)
	assert.Equal(t, entity.Identifiers{DocumentID: "CX-2024-05-02-00007", DocumentUUID: "uuid-7", AuditCounter: 7}, job.Identifiers)
	assert.Zero(t, h.store.Company("co").Counter.LatestCounter)
}

func TestRequeueStale_RenuevaQueuedAtYNoDuplica(t *testing.T) {
	h := newHarness(t)
	old := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	inv := sampleInvoice("stuck")
	inv.Status = entity.FotaraStatusQueued
	inv.DocumentID = "CX-2024-05-02-00007"
	inv.QueuedAt = &old
	h.store.PutInvoice(inv)

	n, err := h.orch.RequeueStale(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	refreshed := h.store.Invoice("stuck").QueuedAt
	require.NotNil(t, refreshed)
	assert.True(t, refreshed.After(old))

	// Con queued_at renovado, un segundo barrido no lo vuelve a encolar.
	n, err = h.orch.RequeueStale(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, h.queue.count())
}

func TestSweepStale_ReencolaPeriodicamenteUnaSolaVez(t *testing.T) {
	h := newHarness(t)
	old := time.Now().Add(-time.Hour)
	inv := sampleInvoice("stuck")
	inv.Status = entity.FotaraStatusQueued
	inv.DocumentID = "CX-2024-05-02-00007"
	inv.QueuedAt = &old
	h.store.PutInvoice(inv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.orch.SweepStale(ctx, 5*time.Millisecond, 15*time.Minute)
	}()

	require.Eventually(t, func() bool { return h.queue.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, h.queue.count())
}

func TestProcess_ApagadoNoDejaFacturasEnCola(t *testing.T) {
	pool := billing.NewWorkerPool(1, 16, nil)
	h := newHarness(t, func(d *billing.OrchestratorDeps) { d.Queue = pool })
	h.sub.delay = 20 * time.Millisecond
	h.sub.result = &infrafotara.SubmitResult{Success: true, StatusCode: 200, Response: jsonBody(t, `{"EINV_RESULTS":{"status":"PASS"}}`)}

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		h.store.PutInvoice(sampleInvoice(id))
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	pool.Start(workerCtx, h.orch.Process)
	for _, id := range ids {
		_, err := h.orch.Submit(context.Background(), "co", id, "user-1")
		require.NoError(t, err)
	}

	// Cancelar a los workers antes de cerrar la cola no descarta lo pendiente.
	stopWorkers()
	pool.Close()

	assert.Equal(t, len(ids), h.sub.Calls())
	for _, id := range ids {
		assert.Equal(t, entity.FotaraStatusSuccess, h.store.Invoice(id).Status, id)
	}
	_, err := h.orch.Submit(context.Background(), "co", "d", "user-1")
	assert.NotErrorIs(t, err, domain.ErrSubmissionInFlight)
}

func TestLogs_DelMasRecienteAlMasAntiguo(t *testing.T) {
	h := newHarness(t)
	h.sub.result = &infrafotara.SubmitResult{Failure: infrafotara.FailureConnection, Error: "primero"}
	h.submitAndProcess(t, "inv")
	h.sub.result = &infrafotara.SubmitResult{Failure: infrafotara.FailureConnection, Error: "segundo"}
	h.submitAndProcess(t, "inv")

	logs, err := h.orch.Logs(context.Background(), "co", "inv")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "segundo", logs[0].ErrorText)

	_, err = h.orch.Logs(context.Background(), "otra", "inv")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPreview_RequiereIdentificadoresYNoEnvia(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Preview(context.Background(), "inv")
	assert.ErrorIs(t, err, domain.ErrValidation)

	ack, err := h.orch.Submit(context.Background(), "co", "inv", "user-1")
	require.NoError(t, err)

	doc, err := h.orch.Preview(context.Background(), "inv")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, ack.Identifiers.DocumentID)
	assert.Contains(t, doc.Text, ack.Identifiers.DocumentUUID)
	assert.Zero(t, h.sub.Calls())
}
