// Package memory implementa un almacén transaccional en proceso con bloqueos de fila por empresa.
// Las lecturas ven el estado confirmado; las escrituras de una transacción se aplican en el commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
)

var _ billing.TxRunner = (*Store)(nil)

// Store guarda empresas, facturas, clientes, direcciones y logs.
type Store struct {
	mu          sync.RWMutex
	companies   map[string]*entity.Company
	invoices    map[string]*entity.Invoice
	customers   map[string]*entity.Customer
	addresses   map[string]*entity.Address
	companyAddr map[string]string
	logs        []*entity.SubmissionLog

	locksMu sync.Mutex
	locks   map[string]chan struct{} // una fila de contadores por empresa
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		companies:   make(map[string]*entity.Company),
		invoices:    make(map[string]*entity.Invoice),
		customers:   make(map[string]*entity.Customer),
		addresses:   make(map[string]*entity.Address),
		companyAddr: make(map[string]string),
		locks:       make(map[string]chan struct{}),
	}
}

// ── carga de datos ───────────────────────────────────────────────────────────

// PutCompany inserta o reemplaza una empresa.
func (s *Store) PutCompany(c *entity.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = cloneCompany(c)
}

// PutInvoice inserta o reemplaza una factura.
func (s *Store) PutInvoice(i *entity.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[i.ID] = cloneInvoice(i)
}

// PutCustomer inserta o reemplaza un cliente.
func (s *Store) PutCustomer(c *entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
}

// PutAddress inserta o reemplaza una dirección; si no tiene cliente queda como dirección de la empresa.
func (s *Store) PutAddress(a *entity.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.addresses[a.ID] = &cp
	if a.CustomerID == "" && a.CompanyID != "" {
		s.companyAddr[a.CompanyID] = a.ID
	}
}

// Invoice devuelve una copia de la factura confirmada (nil si no existe).
func (s *Store) Invoice(id string) *entity.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inv, ok := s.invoices[id]; ok {
		return cloneInvoice(inv)
	}
	return nil
}

// Company devuelve una copia de la empresa confirmada (nil si no existe).
func (s *Store) Company(id string) *entity.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.companies[id]; ok {
		return cloneCompany(c)
	}
	return nil
}

// Logs devuelve todos los logs en orden de inserción.
func (s *Store) Logs() []entity.SubmissionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.SubmissionLog, len(s.logs))
	for i, l := range s.logs {
		out[i] = *l
	}
	return out
}

// ── repos sin transacción (autocommit) ───────────────────────────────────────

func (s *Store) Companies() repository.CompanyRepository { return &companyRepo{s: s} }
func (s *Store) Invoices() repository.InvoiceRepository { return &invoiceRepo{s: s} }
func (s *Store) Customers() repository.CustomerRepository { return &customerRepo{s: s} }
func (s *Store) Addresses() repository.AddressRepository { return &addressRepo{s: s} }
func (s *Store) SubmissionLogs() repository.SubmissionLogRepository { return &logRepo{s: s} }

// ── transacciones ────────────────────────────────────────────────────────────

type tx struct {
	s    *Store
	ops  []func()
	held []string
}

// exec aplica op inmediatamente sin transacción; dentro de una la difiere al commit.
func (s *Store) exec(t *tx, op func()) {
	if t == nil {
		s.mu.Lock()
		op()
		s.mu.Unlock()
		return
	}
	t.ops = append(t.ops, op)
}

func (t *tx) lock(ctx context.Context, companyID string) error {
	for _, id := range t.held {
		if id == companyID {
			return nil
		}
	}
	ch := t.s.rowLock(companyID)
	select {
	case ch <- struct{}{}:
		t.held = append(t.held, companyID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *tx) finish(commit bool) {
	if commit && len(t.ops) > 0 {
		t.s.mu.Lock()
		for _, op := range t.ops {
			op()
		}
		t.s.mu.Unlock()
	}
	for _, id := range t.held {
		<-t.s.rowLock(id)
	}
	t.ops, t.held = nil, nil
}

func (s *Store) rowLock(companyID string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[companyID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[companyID] = ch
	}
	return ch
}

func (s *Store) run(fn func(t *tx) error) error {
	t := &tx{s: s}
	if err := fn(t); err != nil {
		t.finish(false)
		return err
	}
	t.finish(true)
	return nil
}

// RunIssuance implementa billing.IssuanceTxRunner.
func (s *Store) RunIssuance(ctx context.Context, fn func(
	companyRepo repository.CompanyRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	return s.run(func(t *tx) error {
		return fn(&companyRepo{s: s, tx: t}, &invoiceRepo{s: s, tx: t})
	})
}

// RunSettlement implementa billing.SettlementTxRunner.
func (s *Store) RunSettlement(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	logRepo repository.SubmissionLogRepository,
) error) error {
	return s.run(func(t *tx) error {
		return fn(&invoiceRepo{s: s, tx: t}, &logRepo{s: s, tx: t})
	})
}

// ── CompanyRepository ────────────────────────────────────────────────────────

type companyRepo struct {
	s  *Store
	tx *tx
}

func (r *companyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	if c := r.s.Company(id); c != nil {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (r *companyRepo) LockCounter(ctx context.Context, id string) (*entity.Company, error) {
	if r.s.Company(id) == nil {
		return nil, domain.ErrNotFound
	}
	if r.tx != nil {
		if err := r.tx.lock(ctx, id); err != nil {
			return nil, err
		}
	}
	// Releer con el bloqueo tomado.
	return r.GetByID(ctx, id)
}

func (r *companyRepo) UpdateCounter(_ context.Context, id string, state entity.CounterState) error {
	if r.s.Company(id) == nil {
		return domain.ErrNotFound
	}
	r.s.exec(r.tx, func() {
		if c, ok := r.s.companies[id]; ok {
			c.Counter = state
			c.UpdatedAt = time.Now()
		}
	})
	return nil
}

// ── InvoiceRepository ────────────────────────────────────────────────────────

type invoiceRepo struct {
	s  *Store
	tx *tx
}

func (r *invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	if inv := r.s.Invoice(id); inv != nil {
		return inv, nil
	}
	return nil, domain.ErrNotFound
}

func (r *invoiceRepo) update(id string, fn func(inv *entity.Invoice)) error {
	if r.s.Invoice(id) == nil {
		return domain.ErrNotFound
	}
	r.s.exec(r.tx, func() {
		if inv, ok := r.s.invoices[id]; ok {
			fn(inv)
			inv.UpdatedAt = time.Now()
		}
	})
	return nil
}

func (r *invoiceRepo) AssignIdentifiers(_ context.Context, id string, ids entity.Identifiers, queuedAt time.Time) error {
	return r.update(id, func(inv *entity.Invoice) {
		inv.DocumentID = ids.DocumentID
		inv.DocumentUUID = ids.DocumentUUID
		inv.AuditCounter = ids.AuditCounter
		inv.Status = entity.FotaraStatusQueued
		q := queuedAt
		inv.QueuedAt = &q
	})
}

func (r *invoiceRepo) MarkQueued(_ context.Context, id string, queuedAt time.Time) error {
	return r.update(id, func(inv *entity.Invoice) {
		inv.Status = entity.FotaraStatusQueued
		q := queuedAt
		inv.QueuedAt = &q
	})
}

// RefreshQueued compara y escribe bajo el mismo lock; no participa de transacciones.
func (r *invoiceRepo) RefreshQueued(_ context.Context, id string, queuedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	if inv.Status != entity.FotaraStatusQueued {
		return fmt.Errorf("%w: factura %s en estado %s", domain.ErrConflict, id, inv.Status)
	}
	q := queuedAt
	inv.QueuedAt = &q
	inv.UpdatedAt = time.Now()
	return nil
}

func (r *invoiceRepo) SetOutcome(_ context.Context, id, status, qrCode string) error {
	return r.update(id, func(inv *entity.Invoice) {
		inv.Status = status
		if qrCode != "" {
			inv.QRCode = qrCode
		}
	})
}

func (r *invoiceRepo) ListStaleQueued(_ context.Context, olderThan time.Time, limit int) ([]*entity.Invoice, error) {
	r.s.mu.RLock()
	var out []*entity.Invoice
	for _, inv := range r.s.invoices {
		if inv.Status == entity.FotaraStatusQueued && inv.QueuedAt != nil && inv.QueuedAt.Before(olderThan) {
			out = append(out, cloneInvoice(inv))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].QueuedAt.Before(*out[j].QueuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Customer / Address ───────────────────────────────────────────────────────

type customerRepo struct{ s *Store }

func (r *customerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c, ok := r.s.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type addressRepo struct{ s *Store }

func (r *addressRepo) GetByID(_ context.Context, id string) (*entity.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a, ok := r.s.addresses[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *addressRepo) GetPrimaryForCompany(ctx context.Context, companyID string) (*entity.Address, error) {
	r.s.mu.RLock()
	id, ok := r.s.companyAddr[companyID]
	r.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// ── SubmissionLogRepository ──────────────────────────────────────────────────

type logRepo struct {
	s  *Store
	tx *tx
}

func (r *logRepo) Create(_ context.Context, l *entity.SubmissionLog) error {
	cp := *l
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.s.exec(r.tx, func() { r.s.logs = append(r.s.logs, &cp) })
	return nil
}

func (r *logRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.SubmissionLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.SubmissionLog
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		if r.s.logs[i].InvoiceID == invoiceID {
			cp := *r.s.logs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── copias ───────────────────────────────────────────────────────────────────

func cloneCompany(c *entity.Company) *entity.Company {
	cp := *c
	if c.UOMMappings != nil {
		cp.UOMMappings = make(map[string]string, len(c.UOMMappings))
		for k, v := range c.UOMMappings {
			cp.UOMMappings[k] = v
		}
	}
	return &cp
}

func cloneInvoice(i *entity.Invoice) *entity.Invoice {
	cp := *i
	cp.Items = append([]entity.InvoiceItem(nil), i.Items...)
	cp.Taxes = append([]entity.InvoiceTax(nil), i.Taxes...)
	if i.QueuedAt != nil {
		q := *i.QueuedAt
		cp.QueuedAt = &q
	}
	return &cp
}
