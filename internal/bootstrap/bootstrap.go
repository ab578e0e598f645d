// Package bootstrap arma el grafo de dependencias compartido por la API y la CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	domfotara "github.com/jhoicas/fotara-api/internal/domain/fotara"
	"github.com/jhoicas/fotara-api/internal/infrastructure/broker"
	infrafotara "github.com/jhoicas/fotara-api/internal/infrastructure/fotara"
	infrapdf "github.com/jhoicas/fotara-api/internal/infrastructure/pdf"
	"github.com/jhoicas/fotara-api/internal/infrastructure/postgres"
	"github.com/jhoicas/fotara-api/pkg/config"
	"github.com/jhoicas/fotara-api/pkg/logger"
	"github.com/jhoicas/fotara-api/pkg/secret"
)

// Services dependencias ya construidas. Close libera conexiones en orden inverso.
type Services struct {
	Pool         *pgxpool.Pool
	Redis        *redis.Client // nil con FOTARA_QUEUE=memory
	Orchestrator *billing.FotaraOrchestrator
	Receipt      *billing.ReceiptUseCase
	Consumer     billing.JobConsumer
	Box          *secret.Box

	pool    *billing.WorkerPool
	rq      *broker.RedisQueue
	closers []func()
}

// Build conecta PostgreSQL (y Redis si aplica) y construye el orquestador.
func Build(ctx context.Context, cfg *config.Config, lg *logger.Logger) (*Services, error) {
	s := &Services{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Parámetros de negocio
	// ═══════════════════════════════════════════════════════════════════════════
	loc, err := domfotara.LoadLocation(cfg.Fotara.Timezone)
	if err != nil {
		return nil, err
	}
	rules, err := domfotara.ParseRules(cfg.Fotara.CreditIDThreshold)
	if err != nil {
		return nil, err
	}
	if s.Box, err = secret.NewBox(cfg.App.SecretMasterKey); err != nil {
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Persistencia
	// ═══════════════════════════════════════════════════════════════════════════
	if s.Pool, err = postgres.NewPool(ctx, cfg.DB); err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	s.closers = append(s.closers, s.Pool.Close)

	companyRepo := postgres.NewCompanyRepository(s.Pool, s.Box)
	invoiceRepo := postgres.NewInvoiceRepository(s.Pool)
	customerRepo := postgres.NewCustomerRepository(s.Pool)
	addressRepo := postgres.NewAddressRepository(s.Pool)
	logRepo := postgres.NewSubmissionLogRepository(s.Pool)
	txRunner := postgres.NewTxRunner(s.Pool, s.Box)

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Cola asíncrona y notificaciones
	// ═══════════════════════════════════════════════════════════════════════════
	var (
		queue    billing.JobQueue
		notifier billing.Notifier
	)
	switch cfg.Fotara.Queue {
	case config.QueueRedis:
		if s.Redis, err = broker.NewRedisClient(ctx, cfg.Redis); err != nil {
			return nil, err
		}
		client := s.Redis
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.rq = broker.NewRedisQueue(s.Redis, cfg.Redis.QueueKey, cfg.Fotara.Workers, lg)
		queue, s.Consumer = s.rq, s.rq
		notifier = broker.NewRedisNotifier(s.Redis)
	default:
		s.pool = billing.NewWorkerPool(cfg.Fotara.Workers, 0, lg)
		queue, s.Consumer = s.pool, s.pool
		notifier = billing.NewLogNotifier(lg)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Casos de uso
	// ═══════════════════════════════════════════════════════════════════════════
	builder := infrafotara.NewXMLBuilder(infrafotara.BuilderConfig{
		HomeCountry:     cfg.Fotara.HomeCountry,
		DefaultCityCode: cfg.Fotara.DefaultCityCode,
		Location:        loc,
	})
	docs := billing.NewDocumentService(invoiceRepo, customerRepo, addressRepo, builder)
	submitter := infrafotara.NewAPIClient(infrafotara.ClientConfig{
		Endpoint: cfg.Fotara.APIURL,
		Timeout:  cfg.Fotara.RequestTimeout,
	})

	s.Orchestrator = billing.NewFotaraOrchestrator(billing.OrchestratorDeps{
		Companies:      companyRepo,
		Invoices:       invoiceRepo,
		SubmissionLogs: logRepo,
		Tx:             txRunner,
		Issuer:         billing.NewIdentifierIssuer(txRunner, loc),
		Documents:      docs,
		Submitter:      submitter,
		Queue:          queue,
		Notifier:       notifier,
		Rules:          &rules,
		Logger:         lg,
	})
	s.Receipt = billing.NewReceiptUseCase(invoiceRepo, companyRepo, docs, infrapdf.NewMarotoReceiptGenerator())

	ok = true
	return s, nil
}

// Drain cierra la cola en memoria y espera a que se procesen los trabajos pendientes.
// Las conexiones siguen abiertas. Con Redis no hace nada.
func (s *Services) Drain() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Close espera a los workers y cierra las conexiones. Con Redis, el ctx pasado a
// Consumer.Start debe estar cancelado antes de llamar a Close.
func (s *Services) Close() {
	s.Drain()
	if s.rq != nil {
		s.rq.Wait()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
