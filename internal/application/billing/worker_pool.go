package billing

import (
	"context"
	"errors"
	"sync"

	"github.com/jhoicas/fotara-api/pkg/logger"
)

// ErrQueueClosed se devuelve al encolar después de Close.
var ErrQueueClosed = errors.New("cola de envíos cerrada")

var (
	_ JobQueue    = (*WorkerPool)(nil)
	_ JobConsumer = (*WorkerPool)(nil)
)

// WorkerPool cola en proceso con N workers. Cada Job se procesa por un solo worker.
// Todo Job aceptado por Enqueue se procesa antes de que Close retorne.
type WorkerPool struct {
	jobs    chan Job
	done    chan struct{} // cerrado al iniciar Close; despierta a los Enqueue bloqueados
	workers int
	log     *logger.Logger

	mu       sync.RWMutex
	closed   bool
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorkerPool crea la cola con capacidad buffer y workers goroutines.
func NewWorkerPool(workers, buffer int, lg *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 256
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &WorkerPool{
		jobs:    make(chan Job, buffer),
		done:    make(chan struct{}),
		workers: workers,
		log:     lg.Component("worker_pool"),
	}
}

// Enqueue agrega el Job. Con el buffer lleno espera hasta que haya lugar, ctx se cancele
// o la cola se cierre (ErrQueueClosed).
func (p *WorkerPool) Enqueue(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case <-p.done:
		return ErrQueueClosed
	default:
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start lanza los workers. ctx solo se entrega a handle: los workers siguen vaciando
// el buffer hasta Close, así ningún Job aceptado queda sin procesar.
func (p *WorkerPool) Start(ctx context.Context, handle JobHandler) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for job := range p.jobs {
				p.log.Debug().Int("worker", workerID).Str("invoice_id", job.InvoiceID).Msg("procesando envío")
				handle(ctx, job)
			}
		}(i)
	}
}

// Close deja de aceptar trabajos, procesa lo que queda en el buffer y espera a los workers.
func (p *WorkerPool) Close() {
	p.doneOnce.Do(func() { close(p.done) })

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()

	if n := len(p.jobs); n > 0 {
		// Sin Start no hay quien los procese; RequeueStale los recupera.
		p.log.Warn().Int("pending", n).Msg("cola cerrada con trabajos sin procesar")
	}
}
