package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/pkg/logger"
)

var (
	_ billing.JobQueue    = (*RedisQueue)(nil)
	_ billing.JobConsumer = (*RedisQueue)(nil)
)

// pollTimeout es lo que espera cada BRPOP; al vencer el worker revisa ctx y vuelve a esperar.
const pollTimeout = 2 * time.Second

// RedisQueue cola de la fase asíncrona sobre una lista de Redis (LPUSH / BRPOP).
// Sobrevive reinicios del proceso y reparte trabajos entre varias instancias de la API.
type RedisQueue struct {
	client  *redis.Client
	key     string
	workers int
	log     *logger.Logger
	wg      sync.WaitGroup
}

// NewRedisQueue construye la cola. workers <= 0 usa uno.
func NewRedisQueue(client *redis.Client, key string, workers int, lg *logger.Logger) *RedisQueue {
	if workers <= 0 {
		workers = 1
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &RedisQueue{client: client, key: key, workers: workers, log: lg.Component("redis_queue")}
}

// Enqueue serializa el Job en JSON y lo agrega a la lista.
func (q *RedisQueue) Enqueue(ctx context.Context, job billing.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serializar job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("LPUSH %s: %w", q.key, err)
	}
	return nil
}

// Start lanza los workers; cada uno bloquea en BRPOP hasta que ctx se cancela.
func (q *RedisQueue) Start(ctx context.Context, handle billing.JobHandler) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.consume(ctx, id, handle)
		}(i + 1)
	}
}

// Wait bloquea hasta que todos los workers terminaron (tras cancelar el ctx de Start).
func (q *RedisQueue) Wait() {
	q.wg.Wait()
}

func (q *RedisQueue) consume(ctx context.Context, id int, handle billing.JobHandler) {
	lg := q.log.With().Int("worker", id).Logger()
	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, pollTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			lg.Warn().Err(err).Msg("BRPOP falló; reintentando")
			sleep(ctx, time.Second)
			continue
		}
		// res = [key, value]
		job, err := DecodeJob(res[len(res)-1])
		if err != nil {
			lg.Error().Err(err).Str("payload", res[len(res)-1]).Msg("job descartado")
			continue
		}
		handle(ctx, job)
	}
}

// DecodeJob interpreta un payload de la cola.
func DecodeJob(payload string) (billing.Job, error) {
	var job billing.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return job, fmt.Errorf("job inválido: %w", err)
	}
	if job.InvoiceID == "" {
		return job, errors.New("job inválido: invoice_id vacío")
	}
	return job, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
