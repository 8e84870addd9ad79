package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"pharmapos/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueAlerts = "jobs:alerts"

const (
	JobLowStock = "low_stock"
	JobExpiry   = "expiry"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueLowStock pushes a reorder alert for one batch.
func (d *Dispatcher) EnqueueLowStock(ctx context.Context, payload LowStockPayload) error {
	return d.enqueue(ctx, QueueAlerts, JobLowStock, payload)
}

// EnqueueExpiry pushes an expiry digest for one store.
func (d *Dispatcher) EnqueueExpiry(ctx context.Context, payload ExpiryPayload) error {
	return d.enqueue(ctx, QueueAlerts, JobExpiry, payload)
}

// MarkOnce sets key if absent and reports whether this call set it.
func (d *Dispatcher) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.rdb.SetNX(ctx, key, 1, ttl).Result()
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// HandlerFunc processes one job payload. A non-nil error schedules a retry.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Pool consumes QueueAlerts with a fixed number of goroutines.
type Pool struct {
	rdb         *redis.Client
	dispatcher  *Dispatcher
	maxAttempts int
	metrics     *metrics.Metrics

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewPool(rdb *redis.Client, maxAttempts int, m *metrics.Metrics) *Pool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Pool{
		rdb:         rdb,
		dispatcher:  NewDispatcher(rdb),
		maxAttempts: maxAttempts,
		metrics:     m,
		handlers:    make(map[string]HandlerFunc),
	}
}

// Handle registers the handler for a job type.
func (p *Pool) Handle(jobType string, h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[jobType] = h
}

// popErrorBackoff is the pause after a failed BRPOP other than a timeout.
const popErrorBackoff = time.Second

// Start launches numWorkers goroutines consuming the alerts queue.
// Each goroutine blocks on BRPOP and is idle between jobs.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueAlerts).Result()
			if err != nil {
				// redis.Nil is the BRPOP timeout.
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed, backing off")
					select {
					case <-ctx.Done():
					case <-time.After(popErrorBackoff):
					}
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

// processJob runs one raw job. Failures are re-queued with attempts+1 until
// maxAttempts, then moved to the dead letter queue.
func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, "unknown", json.RawMessage(fmt.Sprintf("%q", raw)), "malformed job: "+err.Error(), 0)
		return
	}

	p.mu.RLock()
	h, ok := p.handlers[job.Type]
	p.mu.RUnlock()
	if !ok {
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, "no handler registered", job.Attempts)
		p.metrics.RecordJob(job.Type, "dlq")
		return
	}

	err := h(ctx, job.Payload)
	if err == nil {
		p.metrics.RecordJob(job.Type, "ok")
		return
	}

	job.Attempts++
	if job.Attempts >= p.maxAttempts {
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		p.metrics.RecordJob(job.Type, "dlq")
		return
	}
	log.Warn().Err(err).
		Str("type", job.Type).
		Int("attempt", job.Attempts).
		Msg("job failed, re-queueing")
	if pushErr := p.dispatcher.push(ctx, queue, job); pushErr != nil {
		log.Error().Err(pushErr).Str("type", job.Type).Msg("failed to re-queue job")
	}
	p.metrics.RecordJob(job.Type, "retry")
}
