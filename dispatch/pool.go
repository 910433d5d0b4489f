package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/rs/zerolog"
)

var (
	ErrQueueFull  = errors.New("dispatch queue is full")
	ErrPoolClosed = errors.New("dispatch pool is closed")
)

// Job is one fire-and-forget delivery
type Job struct {
	Webhook string
	Payload delivery.Payload
}

// Deliverer is the part of delivery.UseCase the pool needs
type Deliverer interface {
	Deliver(ctx context.Context, webhook string, p delivery.Payload) (delivery.Result, error)
}

/* Pool runs deliveries on a fixed number of workers behind a bounded queue
 * Submit never waits; results are logged and never reach the submitter
 */
type Pool struct {
	deliverer Deliverer
	workers   int
	jobs      chan Job
	logger    zerolog.Logger

	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	inFlight atomic.Int32
}

type PoolOption func(*Pool)

func WithLogger(l zerolog.Logger) PoolOption {
	return func(p *Pool) { p.logger = l }
}

// NewPool creates a pool with workers goroutines and room for size queued jobs
func NewPool(d Deliverer, workers, size int, opts ...PoolOption) *Pool {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	p := &Pool{
		deliverer: d,
		workers:   workers,
		jobs:      make(chan Job, size),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers; deliveries run under ctx
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	p.logger.Info().Int("workers", p.workers).Int("queue_size", cap(p.jobs)).Msg("dispatch pool started")
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.inFlight.Add(1)
		p.run(ctx, id, job)
		p.inFlight.Add(-1)
	}
}

func (p *Pool) run(ctx context.Context, worker int, job Job) {
	log := p.logger.With().
		Int("worker", worker).
		Str("webhook", job.Webhook).
		Str("shipment_id", job.Payload.ShipmentID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("delivery panicked")
		}
	}()

	res, err := p.deliverer.Deliver(ctx, job.Webhook, job.Payload)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("delivery rejected")
	case !res.Success:
		log.Warn().
			Err(res.LastError).
			Str("delivery_id", res.DeliveryID).
			Int("attempts", res.Attempts).
			Msg("background delivery failed")
	default:
		log.Debug().
			Str("delivery_id", res.DeliveryID).
			Int("attempts", res.Attempts).
			Msg("background delivery succeeded")
	}
}

// Submit queues a job without blocking
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		p.logger.Warn().
			Str("webhook", job.Webhook).
			Str("shipment_id", job.Payload.ShipmentID).
			Msg("dispatch queue full, job rejected")
		return ErrQueueFull
	}
}

// InFlight is how many deliveries are running right now
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Queued is how many jobs wait for a worker
func (p *Pool) Queued() int {
	return len(p.jobs)
}

// Stop rejects new jobs and waits for queued ones to finish
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("dispatch pool stopped")
}
