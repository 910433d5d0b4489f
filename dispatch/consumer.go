package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/shipment"
	"github.com/rs/zerolog"
)

const (
	DefaultReadCount     = 10
	DefaultRetryInterval = time.Second
)

// Submitter accepts jobs without blocking
type Submitter interface {
	Submit(job Job) error
	InFlight() int
}

// Heartbeater lets a consumer report that it is alive
type Heartbeater interface {
	SetWorkerHeartbeat(ctx context.Context, workerID, status string, inFlight int) error
}

/* Consumer turns intake messages into dispatch jobs
 * A message is acknowledged only after its job was accepted by the pool
 */
type Consumer struct {
	intake    shipment.Consumer
	pool      Submitter
	heartbeat Heartbeater
	workerID  string
	count     int64
	retry     time.Duration
	logger    zerolog.Logger
}

type ConsumerOption func(*Consumer)

// WithHeartbeat reports liveness under workerID on every read
func WithHeartbeat(h Heartbeater, workerID string) ConsumerOption {
	return func(c *Consumer) {
		c.heartbeat = h
		c.workerID = workerID
	}
}

// WithReadCount caps how many messages one read returns
func WithReadCount(n int64) ConsumerOption {
	return func(c *Consumer) { c.count = n }
}

// WithRetryInterval sets the wait after a read error or a full pool
func WithRetryInterval(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.retry = d }
}

func WithConsumerLogger(l zerolog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

func NewConsumer(intake shipment.Consumer, pool Submitter, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		intake: intake,
		pool:   pool,
		count:  DefaultReadCount,
		retry:  DefaultRetryInterval,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads until ctx is cancelled or the pool stops accepting jobs
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Str("worker_id", c.workerID).Msg("intake consumer started")

	for ctx.Err() == nil {
		c.beat(ctx, "idle")

		msgs, err := c.intake.Consume(ctx, c.count)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error().Err(err).Msg("reading intake stream")
			c.wait(ctx)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		c.beat(ctx, "processing")
		for _, msg := range msgs {
			if err := c.handle(ctx, msg); err != nil {
				if errors.Is(err, ErrPoolClosed) {
					return err
				}
				break
			}
		}
	}

	c.logger.Info().Str("worker_id", c.workerID).Msg("intake consumer stopped")
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg shipment.Message) error {
	webhook := msg.Update.Webhook
	if webhook == "" {
		webhook = delivery.DefaultWebhook
	}
	job := Job{
		Webhook: webhook,
		Payload: delivery.BuildPayload(msg.Update.Shipment, msg.Update.Acknowledgment),
	}

	for {
		err := c.pool.Submit(job)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrQueueFull) {
			c.logger.Error().Err(err).Str("stream_id", msg.StreamID).Msg("submitting intake message")
			return err
		}
		if !c.wait(ctx) {
			return ctx.Err()
		}
	}

	if err := c.intake.Acknowledge(ctx, msg.StreamID); err != nil {
		c.logger.Error().Err(err).Str("stream_id", msg.StreamID).Msg("acknowledging intake message")
	}
	return nil
}

func (c *Consumer) beat(ctx context.Context, status string) {
	if c.heartbeat == nil {
		return
	}
	if err := c.heartbeat.SetWorkerHeartbeat(ctx, c.workerID, status, c.pool.InFlight()); err != nil && ctx.Err() == nil {
		c.logger.Warn().Err(err).Msg("refreshing heartbeat")
	}
}

// wait sleeps for the retry interval; false if ctx ended first
func (c *Consumer) wait(ctx context.Context) bool {
	t := time.NewTimer(c.retry)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
