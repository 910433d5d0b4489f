package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

/* Service is the retry controller plus the batch and replay drivers
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the delivery operations callers depend on
type UseCase interface {
	Deliver(ctx context.Context, webhook string, p Payload) (Result, error)
	DeliverWith(ctx context.Context, p Payload, cfg WebhookConfig) (Result, error)
	DeliverBatch(ctx context.Context, webhook string, payloads []Payload) (BatchResult, error)
	DeliverBatchWithLimit(ctx context.Context, webhook string, payloads []Payload, limit int) (BatchResult, error)
	Replay(ctx context.Context) ReplayResult
}

type Service struct {
	configs    ConfigStore
	sender     Sender
	failed     FailedStore
	logger     zerolog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	batchPause time.Duration
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the source of DeliveredAt timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSleeper overrides how backoff and batch pauses wait
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithBatchPause sets the fixed pause between batch chunks
func WithBatchPause(d time.Duration) Option {
	return func(s *Service) { s.batchPause = d }
}

// NewService creates a new delivery service with dependency injection
func NewService(configs ConfigStore, sender Sender, failed FailedStore, opts ...Option) *Service {
	s := &Service{
		configs:    configs,
		sender:     sender,
		failed:     failed,
		logger:     zerolog.Nop(),
		now:        time.Now,
		sleep:      sleepContext,
		batchPause: DefaultBatchPause,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver resolves webhook by name and delivers p to it
func (s *Service) Deliver(ctx context.Context, webhook string, p Payload) (Result, error) {
	cfg, ok := s.configs.Get(webhook)
	if !ok {
		s.logger.Warn().Str("webhook", webhook).Msg("delivery to unknown webhook")
		return Result{LastError: ConfigError(webhook, ErrWebhookNotFound)}, nil
	}
	return s.DeliverWith(ctx, p, cfg)
}

/* DeliverWith runs the full retry lifecycle against cfg
 * Delivery failures come back inside Result; only a malformed config is
 * returned as an error
 */
func (s *Service) DeliverWith(ctx context.Context, p Payload, cfg WebhookConfig) (Result, error) {
	if !cfg.Enabled {
		return Result{WebhookURL: cfg.URL, LastError: ConfigError(cfg.Name, ErrWebhookDisabled)}, nil
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("validating webhook config: %w", err)
	}

	res := s.run(ctx, p, cfg)
	if !res.Success {
		fd := s.failed.Enqueue(p, cfg, res.LastError)
		s.logger.Warn().
			Str("delivery_id", res.DeliveryID).
			Str("failed_id", fd.ID).
			Str("webhook", cfg.Name).
			Str("shipment_id", p.ShipmentID).
			Msg("delivery moved to failed queue")
	}
	return res, nil
}

func (s *Service) run(ctx context.Context, p Payload, cfg WebhookConfig) Result {
	res := Result{
		DeliveryID: uuid.NewString(),
		WebhookURL: cfg.URL,
	}
	log := s.logger.With().
		Str("delivery_id", res.DeliveryID).
		Str("webhook", cfg.Name).
		Str("shipment_id", p.ShipmentID).
		Logger()

	state := Pending
	forcePlain := false
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		state = Attempting
		enc := DecideEncoding(p)
		if forcePlain {
			enc = Plain
		}

		sent, err := s.sender.Attempt(ctx, AttemptRequest{
			DeliveryID: res.DeliveryID,
			Attempt:    attempt,
			Payload:    p,
			Encoding:   enc,
			Config:     cfg,
		})
		res.Attempts = attempt
		res.Encoding = sent

		if err == nil {
			state = Succeeded
			deliveredAt := s.now()
			res.Success = true
			res.DeliveredAt = &deliveredAt
			log.Info().
				Int("attempt", attempt).
				Str("encoding", sent.String()).
				Str("state", state.String()).
				Msg("delivery succeeded")
			return res
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}

		// the final attempt goes out without attachments
		if sent == Multipart && KindOf(err) == KindFile && attempt == cfg.MaxRetries-1 {
			forcePlain = true
			log.Warn().Err(err).Int("attempt", attempt).Msg("attachment failure, falling back to plain")
		}

		delay := Backoff(sent, cfg.RetryDelay, attempt)
		state = RetryWait
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("encoding", sent.String()).
			Str("kind", KindOf(err).String()).
			Dur("backoff", delay).
			Str("state", state.String()).
			Msg("delivery attempt failed")

		if werr := s.sleep(ctx, delay); werr != nil {
			log.Warn().Err(werr).Msg("backoff interrupted")
			break
		}
	}

	state = Exhausted
	res.LastError = ExhaustedError(res.Attempts, lastErr)
	log.Error().
		Err(lastErr).
		Int("attempts", res.Attempts).
		Str("state", state.String()).
		Msg("delivery exhausted")
	return res
}
