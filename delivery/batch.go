package delivery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// AttachmentBatchLimit caps in-flight deliveries when a batch carries attachments
	AttachmentBatchLimit = 3
	// SyncBatchLimit caps in-flight deliveries for plain batch sync
	SyncBatchLimit = 5
	// DefaultBatchPause separates consecutive chunks
	DefaultBatchPause = 500 * time.Millisecond
)

// BatchLimit picks the chunk size for a batch
func BatchLimit(payloads []Payload) int {
	for _, p := range payloads {
		if DecideEncoding(p) == Multipart {
			return AttachmentBatchLimit
		}
	}
	return SyncBatchLimit
}

// DeliverBatch delivers payloads in chunks sized by BatchLimit
func (s *Service) DeliverBatch(ctx context.Context, webhook string, payloads []Payload) (BatchResult, error) {
	return s.DeliverBatchWithLimit(ctx, webhook, payloads, BatchLimit(payloads))
}

/* DeliverBatchWithLimit fans payloads out limit at a time
 * A chunk must finish before the next starts, with a fixed pause between
 * chunks; individual failures never stop the batch
 */
func (s *Service) DeliverBatchWithLimit(ctx context.Context, webhook string, payloads []Payload, limit int) (BatchResult, error) {
	if limit < 1 {
		return BatchResult{}, fmt.Errorf("batch limit must be at least 1 (got %d)", limit)
	}

	out := BatchResult{Results: make([]Result, len(payloads))}

	cfg, ok := s.configs.Get(webhook)
	if !ok {
		for i := range payloads {
			out.Results[i] = Result{LastError: ConfigError(webhook, ErrWebhookNotFound)}
		}
		out.Failed = len(payloads)
		return out, nil
	}
	if cfg.Enabled {
		if err := cfg.Validate(); err != nil {
			return BatchResult{}, fmt.Errorf("validating webhook config: %w", err)
		}
	}

	for start := 0; start < len(payloads); start += limit {
		end := min(start+limit, len(payloads))

		if start > 0 && s.batchPause > 0 {
			if err := s.sleep(ctx, s.batchPause); err != nil {
				s.logger.Warn().Err(err).Str("webhook", webhook).Msg("batch pause interrupted")
			}
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				res, err := s.DeliverWith(ctx, payloads[i], cfg)
				if err != nil {
					return err
				}
				out.Results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return BatchResult{}, err
		}
		out.Chunks++
	}

	for _, res := range out.Results {
		if res.Success {
			out.Success++
		} else {
			out.Failed++
		}
	}

	s.logger.Info().
		Str("webhook", webhook).
		Int("total", len(payloads)).
		Int("success", out.Success).
		Int("failed", out.Failed).
		Int("chunks", out.Chunks).
		Msg("batch delivered")

	return out, nil
}
