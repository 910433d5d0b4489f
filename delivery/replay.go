package delivery

import "context"

const (
	// ReplayBatchSize is how many entries per webhook one replay cycle takes
	ReplayBatchSize = 10
	// MaxReplayRetries is the replay count at which an entry is dropped
	MaxReplayRetries = 5
)

/* Replay re-runs queued deliveries, up to ReplayBatchSize per webhook
 * The current registry config wins over the snapshot stored with the
 * entry; entries for a disabled webhook are put back untouched
 */
func (s *Service) Replay(ctx context.Context) ReplayResult {
	var out ReplayResult

	for _, name := range s.failed.Names() {
		for _, fd := range s.failed.Pop(name, ReplayBatchSize) {
			out.Processed++

			cfg := fd.Config
			if current, ok := s.configs.Get(name); ok {
				cfg = current
			}

			if !cfg.Enabled {
				s.failed.Requeue(fd)
				out.StillFailed++
				continue
			}

			var res Result
			if err := cfg.Validate(); err != nil {
				res = Result{LastError: err}
			} else {
				res = s.run(ctx, fd.Payload, cfg)
			}

			if res.Success {
				out.Successful++
				s.logger.Info().
					Str("failed_id", fd.ID).
					Str("webhook", name).
					Int("retry_count", fd.RetryCount).
					Msg("replayed delivery succeeded")
				continue
			}

			out.StillFailed++
			fd.RetryCount++
			fd.LastError = res.LastError

			if fd.RetryCount < MaxReplayRetries {
				s.failed.Requeue(fd)
				continue
			}

			out.Dropped++
			s.logger.Error().
				Err(fd.LastError).
				Str("failed_id", fd.ID).
				Str("webhook", name).
				Str("shipment_id", fd.Payload.ShipmentID).
				Time("first_failed_at", fd.FirstFailedAt).
				Int("retry_count", fd.RetryCount).
				Msg("dropping unrecoverable delivery")
		}
	}

	return out
}
