package delivery

import (
	"context"
	"time"
)

/* Small interfaces for the collaborators the engine is handed
 * Each shared store is injected so tests can build isolated instances
 */

// ConfigStore resolves webhook configs by name
type ConfigStore interface {
	Get(name string) (WebhookConfig, bool)
}

// FailedStore holds deliveries that exhausted their attempts
type FailedStore interface {
	Enqueue(p Payload, cfg WebhookConfig, cause error) FailedDelivery
	/* Requeue appends an entry that went through replay, keeping its
	 * RetryCount and FirstFailedAt
	 */
	Requeue(fd FailedDelivery)
	Pop(name string, limit int) []FailedDelivery
	Names() []string
}

// AttachmentLoader resolves references to bytes; nil, nil means absent
type AttachmentLoader interface {
	Load(ctx context.Context, ref AttachmentReference) ([]byte, error)
}

// AttemptRequest is everything one transport attempt needs
type AttemptRequest struct {
	DeliveryID string
	Attempt    int
	Payload    Payload
	Encoding   Encoding
	Config     WebhookConfig
}

// Sender performs a single transport attempt and reports what it sent
type Sender interface {
	Attempt(ctx context.Context, req AttemptRequest) (Encoding, error)
}

// Sample is one attempt as seen by the metrics collector
type Sample struct {
	Encoding Encoding
	Success  bool
	Duration time.Duration
	Bytes    int64
	Degraded bool // payload asked for multipart, plain was sent
}

// Recorder receives one sample per attempt
type Recorder interface {
	Record(s Sample)
}

type nopRecorder struct{}

func (nopRecorder) Record(Sample) {}
