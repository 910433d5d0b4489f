package delivery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/delivery/retryqueue"
	"github.com/marcelsud/shipment-relay/registry"
	"github.com/stretchr/testify/require"
)

var syncedAt = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func plainPayload(id string) delivery.Payload {
	return delivery.Payload{ShipmentID: id, Status: "IN_TRANSIT", SyncedAt: syncedAt}
}

func ackPayload(id string) delivery.Payload {
	return delivery.Payload{
		ShipmentID: id,
		Status:     "DELIVERED",
		SyncedAt:   syncedAt,
		Acknowledgment: &delivery.Acknowledgment{
			CapturedAt: syncedAt.Add(-time.Minute),
			Signature:  delivery.AttachmentReference{Locator: "/uploads/" + id + "/sig.png", Kind: delivery.SignatureAttachment},
		},
	}
}

func webhookConfig(maxRetries int) delivery.WebhookConfig {
	return delivery.WebhookConfig{
		Name:       delivery.DefaultWebhook,
		URL:        "https://partner.example.com/hooks",
		Token:      "tok",
		MaxRetries: maxRetries,
		RetryDelay: time.Second,
		Timeout:    10 * time.Second,
		Enabled:    true,
	}
}

// sleepRecorder captures every wait the service asks for without waiting
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return s.err
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type fixture struct {
	registry *registry.Registry
	queue    *retryqueue.Queue
	sleeper  *sleepRecorder
	service  *delivery.Service
}

func newFixture(t *testing.T, cfg delivery.WebhookConfig, sender delivery.Sender) fixture {
	t.Helper()
	f := fixture{
		registry: registry.New(cfg),
		queue:    retryqueue.New(),
		sleeper:  &sleepRecorder{},
	}
	f.service = delivery.NewService(f.registry, sender, f.queue, delivery.WithSleeper(f.sleeper.sleep))
	require.NotNil(t, f.service)
	return f
}
