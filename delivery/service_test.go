package delivery_test

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/delivery/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("success - first attempt", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		sender.On("Attempt", mock.Anything, delivery.MatchAttempt(func(req delivery.AttemptRequest) bool {
			return req.Attempt == 1 &&
				req.Encoding == delivery.Plain &&
				req.Payload.ShipmentID == "shp_1" &&
				req.DeliveryID != ""
		})).Return(delivery.Plain, nil).Once()

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, plainPayload("shp_1"))

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, delivery.Plain, res.Encoding)
		assert.NotNil(t, res.DeliveredAt)
		assert.Nil(t, res.LastError)
		assert.Equal(t, "https://partner.example.com/hooks", res.WebhookURL)
		assert.Empty(t, f.sleeper.recorded())
		assert.Equal(t, 0, f.queue.Len(delivery.DefaultWebhook))
	})

	t.Run("success - after a retry", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Plain, delivery.HTTPError(502, "bad gateway")).Once()
		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Plain, nil).Once()

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, plainPayload("shp_1"))

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 2, res.Attempts)
		assert.Equal(t, []time.Duration{time.Second}, f.sleeper.recorded())
	})

	t.Run("network failures exhaust and enqueue once", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		sender.On("Attempt", mock.Anything, mock.Anything).
			Return(delivery.Plain, delivery.NetworkError(syscall.ECONNREFUSED)).Times(3)

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, plainPayload("shp_1"))

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 3, res.Attempts)
		assert.Nil(t, res.DeliveredAt)
		assert.Equal(t, delivery.KindExhausted, delivery.KindOf(res.LastError))
		assert.Equal(t, delivery.KindNetwork, delivery.CauseKind(res.LastError))

		queued := f.queue.List(delivery.DefaultWebhook)
		require.Len(t, queued, 1)
		assert.Equal(t, "shp_1", queued[0].Payload.ShipmentID)
		assert.Equal(t, 0, queued[0].RetryCount)
	})

	t.Run("single attempt config never waits", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(1), sender)

		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Plain, delivery.HTTPError(500, "")).Once()

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, plainPayload("shp_1"))

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, 500, delivery.StatusCode(res.LastError))
		assert.Empty(t, f.sleeper.recorded())
	})

	t.Run("unknown webhook makes no attempt", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		res, err := f.service.Deliver(ctx, "nope", plainPayload("shp_1"))

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 0, res.Attempts)
		assert.Equal(t, delivery.KindConfig, delivery.KindOf(res.LastError))
		assert.ErrorIs(t, res.LastError, delivery.ErrWebhookNotFound)
		assert.Empty(t, f.queue.Names())
	})

	t.Run("disabled webhook makes no attempt", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)
		require.True(t, f.registry.Toggle(delivery.DefaultWebhook, false))

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, plainPayload("shp_1"))

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 0, res.Attempts)
		assert.ErrorIs(t, res.LastError, delivery.ErrWebhookDisabled)
		assert.Empty(t, f.queue.Names())
	})
}

func TestDeliverWith(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed config is an error", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		cfg := webhookConfig(0)
		_, err := f.service.DeliverWith(ctx, plainPayload("shp_1"), cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating webhook config")
	})

	t.Run("disabled config wins over validation", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		cfg := delivery.WebhookConfig{Name: "partner"}
		res, err := f.service.DeliverWith(ctx, plainPayload("shp_1"), cfg)

		require.NoError(t, err)
		assert.Equal(t, delivery.KindConfig, delivery.KindOf(res.LastError))
	})

	t.Run("ad hoc config is enqueued under its own name", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Plain, delivery.HTTPError(404, "")).Once()

		cfg := webhookConfig(1)
		cfg.Name = "adhoc"
		res, err := f.service.DeliverWith(ctx, plainPayload("shp_1"), cfg)

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 1, f.queue.Len("adhoc"))
	})
}

func TestDeliver_Backoff(t *testing.T) {
	ctx := context.Background()

	t.Run("plain grows linearly", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(4), sender)

		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Plain, delivery.HTTPError(503, "")).Times(4)

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, plainPayload("shp_1"))

		require.NoError(t, err)
		assert.Equal(t, 4, res.Attempts)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, f.sleeper.recorded())
	})

	t.Run("multipart grows exponentially", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(4), sender)

		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Multipart, delivery.HTTPError(503, "")).Times(4)

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, ackPayload("shp_1"))

		require.NoError(t, err)
		assert.Equal(t, 4, res.Attempts)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, f.sleeper.recorded())
	})

	t.Run("backoff follows the encoding actually sent", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		// attachments were missing so the sender went plain
		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Plain, delivery.HTTPError(503, "")).Times(3)

		_, err := f.service.Deliver(ctx, delivery.DefaultWebhook, ackPayload("shp_1"))

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeper.recorded())
	})

	t.Run("cancelled wait stops the lifecycle", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(5), sender)
		f.sleeper.err = context.Canceled

		sender.On("Attempt", mock.Anything, mock.Anything).Return(delivery.Plain, delivery.HTTPError(503, "")).Once()

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, plainPayload("shp_1"))

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, delivery.KindExhausted, delivery.KindOf(res.LastError))
		assert.Equal(t, 1, f.queue.Len(delivery.DefaultWebhook))
	})
}

func TestDeliver_PlainFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("file faults switch the last attempt to plain", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)
		fileErr := delivery.FileError(errors.New("permission denied"))

		sender.On("Attempt", mock.Anything, delivery.MatchAttempt(func(req delivery.AttemptRequest) bool {
			return req.Attempt < 3 && req.Encoding == delivery.Multipart
		})).Return(delivery.Multipart, fileErr).Twice()
		sender.On("Attempt", mock.Anything, delivery.MatchAttempt(func(req delivery.AttemptRequest) bool {
			return req.Attempt == 3 && req.Encoding == delivery.Plain
		})).Return(delivery.Plain, nil).Once()

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, ackPayload("shp_1"))

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 3, res.Attempts)
		assert.Equal(t, delivery.Plain, res.Encoding)
	})

	t.Run("http faults keep multipart", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(3), sender)

		sender.On("Attempt", mock.Anything, delivery.MatchAttempt(func(req delivery.AttemptRequest) bool {
			return req.Encoding == delivery.Multipart
		})).Return(delivery.Multipart, delivery.HTTPError(500, "")).Times(3)

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, ackPayload("shp_1"))

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, delivery.Multipart, res.Encoding)
	})

	t.Run("early file faults do not fall back yet", func(t *testing.T) {
		sender := mocks.NewSender(t)
		f := newFixture(t, webhookConfig(4), sender)
		fileErr := delivery.FileError(errors.New("io timeout"))

		sender.On("Attempt", mock.Anything, delivery.MatchAttempt(func(req delivery.AttemptRequest) bool {
			return req.Attempt == 1 && req.Encoding == delivery.Multipart
		})).Return(delivery.Multipart, fileErr).Once()
		sender.On("Attempt", mock.Anything, delivery.MatchAttempt(func(req delivery.AttemptRequest) bool {
			return req.Attempt == 2 && req.Encoding == delivery.Multipart
		})).Return(delivery.Multipart, nil).Once()

		res, err := f.service.Deliver(ctx, delivery.DefaultWebhook, ackPayload("shp_1"))

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, delivery.Multipart, res.Encoding)
	})
}
