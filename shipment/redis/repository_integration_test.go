//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/marcelsud/shipment-relay/shipment"
	"github.com/marcelsud/shipment-relay/shipment/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUpdate(id string) shipment.Update {
	return shipment.Update{
		Webhook: "partner",
		Shipment: shipment.Shipment{
			ID:             id,
			TrackingNumber: "TRK-" + id,
			Status:         "delivered",
			UpdatedAt:      time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC),
		},
		Acknowledgment: &shipment.Acknowledgment{
			ShipmentID:   id,
			SignatureURL: "/uploads/" + id + "/sig.png",
			CapturedAt:   time.Date(2024, 5, 10, 14, 29, 0, 0, time.UTC),
		},
	}
}

func TestRepository_Stream_Integration(t *testing.T) {
	ctx := context.Background()
	redisContainer, cleanup := SetupRedisContainer(t, ctx)
	defer cleanup()

	t.Run("publish and consume an update", func(t *testing.T) {
		repo := CreateTestRepository(t, redisContainer.Addr, "worker-a")
		defer repo.Close(ctx)

		streamID, err := repo.Publish(ctx, sampleUpdate("SHP-1"))
		require.NoError(t, err)
		assert.NotEmpty(t, streamID)

		msgs, err := repo.Consume(ctx, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		got := msgs[0]
		assert.Equal(t, streamID, got.StreamID)
		assert.NotEmpty(t, got.Update.ID)
		assert.Equal(t, "partner", got.Update.Webhook)
		assert.Equal(t, "SHP-1", got.Update.Shipment.ID)
		assert.Equal(t, "delivered", got.Update.Shipment.Status)
		require.NotNil(t, got.Update.Acknowledgment)
		assert.Equal(t, "/uploads/SHP-1/sig.png", got.Update.Acknowledgment.SignatureURL)
		assert.True(t, got.Update.Shipment.UpdatedAt.Equal(sampleUpdate("SHP-1").Shipment.UpdatedAt))
	})

	t.Run("empty stream returns no messages", func(t *testing.T) {
		repo := CreateTestRepository(t, redisContainer.Addr, "worker-a")
		defer repo.Close(ctx)

		msgs, err := repo.Consume(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("count caps the messages returned", func(t *testing.T) {
		repo := CreateTestRepository(t, redisContainer.Addr, "worker-a")
		defer repo.Close(ctx)

		for _, id := range []string{"SHP-1", "SHP-2", "SHP-3"} {
			_, err := repo.Publish(ctx, sampleUpdate(id))
			require.NoError(t, err)
		}

		first, err := repo.Consume(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, first, 2)

		rest, err := repo.Consume(ctx, 2)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "SHP-3", rest[0].Update.Shipment.ID)
	})

	t.Run("acknowledge clears the pending entry", func(t *testing.T) {
		repo := CreateTestRepository(t, redisContainer.Addr, "worker-a")
		defer repo.Close(ctx)

		_, err := repo.Publish(ctx, sampleUpdate("SHP-1"))
		require.NoError(t, err)

		msgs, err := repo.Consume(ctx, 1)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		require.NoError(t, repo.Acknowledge(ctx, msgs[0].StreamID))

		pending, err := repo.GetClient().XPending(ctx, repo.Stream(), redis.DefaultGroup).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), pending.Count)
	})

	t.Run("backlog counts stream entries", func(t *testing.T) {
		repo := CreateTestRepository(t, redisContainer.Addr, "worker-a")
		defer repo.Close(ctx)

		n, err := repo.Backlog(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		for _, id := range []string{"SHP-1", "SHP-2"} {
			_, err := repo.Publish(ctx, sampleUpdate(id))
			require.NoError(t, err)
		}

		n, err = repo.Backlog(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("unreadable entries are skipped and acked", func(t *testing.T) {
		repo := CreateTestRepository(t, redisContainer.Addr, "worker-a")
		defer repo.Close(ctx)
		stream := repo.Stream()

		require.NoError(t, repo.GetClient().XAdd(ctx, &goredis.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{"update": "{not json"},
		}).Err())
		_, err := repo.Publish(ctx, sampleUpdate("SHP-9"))
		require.NoError(t, err)

		msgs, err := repo.Consume(ctx, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "SHP-9", msgs[0].Update.Shipment.ID)
	})
}

func TestRepository_Heartbeat_Integration(t *testing.T) {
	ctx := context.Background()
	redisContainer, cleanup := SetupRedisContainer(t, ctx)
	defer cleanup()

	repo := CreateTestRepository(t, redisContainer.Addr, "worker-a")
	defer repo.Close(ctx)

	t.Run("heartbeats are listed with a TTL", func(t *testing.T) {
		require.NoError(t, repo.SetWorkerHeartbeat(ctx, "worker-a", "idle", 0))
		require.NoError(t, repo.SetWorkerHeartbeat(ctx, "worker-b", "processing", 3))

		workers, err := repo.GetActiveWorkers(ctx)
		require.NoError(t, err)
		require.Len(t, workers, 2)

		byID := map[string]int{}
		for _, w := range workers {
			byID[w.WorkerID] = w.InFlight
		}
		assert.Equal(t, 0, byID["worker-a"])
		assert.Equal(t, 3, byID["worker-b"])

		ttl := KeyTTL(t, redisContainer.Addr, "relay:heartbeat:worker-b")
		assert.Greater(t, ttl, 50*time.Second)
	})
}
