package retryqueue_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/delivery/retryqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(id string) delivery.Payload {
	return delivery.Payload{ShipmentID: id, Status: "in_transit", SyncedAt: time.Now()}
}

func config(name string) delivery.WebhookConfig {
	return delivery.WebhookConfig{Name: name, URL: "https://partner.example.com/hook", MaxRetries: 3, Timeout: time.Second, Enabled: true}
}

func TestQueue_Enqueue(t *testing.T) {
	t.Run("new entries start at retry count 0", func(t *testing.T) {
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		q := retryqueue.New(retryqueue.WithClock(func() time.Time { return fixed }))

		fd := q.Enqueue(payload("shp_1"), config("default"), errors.New("boom"))

		assert.NotEmpty(t, fd.ID)
		assert.Equal(t, 0, fd.RetryCount)
		assert.Equal(t, fixed, fd.FirstFailedAt)
		assert.EqualError(t, fd.LastError, "boom")
		assert.Equal(t, 1, q.Len("default"))
	})

	t.Run("entries are kept per webhook", func(t *testing.T) {
		q := retryqueue.New()

		q.Enqueue(payload("shp_1"), config("default"), nil)
		q.Enqueue(payload("shp_2"), config("partner"), nil)
		q.Enqueue(payload("shp_3"), config("partner"), nil)

		assert.Equal(t, []string{"default", "partner"}, q.Names())
		assert.Equal(t, map[string]int{"default": 1, "partner": 2}, q.Lengths())
	})
}

func TestQueue_Pop(t *testing.T) {
	t.Run("pops in order up to the limit", func(t *testing.T) {
		q := retryqueue.New()
		for i := 0; i < 12; i++ {
			q.Enqueue(payload(fmt.Sprintf("shp_%d", i)), config("default"), nil)
		}

		popped := q.Pop("default", 10)

		require.Len(t, popped, 10)
		assert.Equal(t, "shp_0", popped[0].Payload.ShipmentID)
		assert.Equal(t, "shp_9", popped[9].Payload.ShipmentID)
		assert.Equal(t, 2, q.Len("default"))
	})

	t.Run("emptied webhook disappears from names", func(t *testing.T) {
		q := retryqueue.New()
		q.Enqueue(payload("shp_1"), config("default"), nil)

		popped := q.Pop("default", 10)

		assert.Len(t, popped, 1)
		assert.Empty(t, q.Names())
		assert.Nil(t, q.Pop("default", 10))
	})

	t.Run("requeue keeps retry count and goes to the tail", func(t *testing.T) {
		q := retryqueue.New()
		q.Enqueue(payload("shp_1"), config("default"), nil)
		q.Enqueue(payload("shp_2"), config("default"), nil)

		first := q.Pop("default", 1)[0]
		first.RetryCount = 3
		q.Requeue(first)

		list := q.List("default")
		require.Len(t, list, 2)
		assert.Equal(t, "shp_2", list[0].Payload.ShipmentID)
		assert.Equal(t, "shp_1", list[1].Payload.ShipmentID)
		assert.Equal(t, 3, list[1].RetryCount)
	})
}

func TestQueue_Concurrent(t *testing.T) {
	q := retryqueue.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(payload(fmt.Sprintf("shp_%d", i)), config("default"), nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, q.Len("default"))
}
