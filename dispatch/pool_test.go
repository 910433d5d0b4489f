package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/marcelsud/shipment-relay/dispatch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []string
	result    delivery.Result
	err       error
	panics    bool
	delay     time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeDeliverer) Deliver(_ context.Context, webhook string, p delivery.Payload) (delivery.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.panics {
		panic("boom")
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.delivered = append(f.delivered, webhook+"/"+p.ShipmentID)
	f.mu.Unlock()

	return f.result, f.err
}

func job(id string) dispatch.Job {
	return dispatch.Job{Webhook: delivery.DefaultWebhook, Payload: delivery.Payload{ShipmentID: id}}
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	t.Run("success - queued jobs are delivered before stop returns", func(t *testing.T) {
		d := &fakeDeliverer{result: delivery.Result{Success: true}}
		pool := dispatch.NewPool(d, 2, 10)
		pool.Start(ctx)

		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, pool.Submit(job(id)))
		}
		pool.Stop()

		assert.ElementsMatch(t, []string{"default/a", "default/b", "default/c"}, d.delivered)
	})

	t.Run("at most workers deliveries run at once", func(t *testing.T) {
		d := &fakeDeliverer{result: delivery.Result{Success: true}, delay: 20 * time.Millisecond}
		pool := dispatch.NewPool(d, 2, 10)
		pool.Start(ctx)

		for i := 0; i < 6; i++ {
			require.NoError(t, pool.Submit(job("x")))
		}
		pool.Stop()

		assert.Len(t, d.delivered, 6)
		assert.LessOrEqual(t, d.peak.Load(), int32(2))
	})

	t.Run("full queue rejects without blocking", func(t *testing.T) {
		pool := dispatch.NewPool(&fakeDeliverer{}, 1, 1)

		require.NoError(t, pool.Submit(job("a")))
		err := pool.Submit(job("b"))

		assert.ErrorIs(t, err, dispatch.ErrQueueFull)
		assert.Equal(t, 1, pool.Queued())
	})

	t.Run("stopped pool rejects", func(t *testing.T) {
		pool := dispatch.NewPool(&fakeDeliverer{}, 1, 1)
		pool.Start(ctx)
		pool.Stop()
		pool.Stop()

		assert.ErrorIs(t, pool.Submit(job("a")), dispatch.ErrPoolClosed)
	})

	t.Run("failures are logged, never returned", func(t *testing.T) {
		logs := &syncBuffer{}
		d := &fakeDeliverer{result: delivery.Result{Attempts: 3, LastError: errors.New("exhausted")}}
		pool := dispatch.NewPool(d, 1, 1, dispatch.WithLogger(zerolog.New(logs)))
		pool.Start(ctx)

		require.NoError(t, pool.Submit(job("a")))
		pool.Stop()

		assert.Contains(t, logs.String(), "background delivery failed")
	})

	t.Run("a panicking delivery does not kill the worker", func(t *testing.T) {
		logs := &syncBuffer{}
		d := &fakeDeliverer{panics: true}
		pool := dispatch.NewPool(d, 1, 2, dispatch.WithLogger(zerolog.New(logs)))
		pool.Start(ctx)

		require.NoError(t, pool.Submit(job("a")))
		require.NoError(t, pool.Submit(job("b")))
		pool.Stop()

		assert.Equal(t, 2, bytes.Count([]byte(logs.String()), []byte("delivery panicked")))
		assert.Equal(t, 0, pool.InFlight())
	})
}
