package retryqueue

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/rs/zerolog"
)

/* Queue holds exhausted deliveries per webhook, oldest first
 * In memory only; entries do not survive a restart
 */
type Queue struct {
	mu      sync.Mutex
	entries map[string][]delivery.FailedDelivery
	now     func() time.Time
	logger  zerolog.Logger
}

type Option func(*Queue)

func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates an empty queue
func New(opts ...Option) *Queue {
	q := &Queue{
		entries: make(map[string][]delivery.FailedDelivery),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a new failure with RetryCount 0
func (q *Queue) Enqueue(p delivery.Payload, cfg delivery.WebhookConfig, cause error) delivery.FailedDelivery {
	fd := delivery.FailedDelivery{
		ID:            uuid.NewString(),
		Payload:       p,
		Config:        cfg,
		LastError:     cause,
		FirstFailedAt: q.now(),
	}

	q.mu.Lock()
	q.entries[cfg.Name] = append(q.entries[cfg.Name], fd)
	depth := len(q.entries[cfg.Name])
	q.mu.Unlock()

	q.logger.Debug().
		Str("failed_id", fd.ID).
		Str("webhook", cfg.Name).
		Int("depth", depth).
		Msg("failed delivery enqueued")

	return fd
}

// Requeue puts a replayed entry back at the tail
func (q *Queue) Requeue(fd delivery.FailedDelivery) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries[fd.Config.Name] = append(q.entries[fd.Config.Name], fd)
}

// Pop removes and returns up to limit entries from the head
func (q *Queue) Pop(name string, limit int) []delivery.FailedDelivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.entries[name]
	if limit <= 0 || len(list) == 0 {
		return nil
	}
	n := min(limit, len(list))

	out := make([]delivery.FailedDelivery, n)
	copy(out, list[:n])

	// Clear popped slots so the backing array does not pin payloads
	for i := 0; i < n; i++ {
		list[i] = delivery.FailedDelivery{}
	}

	if n == len(list) {
		delete(q.entries, name)
	} else {
		q.entries[name] = list[n:]
	}

	return out
}

// Names returns the webhooks that have queued entries, sorted
func (q *Queue) Names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	names := make([]string, 0, len(q.entries))
	for name, list := range q.entries {
		if len(list) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries queued for a webhook
func (q *Queue) Len(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries[name])
}

// Lengths returns the queue depth per webhook
func (q *Queue) Lengths() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]int, len(q.entries))
	for name, list := range q.entries {
		out[name] = len(list)
	}
	return out
}

// List returns a copy of the entries queued for a webhook
func (q *Queue) List(name string) []delivery.FailedDelivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]delivery.FailedDelivery(nil), q.entries[name]...)
}
