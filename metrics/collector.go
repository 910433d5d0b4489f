package metrics

import (
	"sync"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
)

// Stats represents the delivery counters at one point in time.
type Stats struct {
	// TotalRequests counts every attempt, successful or not
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	// PlainRequests and MultipartRequests count attempts by encoding actually sent
	PlainRequests     int64
	MultipartRequests int64

	// DegradedRequests counts attempts that asked for multipart but went out plain
	DegradedRequests int64

	TotalBytes     int64
	MultipartBytes int64

	// SuccessRate is a percentage in [0, 100]
	SuccessRate         float64
	AverageResponseTime time.Duration
	// AverageFileSize is the mean attachment volume of multipart attempts
	AverageFileSize   int64
	RequestsPerMinute float64

	StartedAt time.Time
	Uptime    time.Duration
}

/* Collector accumulates one sample per delivery attempt
 * Shared by every concurrent delivery, so all access goes through mu
 */
type Collector struct {
	mu    sync.Mutex
	now   func() time.Time
	start time.Time

	total, success, failed int64
	plain, multipart       int64
	degraded               int64
	bytes, multipartBytes  int64
	latency                time.Duration
}

type CollectorOption func(*Collector)

// WithClock overrides the time source used for uptime
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates a collector whose uptime starts now
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.now()
	return c
}

// Record implements delivery.Recorder
func (c *Collector) Record(s delivery.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if s.Success {
		c.success++
	} else {
		c.failed++
	}

	switch s.Encoding {
	case delivery.Multipart:
		c.multipart++
		c.multipartBytes += s.Bytes
	default:
		c.plain++
	}
	if s.Degraded {
		c.degraded++
	}

	c.bytes += s.Bytes
	c.latency += s.Duration
}

// Snapshot returns the counters plus the derived rates
func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	uptime := c.now().Sub(c.start)
	st := Stats{
		TotalRequests:      c.total,
		SuccessfulRequests: c.success,
		FailedRequests:     c.failed,
		PlainRequests:      c.plain,
		MultipartRequests:  c.multipart,
		DegradedRequests:   c.degraded,
		TotalBytes:         c.bytes,
		MultipartBytes:     c.multipartBytes,
		StartedAt:          c.start,
		Uptime:             uptime,
	}

	if c.total > 0 {
		st.SuccessRate = float64(c.success) / float64(c.total) * 100
		st.AverageResponseTime = c.latency / time.Duration(c.total)
	}
	if c.multipart > 0 {
		st.AverageFileSize = c.multipartBytes / c.multipart
	}
	if minutes := uptime.Minutes(); minutes > 0 {
		st.RequestsPerMinute = float64(c.total) / minutes
	}

	return st
}

// Reset zeroes every counter and restarts uptime
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total, c.success, c.failed = 0, 0, 0
	c.plain, c.multipart, c.degraded = 0, 0, 0
	c.bytes, c.multipartBytes = 0, 0
	c.latency = 0
	c.start = c.now()
}
