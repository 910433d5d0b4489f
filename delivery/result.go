package delivery

import "time"

// Result is the outcome of one delivery lifecycle for one payload
type Result struct {
	DeliveryID  string
	Success     bool
	Attempts    int
	Encoding    Encoding // encoding of the last attempt
	LastError   error
	DeliveredAt *time.Time
	WebhookURL  string
}

// BatchResult aggregates a batch; Results keeps input order
type BatchResult struct {
	Success int
	Failed  int
	Chunks  int
	Results []Result
}

// FailedDelivery is an exhausted delivery waiting for replay
type FailedDelivery struct {
	ID            string
	Payload       Payload
	Config        WebhookConfig
	LastError     error
	FirstFailedAt time.Time
	RetryCount    int
}

// ReplayResult summarizes one replay cycle
type ReplayResult struct {
	Processed   int
	Successful  int
	StillFailed int
	Dropped     int
}
