package shipment

import "context"

// Message pairs an intake update with the stream entry it came from
type Message struct {
	StreamID string
	Update   Update
}

// Publisher puts shipment updates on the intake stream
type Publisher interface {
	Publish(ctx context.Context, update Update) (string, error)
}

// Consumer reads and acknowledges intake messages
type Consumer interface {
	/* Consume blocks for a short window and returns at most count messages
	 * An empty slice means nothing arrived, not an error
	 */
	Consume(ctx context.Context, count int64) ([]Message, error)
	Acknowledge(ctx context.Context, streamID string) error
}

type Repository interface {
	Publisher
	Consumer
	Close(ctx context.Context) error
}
