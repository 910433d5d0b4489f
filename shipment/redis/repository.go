package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/shipment-relay/shipment"
	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of shipment.Repository
 * One intake stream shared by every relay worker through a consumer group
 */

const (
	DefaultStream = "shipments:updates"
	DefaultGroup  = "relay-workers"

	updateField = "update"
	blockWindow = 1 * time.Second
)

type Repository struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// NewRepository connects to Redis using the default stream and group
func NewRepository(addr, password string, db int, consumer string) (*Repository, error) {
	return NewStreamRepository(addr, password, db, DefaultStream, DefaultGroup, consumer)
}

// NewStreamRepository connects to Redis and makes sure the consumer group exists
func NewStreamRepository(addr, password string, db int, stream, group, consumer string) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewRepositoryWithClient(ctx, client, stream, group, consumer)
}

// NewRepositoryWithClient wraps an existing client
func NewRepositoryWithClient(ctx context.Context, client *redis.Client, stream, group, consumer string) (*Repository, error) {
	if consumer == "" {
		consumer = "relay-" + uuid.NewString()[:8]
	}
	r := &Repository{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}

	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	return r, nil
}

// Publish appends an update to the intake stream
func (r *Repository) Publish(ctx context.Context, update shipment.Update) (string, error) {
	if update.ID == "" {
		update.ID = uuid.NewString()
	}

	data, err := json.Marshal(update)
	if err != nil {
		return "", fmt.Errorf("marshaling update: %w", err)
	}

	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"update_id":  update.ID,
			"webhook":    update.Webhook,
			updateField: string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("adding to stream: %w", err)
	}

	return id, nil
}

// Consume reads new messages for this consumer through the group
func (r *Repository) Consume(ctx context.Context, count int64) ([]shipment.Message, error) {
	if count < 1 {
		count = 1
	}

	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, ">"},
		Count:    count,
		Block:    blockWindow,
	}).Result()
	if err == redis.Nil {
		return []shipment.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	if len(streams) == 0 {
		return []shipment.Message{}, nil
	}

	messages := make([]shipment.Message, 0, len(streams[0].Messages))
	for _, msg := range streams[0].Messages {
		raw, ok := msg.Values[updateField].(string)
		if !ok {
			// Unreadable entries are acked so they do not stay pending forever
			r.client.XAck(ctx, r.stream, r.group, msg.ID)
			continue
		}

		var update shipment.Update
		if err := json.Unmarshal([]byte(raw), &update); err != nil {
			r.client.XAck(ctx, r.stream, r.group, msg.ID)
			continue
		}

		messages = append(messages, shipment.Message{
			StreamID: msg.ID,
			Update:   update,
		})
	}

	return messages, nil
}

// Acknowledge removes a message from the group's pending list
func (r *Repository) Acknowledge(ctx context.Context, streamID string) error {
	if err := r.client.XAck(ctx, r.stream, r.group, streamID).Err(); err != nil {
		return fmt.Errorf("acknowledging message: %w", err)
	}
	return nil
}

// Backlog returns the number of entries in the intake stream
func (r *Repository) Backlog(ctx context.Context) (int64, error) {
	length, err := r.client.XLen(ctx, r.stream).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("reading stream length: %w", err)
	}
	return length, nil
}

// Consumer returns the consumer name this repository reads as
func (r *Repository) Consumer() string {
	return r.consumer
}

// Stream returns the intake stream key
func (r *Repository) Stream() string {
	return r.stream
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (r *Repository) GetClient() *redis.Client {
	return r.client
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
