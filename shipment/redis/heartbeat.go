package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	heartbeatPrefix = "relay:heartbeat"
	heartbeatTTL    = 60 * time.Second
)

// WorkerHeartbeat is what a relay worker reports about itself
type WorkerHeartbeat struct {
	WorkerID      string    `json:"worker_id"`
	Status        string    `json:"status"` // "idle", "processing"
	InFlight      int       `json:"in_flight"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// SetWorkerHeartbeat stores or refreshes a worker's heartbeat
// Workers that stop reporting disappear after heartbeatTTL
func (r *Repository) SetWorkerHeartbeat(ctx context.Context, workerID, status string, inFlight int) error {
	key := fmt.Sprintf("%s:%s", heartbeatPrefix, workerID)

	data, err := json.Marshal(WorkerHeartbeat{
		WorkerID:      workerID,
		Status:        status,
		InFlight:      inFlight,
		LastHeartbeat: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshaling heartbeat: %w", err)
	}

	if err := r.client.Set(ctx, key, data, heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("setting heartbeat: %w", err)
	}

	return nil
}

// GetActiveWorkers lists every worker with a live heartbeat
func (r *Repository) GetActiveWorkers(ctx context.Context) ([]WorkerHeartbeat, error) {
	var workers []WorkerHeartbeat

	var cursor uint64
	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, heartbeatPrefix+":*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning worker keys: %w", err)
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting worker heartbeat: %w", err)
			}

			var heartbeat WorkerHeartbeat
			if err := json.Unmarshal([]byte(data), &heartbeat); err != nil {
				continue
			}
			workers = append(workers, heartbeat)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return workers, nil
}
