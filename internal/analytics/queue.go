// internal/analytics/queue.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list analytics records are pushed onto.
const DefaultQueueName = "relay_analytics"

// Queue publishes visit records onto a Redis list for an external consumer.
type Queue struct {
	rdb  *redis.Client
	name string
}

// NewQueue connects the Redis client and verifies it with a ping.
func NewQueue(addr, name string) (*Queue, error) {
	if name == "" {
		name = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect analytics queue at %s: %w", addr, err)
	}
	return &Queue{rdb: rdb, name: name}, nil
}

// Publish serializes the entry and pushes it onto the queue.
func (q *Queue) Publish(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal analytics entry: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", q.name, err)
	}
	return nil
}
