package followup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisKey is the hash holding pending follow-ups, field = lead id.
const redisKey = "leadflow:followups:pending"

// RedisQueue is a Queue backed by a Redis hash, for deployments where the
// sweeper runs in a separate process from the API.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a queue on the given Redis connection.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Enqueue stores the follow-up for its lead, replacing any unclaimed one.
func (q *RedisQueue) Enqueue(ctx context.Context, f PendingFollowUp) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode follow-up: %w", err)
	}
	if err := q.client.HSet(ctx, redisKey, f.LeadID, data).Err(); err != nil {
		return fmt.Errorf("enqueue follow-up: %w", err)
	}
	return nil
}

// Poll removes and returns the pending follow-up for a lead, or nil.
// The HDEL count claims the item, so concurrent pollers for the same
// lead id cannot both receive it.
func (q *RedisQueue) Poll(ctx context.Context, leadID string) (*PendingFollowUp, error) {
	data, err := q.client.HGet(ctx, redisKey, leadID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("poll follow-up: %w", err)
	}

	deleted, err := q.client.HDel(ctx, redisKey, leadID).Result()
	if err != nil {
		return nil, fmt.Errorf("claim follow-up: %w", err)
	}
	if deleted == 0 {
		// Another poller claimed it first.
		return nil, nil
	}

	var f PendingFollowUp
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode follow-up: %w", err)
	}
	return &f, nil
}

// Len reports the number of pending follow-ups.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.HLen(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count follow-ups: %w", err)
	}
	return int(n), nil
}
