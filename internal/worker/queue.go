package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned when a pop finds nothing to consume.
var ErrQueueEmpty = errors.New("queue empty")

// Queue is a FIFO of serialized jobs.
type Queue interface {
	// Pop blocks up to timeout for the next item.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	// TryPop returns the next item without blocking.
	TryPop(ctx context.Context) (string, error)
	Push(ctx context.Context, item string) error
}

// RedisQueue is a Redis list consumed from the head.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	// BLPop blocks until an item is available or the timeout passes.
	result, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrQueueEmpty
		}
		return "", err
	}
	if len(result) < 2 {
		return "", ErrQueueEmpty
	}
	return result[1], nil
}

func (q *RedisQueue) TryPop(ctx context.Context) (string, error) {
	item, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	return item, err
}

func (q *RedisQueue) Push(ctx context.Context, item string) error {
	return q.rdb.RPush(ctx, q.key, item).Err()
}

// Len returns the number of queued items.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
