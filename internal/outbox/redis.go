package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/restage/server/internal/logger"
)

// Redis list backed queue
type RedisQueue struct {
	client *redis.Client
}

// opens a Redis connection and verifies it with a ping
func Connect(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis")

	return client, nil
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Push(ctx context.Context, debit OwedDebit) error {
	data, err := json.Marshal(debit)
	if err != nil {
		return fmt.Errorf("failed to marshal owed debit: %w", err)
	}

	if err := q.client.RPush(ctx, keyOwedDebits, data).Err(); err != nil {
		return fmt.Errorf("failed to push owed debit: %w", err)
	}

	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*OwedDebit, error) {
	data, err := q.client.LPop(ctx, keyOwedDebits).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to pop owed debit: %w", err)
	}

	var debit OwedDebit
	if err := json.Unmarshal([]byte(data), &debit); err != nil {
		// keep the raw payload for inspection rather than dropping it
		q.client.RPush(ctx, keyDeadOwedDebits, data) //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to unmarshal owed debit: %w", err)
	}

	return &debit, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, keyOwedDebits).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get outbox length: %w", err)
	}

	return n, nil
}

func (q *RedisQueue) Bury(ctx context.Context, debit OwedDebit) error {
	data, err := json.Marshal(debit)
	if err != nil {
		return fmt.Errorf("failed to marshal owed debit: %w", err)
	}

	if err := q.client.RPush(ctx, keyDeadOwedDebits, data).Err(); err != nil {
		return fmt.Errorf("failed to bury owed debit: %w", err)
	}

	return nil
}
