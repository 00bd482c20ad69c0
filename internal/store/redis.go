package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	notificationOutboxKey = "notifications:outbox"
	outboxMaxLen          = 10000
)

// RedisStore hands notifications to the delivery service: every event is
// appended to a capped outbox list and announced on the recipient's channel.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Close() error {
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}

func userChannel(userID int64) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

func (s *RedisStore) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe := s.Client.TxPipeline()
	pipe.RPush(ctx, notificationOutboxKey, payload)
	pipe.LTrim(ctx, notificationOutboxKey, -outboxMaxLen, -1)
	pipe.Publish(ctx, userChannel(n.UserID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish notification to redis: %w", err)
	}
	return nil
}

// RecentNotifications returns up to limit of the newest outbox entries,
// oldest first.
func (s *RedisStore) RecentNotifications(ctx context.Context, limit int64) ([]models.Notification, error) {
	if limit <= 0 {
		return nil, nil
	}
	vals, err := s.Client.LRange(ctx, notificationOutboxKey, -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read notification outbox from redis: %w", err)
	}

	out := make([]models.Notification, 0, len(vals))
	for _, val := range vals {
		var n models.Notification
		if err := json.Unmarshal([]byte(val), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification from redis: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
