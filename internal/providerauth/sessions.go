package providerauth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore exposes active provider sessions. A false second return means
// no session is live for the integration, which is a normal state.
type SessionStore interface {
	ActiveSession(ctx context.Context, integrationID string) (string, bool, error)
}

// RedisSessionCache keeps live provider sessions in Redis with a TTL so
// several client processes share one sign-in.
type RedisSessionCache struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionCache(redisURL string) (*RedisSessionCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisSessionCache{client: client, prefix: "provider_session:"}, nil
}

func (c *RedisSessionCache) key(integrationID string) string {
	return c.prefix + integrationID
}

func (c *RedisSessionCache) PutSession(ctx context.Context, integrationID, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := c.client.Set(ctx, c.key(integrationID), token, ttl).Err(); err != nil {
		return fmt.Errorf("save provider session: %w", err)
	}
	return nil
}

func (c *RedisSessionCache) ActiveSession(ctx context.Context, integrationID string) (string, bool, error) {
	token, err := c.client.Get(ctx, c.key(integrationID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup provider session: %w", err)
	}
	return token, true, nil
}

func (c *RedisSessionCache) RevokeSession(ctx context.Context, integrationID string) error {
	if err := c.client.Del(ctx, c.key(integrationID)).Err(); err != nil {
		return fmt.Errorf("revoke provider session: %w", err)
	}
	return nil
}

func (c *RedisSessionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSessionCache) Close() error {
	return c.client.Close()
}

// StaticSessions is a fixed integration-to-token map, used by the CLI when
// tokens come from the environment and by tests.
type StaticSessions map[string]string

func (s StaticSessions) ActiveSession(ctx context.Context, integrationID string) (string, bool, error) {
	token, ok := s[integrationID]
	return token, ok && token != "", nil
}
