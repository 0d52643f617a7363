package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultTokenKey is the Redis key the token refresher writes to.
const DefaultTokenKey = "chat:access_token"

// TokenSource supplies the chat provider's access token. An empty token
// means none is configured.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token fixed at startup.
type StaticToken string

// Token returns the static token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// RedisTokenSource reads a token that an external refresher keeps current
// in Redis, so rotations take effect without a restart.
type RedisTokenSource struct {
	client *redis.Client
	key    string
}

// NewRedisTokenSource creates a Redis-backed token source.
func NewRedisTokenSource(client *redis.Client, key string) *RedisTokenSource {
	if key == "" {
		key = DefaultTokenKey
	}
	return &RedisTokenSource{client: client, key: key}
}

// Token returns the cached token, or "" when the key is absent.
func (s *RedisTokenSource) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	return token, nil
}
