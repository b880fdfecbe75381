package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeSessionsKey = "active_sessions"

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisMirror mirrors live sessions as session:<id> hashes plus an
// active_sessions set, so other replicas and dashboards can see them.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(ctx context.Context, cfg RedisConfig) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisMirror{client: client, ttl: cfg.TTL}, nil
}

func sessionKey(id string) string {
	return "session:" + id
}

// sessionFields renders the hash stored for s.
func sessionFields(s *Session) map[string]interface{} {
	return map[string]interface{}{
		"created_at":      s.CreatedAt.Format(time.RFC3339),
		"last_activity":   s.LastActivityAt().Format(time.RFC3339),
		"last_chunk_kind": s.LastChunkKind().String(),
		"remote_addr":     s.RemoteAddr,
		"status":          "active",
	}
}

// Store writes or refreshes the session hash and its TTL.
func (m *RedisMirror) Store(ctx context.Context, s *Session) error {
	key := sessionKey(s.ID)
	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, key, sessionFields(s))
	pipe.SAdd(ctx, activeSessionsKey, s.ID)
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes the session hash and its set membership.
func (m *RedisMirror) Delete(ctx context.Context, id string) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, activeSessionsKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the Redis client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
