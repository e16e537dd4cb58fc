package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "fuelflux:device_session:"
	redisScanBatch     = 100

	// redisGraceTTL is how long a key outlives its session expiry.
	redisGraceTTL = time.Minute
)

// compareAndDeleteScript deletes KEYS[1] only if it still holds ARGV[1].
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSessionStore keeps device sessions in Redis so several service
// instances can share them. Values are JSON; each key carries a TTL slightly
// beyond the session expiry as a backstop for the sweep.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore returns a store using client. An empty prefix selects
// the default key namespace.
func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisSessionStore{client: client, prefix: prefix, now: time.Now}
}

// NewRedisClient connects to addr and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisSessionStore) key(token string) string {
	return s.prefix + token
}

func encodeSession(session *Session) ([]byte, error) {
	normalized := *session
	normalized.ExpiresAt = session.ExpiresAt.UTC()
	data, err := json.Marshal(&normalized)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return data, nil
}

func (s *RedisSessionStore) Insert(ctx context.Context, token string, session *Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	ttl := max(session.ExpiresAt.Sub(s.now()), 0) + redisGraceTTL
	ok, err := s.client.SetNX(ctx, s.key(token), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CompareAndDelete compares by value: observed is re-encoded and matched
// against the stored bytes inside a Lua script.
func (s *RedisSessionStore) CompareAndDelete(ctx context.Context, token string, observed *Session) (bool, error) {
	data, err := encodeSession(observed)
	if err != nil {
		return false, err
	}
	n, err := compareAndDeleteScript.Run(ctx, s.client, []string{s.key(token)}, data).Int()
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return n == 1, nil
}

func (s *RedisSessionStore) Range(ctx context.Context, fn func(token string, session *Session) bool) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", redisScanBatch).Iterator()
	for iter.Next(ctx) {
		token := iter.Val()[len(s.prefix):]
		session, err := s.Get(ctx, token)
		if err != nil {
			return err
		}
		if session == nil {
			// Removed between SCAN and GET.
			continue
		}
		if !fn(token, session) {
			return nil
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning sessions: %w", err)
	}
	return nil
}
