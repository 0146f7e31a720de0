package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// RedisRestoreStore keeps the wallet restore state under one key.
type RedisRestoreStore struct {
	client *redis.Client
	key    string
}

func NewRedisRestoreStore(client *redis.Client, namespace string) *RedisRestoreStore {
	return &RedisRestoreStore{
		client: client,
		key:    fmt.Sprintf("wallet_restore:%s", namespace),
	}
}

func (s *RedisRestoreStore) Save(ctx context.Context, state models.RestoreState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisRestoreStore) Load(ctx context.Context) (models.RestoreState, error) {
	var state models.RestoreState
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("corrupt restore state: %w", err)
	}
	return state, nil
}

func (s *RedisRestoreStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// RedisSessionLock holds one SETNX key per wallet while a session runs.
// The value is a token owned by this lock, so a release after the TTL ran
// out never deletes a key another process has taken since.
type RedisSessionLock struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisSessionLock(client *redis.Client) *RedisSessionLock {
	return &RedisSessionLock{client: client, tokens: make(map[string]string)}
}

func (l *RedisSessionLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil || !ok {
		return ok, err
	}
	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisSessionLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{lockKey(key)}, token).Err()
}

func lockKey(key string) string {
	return fmt.Sprintf("wallet_session_lock:%s", key)
}
