package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idempotency:"

// ErrRequestInFlight is returned by Begin while another request holds the key.
var ErrRequestInFlight = errors.New("a request with this idempotency key is still in progress")

// StoredResponse is the replayable outcome of a completed request.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type IdempotencyStore interface {
	// Begin claims key. It returns (nil, nil) when the caller should execute
	// the request, the stored response when one exists, or ErrRequestInFlight.
	Begin(ctx context.Context, key string) (*StoredResponse, error)
	Complete(ctx context.Context, key string, resp StoredResponse) error
	// Release drops an unfinished claim so the request can be retried.
	Release(ctx context.Context, key string) error
}

// redisCommands is the subset of the go-redis client the store needs.
type redisCommands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type idempotencyRecord struct {
	State    string          `json:"state"`
	Response *StoredResponse `json:"response,omitempty"`
}

const (
	recordPending  = "pending"
	recordComplete = "complete"
)

type RedisIdempotencyStore struct {
	client redisCommands
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client redisCommands, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	pending, _ := json.Marshal(idempotencyRecord{State: recordPending})
	claimed, err := s.client.SetNX(ctx, idempotencyPrefix+key, pending, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, idempotencyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	if rec.State != recordComplete || rec.Response == nil {
		return nil, ErrRequestInFlight
	}
	return rec.Response, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	data, err := json.Marshal(idempotencyRecord{State: recordComplete, Response: &resp})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, idempotencyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyPrefix+key).Err()
}
