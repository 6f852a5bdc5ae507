// Package idempotency replays completed POST responses keyed by the client's
// Idempotency-Key so a retried request cannot run the purchase twice.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// ErrInFlight is returned when another attempt with the same key is running.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Record is a stored response.
type Record struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Store keeps reservations and completed responses in Redis.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl, prefix: "idem:payment"}
}

func (s *Store) key(userID int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", s.prefix, userID, key)
}

// Reserve claims key for userID. It returns (nil, nil) when the caller owns
// the reservation, the stored record when the key already completed, or
// ErrInFlight while another attempt holds it.
func (s *Store) Reserve(ctx context.Context, userID int64, key string) (*Record, error) {
	k := s.key(userID, key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; let the caller retry.
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	if raw == pendingMarker {
		return nil, ErrInFlight
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

// Complete stores the final response for key.
func (s *Store) Complete(ctx context.Context, userID int64, key string, status int, body []byte) error {
	raw, err := json.Marshal(Record{Status: status, Body: body})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(userID, key), string(raw), s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

// Release drops a reservation so the client may retry with the same key.
func (s *Store) Release(ctx context.Context, userID int64, key string) error {
	if err := s.client.Del(ctx, s.key(userID, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
