// Package verification keeps pending OTP verifications and per-phone request
// counters in Redis.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix = "otp:pending:"
	requestKeyPrefix = "otp:requests:"
	maxWatchRetries  = 4
)

// Pending is an OTP the upstream platform has sent and not yet verified.
type Pending struct {
	SessionID string `json:"sessionId"`
	Attempts  int    `json:"attempts"`
}

type Store struct {
	redis         *redis.Client
	ttl           time.Duration
	maxAttempts   int
	requestLimit  int
	requestWindow time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration, maxAttempts, requestLimit int, requestWindow time.Duration) *Store {
	return &Store{
		redis:         client,
		ttl:           ttl,
		maxAttempts:   maxAttempts,
		requestLimit:  requestLimit,
		requestWindow: requestWindow,
	}
}

// AllowRequest counts an OTP request for phone and fails with
// common.ErrOTPRateLimited once the window's limit is exceeded.
func (s *Store) AllowRequest(ctx context.Context, phone string) error {
	key := requestKeyPrefix + phone

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, s.requestWindow).Err(); err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
	}
	if count > int64(s.requestLimit) {
		return common.ErrOTPRateLimited
	}
	return nil
}

// Save records a fresh pending verification for phone, replacing any
// previous one.
func (s *Store) Save(ctx context.Context, phone, sessionID string) error {
	data, err := json.Marshal(Pending{SessionID: sessionID})
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, pendingKeyPrefix+phone, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Attempt consumes one verification attempt and returns the pending record.
// It fails with common.ErrOTPExpired when nothing is pending and with
// common.ErrOTPAttempts (dropping the record) once attempts run out.
func (s *Store) Attempt(ctx context.Context, phone string) (*Pending, error) {
	key := pendingKeyPrefix + phone

	for i := 0; i < maxWatchRetries; i++ {
		var result *Pending

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var p Pending
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("decode pending verification: %w", err)
			}

			p.Attempts++
			if p.Attempts > s.maxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return common.ErrOTPAttempts
			}

			updated, err := json.Marshal(p)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
				return nil
			})
			if err != nil {
				return err
			}

			result = &p
			return nil
		}, key)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil):
			return nil, common.ErrOTPExpired
		case errors.Is(err, common.ErrOTPAttempts):
			return nil, err
		case err != nil:
			return nil, fmt.Errorf("redis error: %w", err)
		}

		return result, nil
	}

	return nil, fmt.Errorf("redis error: %w", redis.TxFailedErr)
}

// Delete drops the pending verification for phone, if any.
func (s *Store) Delete(ctx context.Context, phone string) error {
	if err := s.redis.Del(ctx, pendingKeyPrefix+phone).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
