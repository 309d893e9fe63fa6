package redis

// Package redis provides the Redis-backed user profile store.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var _ ports.UserRepository = (*UserStore)(nil)

const maxUpsertAttempts = 10

// ErrTooMuchContention is returned when optimistic upserts keep losing the WATCH race.
var ErrTooMuchContention = errors.New("user upsert: too much contention")

// UserStore keeps one JSON profile per normalized email under "<prefix><email>".
type UserStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewUserStore creates a user store with the default "user:" key prefix.
func NewUserStore(client redis.UniversalClient) *UserStore {
	return NewUserStoreWithPrefix(client, "user:")
}

// NewUserStoreWithPrefix creates a user store with a custom key prefix.
func NewUserStoreWithPrefix(client redis.UniversalClient, prefix string) *UserStore {
	return &UserStore{client: client, prefix: prefix, now: time.Now}
}

// Upsert creates the profile for in.Email or merges in into the existing one.
// Concurrent upserts for the same email are serialized with WATCH/MULTI.
func (s *UserStore) Upsert(ctx context.Context, in domainauth.UserProfileInput) (domainauth.UpsertResult, error) {
	if in.Email == "" {
		return domainauth.UpsertResult{}, apperrors.ValidationField("email", "email is required")
	}
	key := s.prefix + in.Email

	var result domainauth.UpsertResult
	txf := func(tx *redis.Tx) error {
		now := s.now()
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			result = domainauth.UpsertResult{
				Profile: domainauth.NewUserProfile(uuid.NewString(), in, now),
				Created: true,
			}
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			var existing domainauth.UserProfile
			if unmarshalErr := json.Unmarshal(raw, &existing); unmarshalErr != nil {
				return fmt.Errorf("unmarshal user: %w", unmarshalErr)
			}
			result = domainauth.UpsertResult{Profile: existing.Merge(in, now)}
		}

		data, err := json.Marshal(result.Profile)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for range maxUpsertAttempts {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domainauth.UpsertResult{}, err
	}
	return domainauth.UpsertResult{}, ErrTooMuchContention
}

// GetByEmail returns the stored profile or a not_found AppError.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (domainauth.UserProfile, error) {
	if email == "" {
		return domainauth.UserProfile{}, apperrors.NotFound("user not found")
	}
	raw, err := s.client.Get(ctx, s.prefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.UserProfile{}, apperrors.NotFound("user not found")
		}
		return domainauth.UserProfile{}, fmt.Errorf("redis get: %w", err)
	}
	var profile domainauth.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domainauth.UserProfile{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return profile, nil
}
