package data

import (
	"context"
	"sync"

	"github.com/google/uuid"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var _ ports.UserRepository = (*MemoryUserRepo)(nil)

// MemoryUserRepo keeps user profiles in process memory, keyed by normalized email.
type MemoryUserRepo struct {
	timeProvider TimeProvider

	mu    sync.Mutex
	users map[string]domainauth.UserProfile
}

// NewMemoryUserRepo creates an empty in-memory repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return NewMemoryUserRepoWithTimeProvider(RealTimeProvider{})
}

// NewMemoryUserRepoWithTimeProvider creates an empty repository with a custom clock.
func NewMemoryUserRepoWithTimeProvider(tp TimeProvider) *MemoryUserRepo {
	return &MemoryUserRepo{timeProvider: tp, users: make(map[string]domainauth.UserProfile)}
}

// Upsert creates or merges the profile for in.Email.
func (r *MemoryUserRepo) Upsert(_ context.Context, in domainauth.UserProfileInput) (domainauth.UpsertResult, error) {
	if in.Email == "" {
		return domainauth.UpsertResult{}, apperrors.ValidationField("email", "email is required")
	}
	now := r.timeProvider.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[in.Email]; ok {
		merged := existing.Merge(in, now)
		r.users[in.Email] = merged
		return domainauth.UpsertResult{Profile: merged}, nil
	}
	p := domainauth.NewUserProfile(uuid.NewString(), in, now)
	r.users[in.Email] = p
	return domainauth.UpsertResult{Profile: p, Created: true}, nil
}

// GetByEmail returns the profile for a normalized email.
func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (domainauth.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.users[email]
	if !ok {
		return domainauth.UserProfile{}, apperrors.NotFound("user not found")
	}
	return p, nil
}

// Len returns the number of stored profiles.
func (r *MemoryUserRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
