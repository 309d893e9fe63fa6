package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
)

func TestMemoryUserRepo_Upsert(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tp := NewFixedTimeProvider(start)
	repo := NewMemoryUserRepoWithTimeProvider(tp)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, domainauth.UserProfileInput{ID: "uid-1", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "uid-1", first.Profile.ProviderID)
	assert.Equal(t, start, first.Profile.JoinedAt)

	tp.AddTime(time.Hour)
	second, err := repo.Upsert(ctx, domainauth.UserProfileInput{Email: "ada@example.com", Phone: "0123456"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Profile.ID, second.Profile.ID)
	assert.Equal(t, "Ada", second.Profile.Name)
	assert.Equal(t, "0123456", second.Profile.Phone)
	assert.Equal(t, start, second.Profile.JoinedAt)
	assert.Equal(t, start.Add(time.Hour), second.Profile.UpdatedAt)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryUserRepo_EmailRequired(t *testing.T) {
	repo := NewMemoryUserRepo()
	_, err := repo.Upsert(context.Background(), domainauth.UserProfileInput{Name: "x"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestMemoryUserRepo_GetByEmail(t *testing.T) {
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.Upsert(ctx, domainauth.UserProfileInput{Email: "a@example.com"})
	require.NoError(t, err)
	p, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", p.Email)
}

func TestMemoryUserRepo_ConcurrentUpsertCreatesOnce(t *testing.T) {
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.Upsert(ctx, domainauth.UserProfileInput{Email: "race@example.com"})
			if assert.NoError(t, err) && res.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Len())
}
