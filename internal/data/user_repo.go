package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/taskdesk/internal/data/pgxutil"
	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var _ ports.UserRepository = (*UserRepo)(nil)

const userColumns = `id, provider_id, name, email, phone, photo_url, joined_at, updated_at`

// upsertUserSQL keeps id and joined_at from the first insert, fills provider_id only
// while empty and lets non-empty incoming fields overwrite. xmax = 0 marks a fresh insert.
const upsertUserSQL = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (email) DO UPDATE SET
	provider_id = CASE WHEN users.provider_id = '' THEN EXCLUDED.provider_id ELSE users.provider_id END,
	name        = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
	phone       = COALESCE(NULLIF(EXCLUDED.phone, ''), users.phone),
	photo_url   = COALESCE(NULLIF(EXCLUDED.photo_url, ''), users.photo_url),
	updated_at  = EXCLUDED.updated_at
RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

// UserRepo provides Postgres persistence for user profiles.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

// Upsert inserts or merges the profile for in.Email in a single statement.
func (r *UserRepo) Upsert(ctx context.Context, in domainauth.UserProfileInput) (domainauth.UpsertResult, error) {
	if in.Email == "" {
		return domainauth.UpsertResult{}, apperrors.ValidationField("email", "email is required")
	}
	p := domainauth.NewUserProfile(uuid.NewString(), in, r.timeProvider.Now())

	var (
		out      domainauth.UserProfile
		inserted bool
	)
	err := r.DB.QueryRowContext(ctx, upsertUserSQL,
		p.ID, p.ProviderID, p.Name, p.Email, p.Phone, p.PhotoURL, p.JoinedAt, p.UpdatedAt,
	).Scan(
		&out.ID, &out.ProviderID, &out.Name, &out.Email, &out.Phone, &out.PhotoURL,
		&out.JoinedAt, &out.UpdatedAt, &inserted,
	)
	if err != nil {
		return domainauth.UpsertResult{}, fmt.Errorf("upsert user: %w", apperrors.MapDBError(err))
	}
	return domainauth.UpsertResult{Profile: out, Created: inserted}, nil
}

// GetByEmail returns the profile for a normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domainauth.UserProfile, error) {
	if email == "" {
		return domainauth.UserProfile{}, apperrors.NotFound("user not found")
	}
	p, err := pgxutil.QueryOne[domainauth.UserProfile](ctx, r.DB,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainauth.UserProfile{}, apperrors.NotFound("user not found")
	}
	if err != nil {
		return domainauth.UserProfile{}, fmt.Errorf("get user: %w", apperrors.MapDBError(err))
	}
	return p, nil
}
