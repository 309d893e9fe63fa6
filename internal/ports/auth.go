package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	"github.com/target/taskdesk/internal/domain/presence"
)

// PasswordProvider signs users in and up with email and password.
type PasswordProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error)
	RegisterWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error)
	UpdateProfile(ctx context.Context, displayName, photoURL string) error
	SignOut(ctx context.Context) error
}

// FederatedProvider signs users in through a third-party account.
type FederatedProvider interface {
	SignInWithFederatedProvider(ctx context.Context) (domainauth.Credential, error)
	SignOut(ctx context.Context) error
}

// IdentityProvider is the full identity-provider boundary used by the auth flows.
// Failures are *apperrors.AppError values carrying a provider failure code.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error)
	RegisterWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error)
	SignInWithFederatedProvider(ctx context.Context) (domainauth.Credential, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, displayName, photoURL string) error
}

// ProfileSync upserts the backend user profile for a signed-in identity.
// idToken proves the caller's provider session to the backend.
type ProfileSync interface {
	UpsertUser(ctx context.Context, in domainauth.UserProfileInput, idToken string) (domainauth.UpsertResult, error)
}

// UserRepository persists backend user profiles, one per normalized email.
type UserRepository interface {
	Upsert(ctx context.Context, in domainauth.UserProfileInput) (domainauth.UpsertResult, error)
	GetByEmail(ctx context.Context, email string) (domainauth.UserProfile, error)
}

// TokenVerifier validates a bearer ID token and returns the proven caller.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (domainauth.Principal, error)
}

// Notifier surfaces user-visible acknowledgments.
type Notifier interface {
	Notify(ctx context.Context, fb domainauth.Feedback)
}

// Navigator executes navigation commands produced by the auth flows.
type Navigator interface {
	Navigate(ctx context.Context, intent domainauth.NavigationIntent)
}

// PointerSource is the process-wide pointer-down event subscription.
// The returned remove func must be safe to call more than once.
type PointerSource interface {
	AddPointerDownListener(fn func(presence.PointerEvent)) (remove func())
}
