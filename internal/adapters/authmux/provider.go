package authmux

// Package authmux composes a password adapter and a federated adapter into one
// identity provider, and chains token verifiers for the users API.

import (
	"context"
	"errors"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.TokenVerifier    = Verifiers(nil)
)

// Provider routes password calls to one adapter and federated calls to another.
type Provider struct {
	password  ports.PasswordProvider
	federated ports.FederatedProvider
}

// New returns a Provider. Either adapter may be nil; its operations then fail with provider_error.
func New(password ports.PasswordProvider, federated ports.FederatedProvider) *Provider {
	return &Provider{password: password, federated: federated}
}

// SignInWithPassword delegates to the password adapter.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error) {
	if p.password == nil {
		return domainauth.Credential{}, errNotConfigured("password sign-in")
	}
	return p.password.SignInWithPassword(ctx, email, password)
}

// RegisterWithPassword delegates to the password adapter.
func (p *Provider) RegisterWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error) {
	if p.password == nil {
		return domainauth.Credential{}, errNotConfigured("registration")
	}
	return p.password.RegisterWithPassword(ctx, email, password)
}

// SignInWithFederatedProvider delegates to the federated adapter.
func (p *Provider) SignInWithFederatedProvider(ctx context.Context) (domainauth.Credential, error) {
	if p.federated == nil {
		return domainauth.Credential{}, errNotConfigured("federated sign-in")
	}
	return p.federated.SignInWithFederatedProvider(ctx)
}

// UpdateProfile delegates to the password adapter.
func (p *Provider) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	if p.password == nil {
		return apperrors.New(apperrors.ErrCodeProfileUpdate, "password sign-in is not configured")
	}
	return p.password.UpdateProfile(ctx, displayName, photoURL)
}

// SignOut signs out of both adapters. Both are attempted even if the first fails.
func (p *Provider) SignOut(ctx context.Context) error {
	var errs []error
	if p.password != nil {
		if err := p.password.SignOut(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if p.federated != nil {
		if err := p.federated.SignOut(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 && apperrors.IsAppError(errs[0], apperrors.ErrCodeSignOut) {
		return errs[0]
	}
	joined := errors.Join(errs...)
	return apperrors.Wrap(joined, apperrors.ErrCodeSignOut, apperrors.Message(errs[0]))
}

func errNotConfigured(what string) error {
	return apperrors.New(apperrors.ErrCodeProvider, what+" is not configured")
}

// Verifiers tries each verifier in order and returns the first success.
type Verifiers []ports.TokenVerifier

// Verify returns the principal from the first verifier that accepts rawToken.
func (vs Verifiers) Verify(ctx context.Context, rawToken string) (domainauth.Principal, error) {
	if rawToken == "" {
		return domainauth.Principal{}, apperrors.Unauthorized("missing bearer token")
	}
	var errs []error
	for _, v := range vs {
		principal, err := v.Verify(ctx, rawToken)
		if err == nil {
			return principal, nil
		}
		errs = append(errs, err)
	}
	return domainauth.Principal{}, apperrors.Wrap(errors.Join(errs...), apperrors.ErrCodeUnauthorized, "invalid bearer token")
}
