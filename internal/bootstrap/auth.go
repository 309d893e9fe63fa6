package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/taskdesk/config"
	"github.com/target/taskdesk/internal/adapters/authmux"
	"github.com/target/taskdesk/internal/adapters/devauth"
	"github.com/target/taskdesk/internal/adapters/identitytoolkit"
	"github.com/target/taskdesk/internal/adapters/oidc"
	"github.com/target/taskdesk/internal/ports"
)

// SecureTokenIssuerPrefix is the issuer of Identity Toolkit ID tokens; the project id follows.
const SecureTokenIssuerPrefix = "https://securetoken.google.com/"

// AuthConfig contains what is needed to build identity adapters.
type AuthConfig struct {
	Auth       config.AuthConfig
	Authorizer oidc.Authorizer // Required for federated sign-in in oauth mode
	HTTPClient *http.Client    // Optional
	Logger     *slog.Logger
}

// BuildIdentityProvider returns the front-end identity provider for the configured auth mode.
//
//nolint:ireturn // the concrete provider depends on AUTH_MODE.
func BuildIdentityProvider(ctx context.Context, cfg AuthConfig) (ports.IdentityProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		dc, err := devAuthConfig(cfg.Auth.DevAuth)
		if err != nil {
			return nil, err
		}
		return devauth.NewProvider(dc)

	case config.AuthModeOAuth:
		return buildHostedProvider(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildHostedProvider(ctx context.Context, cfg AuthConfig) (*authmux.Provider, error) {
	var (
		password  ports.PasswordProvider
		federated ports.FederatedProvider
	)

	if itk := cfg.Auth.IdentityToolkit; itk.Enabled() {
		p, err := identitytoolkit.NewProvider(identitytoolkit.Config{
			APIKey:     itk.APIKey,
			BaseURL:    itk.BaseURL,
			HTTPClient: cfg.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("identity toolkit: %w", err)
		}
		password = p
	} else if cfg.Logger != nil {
		cfg.Logger.WarnContext(ctx, "password sign-in disabled: IDENTITY_TOOLKIT_API_KEY not set")
	}

	if oauth := cfg.Auth.OAuth; oauthClientConfigured(oauth) {
		if cfg.Authorizer == nil {
			return nil, errors.New("federated sign-in requires an authorizer")
		}
		p, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
			Claims:       claimMapping(oauth),
			Authorizer:   cfg.Authorizer,
			HTTPClient:   cfg.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		federated = p
	} else if cfg.Logger != nil {
		cfg.Logger.WarnContext(ctx, "federated sign-in disabled: OAuth client not configured")
	}

	if password == nil && federated == nil {
		return nil, errors.New("AUTH_MODE=oauth but no identity provider is configured")
	}
	return authmux.New(password, federated), nil
}

// BuildTokenVerifier returns the backend bearer-token verifier for the configured auth mode.
//
//nolint:ireturn // the concrete verifier depends on AUTH_MODE.
func BuildTokenVerifier(ctx context.Context, cfg AuthConfig) (ports.TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		dc, err := devAuthConfig(cfg.Auth.DevAuth)
		if err != nil {
			return nil, err
		}
		return devauth.NewVerifier(dc)

	case config.AuthModeOAuth:
		var chain authmux.Verifiers
		if oauth := cfg.Auth.OAuth; oauth.ClientID != "" {
			v, err := oidc.NewVerifier(ctx, oidc.VerifierConfig{
				ClientID:     oauth.ClientID,
				DiscoveryURL: oauth.DiscoveryURL,
				Claims:       claimMapping(oauth),
				HTTPClient:   cfg.HTTPClient,
			})
			if err != nil {
				return nil, fmt.Errorf("oidc verifier: %w", err)
			}
			chain = append(chain, v)
		}
		if project := cfg.Auth.IdentityToolkit.ProjectID; project != "" {
			v, err := oidc.NewVerifier(ctx, oidc.VerifierConfig{
				ClientID:     project,
				DiscoveryURL: SecureTokenIssuerPrefix + project,
				HTTPClient:   cfg.HTTPClient,
			})
			if err != nil {
				return nil, fmt.Errorf("identity toolkit verifier: %w", err)
			}
			chain = append(chain, v)
		}
		if len(chain) == 0 {
			return nil, errors.New("AUTH_MODE=oauth but no token verifier is configured")
		}
		return chain, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func claimMapping(c config.OAuthConfig) oidc.ClaimMapping {
	return oidc.ClaimMapping{
		Subject: c.SubjectClaim,
		Email:   c.EmailClaim,
		Name:    c.NameClaim,
		Picture: c.PictureClaim,
	}
}

func devAuthConfig(c config.DevAuthConfig) (devauth.Config, error) {
	accounts, err := c.ParseDevAccounts()
	if err != nil {
		return devauth.Config{}, fmt.Errorf("dev auth accounts: %w", err)
	}
	out := devauth.Config{
		Secret:   c.Secret,
		Issuer:   c.Issuer,
		Audience: c.Audience,
		Federated: devauth.FederatedIdentity{
			Subject:     c.FederatedSubject,
			Email:       c.FederatedEmail,
			DisplayName: c.FederatedName,
		},
		SessionDuration: c.SessionDuration,
	}
	for _, a := range accounts {
		out.Accounts = append(out.Accounts, devauth.Account{
			Email:       a.Email,
			Password:    a.Password,
			DisplayName: a.DisplayName,
		})
	}
	return out, nil
}
