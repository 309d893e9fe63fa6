package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses the hosted identity providers (Identity Toolkit + OIDC).
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses the in-memory dev provider (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration for federated sign-in.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8085/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL" envDefault:"https://accounts.google.com"`

	// ProviderName is shown in federated sign-in feedback.
	ProviderName string `env:"PROVIDER_NAME" envDefault:"Google"`

	// JMESPath expressions evaluated against the ID token claims.
	SubjectClaim string `env:"CLAIM_SUBJECT" envDefault:"sub"`
	EmailClaim   string `env:"CLAIM_EMAIL"   envDefault:"email || mail"`
	NameClaim    string `env:"CLAIM_NAME"    envDefault:"name || given_name"`
	PictureClaim string `env:"CLAIM_PICTURE" envDefault:"picture"`
}

// IdentityToolkitConfig configures the hosted password provider.
type IdentityToolkitConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL"`
	// ProjectID lets the backend accept Identity Toolkit ID tokens as bearer tokens.
	ProjectID string `env:"PROJECT_ID"`
}

// Enabled reports whether password sign-in can use Identity Toolkit.
func (c IdentityToolkitConfig) Enabled() bool {
	return c.APIKey != ""
}

// DevAuthConfig controls the in-memory dev identity provider.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Secret   string `env:"SECRET"   envDefault:"taskdesk-dev-secret"`
	Issuer   string `env:"ISSUER"   envDefault:"taskdesk-devauth"`
	Audience string `env:"AUDIENCE" envDefault:"taskdesk"`

	// Accounts seeds password accounts as "email:password[:display name]" entries.
	Accounts []string `env:"ACCOUNTS" envDefault:"dev@example.com:password:Dev User" envSeparator:";"`

	FederatedSubject string `env:"FEDERATED_SUBJECT" envDefault:"dev-federated-user"`
	FederatedEmail   string `env:"FEDERATED_EMAIL"   envDefault:"dev.federated@example.com"`
	FederatedName    string `env:"FEDERATED_NAME"    envDefault:"Dev Federated"`

	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
}

// DevAccount is one parsed DEV_AUTH_ACCOUNTS entry.
type DevAccount struct {
	Email       string
	Password    string
	DisplayName string
}

// ParseDevAccounts splits Accounts into email, password and optional display name.
func (c DevAuthConfig) ParseDevAccounts() ([]DevAccount, error) {
	out := make([]DevAccount, 0, len(c.Accounts))
	for _, raw := range c.Accounts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid dev account %q: want email:password[:name]", raw)
		}
		acct := DevAccount{Email: strings.TrimSpace(parts[0]), Password: parts[1]}
		if len(parts) == 3 {
			acct.DisplayName = strings.TrimSpace(parts[2])
		}
		out = append(out, acct)
	}
	return out, nil
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity providers are used.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"mock"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// IdentityToolkit configuration (used when Mode=oauth).
	IdentityToolkit IdentityToolkitConfig `envPrefix:"IDENTITY_TOOLKIT_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// Sanitize trims values that are commonly pasted with whitespace.
func (c *AuthConfig) Sanitize() {
	c.OAuth.ClientID = strings.TrimSpace(c.OAuth.ClientID)
	c.OAuth.DiscoveryURL = strings.TrimSpace(c.OAuth.DiscoveryURL)
	c.IdentityToolkit.APIKey = strings.TrimSpace(c.IdentityToolkit.APIKey)
	c.IdentityToolkit.ProjectID = strings.TrimSpace(c.IdentityToolkit.ProjectID)
	if c.OAuth.ProviderName == "" {
		c.OAuth.ProviderName = "Google"
	}
	if c.DevAuth.SessionDuration <= 0 {
		c.DevAuth.SessionDuration = 8 * time.Hour
	}
}
