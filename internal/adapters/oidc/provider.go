package oidc

// Package oidc provides the OpenID Connect federated sign-in adapter and the
// bearer ID token verifier used by the users API.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var (
	_ ports.FederatedProvider = (*Provider)(nil)
	_ ports.TokenVerifier     = (*Verifier)(nil)
)

// ErrAuthorizationCancelled is returned by an Authorizer when the user dismissed the consent step.
var ErrAuthorizationCancelled = errors.New("authorization cancelled")

// Authorizer performs the interactive part of the code flow: it shows authURL to the user
// and returns the callback URL the provider redirected to. An empty callback means the user
// gave up.
type Authorizer interface {
	Authorize(ctx context.Context, authURL string) (callbackURL string, err error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, authURL string) (string, error)

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, authURL string) (string, error) {
	return f(ctx, authURL)
}

// ClaimMapping holds JMESPath expressions evaluated against the ID token claims.
type ClaimMapping struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// DefaultClaimMapping matches the standard OIDC claims with common fallbacks.
func DefaultClaimMapping() ClaimMapping {
	return ClaimMapping{
		Subject: "sub",
		Email:   "email || mail",
		Name:    "name || given_name",
		Picture: "picture",
	}
}

// Provider implements ports.FederatedProvider using the OIDC authorization code flow.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	authorizer Authorizer

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *Verifier

	mu    sync.Mutex
	token *oauth2.Token
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	Claims       ClaimMapping // Optional, defaults to DefaultClaimMapping
	Authorizer   Authorizer   // Required: drives the consent step
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider creates a new OIDC provider, fetching the discovery document once.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	if config.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}

	httpClient := defaultHTTPClient(config.HTTPClient)
	op, err := discover(ctx, config.DiscoveryURL, httpClient)
	if err != nil {
		return nil, err
	}
	verifier, err := newVerifier(op, config.ClientID, config.Claims)
	if err != nil {
		return nil, err
	}

	scopes := strings.Fields(config.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		authorizer:   config.Authorizer,
		oidcProvider: op,
		verifier:     verifier,
	}, nil
}

// Verifier returns the ID token verifier bound to this provider's client.
func (p *Provider) Verifier() *Verifier {
	return p.verifier
}

// SignInWithFederatedProvider runs the code flow through the Authorizer and returns the
// credential described by the verified ID token.
func (p *Provider) SignInWithFederatedProvider(ctx context.Context) (domainauth.Credential, error) {
	// Generate cryptographically secure state and nonce
	state, err := generateRandomString(32)
	if err != nil {
		return domainauth.Credential{}, providerError(err, "generate state")
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return domainauth.Credential{}, providerError(err, "generate nonce")
	}

	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)

	callback, err := p.authorizer.Authorize(ctx, authURL)
	switch {
	case errors.Is(err, ErrAuthorizationCancelled), errors.Is(err, context.Canceled):
		return domainauth.Credential{}, apperrors.Wrap(err, apperrors.ErrCodeProviderCancelled, "sign-in cancelled")
	case err != nil:
		return domainauth.Credential{}, providerError(err, "authorize")
	case strings.TrimSpace(callback) == "":
		return domainauth.Credential{}, apperrors.New(apperrors.ErrCodeProviderCancelled, "sign-in cancelled")
	}

	code, err := parseCallback(callback, state)
	if err != nil {
		return domainauth.Credential{}, err
	}

	token, err := p.config.Exchange(gooidc.ClientContext(ctx, p.httpClient), code)
	if err != nil {
		return domainauth.Credential{}, providerError(err, "exchange code for token")
	}
	rawID, err := getIDTokenFromToken(token)
	if err != nil {
		return domainauth.Credential{}, providerError(err, "extract id_token")
	}

	idTok, claims, err := p.verifier.verify(ctx, rawID)
	if err != nil {
		return domainauth.Credential{}, providerError(err, "verify id_token")
	}
	if idTok.Nonce != nonce {
		return domainauth.Credential{}, apperrors.New(apperrors.ErrCodeProvider, "invalid nonce")
	}

	cred := p.verifier.credential(idTok, claims, rawID)
	if cred.Email == "" {
		// Some providers only release the email through UserInfo.
		if fillErr := p.fillFromUserInfo(ctx, token, &cred); fillErr != nil {
			return domainauth.Credential{}, providerError(fillErr, "get user info")
		}
	}

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return cred, nil
}

// SignOut forgets the provider tokens held by this process.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
	return nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, token *oauth2.Token, cred *domainauth.Credential) error {
	ui, err := p.oidcProvider.UserInfo(gooidc.ClientContext(ctx, p.httpClient), oauth2.StaticTokenSource(token))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var claims map[string]any
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	cred.Email = firstNonEmpty(cred.Email, ui.Email, p.verifier.eval(p.verifier.claims.Email, claims))
	cred.DisplayName = firstNonEmpty(cred.DisplayName, p.verifier.eval(p.verifier.claims.Name, claims))
	cred.PhotoURL = firstNonEmpty(cred.PhotoURL, p.verifier.eval(p.verifier.claims.Picture, claims))
	return nil
}

// Verifier validates ID tokens issued to one client and maps their claims.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
	claims   ClaimMapping
}

// VerifierConfig holds configuration for a standalone Verifier.
type VerifierConfig struct {
	ClientID     string
	DiscoveryURL string
	Claims       ClaimMapping // Optional, defaults to DefaultClaimMapping
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewVerifier discovers the issuer and returns a Verifier for cfg.ClientID.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	op, err := discover(ctx, cfg.DiscoveryURL, defaultHTTPClient(cfg.HTTPClient))
	if err != nil {
		return nil, err
	}
	return newVerifier(op, cfg.ClientID, cfg.Claims)
}

func newVerifier(op *gooidc.Provider, clientID string, mapping ClaimMapping) (*Verifier, error) {
	mapping = withDefaultClaims(mapping)
	for _, expr := range []string{mapping.Subject, mapping.Email, mapping.Name, mapping.Picture} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile claim expression %q: %w", expr, err)
		}
	}
	return &Verifier{
		verifier: op.Verifier(&gooidc.Config{ClientID: clientID}),
		claims:   mapping,
	}, nil
}

// Verify checks a raw bearer ID token and returns the proven caller.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (domainauth.Principal, error) {
	if rawToken == "" {
		return domainauth.Principal{}, apperrors.Unauthorized("missing bearer token")
	}
	idTok, claims, err := v.verify(ctx, rawToken)
	if err != nil {
		return domainauth.Principal{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid bearer token")
	}
	return domainauth.Principal{
		Subject: firstNonEmpty(v.eval(v.claims.Subject, claims), idTok.Subject),
		Email:   v.eval(v.claims.Email, claims),
	}, nil
}

func (v *Verifier) verify(ctx context.Context, raw string) (*gooidc.IDToken, map[string]any, error) {
	idTok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return nil, nil, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	return idTok, claims, nil
}

func (v *Verifier) credential(idTok *gooidc.IDToken, claims map[string]any, raw string) domainauth.Credential {
	return domainauth.Credential{
		ProviderID:  firstNonEmpty(v.eval(v.claims.Subject, claims), idTok.Subject),
		Email:       v.eval(v.claims.Email, claims),
		DisplayName: v.eval(v.claims.Name, claims),
		PhotoURL:    v.eval(v.claims.Picture, claims),
		ExpiresAt:   idTok.Expiry,
		IDToken:     raw,
	}
}

// eval returns the string result of expr, or "" when it yields anything else.
func (v *Verifier) eval(expr string, claims map[string]any) string {
	if expr == "" || claims == nil {
		return ""
	}
	out, err := jmespath.Search(expr, claims)
	if err != nil {
		return ""
	}
	s, _ := out.(string)
	return strings.TrimSpace(s)
}

func withDefaultClaims(m ClaimMapping) ClaimMapping {
	d := DefaultClaimMapping()
	return ClaimMapping{
		Subject: firstNonEmpty(m.Subject, d.Subject),
		Email:   firstNonEmpty(m.Email, d.Email),
		Name:    firstNonEmpty(m.Name, d.Name),
		Picture: firstNonEmpty(m.Picture, d.Picture),
	}
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func discover(ctx context.Context, discoveryURL string, httpClient *http.Client) (*gooidc.Provider, error) {
	issuer := strings.TrimSuffix(discoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	return op, nil
}

// parseCallback validates the redirect the provider sent the user to and returns the code.
func parseCallback(raw, wantState string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", providerError(err, "parse callback URL")
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return "", apperrors.New(apperrors.ErrCodeProviderCancelled, "sign-in cancelled")
		}
		return "", apperrors.New(apperrors.ErrCodeProvider, firstNonEmpty(q.Get("error_description"), e))
	}
	if q.Get("state") != wantState {
		return "", apperrors.New(apperrors.ErrCodeProvider, "state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return "", apperrors.New(apperrors.ErrCodeProvider, "authorization code is missing")
	}
	return code, nil
}

func providerError(err error, op string) error {
	return apperrors.Wrap(err, apperrors.ErrCodeProvider, op)
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	return s[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
