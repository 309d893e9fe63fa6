package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/taskdesk/internal/errors"
)

const testClientID = "test-client"

// fakeIssuer is a minimal OIDC provider: discovery, JWKS, token and userinfo endpoints.
type fakeIssuer struct {
	t      *testing.T
	server *httptest.Server
	key    *rsa.PrivateKey

	mu       sync.Mutex
	nonce    string
	claims   jwt.MapClaims
	userinfo map[string]any
	tokenErr bool
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIssuer{t: t, key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                f.server.URL,
			"authorization_endpoint":                f.server.URL + "/auth",
			"token_endpoint":                        f.server.URL + "/token",
			"userinfo_endpoint":                     f.server.URL + "/userinfo",
			"jwks_uri":                              f.server.URL + "/jwks",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		pub := f.key.PublicKey
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "k1",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.tokenErr {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		claims := jwt.MapClaims{"nonce": f.nonce}
		for k, v := range f.claims {
			claims[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-" + r.FormValue("code"),
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     f.sign(claims),
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.userinfo)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	f.claims = f.baseClaims("user-1")
	f.claims["email"] = "ada@example.com"
	f.claims["name"] = "Ada Lovelace"
	f.claims["picture"] = "https://example.com/ada.png"
	return f
}

func (f *fakeIssuer) baseClaims(sub string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": f.server.URL,
		"aud": testClientID,
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

func (f *fakeIssuer) sign(claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString(f.key)
	require.NoError(f.t, err)
	return s
}

// approve returns an Authorizer that consents and redirects back with a code.
func (f *fakeIssuer) approve() AuthorizerFunc {
	return func(_ context.Context, authURL string) (string, error) {
		u, err := url.Parse(authURL)
		if err != nil {
			return "", err
		}
		q := u.Query()
		f.mu.Lock()
		f.nonce = q.Get("nonce")
		f.mu.Unlock()
		return "http://localhost/callback?code=abc&state=" + url.QueryEscape(q.Get("state")), nil
	}
}

func newTestProvider(t *testing.T, f *fakeIssuer, auth Authorizer) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost/callback",
		DiscoveryURL: f.server.URL + "/.well-known/openid-configuration",
		Authorizer:   auth,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	auth := AuthorizerFunc(func(context.Context, string) (string, error) { return "", nil })
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing client ID",
			config: ProviderConfig{ClientSecret: "s", RedirectURL: "r", DiscoveryURL: "d", Authorizer: auth},
			errMsg: "client ID is required",
		},
		{
			name:   "missing client secret",
			config: ProviderConfig{ClientID: "c", RedirectURL: "r", DiscoveryURL: "d", Authorizer: auth},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", DiscoveryURL: "d", Authorizer: auth},
			errMsg: "redirect URL is required",
		},
		{
			name:   "missing discovery URL",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "r", Authorizer: auth},
			errMsg: "discovery URL is required",
		},
		{
			name:   "missing authorizer",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "r", DiscoveryURL: "d"},
			errMsg: "authorizer is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewProvider_RejectsBadClaimExpression(t *testing.T) {
	f := newFakeIssuer(t)
	_, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "s",
		RedirectURL:  "http://localhost/callback",
		DiscoveryURL: f.server.URL,
		Authorizer:   f.approve(),
		Claims:       ClaimMapping{Email: "email ||"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile claim expression")
}

func TestSignInWithFederatedProvider_Success(t *testing.T) {
	f := newFakeIssuer(t)
	p := newTestProvider(t, f, f.approve())

	cred, err := p.SignInWithFederatedProvider(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", cred.ProviderID)
	assert.Equal(t, "ada@example.com", cred.Email)
	assert.Equal(t, "Ada Lovelace", cred.DisplayName)
	assert.Equal(t, "https://example.com/ada.png", cred.PhotoURL)
	assert.NotEmpty(t, cred.IDToken)
	assert.False(t, cred.ExpiresAt.IsZero())

	require.NoError(t, p.SignOut(context.Background()))
}

func TestSignInWithFederatedProvider_ClaimFallbacks(t *testing.T) {
	f := newFakeIssuer(t)
	f.claims = f.baseClaims("user-2")
	f.claims["mail"] = "grace@example.com"
	f.claims["given_name"] = "Grace"
	p := newTestProvider(t, f, f.approve())

	cred, err := p.SignInWithFederatedProvider(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", cred.Email)
	assert.Equal(t, "Grace", cred.DisplayName)
}

func TestSignInWithFederatedProvider_EmailFromUserInfo(t *testing.T) {
	f := newFakeIssuer(t)
	f.claims = f.baseClaims("user-3")
	f.userinfo = map[string]any{"sub": "user-3", "email": "linus@example.com", "name": "Linus"}
	p := newTestProvider(t, f, f.approve())

	cred, err := p.SignInWithFederatedProvider(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "linus@example.com", cred.Email)
	assert.Equal(t, "Linus", cred.DisplayName)
}

func TestSignInWithFederatedProvider_Cancelled(t *testing.T) {
	f := newFakeIssuer(t)
	tests := []struct {
		name string
		auth AuthorizerFunc
	}{
		{name: "empty callback", auth: func(context.Context, string) (string, error) { return "", nil }},
		{name: "cancel error", auth: func(context.Context, string) (string, error) {
			return "", ErrAuthorizationCancelled
		}},
		{name: "access denied", auth: func(context.Context, string) (string, error) {
			return "http://localhost/callback?error=access_denied", nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, f, tt.auth)
			_, err := p.SignInWithFederatedProvider(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsProviderCancelled(err))
		})
	}
}

func TestSignInWithFederatedProvider_ProviderErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeIssuer) Authorizer
	}{
		{
			name: "authorizer failure",
			setup: func(*fakeIssuer) Authorizer {
				return AuthorizerFunc(func(context.Context, string) (string, error) {
					return "", errors.New("browser unavailable")
				})
			},
		},
		{
			name: "state mismatch",
			setup: func(*fakeIssuer) Authorizer {
				return AuthorizerFunc(func(context.Context, string) (string, error) {
					return "http://localhost/callback?code=abc&state=forged", nil
				})
			},
		},
		{
			name: "provider error param",
			setup: func(*fakeIssuer) Authorizer {
				return AuthorizerFunc(func(context.Context, string) (string, error) {
					return "http://localhost/callback?error=server_error", nil
				})
			},
		},
		{
			name: "token endpoint rejects",
			setup: func(f *fakeIssuer) Authorizer {
				f.tokenErr = true
				return f.approve()
			},
		},
		{
			name: "nonce mismatch",
			setup: func(f *fakeIssuer) Authorizer {
				inner := f.approve()
				return AuthorizerFunc(func(ctx context.Context, authURL string) (string, error) {
					cb, err := inner(ctx, authURL)
					f.mu.Lock()
					f.nonce = "replayed"
					f.mu.Unlock()
					return cb, err
				})
			},
		},
		{
			name: "wrong audience",
			setup: func(f *fakeIssuer) Authorizer {
				f.claims["aud"] = "someone-else"
				return f.approve()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeIssuer(t)
			p := newTestProvider(t, f, tt.setup(f))

			_, err := p.SignInWithFederatedProvider(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeProvider), "got %v", err)
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	f := newFakeIssuer(t)
	v, err := NewVerifier(context.Background(), VerifierConfig{ClientID: testClientID, DiscoveryURL: f.server.URL})
	require.NoError(t, err)

	raw := f.sign(f.claims)
	principal, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.Subject)
	assert.Equal(t, "ada@example.com", principal.Email)

	_, err = v.Verify(context.Background(), "")
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeUnauthorized))

	expired := f.baseClaims("user-1")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err = v.Verify(context.Background(), f.sign(expired))
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeUnauthorized))
}

func TestNewVerifier_ValidationErrors(t *testing.T) {
	_, err := NewVerifier(context.Background(), VerifierConfig{DiscoveryURL: "http://x"})
	require.Error(t, err)
	_, err = NewVerifier(context.Background(), VerifierConfig{ClientID: "c"})
	require.Error(t, err)
}

func TestParseCallback(t *testing.T) {
	code, err := parseCallback("http://localhost/callback?code=xyz&state=s1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "xyz", code)

	_, err = parseCallback("http://localhost/callback?state=s1", "s1")
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeProvider))
}

func TestGenerateRandomString(t *testing.T) {
	for _, n := range []int{1, 5, 16, 32, 43} {
		s, err := generateRandomString(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
	}
	s, err := generateRandomString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Empty(t, firstNonEmpty("", ""))
}
