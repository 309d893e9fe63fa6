package identitytoolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/taskdesk/internal/errors"
)

type fakeToolkit struct {
	t *testing.T

	mu      sync.Mutex
	calls   []string
	updates []map[string]any
	issued  int
	status  int
	errMsg  string
}

func (f *fakeToolkit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, http.MethodPost, r.Method)
	assert.Equal(f.t, "test-key", r.URL.Query().Get("key"))
	f.calls = append(f.calls, r.URL.Path)

	var body map[string]any
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

	w.Header().Set("Content-Type", "application/json")
	if f.errMsg != "" {
		w.WriteHeader(f.status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": f.status, "message": f.errMsg},
		})
		return
	}

	switch r.URL.Path {
	case "/v1/accounts:signInWithPassword", "/v1/accounts:signUp":
		f.issued++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"localId":     "uid-123",
			"email":       body["email"],
			"displayName": "Ada",
			"idToken":     fmt.Sprintf("id-token-%d", f.issued),
			"expiresIn":   "3600",
		})
	case "/v1/accounts:update":
		f.updates = append(f.updates, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"localId": "uid-123"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestProvider(t *testing.T, fake *fakeToolkit) *Provider {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p, err := NewProvider(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewProvider(Config{})
	require.Error(t, err)
}

func TestProvider_SignInWithPassword(t *testing.T) {
	fake := &fakeToolkit{t: t}
	p := newTestProvider(t, fake)

	cred, err := p.SignInWithPassword(context.Background(), "ada@example.com", "Secret1")
	require.NoError(t, err)

	assert.Equal(t, "uid-123", cred.ProviderID)
	assert.Equal(t, "ada@example.com", cred.Email)
	assert.Equal(t, "Ada", cred.DisplayName)
	assert.Equal(t, "id-token-1", cred.IDToken)
	assert.Equal(t, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), cred.ExpiresAt)
	assert.Equal(t, []string{"/v1/accounts:signInWithPassword"}, fake.calls)
}

func TestProvider_UpdateProfileUsesCurrentToken(t *testing.T) {
	fake := &fakeToolkit{t: t}
	p := newTestProvider(t, fake)
	ctx := context.Background()

	err := p.UpdateProfile(ctx, "Ada", "https://example.com/a.png")
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeProfileUpdate))

	_, err = p.RegisterWithPassword(ctx, "ada@example.com", "Secret1")
	require.NoError(t, err)
	require.NoError(t, p.UpdateProfile(ctx, "Ada", "https://example.com/a.png"))

	require.Len(t, fake.updates, 1)
	assert.Equal(t, "id-token-1", fake.updates[0]["idToken"])
	assert.Equal(t, "Ada", fake.updates[0]["displayName"])
	assert.Equal(t, "https://example.com/a.png", fake.updates[0]["photoUrl"])

	require.NoError(t, p.SignOut(ctx))
	err = p.UpdateProfile(ctx, "Ada", "")
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeProfileUpdate))
}

func TestProvider_UpdateProfileFollowsLatestSignIn(t *testing.T) {
	fake := &fakeToolkit{t: t}
	p := newTestProvider(t, fake)
	ctx := context.Background()

	_, err := p.RegisterWithPassword(ctx, "ada@example.com", "Secret1")
	require.NoError(t, err)
	_, err = p.SignInWithPassword(ctx, "grace@example.com", "Secret1")
	require.NoError(t, err)
	require.NoError(t, p.UpdateProfile(ctx, "Ada", ""))

	require.Len(t, fake.updates, 1)
	assert.Equal(t, "id-token-2", fake.updates[0]["idToken"])
}

func TestProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		code    apperrors.ErrorCode
		text    string
	}{
		{"unknown email", 400, "EMAIL_NOT_FOUND", apperrors.ErrCodeInvalidCredentials, "invalid email or password"},
		{"wrong password", 400, "INVALID_PASSWORD", apperrors.ErrCodeInvalidCredentials, "invalid email or password"},
		{"combined invalid", 400, "INVALID_LOGIN_CREDENTIALS", apperrors.ErrCodeInvalidCredentials, "invalid email or password"},
		{"email taken", 400, "EMAIL_EXISTS", apperrors.ErrCodeEmailAlreadyInUse, "Email has already been used."},
		{
			"weak password keeps detail", 400, "WEAK_PASSWORD : Password should be at least 6 characters",
			apperrors.ErrCodeWeakCredential, "Password should be at least 6 characters",
		},
		{"throttled", 400, "TOO_MANY_ATTEMPTS_TRY_LATER", apperrors.ErrCodeProvider, "identity provider error: TOO_MANY_ATTEMPTS_TRY_LATER"},
		{"server error", 500, "INTERNAL", apperrors.ErrCodeProvider, "identity provider error: INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeToolkit{t: t, status: tt.status, errMsg: tt.message}
			p := newTestProvider(t, fake)

			_, err := p.SignInWithPassword(context.Background(), "ada@example.com", "x")
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			assert.Equal(t, tt.text, apperrors.Message(err))
		})
	}
}

func TestProvider_NonJSONErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(Config{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = p.RegisterWithPassword(context.Background(), "a@example.com", "Secret1")
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeProvider))
}

func TestProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p, err := NewProvider(Config{APIKey: "k", BaseURL: base})
	require.NoError(t, err)

	_, err = p.SignInWithPassword(context.Background(), "a@example.com", "x")
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeProvider))
}
