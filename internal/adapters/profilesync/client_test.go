package profilesync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
)

func newClient(t *testing.T, h http.Handler, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientOptions{BaseURL: srv.URL + "/", HTTPClient: srv.Client(), Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	require.Error(t, err)
	_, err = NewClient(ClientOptions{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestClient_UpsertUser_SendsPayloadAndBearer(t *testing.T) {
	var got map[string]any
	var auth, path, method string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path, auth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"created":true,"insertedId":"u-1"}`))
	}), 0)

	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res, err := c.UpsertUser(context.Background(), domainauth.UserProfileInput{
		ID:       "uid-1",
		Name:     "Ada",
		Email:    "ada@example.com",
		Phone:    "0123456",
		PhotoURL: "https://example.com/a.png",
		JoinedAt: joined,
	}, "tok-1")
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "u-1", res.Profile.ID)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/users", path)
	assert.Equal(t, "Bearer tok-1", auth)
	assert.Equal(t, map[string]any{
		"id":         "uid-1",
		"name":       "Ada",
		"email":      "ada@example.com",
		"phone":      "0123456",
		"image":      "https://example.com/a.png",
		"joinedDate": "2024-05-01T12:00:00Z",
	}, got)
}

func TestClient_UpsertUser_ExistingProfile(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"created":false,"user":{"id":"u-1","email":"ada@example.com","name":"Ada"}}`))
	}), 0)

	res, err := c.UpsertUser(context.Background(), domainauth.UserProfileInput{Email: "ada@example.com"}, "tok")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "Ada", res.Profile.Name)
}

func TestClient_UpsertUser_CreatedFallsBackToInsertedID(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"insertedId":"abc"}`))
	}), 0)

	res, err := c.UpsertUser(context.Background(), domainauth.UserProfileInput{Email: "a@example.com"}, "")
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestClient_UpsertUser_EmailRequiredBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }), 0)

	_, err := c.UpsertUser(context.Background(), domainauth.UserProfileInput{Name: "x"}, "tok")
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, hits.Load())
}

func TestClient_UpsertUser_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal","message":"boom"}`))
		}},
		{"unauthorized", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, tt.handler, 0)
			_, err := c.UpsertUser(context.Background(), domainauth.UserProfileInput{Email: "a@example.com"}, "tok")
			assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeSync))
		})
	}
}

func TestClient_UpsertUser_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), 20*time.Millisecond)
	// Registered after newClient so the handler is released before the server closes.
	t.Cleanup(func() { close(release) })

	_, err := c.UpsertUser(context.Background(), domainauth.UserProfileInput{Email: "a@example.com"}, "tok")
	assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeSync))
}
