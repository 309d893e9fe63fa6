package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/taskdesk/internal/adapters/devauth"
	"github.com/target/taskdesk/internal/data"
	"github.com/target/taskdesk/internal/service"
)

type usersAPI struct {
	handler http.Handler
	repo    *data.MemoryUserRepo
	auth    *devauth.Provider
}

func newUsersAPI(t *testing.T) usersAPI {
	t.Helper()
	cfg := devauth.Config{
		Secret:   "test-secret",
		Accounts: []devauth.Account{{Email: "ada@example.com", Password: "Secret1", DisplayName: "Ada"}},
	}
	prov, err := devauth.NewProvider(cfg)
	require.NoError(t, err)
	verifier, err := devauth.NewVerifier(cfg)
	require.NoError(t, err)

	repo := data.NewMemoryUserRepo()
	users, err := service.NewUserService(service.UserServiceOptions{
		Repo: repo,
		Now:  func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	return usersAPI{
		handler: NewRouter(RouterServices{Users: users, Verifier: verifier}),
		repo:    repo,
		auth:    prov,
	}
}

func (a usersAPI) token(t *testing.T) (string, string) {
	t.Helper()
	cred, err := a.auth.SignInWithPassword(context.Background(), "ada@example.com", "Secret1")
	require.NoError(t, err)
	return cred.IDToken, cred.ProviderID
}

func (a usersAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUsersAPI_UpsertCreatesThenReportsExisting(t *testing.T) {
	api := newUsersAPI(t)
	token, uid := api.token(t)

	body := map[string]any{
		"uid":        uid,
		"name":       "Ada",
		"email":      "Ada@Example.com",
		"photo":      "https://example.com/a.png",
		"phone":      "0123456",
		"joinedDate": "2024-04-01T10:00:00.000Z",
	}
	rec := api.do(http.MethodPost, "/users", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody(t, rec)
	assert.Equal(t, true, first["created"])
	assert.NotEmpty(t, first["insertedId"])
	user := first["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "https://example.com/a.png", user["photo_url"])
	assert.Equal(t, uid, user["provider_id"])

	rec = api.do(http.MethodPost, "/users", token, map[string]any{"id": uid, "email": "ada@example.com", "name": "Ada"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodeBody(t, rec)
	assert.Equal(t, false, second["created"])
	assert.Nil(t, second["insertedId"])
	assert.Equal(t, 1, api.repo.Len())
}

func TestUsersAPI_RequiresBearer(t *testing.T) {
	api := newUsersAPI(t)

	rec := api.do(http.MethodPost, "/users", "", map[string]any{"email": "ada@example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_required", decodeBody(t, rec)["error"])
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = api.do(http.MethodPost, "/users", "not-a-token", map[string]any{"email": "ada@example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, api.repo.Len())
}

func TestUsersAPI_RejectsOtherUsersEmail(t *testing.T) {
	api := newUsersAPI(t)
	token, _ := api.token(t)

	rec := api.do(http.MethodPost, "/users", token, map[string]any{"email": "mallory@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rec)["error"])
}

func TestUsersAPI_ValidationAndDecodeErrors(t *testing.T) {
	api := newUsersAPI(t)
	token, _ := api.token(t)

	rec := api.do(http.MethodPost, "/users", token, map[string]any{"name": "Ada"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Contains(t, body["fields"], "email")

	rec = api.do(http.MethodPost, "/users", token, map[string]any{"email": "ada@example.com", "joinedDate": "yesterday"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodPost, "/users", token, map[string]any{"email": "ada@example.com", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeBody(t, rec)["error"])
}

func TestUsersAPI_Me(t *testing.T) {
	api := newUsersAPI(t)
	token, _ := api.token(t)

	rec := api.do(http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/users", token, map[string]any{"email": "ada@example.com", "name": "Ada"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decodeBody(t, rec)["name"])
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	api := newUsersAPI(t)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = api.do(http.MethodHead, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = api.do(http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = api.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
