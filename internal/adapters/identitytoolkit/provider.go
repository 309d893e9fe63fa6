package identitytoolkit

// Package identitytoolkit is the email/password adapter over the Identity Toolkit REST API
// (accounts:signInWithPassword, accounts:signUp, accounts:update).

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var _ ports.PasswordProvider = (*Provider)(nil)

// DefaultBaseURL is the public Identity Toolkit endpoint.
const DefaultBaseURL = "https://identitytoolkit.googleapis.com"

const maxErrorBody = 64 << 10

// Config holds configuration for the Identity Toolkit adapter.
type Config struct {
	APIKey     string       // Required
	BaseURL    string       // Optional, defaults to DefaultBaseURL
	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
	Now        func() time.Time
}

// Provider implements ports.PasswordProvider. It remembers the current ID token so
// UpdateProfile can act on the signed-in account.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time

	mu      sync.Mutex
	idToken string
}

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("identity toolkit API key is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse identity toolkit base URL: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Provider{apiKey: cfg.APIKey, baseURL: base, client: client, now: now}, nil
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type updateRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName,omitempty"`
	PhotoURL          string `json:"photoUrl,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID        string `json:"localId"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	ProfilePicture string `json:"profilePicture"`
	PhotoURL       string `json:"photoUrl"`
	IDToken        string `json:"idToken"`
	ExpiresIn      string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword signs in an existing account.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error) {
	var out accountResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := p.call(ctx, "accounts:signInWithPassword", req, &out); err != nil {
		return domainauth.Credential{}, err
	}
	return p.remember(out), nil
}

// RegisterWithPassword creates a new account and signs it in.
func (p *Provider) RegisterWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error) {
	var out accountResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := p.call(ctx, "accounts:signUp", req, &out); err != nil {
		return domainauth.Credential{}, err
	}
	return p.remember(out), nil
}

// UpdateProfile sets the display name and photo of the signed-in account.
// It uses the token of the most recent sign-in, so a later sign-in retargets a pending update.
func (p *Provider) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	p.mu.Lock()
	token := p.idToken
	p.mu.Unlock()
	if token == "" {
		return apperrors.New(apperrors.ErrCodeProfileUpdate, "no user is signed in")
	}

	req := updateRequest{IDToken: token, DisplayName: displayName, PhotoURL: photoURL}
	if err := p.call(ctx, "accounts:update", req, nil); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProfileUpdate, apperrors.Message(err))
	}
	return nil
}

// SignOut forgets the current ID token. The REST API has no server-side sign-out.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idToken = ""
	return nil
}

func (p *Provider) remember(out accountResponse) domainauth.Credential {
	p.mu.Lock()
	p.idToken = out.IDToken
	p.mu.Unlock()

	cred := domainauth.Credential{
		ProviderID:  out.LocalID,
		Email:       out.Email,
		DisplayName: out.DisplayName,
		PhotoURL:    firstNonEmpty(out.PhotoURL, out.ProfilePicture),
		IDToken:     out.IDToken,
	}
	if secs, err := strconv.Atoi(out.ExpiresIn); err == nil && secs > 0 {
		cred.ExpiresAt = p.now().Add(time.Duration(secs) * time.Second)
	}
	return cred
}

func (p *Provider) call(ctx context.Context, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "encode request")
	}
	endpoint := p.baseURL + "/v1/" + method + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "identity provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if jsonErr := json.Unmarshal(raw, &er); jsonErr != nil || er.Error.Message == "" {
			return apperrors.New(apperrors.ErrCodeProvider, fmt.Sprintf("identity provider returned %d", resp.StatusCode))
		}
		return mapError(er.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "decode response")
	}
	return nil
}

// mapError translates an Identity Toolkit error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters" into an AppError.
func mapError(message string) error {
	code, detail, _ := strings.Cut(message, ":")
	code = strings.TrimSpace(code)
	detail = strings.TrimSpace(detail)

	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL":
		return apperrors.New(apperrors.ErrCodeInvalidCredentials, "invalid email or password")
	case "EMAIL_EXISTS":
		return apperrors.New(apperrors.ErrCodeEmailAlreadyInUse, "Email has already been used.")
	case "WEAK_PASSWORD":
		if detail == "" {
			detail = "Password is too weak"
		}
		return apperrors.New(apperrors.ErrCodeWeakCredential, detail)
	default:
		return apperrors.New(apperrors.ErrCodeProvider, "identity provider error: "+code)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
