package profilesync

// Package profilesync calls the backend users API to upsert the profile of a signed-in identity.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var _ ports.ProfileSync = (*Client)(nil)

const maxResponseBody = 1 << 20

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	// Required: base URL of the backend, e.g. "http://localhost:8080".
	BaseURL string

	// Optional.
	HTTPClient *http.Client
	// Timeout bounds each request when positive. Zero leaves requests unbounded.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client implements ports.ProfileSync over POST {BaseURL}/users.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

// NewClient validates opts and returns a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "profile_sync")
	}
	return &Client{endpoint: base + "/users", http: hc, timeout: opts.Timeout, logger: logger}, nil
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

type upsertRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email"`
	Image      string `json:"image,omitempty"`
	Phone      string `json:"phone,omitempty"`
	JoinedDate string `json:"joinedDate,omitempty"`
}

type upsertResponse struct {
	Created    *bool                   `json:"created"`
	InsertedID string                  `json:"insertedId"`
	User       *domainauth.UserProfile `json:"user"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UpsertUser posts the profile. Email is required and checked before any network call.
func (c *Client) UpsertUser(
	ctx context.Context,
	in domainauth.UserProfileInput,
	idToken string,
) (domainauth.UpsertResult, error) {
	if strings.TrimSpace(in.Email) == "" {
		return domainauth.UpsertResult{}, apperrors.ValidationField("email", "email is required")
	}

	body := upsertRequest{
		ID:    in.ID,
		Name:  in.Name,
		Email: in.Email,
		Image: in.PhotoURL,
		Phone: in.Phone,
	}
	if !in.JoinedAt.IsZero() {
		body.JoinedDate = in.JoinedAt.UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return domainauth.UpsertResult{}, apperrors.Wrap(err, apperrors.ErrCodeSync, "encode user profile")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domainauth.UpsertResult{}, apperrors.Wrap(err, apperrors.ErrCodeSync, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domainauth.UpsertResult{}, apperrors.Wrap(err, apperrors.ErrCodeSync, "backend unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return domainauth.UpsertResult{}, apperrors.Wrap(err, apperrors.ErrCodeSync, "read backend response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		c.log().WarnContext(ctx, "profile sync rejected",
			"status", resp.StatusCode,
			"error", eb.Error,
		)
		msg := fmt.Sprintf("backend returned %d", resp.StatusCode)
		if eb.Message != "" {
			msg += ": " + eb.Message
		}
		return domainauth.UpsertResult{}, apperrors.New(apperrors.ErrCodeSync, msg)
	}

	var out upsertResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return domainauth.UpsertResult{}, apperrors.Wrap(err, apperrors.ErrCodeSync, "decode backend response")
		}
	}

	result := domainauth.UpsertResult{Created: out.InsertedID != ""}
	if out.Created != nil {
		result.Created = *out.Created
	}
	if out.User != nil {
		result.Profile = *out.User
	} else {
		result.Profile = domainauth.UserProfile{ID: out.InsertedID, Email: in.Email}
	}
	return result, nil
}
