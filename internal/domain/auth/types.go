package auth

// Package auth contains domain-level types for sign-in, sessions and user profiles.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Credential is the normalized result of a successful identity-provider sign-in.
// Adapters map provider-specific payloads into this shape. Empty strings mean "absent".
type Credential struct {
	ProviderID  string    `json:"provider_id"` // opaque, provider-issued identifier (uid/sub)
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"` // zero when the provider gives no expiry

	// IDToken is the provider-issued bearer proof for backend calls. Never serialized.
	IDToken string `json:"-"`
}

// Greeting returns the name used when welcoming the user.
func (c Credential) Greeting() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Email
}

// Expired reports whether the provider session behind the credential has lapsed at now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// SessionState enumerates the process-wide sign-in states.
type SessionState int

const (
	SessionSignedOut SessionState = iota
	SessionAuthenticated
)

func (s SessionState) String() string {
	if s == SessionAuthenticated {
		return "authenticated"
	}
	return "signed_out"
}

// Session is the single process-wide notion of who is signed in.
// User is nil whenever State is SessionSignedOut.
type Session struct {
	State SessionState
	User  *Credential
}

// SignedOut returns the initial session value.
func SignedOut() Session { return Session{State: SessionSignedOut} }

// Authenticated returns a session holding a copy of cred.
func Authenticated(cred Credential) Session {
	c := cred
	return Session{State: SessionAuthenticated, User: &c}
}

// IsAuthenticated reports whether a user is signed in.
func (s Session) IsAuthenticated() bool {
	return s.State == SessionAuthenticated && s.User != nil
}

// IdentityKey identifies the signed-in principal: provider id, else lowercased email.
// It is empty when signed out.
func (s Session) IdentityKey() string {
	if !s.IsAuthenticated() {
		return ""
	}
	if s.User.ProviderID != "" {
		return s.User.ProviderID
	}
	return strings.ToLower(s.User.Email)
}

// RedirectContext carries the path the user was redirected from, as supplied by routing.
type RedirectContext struct {
	FromPath string
}

// NavigationIntent is a navigation command produced by an auth flow.
type NavigationIntent struct {
	TargetPath string
	Replace    bool
}

// UserProfileInput is the payload sent to the backend profile upsert.
// Only Email is required.
type UserProfileInput struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
	PhotoURL string    `json:"image,omitempty"`
	JoinedAt time.Time `json:"joinedDate,omitzero"`
}

// UserProfile is the backend-owned record describing an application user.
type UserProfile struct {
	ID         string    `json:"id"           db:"id"`
	ProviderID string    `json:"provider_id"  db:"provider_id"`
	Name       string    `json:"name"         db:"name"`
	Email      string    `json:"email"        db:"email"`
	Phone      string    `json:"phone"        db:"phone"`
	PhotoURL   string    `json:"photo_url"    db:"photo_url"`
	JoinedAt   time.Time `json:"joined_at"    db:"joined_at"`
	UpdatedAt  time.Time `json:"updated_at"   db:"updated_at"`
}

// UpsertResult reports the outcome of an idempotent profile upsert.
type UpsertResult struct {
	Profile UserProfile
	Created bool
}

// Principal is the caller identity proven by a verified bearer token.
type Principal struct {
	Subject string
	Email   string
}

// FeedbackLevel classifies user-visible acknowledgments.
type FeedbackLevel string

const (
	FeedbackSuccess FeedbackLevel = "success"
	FeedbackInfo    FeedbackLevel = "info"
	FeedbackFailure FeedbackLevel = "failure"
)

// Feedback is a user-visible acknowledgment (toast, dialog or inline field message).
// Field is set for inline messages bound to a form field.
type Feedback struct {
	Level   FeedbackLevel
	Title   string
	Message string
	Field   string
}

// NewUserProfile builds the record stored by the first upsert for an email.
func NewUserProfile(id string, in UserProfileInput, now time.Time) UserProfile {
	joined := in.JoinedAt
	if joined.IsZero() {
		joined = now
	}
	return UserProfile{
		ID:         id,
		ProviderID: in.ID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		PhotoURL:   in.PhotoURL,
		JoinedAt:   joined.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

// Merge applies a repeated upsert to an existing record. Non-empty incoming fields
// overwrite; ID and JoinedAt never change; ProviderID is only filled while empty.
func (p UserProfile) Merge(in UserProfileInput, now time.Time) UserProfile {
	if p.ProviderID == "" {
		p.ProviderID = in.ID
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Phone != "" {
		p.Phone = in.Phone
	}
	if in.PhotoURL != "" {
		p.PhotoURL = in.PhotoURL
	}
	p.UpdatedAt = now.UTC()
	return p
}
