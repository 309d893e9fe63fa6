package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Repo   ports.UserRepository // Required: profile persistence
	Logger *slog.Logger         // Optional: structured logger
	Now    func() time.Time     // Optional: clock, defaults to time.Now
}

// UserService implements the backend side of profile sync: an authenticated,
// idempotent upsert of one profile per normalized email.
type UserService struct {
	repo   ports.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) (*UserService, error) {
	if opts.Repo == nil {
		return nil, errors.New("UserRepository is required")
	}
	s := &UserService{repo: opts.Repo, now: opts.Now}
	if opts.Logger != nil {
		s.logger = opts.Logger.With("component", "user_service")
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *UserService) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// NormalizeEmail returns the canonical form used as the profile key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Upsert creates or updates the caller's profile. The caller may only write the profile
// matching its own verified email and subject.
func (s *UserService) Upsert(
	ctx context.Context,
	caller domainauth.Principal,
	in domainauth.UserProfileInput,
) (domainauth.UpsertResult, error) {
	in.Email = NormalizeEmail(in.Email)
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)

	if err := validateProfileInput(in); err != nil {
		return domainauth.UpsertResult{}, err
	}
	if callerEmail := NormalizeEmail(caller.Email); callerEmail == "" || callerEmail != in.Email {
		return domainauth.UpsertResult{}, apperrors.Forbidden("cannot write another user's profile")
	}
	switch {
	case in.ID == "":
		in.ID = caller.Subject
	case caller.Subject != "" && in.ID != caller.Subject:
		return domainauth.UpsertResult{}, apperrors.Forbidden("profile id does not match the caller")
	}
	if in.JoinedAt.IsZero() {
		in.JoinedAt = s.now().UTC()
	}

	res, err := s.repo.Upsert(ctx, in)
	if err != nil {
		return domainauth.UpsertResult{}, fmt.Errorf("upsert user: %w", err)
	}
	if res.Created {
		s.log().InfoContext(ctx, "user profile created", "user_id", res.Profile.ID)
	}
	return res, nil
}

// Me returns the caller's stored profile.
func (s *UserService) Me(ctx context.Context, caller domainauth.Principal) (domainauth.UserProfile, error) {
	email := NormalizeEmail(caller.Email)
	if email == "" {
		return domainauth.UserProfile{}, apperrors.Unauthorized("caller has no email")
	}
	profile, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return domainauth.UserProfile{}, fmt.Errorf("get user: %w", err)
	}
	return profile, nil
}

func validateProfileInput(in domainauth.UserProfileInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Name, validation.Length(0, 200)),
		validation.Field(&in.Phone, validation.Length(0, 32)),
		validation.Field(&in.PhotoURL, is.URL),
	)
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid user profile")
	}
	fields := make(map[string]string, len(fieldErrs))
	for name, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields[name] = fieldErr.Error()
		}
	}
	return apperrors.ValidationFields("invalid user profile", fields)
}
