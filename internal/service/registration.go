package service

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
)

// Registration password bounds.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 20
	MinPhoneDigits    = 6
	MaxPhoneDigits    = 11
)

// RegistrationForm holds the sign-up form fields. Validate runs every precondition
// before any network call is made.
type RegistrationForm struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PhotoURL        string `json:"photo"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate checks the registration preconditions and returns a validation AppError with
// one message per failing field.
func (f *RegistrationForm) Validate() error {
	err := validation.ValidateStruct(f,
		validation.Field(&f.Name, validation.Required.Error("Name is required.")),
		validation.Field(&f.Email,
			validation.Required.Error("Email is required."),
			is.Email.Error("Enter a valid email address."),
		),
		validation.Field(&f.Phone,
			validation.Required.Error("Phone number is required."),
			is.Digit.Error("Phone number must contain digits only."),
			validation.Length(MinPhoneDigits, MaxPhoneDigits).Error("Phone number must be 6 to 11 digits."),
		),
		validation.Field(&f.PhotoURL,
			validation.Required.Error("Photo URL is required."),
			is.URL.Error("Enter a valid photo URL."),
		),
		validation.Field(&f.Password,
			validation.Required.Error("Password is required."),
			validation.Length(MinPasswordLength, MaxPasswordLength).
				Error("Password must be 6 to 20 characters."),
			validation.By(mixedCase),
		),
		validation.Field(&f.ConfirmPassword,
			validation.Required.Error("Please confirm your password."),
			validation.By(stringEquals(f.Password, "Passwords do not match.")),
		),
	)
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "registration form is invalid")
	}
	fields := make(map[string]string, len(fieldErrs))
	for name, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields[name] = fieldErr.Error()
		}
	}
	return apperrors.ValidationFields("registration form is invalid", fields)
}

// Reset clears every field.
func (f *RegistrationForm) Reset() {
	*f = RegistrationForm{}
}

// ProfileInput builds the backend profile payload for a freshly registered credential.
func (f *RegistrationForm) ProfileInput(cred domainauth.Credential, now time.Time) domainauth.UserProfileInput {
	email := cred.Email
	if email == "" {
		email = strings.TrimSpace(f.Email)
	}
	return domainauth.UserProfileInput{
		ID:       cred.ProviderID,
		Name:     strings.TrimSpace(f.Name),
		Email:    email,
		Phone:    strings.TrimSpace(f.Phone),
		PhotoURL: strings.TrimSpace(f.PhotoURL),
		JoinedAt: now.UTC(),
	}
}

func mixedCase(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	var upper, lower bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		}
	}
	if !upper || !lower {
		return errors.New("Password must contain at least one uppercase and one lowercase letter.")
	}
	return nil
}

func stringEquals(want, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != want {
			return errors.New(message)
		}
		return nil
	}
}
