package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeSync, "could not store profile")

	assert.Equal(t, "could not store profile: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "plain", New(ErrCodeInternal, "plain").Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "x"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "x %d", 1))
}

func TestGetCode_ThroughFmtWrapping(t *testing.T) {
	inner := New(ErrCodeInvalidCredentials, "bad login")
	wrapped := fmt.Errorf("sign in: %w", inner)

	assert.Equal(t, ErrCodeInvalidCredentials, GetCode(wrapped))
	assert.True(t, IsAppError(wrapped, ErrCodeInvalidCredentials))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "Email has already been used.",
		Message(fmt.Errorf("register: %w", New(ErrCodeEmailAlreadyInUse, "Email has already been used."))))
	assert.Equal(t, "raw", Message(errors.New("raw")))
}

func TestValidationFields(t *testing.T) {
	single := ValidationFields("invalid", map[string]string{"phone": "too short"})
	assert.Equal(t, "phone", single.Field)
	assert.True(t, IsValidation(single))

	src := map[string]string{"phone": "too short", "password": "weak"}
	multi := ValidationFields("invalid", src)
	require.Len(t, multi.Fields, 2)
	assert.Empty(t, multi.Field)

	src["email"] = "mutated"
	assert.Len(t, multi.Fields, 2, "fields must be copied")
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsConflict(Conflict("x")))
	assert.True(t, IsInternal(Internal("x")))
	assert.True(t, IsProviderCancelled(New(ErrCodeProviderCancelled, "x")))
	assert.False(t, IsProviderCancelled(New(ErrCodeProvider, "x")))
	assert.True(t, IsAppError(Unauthorized("x"), ErrCodeUnauthorized))
	assert.True(t, IsAppError(Forbidden("x"), ErrCodeForbidden))
	assert.True(t, IsValidation(ValidationField("email", "x")))
}
