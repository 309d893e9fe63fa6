package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/taskdesk/internal/domain/auth"
)

func TestFakeIdentityProvider_Defaults(t *testing.T) {
	provider := NewFakeIdentityProvider()
	ctx := context.Background()

	cred, err := provider.SignInWithPassword(ctx, "a@example.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", cred.Email)
	assert.Equal(t, "Mock User", cred.DisplayName)

	reg, err := provider.RegisterWithPassword(ctx, "b@example.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", reg.Email)
	assert.Empty(t, reg.DisplayName)

	require.NoError(t, provider.SignOut(ctx))
	assert.Equal(t, 1, provider.Calls("sign_in"))
	assert.Equal(t, 1, provider.Calls("register"))
	assert.Equal(t, 3, provider.TotalCalls())
}

func TestFakeIdentityProvider_Funcs(t *testing.T) {
	boom := errors.New("boom")
	provider := &FakeIdentityProvider{
		FederatedFunc: func(context.Context) (domainauth.Credential, error) {
			return domainauth.Credential{}, boom
		},
		UpdateProfileFunc: func(context.Context, string, string) error { return boom },
	}

	_, err := provider.SignInWithFederatedProvider(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, provider.UpdateProfile(context.Background(), "n", "p"), boom)
	assert.Equal(t, 1, provider.Calls("federated"))
	assert.Equal(t, 1, provider.Calls("update_profile"))
}

func TestFakeProfileSync_IdempotentByEmail(t *testing.T) {
	sync := NewFakeProfileSync()
	ctx := context.Background()

	first, err := sync.UpsertUser(ctx, domainauth.UserProfileInput{ID: "u1", Email: "A@Example.com"}, "tok-1")
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := sync.UpsertUser(ctx, domainauth.UserProfileInput{ID: "u1", Email: "a@example.com"}, "tok-2")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Profile, second.Profile)

	assert.Equal(t, 2, sync.Calls())
	assert.Equal(t, 1, sync.Records())
	assert.Equal(t, []string{"tok-1", "tok-2"}, sync.Tokens())
}

func TestFakeProfileSync_Err(t *testing.T) {
	sync := NewFakeProfileSync()
	sync.Err = errors.New("down")

	_, err := sync.UpsertUser(context.Background(), domainauth.UserProfileInput{Email: "a@example.com"}, "")
	require.Error(t, err)
	assert.Equal(t, 0, sync.Records())
}

func TestRecorders(t *testing.T) {
	var n RecordingNotifier
	n.Notify(context.Background(), domainauth.Feedback{Level: domainauth.FeedbackSuccess, Title: "ok"})
	n.Notify(context.Background(), domainauth.Feedback{Level: domainauth.FeedbackFailure, Title: "no"})
	assert.Len(t, n.Events(), 2)
	assert.Equal(t, 1, n.Count(domainauth.FeedbackFailure))

	var nav RecordingNavigator
	nav.Navigate(context.Background(), domainauth.NavigationIntent{TargetPath: "/", Replace: true})
	assert.Equal(t, []domainauth.NavigationIntent{{TargetPath: "/", Replace: true}}, nav.Intents())
}
