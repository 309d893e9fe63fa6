package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	"github.com/target/taskdesk/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeIdentityProvider)(nil)
	_ ports.ProfileSync      = (*FakeProfileSync)(nil)
	_ ports.Notifier         = (*RecordingNotifier)(nil)
	_ ports.Navigator        = (*RecordingNavigator)(nil)
)

// FakeIdentityProvider simulates an identity provider. Each operation delegates to its
// Func field when set and otherwise succeeds with DefaultUser.
type FakeIdentityProvider struct {
	SignInFunc        func(ctx context.Context, email, password string) (domainauth.Credential, error)
	RegisterFunc      func(ctx context.Context, email, password string) (domainauth.Credential, error)
	FederatedFunc     func(ctx context.Context) (domainauth.Credential, error)
	SignOutFunc       func(ctx context.Context) error
	UpdateProfileFunc func(ctx context.Context, displayName, photoURL string) error

	DefaultUser domainauth.Credential

	mu    sync.Mutex
	calls map[string]int
}

// NewFakeIdentityProvider creates a FakeIdentityProvider with sensible defaults.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		DefaultUser: domainauth.Credential{
			ProviderID:  "mock-user-1",
			Email:       "mock.user@example.com",
			DisplayName: "Mock User",
			IDToken:     "mock-id-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}
}

func (f *FakeIdentityProvider) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// Calls returns how many times op ("sign_in", "register", "federated", "sign_out",
// "update_profile") was invoked.
func (f *FakeIdentityProvider) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of provider invocations of any kind.
func (f *FakeIdentityProvider) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error) {
	f.record("sign_in")
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	user := f.DefaultUser
	user.Email = email
	return user, nil
}

func (f *FakeIdentityProvider) RegisterWithPassword(ctx context.Context, email, password string) (domainauth.Credential, error) {
	f.record("register")
	if f.RegisterFunc != nil {
		return f.RegisterFunc(ctx, email, password)
	}
	user := f.DefaultUser
	user.Email = email
	user.DisplayName = ""
	return user, nil
}

func (f *FakeIdentityProvider) SignInWithFederatedProvider(ctx context.Context) (domainauth.Credential, error) {
	f.record("federated")
	if f.FederatedFunc != nil {
		return f.FederatedFunc(ctx)
	}
	return f.DefaultUser, nil
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context) error {
	f.record("sign_out")
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	return nil
}

func (f *FakeIdentityProvider) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	f.record("update_profile")
	if f.UpdateProfileFunc != nil {
		return f.UpdateProfileFunc(ctx, displayName, photoURL)
	}
	return nil
}

// FakeProfileSync is an idempotent in-memory profile backend keyed by lowercased email.
type FakeProfileSync struct {
	// Err, when set, fails every call without touching the records.
	Err error

	mu      sync.Mutex
	records map[string]domainauth.UserProfile
	calls   int
	tokens  []string
}

// NewFakeProfileSync creates an empty FakeProfileSync.
func NewFakeProfileSync() *FakeProfileSync {
	return &FakeProfileSync{records: make(map[string]domainauth.UserProfile)}
}

func (f *FakeProfileSync) UpsertUser(
	_ context.Context,
	in domainauth.UserProfileInput,
	idToken string,
) (domainauth.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tokens = append(f.tokens, idToken)
	if f.Err != nil {
		return domainauth.UpsertResult{}, f.Err
	}
	if f.records == nil {
		f.records = make(map[string]domainauth.UserProfile)
	}

	key := strings.ToLower(strings.TrimSpace(in.Email))
	if existing, ok := f.records[key]; ok {
		return domainauth.UpsertResult{Profile: existing, Created: false}, nil
	}
	profile := domainauth.UserProfile{
		ID:         key,
		ProviderID: in.ID,
		Name:       in.Name,
		Email:      key,
		Phone:      in.Phone,
		PhotoURL:   in.PhotoURL,
		JoinedAt:   in.JoinedAt,
	}
	f.records[key] = profile
	return domainauth.UpsertResult{Profile: profile, Created: true}, nil
}

// Calls returns the number of UpsertUser invocations.
func (f *FakeProfileSync) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Records returns the number of stored profiles.
func (f *FakeProfileSync) Records() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Tokens returns the bearer tokens received, in call order.
func (f *FakeProfileSync) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

// RecordingNotifier captures feedback for assertions.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []domainauth.Feedback
}

func (n *RecordingNotifier) Notify(_ context.Context, fb domainauth.Feedback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fb)
}

// Events returns a copy of the recorded feedback.
func (n *RecordingNotifier) Events() []domainauth.Feedback {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domainauth.Feedback(nil), n.events...)
}

// Count returns how many events of the given level were recorded.
func (n *RecordingNotifier) Count(level domainauth.FeedbackLevel) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Level == level {
			c++
		}
	}
	return c
}

// RecordingNavigator captures navigation intents for assertions.
type RecordingNavigator struct {
	mu      sync.Mutex
	intents []domainauth.NavigationIntent
}

func (n *RecordingNavigator) Navigate(_ context.Context, intent domainauth.NavigationIntent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intent)
}

// Intents returns a copy of the recorded navigation intents.
func (n *RecordingNavigator) Intents() []domainauth.NavigationIntent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domainauth.NavigationIntent(nil), n.intents...)
}
