package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

// User-visible acknowledgments produced by the auth flows.
const (
	msgLoginFieldFailure    = "Please check your email or password."
	msgLoginFailure         = "Login Failed. Please try again."
	msgSignedUp             = "Successfully Signed Up"
	msgProfileExists        = "Your profile already exists."
	msgStoreProfileFailed   = "There was an error storing user details. Please try again."
	msgEmailInUse           = "Email has already been used."
	msgRegistrationFailed   = "Sign up failed. Please try again."
	msgSignedOut            = "User signed out successfully"
	msgSignOutFailed        = "Sign out failed. Please try again."
	msgSessionExpired       = "Your session has expired. Please sign in again."
	msgUnexpectedFlowFailed = "Something went wrong. Please try again."

	// loginField is the inline-feedback field for password login failures.
	loginField = "login"
)

// Outcome classifies how an auth flow ended.
type Outcome string

const (
	// OutcomeSucceeded means every step of the flow completed.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomePartial means the provider step succeeded but backend sync did not.
	OutcomePartial Outcome = "partial"
	// OutcomeProfileExists means registration succeeded against an already stored profile.
	OutcomeProfileExists Outcome = "profile_exists"
	// OutcomeFailed means the flow failed before changing the session.
	OutcomeFailed Outcome = "failed"
	// OutcomeCancelled means the user dismissed the federated provider dialog.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeInvalid means client-side preconditions failed; nothing reached the network.
	OutcomeInvalid Outcome = "invalid"
)

// FlowResult describes what an entry point did. Err is informational; it has already
// been surfaced through the Notifier.
type FlowResult struct {
	Outcome    Outcome
	Err        error
	Navigation *domainauth.NavigationIntent
}

// AuthFlowOptions groups dependencies for AuthFlow.
type AuthFlowOptions struct {
	Provider  ports.IdentityProvider // Required: identity provider
	Sync      ports.ProfileSync      // Required: backend profile sync
	Session   *SessionWriter         // Required: sole write handle of the session store
	Notifier  ports.Notifier         // Required: user-visible feedback sink
	Navigator ports.Navigator        // Required: navigation sink
	Logger    *slog.Logger           // Optional: structured logger
	Now       func() time.Time       // Optional: clock, defaults to time.Now

	HomePath     string // Optional: defaults to "/"
	ProviderName string // Optional: federated provider display name, defaults to "Google"

	// RepairProfileOnLogin upserts the backend profile in the background after each
	// password login so identities whose registration sync failed are repaired.
	RepairProfileOnLogin bool
}

// AuthFlow orchestrates the password login, registration, federated login and sign-out
// flows: provider call, backend profile sync, session update, navigation and feedback.
// Entry points may run concurrently; the session store resolves to the last write.
type AuthFlow struct {
	provider  ports.IdentityProvider
	profiles  ports.ProfileSync
	session   *SessionWriter
	store     *SessionStore
	notifier  ports.Notifier
	navigator ports.Navigator
	logger    *slog.Logger
	now       func() time.Time

	homePath     string
	providerName string
	repair       bool

	background sync.WaitGroup
}

// NewAuthFlow constructs a new AuthFlow.
func NewAuthFlow(opts AuthFlowOptions) (*AuthFlow, error) {
	if opts.Provider == nil {
		return nil, errors.New("IdentityProvider is required")
	}
	if opts.Sync == nil {
		return nil, errors.New("ProfileSync is required")
	}
	if opts.Session == nil {
		return nil, errors.New("SessionWriter is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("Notifier is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("Navigator is required")
	}

	f := &AuthFlow{
		provider:     opts.Provider,
		profiles:     opts.Sync,
		session:      opts.Session,
		store:        opts.Session.Store(),
		notifier:     opts.Notifier,
		navigator:    opts.Navigator,
		now:          opts.Now,
		homePath:     safeRedirectPath(opts.HomePath),
		providerName: opts.ProviderName,
		repair:       opts.RepairProfileOnLogin,
	}
	if opts.Logger != nil {
		f.logger = opts.Logger.With("component", "auth_flow")
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.providerName == "" {
		f.providerName = "Google"
	}
	return f, nil
}

// MustNewAuthFlow constructs a new AuthFlow and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewAuthFlow(opts AuthFlowOptions) *AuthFlow {
	f, err := NewAuthFlow(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast during startup wiring when configuration is invalid
		panic(fmt.Sprintf("failed to create AuthFlow: %v", err))
	}
	return f
}

func (f *AuthFlow) log() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slog.Default()
}

// Store returns the read side of the session this flow writes.
func (f *AuthFlow) Store() *SessionStore {
	return f.store
}

// Wait blocks until background work started by the flows (profile updates, repairs) is done.
func (f *AuthFlow) Wait() {
	f.background.Wait()
}

// PasswordLoginInput groups parameters for PasswordLogin.
type PasswordLoginInput struct {
	Email    string
	Password string
	Redirect domainauth.RedirectContext
}

// PasswordLogin signs in with email and password, then navigates to the redirect target.
func (f *AuthFlow) PasswordLogin(ctx context.Context, in PasswordLoginInput) (res FlowResult) {
	defer f.recoverFlow(ctx, "password_login", &res)

	cred, err := f.provider.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		// Same text for every provider failure so accounts cannot be enumerated.
		f.log().InfoContext(ctx, "password login rejected", "code", apperrors.GetCode(err))
		f.notify(ctx, domainauth.Feedback{
			Level:   domainauth.FeedbackFailure,
			Message: msgLoginFieldFailure,
			Field:   loginField,
		})
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: msgLoginFailure})
		return FlowResult{Outcome: OutcomeFailed, Err: err}
	}

	f.session.SetAuthenticated(cred)
	f.log().InfoContext(ctx, "password login succeeded", "provider_id", cred.ProviderID)
	f.notify(ctx, domainauth.Feedback{
		Level:   domainauth.FeedbackSuccess,
		Title:   "Welcome",
		Message: "Hello, " + cred.Greeting(),
	})
	intent := ResolveNavigationIntent(in.Redirect, true)
	f.navigator.Navigate(ctx, intent)

	if f.repair {
		f.repairProfile(ctx, cred)
	}
	return FlowResult{Outcome: OutcomeSucceeded, Navigation: &intent}
}

// Register validates form, creates the provider account and stores the backend profile.
// The form is reset only when the backend confirms a new profile was created.
func (f *AuthFlow) Register(ctx context.Context, form *RegistrationForm) (res FlowResult) {
	defer f.recoverFlow(ctx, "register", &res)

	if form == nil {
		err := apperrors.ValidationField("form", "registration form is required")
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: err.Message})
		return FlowResult{Outcome: OutcomeInvalid, Err: err}
	}
	if err := form.Validate(); err != nil {
		f.notifyFieldErrors(ctx, err)
		return FlowResult{Outcome: OutcomeInvalid, Err: err}
	}

	cred, err := f.provider.RegisterWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		f.log().InfoContext(ctx, "registration rejected", "code", apperrors.GetCode(err))
		f.notify(ctx, domainauth.Feedback{
			Level:   domainauth.FeedbackFailure,
			Title:   "Sign Up Failed",
			Message: registrationFailureMessage(err),
		})
		return FlowResult{Outcome: OutcomeFailed, Err: err}
	}

	f.session.SetAuthenticated(cred)
	f.updateProfileAsync(ctx, form.Name, form.PhotoURL)

	result, err := f.profiles.UpsertUser(ctx, form.ProfileInput(cred, f.now()), cred.IDToken)
	if err != nil {
		f.log().ErrorContext(ctx, "store registered profile", "provider_id", cred.ProviderID, "error", err)
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: msgStoreProfileFailed})
		return FlowResult{Outcome: OutcomePartial, Err: err}
	}
	if !result.Created {
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackInfo, Message: msgProfileExists})
		return FlowResult{Outcome: OutcomeProfileExists}
	}

	form.Reset()
	f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackSuccess, Message: msgSignedUp})
	intent := domainauth.NavigationIntent{TargetPath: f.homePath, Replace: true}
	f.navigator.Navigate(ctx, intent)
	return FlowResult{Outcome: OutcomeSucceeded, Navigation: &intent}
}

// FederatedLogin signs in through the federated provider, stores the backend profile and
// navigates to the redirect target. A dismissed provider dialog is a silent no-op.
func (f *AuthFlow) FederatedLogin(ctx context.Context, redirect domainauth.RedirectContext) (res FlowResult) {
	defer f.recoverFlow(ctx, "federated_login", &res)

	cred, err := f.provider.SignInWithFederatedProvider(ctx)
	if err != nil {
		if apperrors.IsProviderCancelled(err) {
			f.log().DebugContext(ctx, "federated login cancelled")
			return FlowResult{Outcome: OutcomeCancelled, Err: err}
		}
		f.log().WarnContext(ctx, "federated login failed", "code", apperrors.GetCode(err), "error", err)
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: f.federatedFailureMessage()})
		return FlowResult{Outcome: OutcomeFailed, Err: err}
	}

	f.session.SetAuthenticated(cred)
	f.notify(ctx, domainauth.Feedback{
		Level:   domainauth.FeedbackSuccess,
		Message: "Successfully Signed In with " + f.providerName,
	})

	in := domainauth.UserProfileInput{ID: cred.ProviderID, Email: cred.Email, Name: cred.DisplayName}
	if _, err := f.profiles.UpsertUser(ctx, in, cred.IDToken); err != nil {
		f.log().ErrorContext(ctx, "store federated profile", "provider_id", cred.ProviderID, "error", err)
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: f.federatedFailureMessage()})
		return FlowResult{Outcome: OutcomePartial, Err: err}
	}

	intent := ResolveNavigationIntent(redirect, true)
	f.navigator.Navigate(ctx, intent)
	return FlowResult{Outcome: OutcomeSucceeded, Navigation: &intent}
}

// SignOut ends the provider session. The local session is cleared only once the provider
// confirms the sign-out.
func (f *AuthFlow) SignOut(ctx context.Context) (res FlowResult) {
	defer f.recoverFlow(ctx, "sign_out", &res)

	if err := f.provider.SignOut(ctx); err != nil {
		f.log().WarnContext(ctx, "sign out failed", "error", err)
		msg := apperrors.Message(err)
		if msg == "" {
			msg = msgSignOutFailed
		}
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: msg})
		return FlowResult{Outcome: OutcomeFailed, Err: err}
	}

	f.session.Clear()
	f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackSuccess, Message: msgSignedOut})
	intent := domainauth.NavigationIntent{TargetPath: f.homePath, Replace: false}
	f.navigator.Navigate(ctx, intent)
	return FlowResult{Outcome: OutcomeSucceeded, Navigation: &intent}
}

// ExpireIfStale signs the session out when its credential has expired at now.
// It reports whether the session was cleared.
func (f *AuthFlow) ExpireIfStale(ctx context.Context, now time.Time) bool {
	var expired string
	cleared := f.session.ClearIf(func(s domainauth.Session) bool {
		if s.User.Expired(now) {
			expired = s.IdentityKey()
			return true
		}
		return false
	})
	if !cleared {
		return false
	}
	f.log().InfoContext(ctx, "session expired", "identity", expired)
	f.notify(ctx, domainauth.Feedback{
		Level:   domainauth.FeedbackInfo,
		Title:   "Session Expired",
		Message: msgSessionExpired,
	})
	return true
}

// WatchExpiry checks for an expired session every interval until ctx is done.
func (f *AuthFlow) WatchExpiry(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.ExpireIfStale(ctx, f.now())
		}
	}
}

func (f *AuthFlow) updateProfileAsync(ctx context.Context, displayName, photoURL string) {
	bg := context.WithoutCancel(ctx)
	f.background.Add(1)
	go func() {
		defer f.background.Done()
		if err := f.provider.UpdateProfile(bg, displayName, photoURL); err != nil {
			f.log().WarnContext(bg, "update provider profile", "error", err)
		}
	}()
}

func (f *AuthFlow) repairProfile(ctx context.Context, cred domainauth.Credential) {
	if cred.Email == "" {
		return
	}
	bg := context.WithoutCancel(ctx)
	in := domainauth.UserProfileInput{
		ID:       cred.ProviderID,
		Name:     cred.DisplayName,
		Email:    cred.Email,
		PhotoURL: cred.PhotoURL,
	}
	f.background.Add(1)
	go func() {
		defer f.background.Done()
		result, err := f.profiles.UpsertUser(bg, in, cred.IDToken)
		if err != nil {
			f.log().WarnContext(bg, "repair profile on login", "provider_id", cred.ProviderID, "error", err)
			return
		}
		if result.Created {
			f.log().InfoContext(bg, "repaired missing profile", "provider_id", cred.ProviderID)
		}
	}()
}

func (f *AuthFlow) notify(ctx context.Context, fb domainauth.Feedback) {
	f.notifier.Notify(ctx, fb)
}

func (f *AuthFlow) notifyFieldErrors(ctx context.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || len(appErr.Fields) == 0 {
		f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: apperrors.Message(err)})
		return
	}
	names := make([]string, 0, len(appErr.Fields))
	for name := range appErr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f.notify(ctx, domainauth.Feedback{
			Level:   domainauth.FeedbackFailure,
			Message: appErr.Fields[name],
			Field:   name,
		})
	}
}

func (f *AuthFlow) federatedFailureMessage() string {
	return f.providerName + " Sign-In failed."
}

// recoverFlow keeps a panicking dependency from escaping an entry point.
func (f *AuthFlow) recoverFlow(ctx context.Context, flow string, res *FlowResult) {
	rec := recover()
	if rec == nil {
		return
	}
	err := apperrors.New(apperrors.ErrCodeInternal, fmt.Sprintf("%s: unexpected failure: %v", flow, rec))
	f.log().ErrorContext(ctx, "auth flow panic", "flow", flow, "panic", rec)
	f.notify(ctx, domainauth.Feedback{Level: domainauth.FeedbackFailure, Message: msgUnexpectedFlowFailed})
	*res = FlowResult{Outcome: OutcomeFailed, Err: err}
}

func registrationFailureMessage(err error) string {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeEmailAlreadyInUse:
		return msgEmailInUse
	case apperrors.ErrCodeWeakCredential:
		if msg := apperrors.Message(err); msg != "" {
			return msg
		}
	}
	return msgRegistrationFailed
}
