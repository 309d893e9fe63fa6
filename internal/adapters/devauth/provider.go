package devauth

// Package devauth provides a self-contained identity provider for local development and tests.
// Accounts live in memory and ID tokens are HS256 JWTs checked by the matching Verifier.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	apperrors "github.com/target/taskdesk/internal/errors"
	"github.com/target/taskdesk/internal/ports"
)

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.TokenVerifier    = (*Verifier)(nil)
)

// Operation names accepted by InjectFailure.
const (
	OpSignIn        = "sign_in"
	OpRegister      = "register"
	OpFederated     = "federated"
	OpSignOut       = "sign_out"
	OpUpdateProfile = "update_profile"
)

const minPasswordLength = 6

// Account is a password account known to the provider.
type Account struct {
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
}

// FederatedIdentity is the identity returned by federated sign-in.
type FederatedIdentity struct {
	Subject     string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Config controls the dev auth provider behavior.
// Secret is required; everything else has a development default.
type Config struct {
	Secret          string
	Issuer          string    // default "taskdesk-devauth"
	Audience        string    // default "taskdesk"
	Accounts        []Account // seeded password accounts
	Federated       FederatedIdentity
	SessionDuration time.Duration // default 8h when zero
	Now             func() time.Time
}

type account struct {
	uid          string
	email        string
	passwordHash []byte
	displayName  string
	photoURL     string
}

// Provider implements ports.IdentityProvider entirely in memory.
type Provider struct {
	signer          tokenSigner
	federated       FederatedIdentity
	sessionDuration time.Duration
	now             func() time.Time

	mu       sync.Mutex
	accounts map[string]*account
	current  string
	faults   map[string]error
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Secret == "" {
		return nil, errors.New("dev auth: Secret is required")
	}
	cfg = withDefaults(cfg)

	p := &Provider{
		signer:          tokenSigner{secret: []byte(cfg.Secret), issuer: cfg.Issuer, audience: cfg.Audience},
		federated:       cfg.Federated,
		sessionDuration: cfg.SessionDuration,
		now:             cfg.Now,
		accounts:        make(map[string]*account),
		faults:          make(map[string]error),
	}
	for _, a := range cfg.Accounts {
		email := normalizeEmail(a.Email)
		if email == "" || a.Password == "" {
			return nil, fmt.Errorf("dev auth: account %q needs an email and a password", a.Email)
		}
		hash, err := hashPassword(a.Password)
		if err != nil {
			return nil, fmt.Errorf("dev auth: hash password for %q: %w", email, err)
		}
		p.accounts[email] = &account{
			uid:          uuid.NewString(),
			email:        email,
			passwordHash: hash,
			displayName:  a.DisplayName,
			photoURL:     a.PhotoURL,
		}
	}
	return p, nil
}

// NewVerifier returns the Verifier for tokens issued by a provider built from cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("dev auth: Secret is required")
	}
	cfg = withDefaults(cfg)
	return &Verifier{
		signer: tokenSigner{secret: []byte(cfg.Secret), issuer: cfg.Issuer, audience: cfg.Audience},
		now:    cfg.Now,
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Issuer == "" {
		cfg.Issuer = "taskdesk-devauth"
	}
	if cfg.Audience == "" {
		cfg.Audience = "taskdesk"
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = 8 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// InjectFailure makes the next call of op fail with err.
func (p *Provider) InjectFailure(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults[op] = err
}

// takeFault returns and clears the injected failure for op. Callers hold p.mu.
func (p *Provider) takeFault(op string) error {
	err := p.faults[op]
	delete(p.faults, op)
	return err
}

// SignInWithPassword checks the password of a known account.
func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (domainauth.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFault(OpSignIn); err != nil {
		return domainauth.Credential{}, err
	}

	acct, ok := p.accounts[normalizeEmail(email)]
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		return domainauth.Credential{}, apperrors.New(apperrors.ErrCodeInvalidCredentials, "invalid email or password")
	}
	return p.issueLocked(acct.uid, acct.email, acct.displayName, acct.photoURL)
}

// RegisterWithPassword creates a new account and signs it in.
func (p *Provider) RegisterWithPassword(_ context.Context, email, password string) (domainauth.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFault(OpRegister); err != nil {
		return domainauth.Credential{}, err
	}

	key := normalizeEmail(email)
	if key == "" {
		return domainauth.Credential{}, apperrors.New(apperrors.ErrCodeProvider, "email is required")
	}
	if _, exists := p.accounts[key]; exists {
		return domainauth.Credential{}, apperrors.New(apperrors.ErrCodeEmailAlreadyInUse, "Email has already been used.")
	}
	if len(password) < minPasswordLength {
		return domainauth.Credential{}, apperrors.New(apperrors.ErrCodeWeakCredential,
			fmt.Sprintf("Password should be at least %d characters", minPasswordLength))
	}

	hash, err := hashPassword(password)
	if err != nil {
		return domainauth.Credential{}, apperrors.Wrap(err, apperrors.ErrCodeProvider, "hash password")
	}
	acct := &account{uid: uuid.NewString(), email: key, passwordHash: hash}
	p.accounts[key] = acct
	return p.issueLocked(acct.uid, acct.email, "", "")
}

// SignInWithFederatedProvider returns the configured federated identity.
func (p *Provider) SignInWithFederatedProvider(_ context.Context) (domainauth.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFault(OpFederated); err != nil {
		return domainauth.Credential{}, err
	}
	fed := p.federated
	if fed.Subject == "" || fed.Email == "" {
		return domainauth.Credential{}, apperrors.New(apperrors.ErrCodeProvider, "federated sign-in is not configured")
	}
	return p.issueLocked(fed.Subject, normalizeEmail(fed.Email), fed.DisplayName, fed.PhotoURL)
}

// SignOut ends the current provider session.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFault(OpSignOut); err != nil {
		return err
	}
	p.current = ""
	return nil
}

// UpdateProfile sets the display name and photo of the signed-in password account.
func (p *Provider) UpdateProfile(_ context.Context, displayName, photoURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFault(OpUpdateProfile); err != nil {
		return err
	}
	if p.current == "" {
		return apperrors.New(apperrors.ErrCodeProfileUpdate, "no user is signed in")
	}
	for _, acct := range p.accounts {
		if acct.uid == p.current {
			acct.displayName = displayName
			acct.photoURL = photoURL
			return nil
		}
	}
	return apperrors.New(apperrors.ErrCodeProfileUpdate, "signed-in user has no password account")
}

// CurrentUser returns the provider id of the signed-in user, if any.
func (p *Provider) CurrentUser() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Provider) issueLocked(uid, email, name, photo string) (domainauth.Credential, error) {
	expires := p.now().Add(p.sessionDuration)
	raw, err := p.signer.sign(idClaims{
		Email:   email,
		Name:    name,
		Picture: photo,
	}, uid, p.now(), expires)
	if err != nil {
		return domainauth.Credential{}, apperrors.Wrap(err, apperrors.ErrCodeProvider, "issue id token")
	}
	p.current = uid
	return domainauth.Credential{
		ProviderID:  uid,
		Email:       email,
		DisplayName: name,
		PhotoURL:    photo,
		ExpiresAt:   expires,
		IDToken:     raw,
	}, nil
}

// Verifier checks ID tokens issued by Provider.
type Verifier struct {
	signer tokenSigner
	now    func() time.Time
}

// Verify validates signature, issuer, audience and expiry of rawToken.
func (v *Verifier) Verify(_ context.Context, rawToken string) (domainauth.Principal, error) {
	if rawToken == "" {
		return domainauth.Principal{}, apperrors.Unauthorized("missing bearer token")
	}
	claims, err := v.signer.parse(rawToken, v.now)
	if err != nil {
		return domainauth.Principal{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid bearer token")
	}
	return domainauth.Principal{Subject: claims.Subject, Email: claims.Email}, nil
}

type idClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type tokenSigner struct {
	secret   []byte
	issuer   string
	audience string
}

func (s tokenSigner) sign(claims idClaims, subject string, now, expires time.Time) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s tokenSigner) parse(raw string, now func() time.Time) (*idClaims, error) {
	var claims idClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &claims, nil
}

// Dev accounts use the minimum cost so seeding and tests stay fast.
func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
