package httpx

import (
	"context"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
)

// principalKey is an unexported context key type to avoid collisions across packages.
type principalKey struct{}

// SetPrincipalInContext returns a child context that carries the verified caller.
func SetPrincipalInContext(ctx context.Context, p domainauth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the verified caller and whether one is present.
func PrincipalFromContext(ctx context.Context) (domainauth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domainauth.Principal)
	return p, ok
}
