// Package mocks provides mock implementations of the ports used by the auth flows and the users API.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockUserRepository(ctrl)
//	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(result, nil)
package mocks

// Generate mock for UserRepository interface from internal/ports package.
// This creates MockUserRepository with methods: Upsert, GetByEmail
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/target/taskdesk/internal/ports UserRepository

// Generate mock for TokenVerifier interface from internal/ports package.
// This creates MockTokenVerifier with methods: Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_verifier_mock.go github.com/target/taskdesk/internal/ports TokenVerifier

// Generate mock for IdentityProvider interface from internal/ports package.
// This creates MockIdentityProvider with methods:
// SignInWithPassword, RegisterWithPassword, SignInWithFederatedProvider, SignOut, UpdateProfile
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/target/taskdesk/internal/ports IdentityProvider

// Generate mock for ProfileSync interface from internal/ports package.
// This creates MockProfileSync with methods: UpsertUser
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_sync_mock.go github.com/target/taskdesk/internal/ports ProfileSync
