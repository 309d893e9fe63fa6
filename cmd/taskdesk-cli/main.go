// Command taskdesk-cli is a terminal front end for the taskdesk sign-in flows.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/target/taskdesk/internal/adapters/profilesync"
	"github.com/target/taskdesk/internal/bootstrap"
)

const expiryCheckInterval = 30 * time.Second

func main() {
	// Logs go to stderr so they do not interleave with the prompt.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := run(context.Background(), logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must exit with failure status on fatal errors
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err = bootstrap.ValidateClientConfig(&cfg); err != nil {
		return err
	}

	// Ctrl-C keeps its default behavior; Ctrl-D ends the session.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	con := newConsole(os.Stdin, os.Stdout)
	provider, err := bootstrap.BuildIdentityProvider(ctx, bootstrap.AuthConfig{
		Auth:       cfg.Auth,
		Authorizer: con.authorizer(),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("build identity provider: %w", err)
	}
	profiles, err := profilesync.NewClient(profilesync.ClientOptions{
		BaseURL: cfg.Client.BackendBaseURL,
		Timeout: cfg.Client.BackendRequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("build profile sync client: %w", err)
	}

	a, err := newApp(appOptions{
		Provider:     provider,
		Sync:         profiles,
		Console:      con,
		Client:       cfg.Client,
		ProviderName: cfg.Auth.OAuth.ProviderName,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer a.close()

	go a.flow.WatchExpiry(ctx, expiryCheckInterval)

	con.printf("taskdesk (%s mode). Type help for commands.\n", cfg.Auth.Mode)
	return a.run(ctx)
}
