package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/taskdesk/config"
	"github.com/target/taskdesk/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err = bootstrap.ApplyLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if err = bootstrap.ValidateServerConfig(&cfg); err != nil {
		return err
	}
	logStartupInfo(ctx, logger, &cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenUserStore(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close user store failed", "error", cerr)
		}
	}()

	verifier, err := bootstrap.BuildTokenVerifier(ctx, bootstrap.AuthConfig{Auth: cfg.Auth, Logger: logger})
	if err != nil {
		return fmt.Errorf("build token verifier: %w", err)
	}
	users, err := bootstrap.NewUserService(store.Repo, logger)
	if err != nil {
		return err
	}

	server := bootstrap.NewHTTPServer(bootstrap.HTTPServerConfig{
		HTTP:     cfg.HTTP,
		Users:    users,
		Verifier: verifier,
		Logger:   logger,
	})
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	return bootstrap.ServeUntilDone(ctx, server, ln, cfg.HTTP, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	attrs := []any{
		"auth_mode", cfg.Auth.Mode,
		"users_store", cfg.Users.Store,
		"addr", cfg.HTTP.Addr,
	}
	if cfg.Users.Store == config.UsersStorePostgres {
		attrs = append(attrs, "db_host", cfg.Postgres.Host, "db_port", cfg.Postgres.Port, "db_name", cfg.Postgres.Name)
	}
	logger.InfoContext(ctx, "starting taskdesk users API", attrs...)
}
