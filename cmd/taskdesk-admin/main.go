package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/target/taskdesk/config"
	"github.com/target/taskdesk/internal/bootstrap"
	apperrors "github.com/target/taskdesk/internal/errors"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader
}

const defaultCommandTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
		In:     os.Stdin,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"db-reset": {
			name:        "db-reset",
			description: "Drop the database schema and run migrations",
			run:         runDBReset,
		},
		"get-user": {
			name:        "get-user",
			description: "Print the stored profile for an email from the configured users store",
			run:         runGetUser,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: taskdesk-admin <command> [flags]\n\nAvailable commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-12s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

type timeoutOptions struct {
	Timeout time.Duration
}

type dbResetOptions struct {
	Timeout     time.Duration
	Yes         bool
	AllowRemote bool
}

type getUserOptions struct {
	Email   string
	Timeout time.Duration
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseTimeoutFlags("migrate", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.InfoContext(ctx, "running database migrations")
		return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
	})
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBResetFlags(args)
	if err != nil {
		return err
	}

	pg := cmdCtx.Config.Postgres
	if isLikelyRemoteHost(pg.Host) {
		if !opts.AllowRemote {
			return fmt.Errorf(
				"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
				pg.Host,
			)
		}
		// A remote reset always asks, even with --yes.
		opts.Yes = false
	}
	if !opts.Yes {
		target := fmt.Sprintf("database %q on %s:%d", pg.Name, pg.Host, pg.Port)
		if confirmErr := confirmAction(cmdCtx, "drop and recreate the public schema of "+target); confirmErr != nil {
			return confirmErr
		}
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.InfoContext(ctx, "dropping public schema", "database", pg.Name)
		if resetErr := resetSchema(ctx, db, pg.User, cmdCtx.Logger); resetErr != nil {
			return resetErr
		}
		cmdCtx.Logger.InfoContext(ctx, "re-running database migrations")
		return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
	})
}

func runGetUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseGetUserFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	cfg := cmdCtx.Config
	// Inspection must not change the schema.
	cfg.Postgres.RunMigrationsOnStart = false
	store, err := bootstrap.OpenUserStore(ctx, &cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close user store failed", "error", cerr)
		}
	}()

	profile, err := store.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(opts.Email)))
	if apperrors.IsNotFound(err) {
		return writef(cmdCtx.Out, "no profile stored for %s\n", opts.Email)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmdCtx.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}

func parseTimeoutFlags(name string, args []string) (timeoutOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := timeoutOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for the command to complete")
	if err := fs.Parse(args); err != nil {
		return timeoutOptions{}, err
	}
	if opts.Timeout <= 0 {
		return timeoutOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseDBResetFlags(args []string) (dbResetOptions, error) {
	fs := flag.NewFlagSet("db-reset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dbResetOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for reset operations to complete")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "Permit running against database hosts that do not look local")
	if err := fs.Parse(args); err != nil {
		return dbResetOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbResetOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseGetUserFlags(args []string) (getUserOptions, error) {
	fs := flag.NewFlagSet("get-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := getUserOptions{}
	fs.StringVar(&opts.Email, "email", "", "Email of the profile to print (required)")
	fs.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Maximum duration to wait for the lookup")
	if err := fs.Parse(args); err != nil {
		return getUserOptions{}, err
	}
	if strings.TrimSpace(opts.Email) == "" {
		return getUserOptions{}, errors.New("--email is required")
	}
	if opts.Timeout <= 0 {
		return getUserOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func signalContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, cancel := signalContext(cmdCtx.Ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

func resetSchema(ctx context.Context, db *sql.DB, owner string, logger *slog.Logger) error {
	statements := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if user := strings.TrimSpace(owner); user != "" && !strings.EqualFold(user, "public") {
		statements = append(statements, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(user))
	}

	for _, stmt := range statements {
		logger.DebugContext(ctx, "executing reset statement", "sql", stmt)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" || h == "localhost" || strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func confirmAction(cmdCtx *commandContext, action string) error {
	if err := writef(cmdCtx.Out, "About to %s.\nContinue? [y/N]: ", action); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
