package data

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/target/taskdesk/internal/migrate"
)

// RunMigrations brings the users schema up to date and returns the versions it applied.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]string, error) {
	return migrate.Run(ctx, db, logger)
}
