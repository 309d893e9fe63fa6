package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/taskdesk/config"
	redisadapter "github.com/target/taskdesk/internal/adapters/redis"
	"github.com/target/taskdesk/internal/data"
	"github.com/target/taskdesk/internal/ports"
	"github.com/target/taskdesk/internal/service"
)

// UserStore is the configured profile repository and the connections backing it.
type UserStore struct {
	Repo  ports.UserRepository
	DB    *sql.DB
	Redis redis.UniversalClient
}

// Close releases the store's connections.
func (s *UserStore) Close() error {
	var errs []error
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OpenUserStore connects the store selected by USERS_STORE.
func OpenUserStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*UserStore, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	switch cfg.Users.Store {
	case config.UsersStorePostgres:
		db, err := ConnectDB(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				return nil, errors.Join(err, db.Close())
			}
		} else if logger != nil {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
		return &UserStore{Repo: data.NewUserRepo(db), DB: db}, nil

	case config.UsersStoreRedis:
		client, err := ConnectRedis(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return &UserStore{Repo: redisadapter.NewUserStoreWithPrefix(client, cfg.Users.RedisKeyPrefix), Redis: client}, nil

	case config.UsersStoreMemory:
		if logger != nil {
			logger.WarnContext(ctx, "user profiles are kept in memory and lost on restart")
		}
		return &UserStore{Repo: data.NewMemoryUserRepo()}, nil

	default:
		return nil, fmt.Errorf("unsupported users store %q", cfg.Users.Store)
	}
}

// NewUserService builds the service behind the users API.
func NewUserService(repo ports.UserRepository, logger *slog.Logger) (*service.UserService, error) {
	return service.NewUserService(service.UserServiceOptions{Repo: repo, Logger: logger})
}
