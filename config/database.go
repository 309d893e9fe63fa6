package config

import (
	"fmt"
	"strings"
)

// UsersStore selects the backing store for user profiles.
type UsersStore string

const (
	UsersStorePostgres UsersStore = "postgres"
	UsersStoreRedis    UsersStore = "redis"
	UsersStoreMemory   UsersStore = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for UsersStore.
func (s *UsersStore) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch UsersStore(v) {
	case UsersStorePostgres, UsersStoreRedis, UsersStoreMemory:
		*s = UsersStore(v)
		return nil
	default:
		return fmt.Errorf("invalid UsersStore: %q (valid options: postgres, redis, memory)", v)
	}
}

// UsersConfig configures user profile persistence.
type UsersConfig struct {
	Store UsersStore `env:"USERS_STORE" envDefault:"postgres"`
	// RedisKeyPrefix namespaces profile keys when Store=redis.
	RedisKeyPrefix string `env:"USERS_REDIS_KEY_PREFIX" envDefault:"user:"`
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"taskdesk"`
	Password string `env:"PASSWORD" envDefault:"taskdesk"`
	Name     string `env:"NAME"     envDefault:"taskdesk"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
