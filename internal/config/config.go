package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` name the environment variable; nested
// structs are looked up by the same names, without a prefix.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	LogFile     string `envconfig:"LOG_FILE"`                      // empty logs to stdout only
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	HttpServer  ServerConfig
	GrpcServer  GrpcServerConfig
	Postgres    PostgresConfig
	Auth        AuthConfig
	Redis       RedisConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details. Host, user,
// password and database name are required when STORE_DRIVER is postgres.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

func (pc *PostgresConfig) missing() []string {
	var keys []string
	for key, value := range map[string]string{
		"POSTGRES_HOST":     pc.Host,
		"POSTGRES_USER":     pc.User,
		"POSTGRES_PASSWORD": pc.Password,
		"POSTGRES_DBNAME":   pc.DBName,
	} {
		if value == "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
}

// RedisConfig configures the category listing cache. An empty Addr disables it.
type RedisConfig struct {
	Addr       string        `envconfig:"REDIS_ADDR"`
	Password   string        `envconfig:"REDIS_PASSWORD"`
	DB         int           `envconfig:"REDIS_DB" default:"0"`
	ListingTTL time.Duration `envconfig:"REDIS_LISTING_TTL" default:"5m"`
}

func (rc *RedisConfig) Enabled() bool {
	return rc.Addr != ""
}

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Load reads the configuration from environment variables and checks the
// settings that depend on each other.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if missing := cfg.Postgres.missing(); len(missing) > 0 {
			slices.Sort(missing)
			return nil, fmt.Errorf("%w: %s required when STORE_DRIVER=postgres", ErrInvalidConfig, strings.Join(missing, ", "))
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, cfg.StoreDriver)
	}
	return &cfg, nil
}
