package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the console's configuration values.
// Tags like `envconfig:"APP_ENV"` specify the environment variable name.
// `default:""` provides a value when the variable is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Catalog    CatalogConfig
	Postgres   PostgresConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"60s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	MaxUploadMB  int64         `envconfig:"HTTP_SERVER_MAX_UPLOAD_MB" default:"32"`
}

// GrpcServerConfig holds the port of the health/reflection gRPC listener.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// CatalogConfig describes the remote catalog API the console drives.
type CatalogConfig struct {
	BaseURL       string        `envconfig:"CATALOG_API_BASE_URL" default:"https://api.uzbekfoodstaff.ae/api/v1"`
	MediaBaseURL  string        `envconfig:"MEDIA_BASE_URL" default:"https://uzbekfoodstuff.pythonanywhere.com"`
	Timeout       time.Duration `envconfig:"CATALOG_API_TIMEOUT" default:"30s"`
	DefaultLocale string        `envconfig:"DEFAULT_LOCALE" default:"ru"`

	// Breaker trips after this many consecutive failures and stays open for BreakerOpenFor.
	BreakerMaxFailures uint32        `envconfig:"CATALOG_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenFor     time.Duration `envconfig:"CATALOG_BREAKER_OPEN_FOR" default:"30s"`
}

// PostgresConfig holds the optional session database. An empty Host selects the in-memory store.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// Enabled reports whether a Postgres session store was configured.
func (pc *PostgresConfig) Enabled() bool {
	return pc.Host != ""
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if cfg.Postgres.Enabled() && (cfg.Postgres.User == "" || cfg.Postgres.DBName == "") {
		return nil, fmt.Errorf("POSTGRES_USER and POSTGRES_DBNAME are required when POSTGRES_HOST is set")
	}
	return &cfg, nil
}

// NewLogger builds the zap logger for the given level; production encoding is used outside development.
func NewLogger(level, env string) (*zap.Logger, error) {
	var zapCfg zap.Config
	if env == "production" || env == "prod" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zapCfg.Build()
}
