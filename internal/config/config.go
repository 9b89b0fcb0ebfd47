package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/auth"
	pkgconfig "github.com/Ayoub-Elkhouzari/freelance-management/pkg/config"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/database"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/tracing"
)

const (
	ServiceName    = "freelance-api"
	ServiceVersion = "0.1.0"

	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"

	minSecretLength = 32
)

// Store and throttle drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverDisabled = "disabled"
)

// Config holds all configuration for the API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"3000"`

	// Storage
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser         string        `env:"POSTGRES_USER" envDefault:"freelance"`
	PostgresPass         string        `env:"POSTGRES_PASSWORD" envDefault:"freelance"`
	PostgresDB           string        `env:"POSTGRES_DB" envDefault:"freelance"`
	PostgresSSL          string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns           int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns           int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime    time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime    time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryThresholdMs int           `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// JWT
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET" envDefault:"dev-access-secret-change-me"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"dev-refresh-secret-change-me"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"freelance-api"`

	// Login throttle
	LoginThrottleDriver string        `env:"LOGIN_THROTTLE_DRIVER" envDefault:"memory"`
	LoginMaxFailures    int           `env:"LOGIN_MAX_FAILURES" envDefault:"5"`
	LoginLockout        time.Duration `env:"LOGIN_LOCKOUT" envDefault:"15m"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled     bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"freelance"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	OTELInsecure   bool    `env:"OTEL_INSECURE" envDefault:"true"`

	// HTTP edge
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	AuthRateLimitRPS   float64  `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int      `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load freelance config: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the development environment is selected.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks ranges, driver names and signing secrets.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}

	switch c.LoginThrottleDriver {
	case DriverRedis, DriverMemory, DriverDisabled:
	default:
		return fmt.Errorf("LOGIN_THROTTLE_DRIVER must be %q, %q or %q, got %q",
			DriverRedis, DriverMemory, DriverDisabled, c.LoginThrottleDriver)
	}
	if c.LoginThrottleDriver != DriverDisabled {
		if c.LoginMaxFailures < 1 {
			return fmt.Errorf("LOGIN_MAX_FAILURES must be positive, got %d", c.LoginMaxFailures)
		}
		if c.LoginLockout <= 0 {
			return fmt.Errorf("LOGIN_LOCKOUT must be positive, got %s", c.LoginLockout)
		}
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	if err := c.TokenConfig().Validate(); err != nil {
		return fmt.Errorf("JWT settings: %w", err)
	}

	// Outside development, require explicitly set, strong secrets.
	if !c.IsDevelopment() {
		if c.JWTAccessSecret == devAccessSecret || c.JWTRefreshSecret == devRefreshSecret {
			return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be explicitly set in %q mode", c.Environment)
		}
		if len(c.JWTAccessSecret) < minSecretLength || len(c.JWTRefreshSecret) < minSecretLength {
			return fmt.Errorf("JWT secrets must be at least %d characters long", minSecretLength)
		}
	}

	return nil
}

// TokenConfig returns the signing configuration handed to the token manager.
func (c *Config) TokenConfig() auth.Config {
	return auth.Config{
		AccessSecret:  []byte(c.JWTAccessSecret),
		RefreshSecret: []byte(c.JWTRefreshSecret),
		AccessTTL:     c.JWTAccessExpiry,
		RefreshTTL:    c.JWTRefreshExpiry,
		Issuer:        c.JWTIssuer,
	}
}

// PostgresConfig returns the pool configuration.
func (c *Config) PostgresConfig() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}

// RedisConfig returns the Redis client configuration.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:        c.RedisHost,
		Port:        c.RedisPort,
		Password:    c.RedisPassword,
		DB:          c.RedisDB,
		DialTimeout: 5 * time.Second,
	}
}

// TracingConfig returns the tracer configuration.
func (c *Config) TracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:        c.OTELEnabled,
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Insecure:       c.OTELInsecure,
	}
}
