package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Modem    ModemConfig
	Slots    SlotsConfig
	Events   EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Disabled  bool
}

// ModemConfig bounds the USSD session phases.
type ModemConfig struct {
	SendTimeoutSeconds   int
	CancelTimeoutSeconds int
	PollIntervalMillis   int
	MaxPollAttempts      int
	MaxPollErrors        int
	HTTPTimeoutSeconds   int
}

// SlotsConfig describes where slot seeds come from.
type SlotsConfig struct {
	Source        string
	File          string
	DefaultRegion string
}

// EventsConfig names the Redis keys used by outcome consumers.
type EventsConfig struct {
	OutcomeChannel  string
	BalanceKeyTTL   time.Duration
	RecordOutcomes  bool
	PublishOutcomes bool
}

const (
	SlotSourceFile     = "file"
	SlotSourcePostgres = "postgres"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sim-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 30),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:    getEnv("AUTH_JWT_ISSUER", "sim-gateway"),
			Disabled:  getEnvAsBool("AUTH_DISABLED", false),
		},
		Modem: ModemConfig{
			SendTimeoutSeconds:   getEnvAsInt("MODEM_SEND_TIMEOUT_SECONDS", 5),
			CancelTimeoutSeconds: getEnvAsInt("MODEM_CANCEL_TIMEOUT_SECONDS", 3),
			PollIntervalMillis:   getEnvAsInt("MODEM_POLL_INTERVAL_MS", 1000),
			MaxPollAttempts:      getEnvAsInt("MODEM_MAX_POLL_ATTEMPTS", 20),
			MaxPollErrors:        getEnvAsInt("MODEM_MAX_POLL_ERRORS", 3),
			HTTPTimeoutSeconds:   getEnvAsInt("MODEM_HTTP_TIMEOUT_SECONDS", 10),
		},
		Slots: SlotsConfig{
			Source:        getEnv("SLOTS_SOURCE", SlotSourceFile),
			File:          getEnv("SLOTS_FILE", "configs/slots.toml"),
			DefaultRegion: getEnv("SLOTS_DEFAULT_REGION", "DZ"),
		},
		Events: EventsConfig{
			OutcomeChannel:  getEnv("EVENTS_OUTCOME_CHANNEL", "ussd:outcomes"),
			BalanceKeyTTL:   time.Duration(getEnvAsInt("EVENTS_BALANCE_TTL_SECONDS", 86400)) * time.Second,
			RecordOutcomes:  getEnvAsBool("EVENTS_RECORD_OUTCOMES", true),
			PublishOutcomes: getEnvAsBool("EVENTS_PUBLISH_OUTCOMES", true),
		},
	}

	if cfg.Slots.Source != SlotSourceFile && cfg.Slots.Source != SlotSourcePostgres {
		return nil, fmt.Errorf("invalid SLOTS_SOURCE %q", cfg.Slots.Source)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SendTimeout bounds the send, poll and fetch requests.
func (m ModemConfig) SendTimeout() time.Duration {
	return time.Duration(m.SendTimeoutSeconds) * time.Second
}

// CancelTimeout bounds the stale-session cancel request.
func (m ModemConfig) CancelTimeout() time.Duration {
	return time.Duration(m.CancelTimeoutSeconds) * time.Second
}

// PollInterval is the cadence of status polls.
func (m ModemConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalMillis) * time.Millisecond
}

// HTTPTimeout is the hard ceiling of any single modem HTTP call.
func (m ModemConfig) HTTPTimeout() time.Duration {
	return time.Duration(m.HTTPTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
