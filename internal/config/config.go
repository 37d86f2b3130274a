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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Appointment  AppointmentConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	PublicURL             string
	RequestTimeoutSeconds int
	Timezone              string
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
	Addr         string
	Password     string
	DB           int
	LockTTLMilli int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

// AppointmentConfig holds the business constants of the booking core.
type AppointmentConfig struct {
	CancelCutoffMinutes int
	PageSize            int
	BookingRatePerMin   int
	BookingRateBurst    int
}

// NotificationConfig selects the mail transport and bounds notification delivery.
type NotificationConfig struct {
	Provider            string
	EmailFrom           string
	EmailFromName       string
	SendGridAPIKey      string
	AWSRegion           string
	Locale              string
	SendTimeoutSeconds  int
	MaxAttempts         int
	PollIntervalSeconds int
	BatchSize           int
	DispatcherWorkers   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tz := getEnv("APP_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "appointment-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3333"),
			Version:               getEnv("APP_VERSION", "dev"),
			PublicURL:             getEnv("APP_URL", "http://localhost:3333"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			Timezone:              tz,
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
			Addr:         os.Getenv("REDIS_ADDR"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			LockTTLMilli: getEnvAsInt("REDIS_LOCK_TTL_MS", 5000),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60*24*7),
		},
		Appointment: AppointmentConfig{
			CancelCutoffMinutes: getEnvAsInt("APPOINTMENT_CANCEL_CUTOFF_MINUTES", 120),
			PageSize:            getEnvAsInt("APPOINTMENT_PAGE_SIZE", 20),
			BookingRatePerMin:   getEnvAsInt("APPOINTMENT_BOOKING_RATE_PER_MINUTE", 30),
			BookingRateBurst:    getEnvAsInt("APPOINTMENT_BOOKING_RATE_BURST", 5),
		},
		Notification: NotificationConfig{
			Provider:            getEnv("NOTIFY_PROVIDER", "stub"),
			EmailFrom:           getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EmailFromName:       getEnv("NOTIFY_EMAIL_FROM_NAME", "Equipe GoBarber"),
			SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
			AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
			Locale:              getEnv("NOTIFY_LOCALE", "pt_BR"),
			SendTimeoutSeconds:  getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10),
			MaxAttempts:         getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 2),
			PollIntervalSeconds: getEnvAsInt("NOTIFY_POLL_INTERVAL_SECONDS", 2),
			BatchSize:           getEnvAsInt("NOTIFY_BATCH_SIZE", 25),
			DispatcherWorkers:   getEnvAsInt("NOTIFY_DISPATCHER_WORKERS", 4),
		},
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

// Location resolves the deployment timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LockTTL returns how long a slot lock may be held before Redis expires it.
func (r RedisConfig) LockTTL() time.Duration {
	if r.LockTTLMilli <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.LockTTLMilli) * time.Millisecond
}

// CancelCutoff returns the minimum notice required to cancel an appointment.
func (a AppointmentConfig) CancelCutoff() time.Duration {
	if a.CancelCutoffMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(a.CancelCutoffMinutes) * time.Minute
}

// SendTimeout bounds a single mail delivery attempt.
func (n NotificationConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// PollInterval returns how often the mail outbox is drained.
func (n NotificationConfig) PollInterval() time.Duration {
	if n.PollIntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(n.PollIntervalSeconds) * time.Second
}

// Attempts clamps delivery attempts to one send plus at most one retry.
func (n NotificationConfig) Attempts() int {
	switch {
	case n.MaxAttempts < 1:
		return 1
	case n.MaxAttempts > 2:
		return 2
	default:
		return n.MaxAttempts
	}
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
