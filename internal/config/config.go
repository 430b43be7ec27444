package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStoreDatabase = "database"

	DefaultSessionTTL = 24 * time.Hour
)

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseDriver string
	DatabaseURL    string
	AutoMigrate    bool

	SessionStore      string
	SessionTTL        time.Duration
	SessionCookieName string
	SessionPepper     string
	CookieSecure      bool

	CSRFSecret     string
	CSRFCookieName string
	CSRFTokenSize  int

	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins      []string
	AuthRateLimitRPM int
	APIRateLimitRPM  int

	LogLevel string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration

	ReadinessProbeTimeout        time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load(envFile())
	cfg, err := fromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	recordLoadOutcome(context.Background(), os.Getenv("APP_ENV"), err)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

var errInvalidDuration = errors.New("invalid duration")

func envFile() string {
	if v := strings.TrimSpace(os.Getenv("ENV_FILE")); v != "" {
		return v
	}
	return ".env"
}

func fromEnv() (*Config, error) {
	var errs []error
	cfg := &Config{
		Env:      strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		HTTPAddr: getEnv("HTTP_ADDR", ":3000"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		SessionStore:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "sid"),
		SessionPepper:     getEnv("SESSION_PEPPER", ""),

		CSRFSecret:     getEnv("CSRF_SECRET", ""),
		CSRFCookieName: getEnv("CSRF_COOKIE_NAME", "__Host-csrf-token"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "pmstore-api"),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	cfg.OTELEnvironment = getEnv("OTEL_ENVIRONMENT", cfg.Env)

	cfg.AutoMigrate = parseBool("DATABASE_AUTO_MIGRATE", false, &errs)
	cfg.CookieSecure = parseBool("COOKIE_SECURE", true, &errs)
	cfg.OTELExporterOTLPInsecure = parseBool("OTEL_EXPORTER_OTLP_INSECURE", true, &errs)
	cfg.OTELMetricsEnabled = parseBool("OTEL_METRICS_ENABLED", false, &errs)
	cfg.OTELTracingEnabled = parseBool("OTEL_TRACING_ENABLED", false, &errs)
	cfg.OTELLogsEnabled = parseBool("OTEL_LOGS_ENABLED", false, &errs)

	cfg.CSRFTokenSize = parseInt("CSRF_TOKEN_SIZE", 64, &errs)
	cfg.BcryptCost = parseInt("BCRYPT_COST", 10, &errs)
	cfg.RedisDB = parseInt("REDIS_DB", 0, &errs)
	cfg.AuthRateLimitRPM = parseInt("AUTH_RATE_LIMIT_RPM", 30, &errs)
	cfg.APIRateLimitRPM = parseInt("API_RATE_LIMIT_RPM", 600, &errs)

	cfg.SessionTTL = parseDuration("SESSION_TTL", DefaultSessionTTL, &errs)
	cfg.OTELMetricsExportInterval = parseDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second, &errs)
	cfg.ReadinessProbeTimeout = parseDuration("READINESS_PROBE_TIMEOUT", 2*time.Second, &errs)
	cfg.ShutdownTimeout = parseDuration("SHUTDOWN_TIMEOUT", 20*time.Second, &errs)
	cfg.ShutdownHTTPDrainTimeout = parseDuration("SHUTDOWN_HTTP_DRAIN_TIMEOUT", 10*time.Second, &errs)
	cfg.ShutdownObservabilityTimeout = parseDuration("SHUTDOWN_OBSERVABILITY_TIMEOUT", 5*time.Second, &errs)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

func (c *Config) Validate() error {
	var problems []string
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		problems = append(problems, fmt.Sprintf("APP_ENV %q is not one of development, production, test", c.Env))
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreDatabase:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required when SESSION_STORE=redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("SESSION_STORE %q is not one of memory, redis, database", c.SessionStore))
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}
	if c.SessionCookieName == "" || c.CSRFCookieName == "" {
		problems = append(problems, "cookie names must not be empty")
	}
	if strings.HasPrefix(c.CSRFCookieName, "__Host-") && !c.CookieSecure {
		problems = append(problems, "CSRF_COOKIE_NAME with __Host- prefix requires COOKIE_SECURE=true")
	}
	if c.CSRFTokenSize < 16 {
		problems = append(problems, "CSRF_TOKEN_SIZE must be at least 16")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		problems = append(problems, "BCRYPT_COST must be between 4 and 31")
	}
	if c.IsProduction() {
		if len(c.CSRFSecret) < 32 {
			problems = append(problems, "CSRF_SECRET must be at least 32 characters in production")
		}
		if len(c.SessionPepper) < 32 {
			problems = append(problems, "SESSION_PEPPER must be at least 32 characters in production")
		}
		if !c.CookieSecure {
			problems = append(problems, "COOKIE_SECURE must be true in production")
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ParseError reports an environment variable that could not be parsed.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Key, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError lists every rule a parsed config violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validate config: " + strings.Join(e.Problems, "; ")
}

func getEnv(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

func parseBool(key string, defaultValue bool, errs *[]error) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, &ParseError{Key: key, Err: err})
		return defaultValue
	}
	return v
}

func parseInt(key string, defaultValue int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, &ParseError{Key: key, Err: err})
		return defaultValue
	}
	return v
}

func parseDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, &ParseError{Key: key, Err: errInvalidDuration})
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
