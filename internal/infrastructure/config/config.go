package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Idempotency IdempotencyConfig
	Audit       AuditConfig
	Masking     MaskingConfig
	Settlement  SettlementConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, console
	Output   string // stdout, stderr, or file path
	Sampling bool   // thin out repeated entries under load
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	ShutdownTimeout       time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	ActorRateLimit        float64 // sustained requests per second per actor
	ActorRateBurst        int
	AuthRateLimitRequests int           // login attempts per window per client IP
	AuthRateLimitWindow   time.Duration // login rate limit window
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// IdempotencyConfig controls mutation replay protection
type IdempotencyConfig struct {
	Backend         string        // database, redis or memory
	Retention       time.Duration // how long completed responses are replayed
	InProgressLease time.Duration // after this an IN_PROGRESS record may be taken over
	InFlightWait    time.Duration // how long a duplicate waits for the first request; 0 fails fast
	PollInterval    time.Duration
	KeyPrefix       string        // redis key prefix
	PruneInterval   time.Duration // background prune cadence; 0 disables it
}

// AuditConfig controls audit logging
type AuditConfig struct {
	RecordDenials bool // write FAIL rows for FORBIDDEN mutations
}

// MaskingConfig adds response field names to the PII masking table
type MaskingConfig struct {
	ExtraEmailFields   []string
	ExtraPhoneFields   []string
	ExtraNameFields    []string
	ExtraAddressFields []string
}

// SettlementConfig holds default settlement fee rates
type SettlementConfig struct {
	PGFeeRate       float64
	PlatformFeeRate float64
	PayoutDelayDays int
	GenerateLimit   int // max orders scanned per generate call
}

// TelemetryConfig holds OpenTelemetry and metrics configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry tracing
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
	// Prometheus
	MetricsEnabled bool
	MetricsPath    string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ADMIN_ prefix (e.g., ADMIN_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds the configuration from an initialized viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("ADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:    v.GetString("log.level"),
			Format:   v.GetString("log.format"),
			Output:   v.GetString("log.output"),
			Sampling: v.GetBool("log.sampling"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:       v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			ActorRateLimit:        v.GetFloat64("http.actor_rate_limit"),
			ActorRateBurst:        v.GetInt("http.actor_rate_burst"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Idempotency: IdempotencyConfig{
			Backend:         v.GetString("idempotency.backend"),
			Retention:       v.GetDuration("idempotency.retention"),
			InProgressLease: v.GetDuration("idempotency.in_progress_lease"),
			InFlightWait:    v.GetDuration("idempotency.in_flight_wait"),
			PollInterval:    v.GetDuration("idempotency.poll_interval"),
			KeyPrefix:       v.GetString("idempotency.key_prefix"),
			PruneInterval:   v.GetDuration("idempotency.prune_interval"),
		},
		Audit: AuditConfig{
			RecordDenials: v.GetBool("audit.record_denials"),
		},
		Masking: MaskingConfig{
			ExtraEmailFields:   v.GetStringSlice("masking.extra_email_fields"),
			ExtraPhoneFields:   v.GetStringSlice("masking.extra_phone_fields"),
			ExtraNameFields:    v.GetStringSlice("masking.extra_name_fields"),
			ExtraAddressFields: v.GetStringSlice("masking.extra_address_fields"),
		},
		Settlement: SettlementConfig{
			PGFeeRate:       v.GetFloat64("settlement.pg_fee_rate"),
			PlatformFeeRate: v.GetFloat64("settlement.platform_fee_rate"),
			PayoutDelayDays: v.GetInt("settlement.payout_delay_days"),
			GenerateLimit:   v.GetInt("settlement.generate_limit"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsPath:       v.GetString("telemetry.metrics_path"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults holds the value of every key the config file may leave out.
// CORS origins have none; cross-origin requests stay blocked until configured.
var defaults = map[string]any{
	"app.name":                          "shopadmin",
	"app.env":                           "development",
	"app.port":                          "8080",
	"database.host":                     "localhost",
	"database.port":                     5432,
	"database.user":                     "postgres",
	"database.dbname":                   "shopadmin",
	"database.sslmode":                  "disable",
	"database.max_open_conns":           25,
	"database.max_idle_conns":           5,
	"database.conn_max_lifetime":        60,
	"database.conn_max_idle_time":       30,
	"redis.host":                        "localhost",
	"redis.port":                        6379,
	"jwt.access_token_expiration":       30 * time.Minute,
	"jwt.refresh_token_expiration":      168 * time.Hour,
	"jwt.issuer":                        "shopadmin",
	"log.level":                         "info",
	"log.format":                        "console",
	"log.output":                        "stdout",
	"http.read_timeout":                 15 * time.Second,
	"http.write_timeout":                15 * time.Second,
	"http.idle_timeout":                 60 * time.Second,
	"http.shutdown_timeout":             30 * time.Second,
	"http.max_header_bytes":             1 << 20,
	"http.max_body_size":                1 << 20,
	"http.rate_limit_enabled":           true,
	"http.actor_rate_limit":             10.0,
	"http.actor_rate_burst":             20,
	"http.auth_rate_limit_requests":     5,
	"http.auth_rate_limit_window":       time.Minute,
	"http.cors_allow_methods":           []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":           []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"idempotency.backend":               "database",
	"idempotency.retention":             48 * time.Hour,
	"idempotency.in_progress_lease":     30 * time.Second,
	"idempotency.poll_interval":         50 * time.Millisecond,
	"idempotency.key_prefix":            "admin:idem:",
	"idempotency.prune_interval":        time.Hour,
	"audit.record_denials":              true,
	"settlement.pg_fee_rate":            0.033,
	"settlement.platform_fee_rate":      0.08,
	"settlement.payout_delay_days":      3,
	"settlement.generate_limit":         1000,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "shopadmin",
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.metrics_enabled":         true,
	"telemetry.metrics_path":            "/metrics",
}

// validate reports every invalid setting at once
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Database.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(c.Database.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(c.Database.MaxIdleConns <= c.Database.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
		c.Database.MaxIdleConns, c.Database.MaxOpenConns)

	switch c.Idempotency.Backend {
	case "database", "redis", "memory":
	default:
		check(false, "idempotency.backend must be one of database, redis, memory; got %q", c.Idempotency.Backend)
	}
	check(c.Idempotency.InFlightWait >= 0, "idempotency.in_flight_wait cannot be negative")
	check(c.Idempotency.Retention >= time.Hour,
		"idempotency.retention must be at least 1h, got %s", c.Idempotency.Retention)
	check(c.Idempotency.PruneInterval >= 0, "idempotency.prune_interval cannot be negative")

	check(c.Settlement.PGFeeRate >= 0 && c.Settlement.PGFeeRate < 1, "settlement.pg_fee_rate must be in [0, 1)")
	check(c.Settlement.PlatformFeeRate >= 0 && c.Settlement.PlatformFeeRate < 1,
		"settlement.platform_fee_rate must be in [0, 1)")
	check(c.Settlement.PayoutDelayDays >= 0, "settlement.payout_delay_days cannot be negative")

	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)

	if c.IsProduction() {
		check(c.JWT.Secret != "", "jwt.secret is required in production")
		check(c.JWT.Secret == "" || len(c.JWT.Secret) >= 32, "jwt.secret must be at least 32 characters in production")
		check(c.Database.Password != "", "database.password is required in production")
		check(c.Database.SSLMode != "disable", "database.sslmode cannot be 'disable' in production")
		check(!slices.Contains(c.HTTP.CORSAllowOrigins, "*"),
			"http.cors_allow_origins cannot be '*' in production (use specific origins)")
		check(c.Idempotency.Backend == "database",
			"idempotency.backend must be database in production; %s records are completed after commit", c.Idempotency.Backend)
		check(!c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
