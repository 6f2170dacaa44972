package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides
const EnvPrefix = "PROPLEDGER"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
	Billing   BillingConfig
	Payment   PaymentConfig
	Storage   StorageConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
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

// RedisConfig holds Redis connection settings.
// When disabled, tenant locks and event idempotency fall back to in-process implementations.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds bearer token verification settings
type JWTConfig struct {
	Enabled bool
	Secret  string
	Issuer  string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	LogsEnabled       bool          // bridge zap logs to OTLP
	DBTraceEnabled    bool          // otelgorm spans for queries
	DBSlowQueryThresh time.Duration // slow query warning threshold
	ProfilingEnabled  bool
	PyroscopeAddress  string
}

// BillingConfig holds utility billing settings
type BillingConfig struct {
	// WaterTariff names the tariff strategy: flat or pump_cost
	WaterTariff string
	// WaterRateCentsPerUnit is the flat price of one consumption unit, in cents
	WaterRateCentsPerUnit decimal.Decimal
	// WaterDueDays is the number of days between issue and due date of water invoices
	WaterDueDays int
	// Workers bounds the number of units billed in parallel
	Workers int
	// RentDueDays is added to an installment due date for the invoice due date
	RentDueDays int
	// RunRateLimit caps billing runs per caller within RunRateWindow; 0 disables it
	RunRateLimit  int
	RunRateWindow time.Duration
	// ArchiveRuns uploads every run report to object storage
	ArchiveRuns bool
	// Schedule runs water billing for the previous month on a fixed day
	Schedule BillingScheduleConfig
}

// BillingScheduleConfig controls the monthly automatic water billing run
type BillingScheduleConfig struct {
	Enabled bool
	// DayOfMonth is 1 to 28 so every month has it
	DayOfMonth    int
	Hour          int
	CheckInterval time.Duration
}

// PaymentConfig holds payment processing settings
type PaymentConfig struct {
	// RetryAttempts bounds retries of a payment after a concurrency conflict
	RetryAttempts int
	// LockTTL is the expiry of the per-tenant payment lock
	LockTTL time.Duration
	// LockWait is how long to wait for the tenant lock before giving up
	LockWait time.Duration
}

// StorageConfig holds S3-compatible object storage settings for billing run archives
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string

	// PresignExpiration is the lifetime of archive download links
	PresignExpiration time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PROPLEDGER_ prefix (e.g., PROPLEDGER_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Enabled: v.GetBool("jwt.enabled"),
			Secret:  v.GetString("jwt.secret"),
			Issuer:  v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
		},
		Billing: BillingConfig{
			WaterTariff:   v.GetString("billing.water_tariff"),
			WaterDueDays:  v.GetInt("billing.water_due_days"),
			Workers:       v.GetInt("billing.workers"),
			RentDueDays:   v.GetInt("billing.rent_due_days"),
			RunRateLimit:  v.GetInt("billing.run_rate_limit"),
			RunRateWindow: v.GetDuration("billing.run_rate_window"),
			ArchiveRuns:   v.GetBool("billing.archive_runs"),
			Schedule: BillingScheduleConfig{
				Enabled:       v.GetBool("billing.schedule.enabled"),
				DayOfMonth:    v.GetInt("billing.schedule.day_of_month"),
				Hour:          v.GetInt("billing.schedule.hour"),
				CheckInterval: v.GetDuration("billing.schedule.check_interval"),
			},
		},
		Payment: PaymentConfig{
			RetryAttempts: v.GetInt("payment.retry_attempts"),
			LockTTL:       v.GetDuration("payment.lock_ttl"),
			LockWait:      v.GetDuration("payment.lock_wait"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			Prefix:            v.GetString("storage.prefix"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
	}

	if raw := v.GetString("billing.water_rate_cents_per_unit"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("billing.water_rate_cents_per_unit: %w", err)
		}
		cfg.Billing.WaterRateCentsPerUnit = rate
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "propledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "propledger"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "propledger"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// An empty origin list means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "propledger"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeAddress == "" {
		cfg.Telemetry.PyroscopeAddress = "http://localhost:4040"
	}
	if cfg.Billing.WaterTariff == "" {
		cfg.Billing.WaterTariff = "flat"
	}
	if cfg.Billing.WaterRateCentsPerUnit.IsZero() {
		cfg.Billing.WaterRateCentsPerUnit = decimal.NewFromInt(150)
	}
	if cfg.Billing.WaterDueDays == 0 {
		cfg.Billing.WaterDueDays = 14
	}
	if cfg.Billing.Workers == 0 {
		cfg.Billing.Workers = 4
	}
	if cfg.Billing.RunRateWindow == 0 {
		cfg.Billing.RunRateWindow = time.Minute
	}
	if cfg.Billing.Schedule.DayOfMonth == 0 {
		cfg.Billing.Schedule.DayOfMonth = 1
	}
	if cfg.Billing.Schedule.CheckInterval == 0 {
		cfg.Billing.Schedule.CheckInterval = time.Minute
	}
	if cfg.Payment.RetryAttempts == 0 {
		cfg.Payment.RetryAttempts = 3
	}
	if cfg.Payment.LockTTL == 0 {
		cfg.Payment.LockTTL = 30 * time.Second
	}
	if cfg.Payment.LockWait == 0 {
		cfg.Payment.LockWait = 10 * time.Second
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "billing-runs"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Billing.WaterTariff {
	case "flat", "pump_cost":
	default:
		return fmt.Errorf("billing.water_tariff must be flat or pump_cost, got %q", c.Billing.WaterTariff)
	}
	if c.Billing.WaterRateCentsPerUnit.IsNegative() {
		return fmt.Errorf("billing.water_rate_cents_per_unit cannot be negative")
	}
	if c.Billing.Workers < 1 {
		return fmt.Errorf("billing.workers must be at least 1")
	}
	if c.Billing.RentDueDays < 0 {
		return fmt.Errorf("billing.rent_due_days cannot be negative")
	}
	if c.Billing.RunRateLimit < 0 {
		return fmt.Errorf("billing.run_rate_limit cannot be negative")
	}
	if d := c.Billing.Schedule.DayOfMonth; d < 1 || d > 28 {
		return fmt.Errorf("billing.schedule.day_of_month must be between 1 and 28, got %d", d)
	}
	if h := c.Billing.Schedule.Hour; h < 0 || h > 23 {
		return fmt.Errorf("billing.schedule.hour must be between 0 and 23, got %d", h)
	}
	if c.Billing.ArchiveRuns && !c.Storage.Enabled {
		return fmt.Errorf("billing.archive_runs requires storage.enabled")
	}
	if c.Payment.RetryAttempts < 1 {
		return fmt.Errorf("payment.retry_attempts must be at least 1")
	}

	if c.JWT.Enabled && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required when jwt.enabled is true")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.enabled is true")
	}

	if c.App.Env == "production" {
		if c.JWT.Enabled && len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
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
