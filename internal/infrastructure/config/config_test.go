package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "propledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "propledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "flat", cfg.Billing.WaterTariff)
		assert.True(t, cfg.Billing.WaterRateCentsPerUnit.Equal(decimal.NewFromInt(150)))
		assert.Equal(t, 4, cfg.Billing.Workers)
		assert.Equal(t, 3, cfg.Payment.RetryAttempts)
		assert.Equal(t, 30*time.Second, cfg.Payment.LockTTL)
		assert.False(t, cfg.Storage.Enabled)
		assert.Zero(t, cfg.Billing.RunRateLimit)
		assert.Equal(t, time.Minute, cfg.Billing.RunRateWindow)
		assert.False(t, cfg.Billing.Schedule.Enabled)
		assert.Equal(t, 1, cfg.Billing.Schedule.DayOfMonth)
	})

	t.Run("loads values from environment variables with PROPLEDGER prefix", func(t *testing.T) {
		t.Setenv("PROPLEDGER_APP_PORT", "9000")
		t.Setenv("PROPLEDGER_DATABASE_HOST", "db.internal")
		t.Setenv("PROPLEDGER_DATABASE_PORT", "5433")
		t.Setenv("PROPLEDGER_REDIS_ENABLED", "true")
		t.Setenv("PROPLEDGER_BILLING_WATER_TARIFF", "pump_cost")
		t.Setenv("PROPLEDGER_BILLING_WATER_RATE_CENTS_PER_UNIT", "87.5")
		t.Setenv("PROPLEDGER_BILLING_WORKERS", "8")
		t.Setenv("PROPLEDGER_PAYMENT_RETRY_ATTEMPTS", "5")
		t.Setenv("PROPLEDGER_PAYMENT_LOCK_TTL", "45s")
		t.Setenv("PROPLEDGER_BILLING_RUN_RATE_LIMIT", "6")
		t.Setenv("PROPLEDGER_BILLING_SCHEDULE_ENABLED", "true")
		t.Setenv("PROPLEDGER_BILLING_SCHEDULE_DAY_OF_MONTH", "3")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, "pump_cost", cfg.Billing.WaterTariff)
		assert.True(t, cfg.Billing.WaterRateCentsPerUnit.Equal(decimal.RequireFromString("87.5")))
		assert.Equal(t, 8, cfg.Billing.Workers)
		assert.Equal(t, 5, cfg.Payment.RetryAttempts)
		assert.Equal(t, 45*time.Second, cfg.Payment.LockTTL)
		assert.Equal(t, 6, cfg.Billing.RunRateLimit)
		assert.True(t, cfg.Billing.Schedule.Enabled)
		assert.Equal(t, 3, cfg.Billing.Schedule.DayOfMonth)
	})

	t.Run("rejects a malformed water rate", func(t *testing.T) {
		t.Setenv("PROPLEDGER_BILLING_WATER_RATE_CENTS_PER_UNIT", "cheap")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "water_rate_cents_per_unit")
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = 100 }, "max_idle_conns"},
		{"unknown tariff", func(c *Config) { c.Billing.WaterTariff = "tiered" }, "water_tariff"},
		{"negative rate", func(c *Config) { c.Billing.WaterRateCentsPerUnit = decimal.NewFromInt(-1) }, "water_rate"},
		{"jwt without secret", func(c *Config) { c.JWT.Enabled = true }, "jwt.secret"},
		{"storage without bucket", func(c *Config) { c.Storage.Enabled = true }, "storage.bucket"},
		{"production needs db password", func(c *Config) { c.App.Env = "production" }, "database.password"},
		{"production rejects wildcard cors", func(c *Config) {
			c.App.Env = "production"
			c.Database.Password = "secret"
			c.Database.SSLMode = "require"
			c.HTTP.CORSAllowOrigins = []string{"*"}
		}, "cors_allow_origins"},
		{"negative run rate limit", func(c *Config) { c.Billing.RunRateLimit = -1 }, "run_rate_limit"},
		{"schedule day past 28", func(c *Config) { c.Billing.Schedule.DayOfMonth = 31 }, "day_of_month"},
		{"schedule hour out of range", func(c *Config) { c.Billing.Schedule.Hour = 24 }, "schedule.hour"},
		{"archiving without storage", func(c *Config) { c.Billing.ArchiveRuns = true }, "archive_runs"},
		{"sampling ratio out of range", func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, "sampling_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "ledger", Password: "p@ss word", DBName: "propledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://ledger:p%40ss%20word@db:5432/propledger?sslmode=disable", d.DSN())
}
