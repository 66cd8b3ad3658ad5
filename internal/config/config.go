package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`
	BatchBodyLimit      string        `mapstructure:"BATCH_BODY_LIMIT"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ReferenceBackend    string        `mapstructure:"REFERENCE_BACKEND"`
	ReferenceSQLitePath string        `mapstructure:"REFERENCE_SQLITE_PATH"`
	GrowthDiagnostics   bool          `mapstructure:"GROWTH_DIAGNOSTICS"`
	GrowthClassifier    string        `mapstructure:"GROWTH_CLASSIFIER"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"BODY_LIMIT", "BATCH_BODY_LIMIT", "REQUEST_TIMEOUT",
	"REFERENCE_BACKEND", "REFERENCE_SQLITE_PATH",
	"GROWTH_DIAGNOSTICS", "GROWTH_CLASSIFIER",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. It does not validate; call Validate before serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BODY_LIMIT", "256K")
	v.SetDefault("BATCH_BODY_LIMIT", "8M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("REFERENCE_BACKEND", BackendPostgres)
	v.SetDefault("REFERENCE_SQLITE_PATH", "who_reference.db")
	v.SetDefault("GROWTH_DIAGNOSTICS", false)
	v.SetDefault("GROWTH_CLASSIFIER", "uniform")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = nil
			for _, o := range strings.Split(origins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.CORSOrigins = append(cfg.CORSOrigins, o)
				}
			}
		}
	}
	cfg.ReferenceBackend = strings.ToLower(strings.TrimSpace(cfg.ReferenceBackend))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Level parses LOG_LEVEL, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks that the configuration is safe to serve with. Outside
// development a signing key is required so that bearer tokens are enforced.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if err := c.ValidateReference(); err != nil {
		return err
	}
	if !c.IsDev() && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY of at least 32 bytes is required when ENV=%q", c.Env)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	switch c.GrowthClassifier {
	case "", "uniform", "indicator":
	default:
		return fmt.Errorf("GROWTH_CLASSIFIER must be \"uniform\" or \"indicator\", got %q", c.GrowthClassifier)
	}
	return nil
}

// ValidateReference checks only the reference backend settings, for commands
// that never touch patient data.
func (c *Config) ValidateReference() error {
	switch c.ReferenceBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for REFERENCE_BACKEND=postgres")
		}
	case BackendSQLite:
		if c.ReferenceSQLitePath == "" {
			return fmt.Errorf("REFERENCE_SQLITE_PATH is required for REFERENCE_BACKEND=sqlite")
		}
	default:
		return fmt.Errorf("REFERENCE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendSQLite, c.ReferenceBackend)
	}
	return nil
}
