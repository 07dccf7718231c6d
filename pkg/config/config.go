package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LISTINI_APP_ENV" required:"true"`
	Port         string `envconfig:"LISTINI_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LISTINI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LISTINI_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is comma separated.
	CORSOrigins     []string      `envconfig:"LISTINI_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"LISTINI_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"LISTINI_DB_DSN"`

	LegacyHost     string `envconfig:"LISTINI_DB_HOST"`
	LegacyPort     int    `envconfig:"LISTINI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LISTINI_DB_USER"`
	LegacyPassword string `envconfig:"LISTINI_DB_PASSWORD"`
	LegacyName     string `envconfig:"LISTINI_DB_NAME"`
	LegacySSLMode  string `envconfig:"LISTINI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LISTINI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LISTINI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LISTINI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LISTINI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"LISTINI_DB_SLOW_QUERY" default:"200ms"`
}

// RedisConfig is optional: with neither URL nor address set the shared cache is disabled.
type RedisConfig struct {
	URL          string        `envconfig:"LISTINI_REDIS_URL"`
	Address      string        `envconfig:"LISTINI_REDIS_ADDR"`
	Password     string        `envconfig:"LISTINI_REDIS_PASSWORD"`
	DB           int           `envconfig:"LISTINI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LISTINI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LISTINI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LISTINI_REDIS_DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"LISTINI_REDIS_READ_TIMEOUT" default:"1s"`
	WriteTimeout time.Duration `envconfig:"LISTINI_REDIS_WRITE_TIMEOUT" default:"1s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"LISTINI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LISTINI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LISTINI_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PricingConfig struct {
	LookupTimeout      time.Duration `envconfig:"LISTINI_PRICING_LOOKUP_TIMEOUT" default:"3s"`
	CalculatedTTL      time.Duration `envconfig:"LISTINI_PRICING_CALCULATED_TTL" default:"30s"`
	TiersTTL           time.Duration `envconfig:"LISTINI_PRICING_TIERS_TTL" default:"5m"`
	LocalCacheSize     int           `envconfig:"LISTINI_PRICING_LOCAL_CACHE_SIZE" default:"2048"`
	EditPermission     string        `envconfig:"LISTINI_PRICING_EDIT_PERMISSION" default:"PRICE_EDIT"`
	LegacyEditMinLevel int           `envconfig:"LISTINI_PRICING_LEGACY_EDIT_LEVEL" default:"60"`

	// WindowSweepInterval is how often cached lookups are checked against
	// tier validity boundaries. Zero disables the sweep.
	WindowSweepInterval time.Duration `envconfig:"LISTINI_PRICING_WINDOW_SWEEP_INTERVAL" default:"1m"`
}

func (p PricingConfig) validate() error {
	if p.LookupTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvPricingLookupTimeout)
	}
	if p.LocalCacheSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvPricingLocalCacheSize)
	}
	if strings.TrimSpace(p.EditPermission) == "" {
		return fmt.Errorf("%s is required", EnvPricingEditPermission)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LISTINI_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
