// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; real environment variables win over it.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.
type Config struct {
	Env  string `envconfig:"APP_ENV" required:"true"`
	Port string `envconfig:"APP_PORT" required:"true"`

	// --- Database ---
	DBUser string `envconfig:"DB_USER" required:"true"`
	DBPass string `envconfig:"DB_PASS"` // empty allowed
	DBHost string `envconfig:"DB_HOST" required:"true"`
	DBPort string `envconfig:"DB_PORT" required:"true"`
	DBName string `envconfig:"DB_NAME" required:"true"`

	DBMaxOpenConns int `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns int `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`

	// --- Auth ---
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLMin   int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"60"`
	RefreshTTLDays int    `envconfig:"REFRESH_TOKEN_TTL_DAYS" default:"14"`
	BcryptCost     int    `envconfig:"BCRYPT_COST" default:"10"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// RabbitMQURL enables domain events when set.
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`
	// ActivityLog is where the consume command appends events.
	ActivityLog string `envconfig:"ACTIVITY_LOG_PATH" default:"logs/activity.log"`

	TokenCleanupSpec string `envconfig:"TOKEN_CLEANUP_SPEC" default:"@hourly"`

	RateLimit RateLimitConfig `ignored:"true"`
	Redis     RedisConfig     `ignored:"true"`
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// DSN builds the MySQL data source name.  parseTime maps DATETIME to
// time.Time and loc=UTC keeps times consistent.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Validate checks the values envconfig cannot check on its own.
func (c Config) Validate() error {
	if c.AccessTTLMin <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be > 0")
	}
	if c.RefreshTTLDays <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL_DAYS must be > 0")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// Load reads the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	rl, err := LoadRateLimitConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimit = rl
	rc, err := LoadRedisConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Redis = rc
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
