package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devSecret = "dev_secret"

// Config holds application configuration values.
type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"development"`
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	Secret          string        `envconfig:"JWT_SECRET"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:8080,http://localhost:8082,http://localhost:8084,http://localhost:8085"`

	// Embedded so their keys are not prefixed with the struct name.
	Database
	Seed
}

type Database struct {
	Driver   string `envconfig:"DB_DRIVER" default:"pgx"`
	DSN      string `envconfig:"DATABASE_DSN"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"pharmacy"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// Seed controls first-run data. An empty AdminPassword disables admin seeding.
type Seed struct {
	AdminUsername string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	MedicineCSV   string `envconfig:"MEDICINE_CSV" default:"assets/medicines.csv"`
}

// Load reads an optional .env file and decodes PHARMACY_* environment
// variables on top of the defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("pharmacy", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("invalid HTTP_PORT value %q", c.HTTPPort)
	}
	if c.Secret == "" {
		if !c.Development() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.Secret = devSecret
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL %s", c.TokenTTL)
	}
	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = c.Database.postgresDSN()
	}
	return nil
}

func (d Database) postgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Development reports whether the process runs with development defaults.
func (c Config) Development() bool {
	return c.Env == "development"
}
