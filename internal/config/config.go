package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Postgres struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	DB       string `env:"POSTGRES_DB" env-default:"pollr"`
}

// DSN builds a connection string from the individual settings.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" env-default:"0.0.0.0:8080"`
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	DBDriver        string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	MongoURI        string        `env:"MONGO_URI" env-default:"mongodb://localhost:27017/?replicaSet=rs0"`
	MongoDatabase   string        `env:"MONGO_DATABASE" env-default:"pollr"`
	JWTSecret       string        `env:"JWT_SECRET" env-required:"true"`
	VoterSecret     string        `env:"VOTER_TOKEN_SECRET" env-required:"true"`
	VoterKeyID      string        `env:"VOTER_TOKEN_KEY_ID" env-default:"v1"`
	TallyCacheTTL   time.Duration `env:"TALLY_CACHE_TTL" env-default:"0s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-separator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	SyncInterval    time.Duration `env:"SYNC_INTERVAL" env-default:"1m"`
	Postgres        Postgres
}

// New loads an optional .env file and then reads the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TallyCacheTTL < 0 {
		return errors.New("TALLY_CACHE_TTL must not be negative")
	}
	return nil
}

// SQLDSN returns DATABASE_URL when set, otherwise a DSN for the driver.
func (c *Config) SQLDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBDriver == "sqlite" {
		return "file:pollr.db?_foreign_keys=1&_busy_timeout=5000"
	}
	return c.Postgres.DSN()
}

func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
