package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	DBHost      string `env:"DB_HOST" env-default:"localhost"`
	DBPort      string `env:"DB_PORT" env-default:"5432"`
	DBUser      string `env:"DB_USER" env-default:"ledger"`
	DBPassword  string `env:"DB_PASSWORD" env-default:"ledger_secret"`
	DBName      string `env:"DB_NAME" env-default:"ledger"`
	DBSSLMode   string `env:"DB_SSLMODE" env-default:"disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" env-default:"false"`
	SeedDemo    bool   `env:"SEED_DEMO_DATA" env-default:"false"`
	GinMode     string `env:"GIN_MODE" env-default:"debug"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"file://migrations"`
	SwaggerSpec   string `env:"SWAGGER_SPEC" env-default:"docs/swagger.json"`

	// SessionSecret verifies the storefront's HS256 session tokens.
	SessionSecret string `env:"SESSION_SECRET" env-required:"true"`

	// Empty RedisURL keeps the reconciliation lock in process.
	RedisURL   string        `env:"REDIS_URL"`
	JobLockTTL time.Duration `env:"JOB_LOCK_TTL" env-default:"10m"`

	// Without brokers, events are only logged.
	KafkaBrokers []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" env-default:"commission-events"`

	// Zero disables scheduled reconciliation.
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" env-default:"0s"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET must not be empty")
	}
	if cfg.JobLockTTL <= 0 {
		return nil, fmt.Errorf("JOB_LOCK_TTL must be positive, got %s", cfg.JobLockTTL)
	}
	if cfg.ReconcileInterval < 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must not be negative, got %s", cfg.ReconcileInterval)
	}
	return &cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// WriteTimeout bounds HTTP responses. A triggered reconciliation answers
// inside the request, so it must outlast one lock TTL.
func (c *Config) WriteTimeout() time.Duration {
	return c.JobLockTTL + time.Minute
}
