package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v10"
)

// Drivers de almacenamiento soportados.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Proveedores LLM soportados. Vacio desactiva el LLM y deja las respuestas por reglas.
const (
	ProviderNone      = ""
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"medcase.db"`
	SeedFile    string `env:"SEED_FILE"`

	LLMProvider string `env:"LLM_PROVIDER"`
	LLMAPIKey   string `env:"LLM_API_KEY"`
	LLMBaseURL  string `env:"LLM_BASE_URL"`
	LLMModel    string `env:"LLM_MODEL"`

	ReplyDelay time.Duration `env:"REPLY_DELAY" envDefault:"1s"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"5m"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return errors.New("STORE_DRIVER must be one of memory, postgres, sqlite")
	}

	switch c.LLMProvider {
	case ProviderNone:
	case ProviderOpenAI, ProviderAnthropic:
		if c.LLMAPIKey == "" {
			return errors.New("LLM_API_KEY is required when LLM_PROVIDER is set")
		}
	default:
		return errors.New("LLM_PROVIDER must be empty, openai or anthropic")
	}

	if c.ReplyDelay < 0 {
		return errors.New("REPLY_DELAY must not be negative")
	}
	return nil
}

// IsDevelopment indica si el logger debe usar la configuración de desarrollo.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
