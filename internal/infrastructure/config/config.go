package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the API server configuration.
type Config struct {
	Port           string        `env:"PORT,             default=8080"`
	Env            string        `env:"ENV,              default=development"`
	LogLevel       string        `env:"LOG_LEVEL,        default=info"`
	JWTSecret      string        `env:"JWT_SECRET"`
	ServiceRoleKey string        `env:"SERVICE_ROLE_KEY"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT,  default=5s"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	Kafka KafkaConfig
}

type AuthConfig struct {
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	RateLimit       float64       `env:"AUTH_RATE_LIMIT,   default=1"`
	RateBurst       int           `env:"AUTH_RATE_BURST,   default=5"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=propspace"`
}

type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR,        default=localhost:6379"`
	DB              int           `env:"REDIS_DB,          default=0"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL, default=5m"`
}

type KafkaConfig struct {
	Brokers      []string `env:"KAFKA_BROKERS"`
	ProfileTopic string   `env:"KAFKA_PROFILE_TOPIC, default=propspace.profiles"`
	Workers      int      `env:"EVENT_WORKERS,       default=4"`
}

// Development reports whether the server runs outside production.
func (c *Config) Development() bool {
	return !strings.EqualFold(c.Env, "production")
}

// ClientConfig configures the propspace CLI.
type ClientConfig struct {
	APIURL         string        `env:"PROPSPACE_API_URL,         default=http://localhost:8080"`
	SessionFile    string        `env:"PROPSPACE_SESSION_FILE"`
	ResolveTimeout time.Duration `env:"PROPSPACE_RESOLVE_TIMEOUT, default=10s"`
	RefreshMargin  time.Duration `env:"PROPSPACE_REFRESH_MARGIN,  default=1m"`
	LogLevel       string        `env:"LOG_LEVEL,                 default=warn"`
}

// Load reads the server configuration from the environment. It panics on a
// malformed environment or a missing secret.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads the server configuration through l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("SERVICE_ROLE_KEY is required")
	}
	return &cfg, nil
}

// LoadClient reads the CLI configuration from the environment.
func LoadClient(ctx context.Context) (*ClientConfig, error) {
	return LoadClientWith(ctx, envconfig.OsLookuper())
}

// LoadClientWith reads the CLI configuration through l.
func LoadClientWith(ctx context.Context, l envconfig.Lookuper) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &cfg, nil
}
