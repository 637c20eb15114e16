package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const corsOriginsEnv = "CORS_ORIGINS"

// ErrPreforkNeedsRedis is returned by Validate when prefork is enabled
// without a shared store. Each forked child would otherwise keep its own
// users, tasks, revoked tokens and rate limit counters.
var ErrPreforkNeedsRedis = errors.New("APP_PREFORK requires REDIS_ADDR")

const (
	Title         = "Todo Backend API"
	Description   = "Backend API for Todo Full-Stack Web Application (Phase II)"
	Version       = "1.0.0"
	DocsURL       = "/docs"
	DocsAssetsURL = "/docs/assets"
	RedocURL      = "/redoc"
	OpenAPIURL    = "/openapi.json"
)

type Config struct {
	Address string `json:"address" env:"APP_ADDRESS" envDefault:":8000"`
	Prefork bool   `json:"prefork" env:"APP_PREFORK"`
	Metrics *bool  `json:"metrics" env:"APP_METRICS"`

	LogLevel string `json:"logLevel" env:"LOG_LEVEL" envDefault:"info"`

	// Kept as the raw comma separated string, see AllowedOrigins.
	CORSOrigins string `json:"corsOrigins" env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`

	JWTSecret     string        `json:"-" env:"JWT_SECRET"`
	JWTExpiration time.Duration `json:"jwtExpiration" env:"JWT_EXPIRATION" envDefault:"24h"`
	BcryptCost    int           `json:"bcryptCost" env:"BCRYPT_COST" envDefault:"10"`

	RedisAddr     string `json:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword string `json:"-" env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redisDb" env:"REDIS_DB"`

	CacheTTL         int   `json:"cacheTtl" env:"CACHE_TTL" envDefault:"60"`
	CacheMaxCost     int64 `json:"cacheMaxCost" env:"CACHE_MAX_COST"`
	CacheNumCounters int64 `json:"cacheNumCounters" env:"CACHE_NUM_COUNTERS"`
	CacheBufferItems int64 `json:"cacheBufferItems" env:"CACHE_BUFFER_ITEMS"`

	AuthRateLimit int `json:"authRateLimit" env:"AUTH_RATE_LIMIT" envDefault:"20"`
}

// Parse reads the configuration from environment. An unset CORS_ORIGINS
// falls back to the default, but an empty one is kept empty and so allows
// no origin at all.
func Parse(environment map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environment})
	if err != nil {
		return cfg, err
	}

	if value, ok := environment[corsOriginsEnv]; ok && value == "" {
		cfg.CORSOrigins = ""
	}
	return cfg, nil
}

// AllowedOrigins splits CORSOrigins on commas. Segments are kept verbatim:
// no trimming and no URL validation.
func (c *Config) AllowedOrigins() []string {
	return strings.Split(c.CORSOrigins, ",")
}

func (c *Config) MetricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}

func (c *Config) Validate() error {
	if c.Prefork && c.RedisAddr == "" {
		return ErrPreforkNeedsRedis
	}
	return nil
}
