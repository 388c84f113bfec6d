// Package config loads couponctl settings from the environment.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	APIURL        string        `env:"API_URL,       default=http://localhost:8080"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT, default=10s"`
	LogLevel      string        `env:"LOG_LEVEL,     default=warn"`
	ForwardedUser string        `env:"FORWARDED_USER"`

	Token TokenConfig
}

type TokenConfig struct {
	Backend   string `env:"TOKEN_BACKEND, default=file"`
	File      string `env:"TOKEN_FILE"`
	RedisAddr string `env:"REDIS_ADDR,    default=localhost:6379"`
	RedisDB   int    `env:"REDIS_DB,      default=0"`
	Profile   string `env:"PROFILE,       default=default"`
	// TTL bounds how long the redis backend keeps a token; zero keeps it until logout.
	TTL time.Duration `env:"TOKEN_TTL, default=8h"`
}

const envPrefix = "COUPONCTL_"

// Load reads COUPONCTL_* variables.
func Load(ctx context.Context, log zerolog.Logger) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper(), log)
}

// LoadFrom reads COUPONCTL_* variables through lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper, log zerolog.Logger) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return nil, err
	}

	cfg.Token.Backend = strings.ToLower(strings.TrimSpace(cfg.Token.Backend))
	switch cfg.Token.Backend {
	case BackendFile, BackendMemory, BackendRedis:
	default:
		return nil, fmt.Errorf("config: unknown token backend %q", cfg.Token.Backend)
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("config: %sFETCH_TIMEOUT must be positive", envPrefix)
	}

	log.Debug().
		Str("api_url", cfg.APIURL).
		Str("token_backend", cfg.Token.Backend).
		Dur("fetch_timeout", cfg.FetchTimeout).
		Msg("configuration loaded")
	return &cfg, nil
}
