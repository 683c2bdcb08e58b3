package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	providerLocal   = "local"
	providerCognito = "cognito"
)

type cliConfig struct {
	Provider string        `koanf:"provider"`
	Redis    redisConfig   `koanf:"redis"`
	Cognito  cognitoConfig `koanf:"cognito"`
	Session  sessionConfig `koanf:"session"`
	Log      logConfig     `koanf:"log"`
	Metrics  metricsConfig `koanf:"metrics"`
}

type redisConfig struct {
	// Addr empty means REDIS_ADDR, then an in-process miniredis.
	Addr   string `koanf:"addr"`
	Prefix string `koanf:"prefix"`
}

type cognitoConfig struct {
	Region       string `koanf:"region"`
	UserPoolID   string `koanf:"user-pool-id"`
	ClientID     string `koanf:"client-id"`
	ClientSecret string `koanf:"client-secret"`
}

type sessionConfig struct {
	Revalidate     bool          `koanf:"revalidate"`
	DiscardExpired bool          `koanf:"discard-expired"`
	TTL            time.Duration `koanf:"ttl"`
}

type logConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type metricsConfig struct {
	Addr string `koanf:"addr"`
}

// registerFlags declares every setting as a persistent flag. Flag names are
// the dotted koanf keys so posflag maps them without renaming.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file; flags override it")
	fs.String("provider", providerLocal, "identity provider: local or cognito")

	fs.String("redis.addr", "", "redis address; empty uses REDIS_ADDR, then an in-process miniredis")
	fs.String("redis.prefix", "gosession", "key prefix for session storage and the local provider")

	fs.String("cognito.region", "us-east-1", "AWS region of the user pool")
	fs.String("cognito.user-pool-id", "", "Cognito user pool id")
	fs.String("cognito.client-id", "", "Cognito app client id")
	fs.String("cognito.client-secret", "", "Cognito app client secret, if the client has one")

	fs.Bool("session.revalidate", true, "confirm a stored session with the provider before restoring it")
	fs.Bool("session.discard-expired", true, "drop stored sessions whose tokens have expired")
	fs.Duration("session.ttl", 0, "expiry of stored session keys; 0 keeps them until logout")

	fs.String("log.level", "info", "zerolog level")
	fs.Bool("log.pretty", true, "human readable console logs")

	fs.String("metrics.addr", "", "serve Prometheus metrics on this address")
}

// loadConfig layers the optional YAML file under the flags.
func loadConfig(fs *pflag.FlagSet) (cliConfig, error) {
	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return cliConfig{}, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cliConfig{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return cliConfig{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg cliConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
	return cfg, cfg.Validate()
}

func (c cliConfig) Validate() error {
	switch c.Provider {
	case providerLocal:
	case providerCognito:
		if c.Cognito.ClientID == "" {
			return errors.New("cognito.client-id is required with the cognito provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Redis.Prefix == "" {
		return errors.New("redis.prefix must not be empty")
	}
	if c.Session.TTL < 0 {
		return errors.New("session.ttl must be >= 0")
	}
	return nil
}
