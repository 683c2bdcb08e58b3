package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

// Config defines the client configuration.
type Config struct {
	Validation ValidationConfig
	Restore    RestoreConfig
	Storage    StorageConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
VALIDATION CONFIG
====================================
*/

// ValidationConfig holds the local input rules checked before any provider call.
type ValidationConfig struct {
	MinSecretLength int
	CodeLength      int
}

/*
====================================
RESTORE CONFIG
====================================
*/

// RestoreConfig controls RestoreSession.
//
// With RevalidateWithProvider the stored session is installed only after the
// provider confirms it is still live. DiscardExpired drops stored sessions
// whose token ExpiresAt is in the past without contacting the provider.
type RestoreConfig struct {
	RevalidateWithProvider bool
	DiscardExpired         bool
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the durable keys and bounds the default in-memory store.
type StorageConfig struct {
	UserKey   string
	TokensKey string
	// MemoryMaxAge bounds entries in the default MemoryKV. Zero keeps them
	// until logout.
	MemoryMaxAge time.Duration
}

// AuditConfig defines audit dispatch behavior.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines in-process metric collection.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Validation: ValidationConfig{
			MinSecretLength: 8,
			CodeLength:      6,
		},
		Storage: StorageConfig{
			UserKey:   storage.DefaultUserKey,
			TokensKey: storage.DefaultTokensKey,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// DefaultConfig returns the configuration Build uses when WithConfig is not called.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate returns the first configuration problem found, or nil.
func (c *Config) Validate() error {
	if c.Validation.MinSecretLength < 1 {
		return errors.New("Validation MinSecretLength must be >= 1")
	}
	if c.Validation.CodeLength < 4 || c.Validation.CodeLength > 10 {
		return errors.New("Validation CodeLength must be between 4 and 10")
	}

	if c.Storage.UserKey == "" || c.Storage.TokensKey == "" {
		return errors.New("Storage keys must be non-empty")
	}
	if c.Storage.UserKey == c.Storage.TokensKey {
		return errors.New("Storage UserKey and TokensKey must differ")
	}
	if c.Storage.MemoryMaxAge < 0 {
		return errors.New("Storage MemoryMaxAge must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
