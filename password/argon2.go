package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// DefaultMinPasswordBytes applies when Config.MinPasswordBytes is zero.
	DefaultMinPasswordBytes = 8
	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

// Floors below which a Config, or a stored hash, is refused.
const (
	minMemoryKB    uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

const phcAlgorithm = "argon2id"

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrInvalidConfig    = errors.New("password: invalid hasher configuration")
	ErrMalformedHash    = errors.New("password: malformed argon2id hash")
)

var b64 = base64.StdEncoding

// Config holds the Argon2id cost parameters and the accepted password
// length range in bytes.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters the local identity provider uses
// unless configured otherwise.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("%w: Memory must be >= %d KiB", ErrInvalidConfig, minMemoryKB)
	case c.Time < minTime:
		return fmt.Errorf("%w: Time must be >= %d", ErrInvalidConfig, minTime)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("%w: Parallelism must be >= %d", ErrInvalidConfig, minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("%w: SaltLength must be >= %d", ErrInvalidConfig, minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("%w: KeyLength must be >= %d", ErrInvalidConfig, minKeyLength)
	case c.MinPasswordBytes < 1 || c.MaxPasswordBytes < c.MinPasswordBytes:
		return fmt.Errorf("%w: password length bounds [%d,%d]", ErrInvalidConfig, c.MinPasswordBytes, c.MaxPasswordBytes)
	}
	return nil
}

// Argon2 hashes and verifies secrets in PHC string format.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg, fills the length defaults and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MinPasswordBytes == 0 {
		cfg.MinPasswordBytes = DefaultMinPasswordBytes
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns the PHC encoding of secret under a fresh random salt. Length
// is measured on the raw bytes; no Unicode normalization is applied.
func (a *Argon2) Hash(secret string) (string, error) {
	switch {
	case len(secret) < a.config.MinPasswordBytes:
		return "", ErrPasswordTooShort
	case len(secret) > a.config.MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	h := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
	}
	if _, err := io.ReadFull(rand.Reader, h.salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	h.key = h.derive(secret, a.config.KeyLength)
	return h.String(), nil
}

// Verify reports whether secret matches encoded. Oversized input is
// rejected before any hashing work.
func (a *Argon2) Verify(secret, encoded string) (bool, error) {
	if len(secret) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	got := h.derive(secret, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's, or with a different key length.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.parallelism < a.config.Parallelism ||
		uint32(len(h.key)) != a.config.KeyLength, nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phc) derive(secret string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(secret), h.salt, h.time, h.memory, h.parallelism, keyLen)
}

func (h phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		h.memory, h.time, h.parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func malformed(what string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, what)
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return phc{}, malformed("expected six $-separated fields")
	}
	if fields[1] != phcAlgorithm {
		return phc{}, malformed("algorithm " + strconv.Quote(fields[1]))
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, malformed("version " + strconv.Quote(fields[2]))
	}

	var h phc
	if err := h.parseParams(fields[3]); err != nil {
		return phc{}, err
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil || uint32(len(h.salt)) < minSaltLength {
		return phc{}, malformed("salt")
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return phc{}, malformed("key")
	}
	return h, nil
}

// parseParams reads "m=<kib>,t=<passes>,p=<lanes>" in that order.
func (h *phc) parseParams(field string) error {
	parts := strings.Split(field, ",")
	if len(parts) != 3 {
		return malformed("parameters " + strconv.Quote(field))
	}

	m, err := paramValue(parts[0], "m", 32)
	if err != nil || uint32(m) < minMemoryKB {
		return malformed("memory parameter")
	}
	t, err := paramValue(parts[1], "t", 32)
	if err != nil || uint32(t) < minTime {
		return malformed("time parameter")
	}
	p, err := paramValue(parts[2], "p", 8)
	if err != nil || uint8(p) < minParallelism {
		return malformed("parallelism parameter")
	}

	h.memory, h.time, h.parallelism = uint32(m), uint32(t), uint8(p)
	return nil
}

func paramValue(part, name string, bits int) (uint64, error) {
	key, value, ok := strings.Cut(part, "=")
	if !ok || key != name {
		return 0, ErrMalformedHash
	}
	return strconv.ParseUint(value, 10, bits)
}
