package localidp

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
)

// Config tunes the local identity provider.
//
// JWT carries the signing material. When JWT.SigningMethod is empty New
// generates an ed25519 key pair that lives as long as the Provider; its
// AccessTTL and Issuer are always taken from this Config.
type Config struct {
	KeyPrefix           string
	Issuer              string
	CodeTTL             time.Duration
	CodeDigits          int
	MaxCodeAttempts     int
	RequireConfirmation bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
	AccessTTL           time.Duration
	SessionTTL          time.Duration
	Password            password.Config
	JWT                 jwt.Config
}

// DefaultConfig returns the development defaults: six digit codes valid for
// five minutes with five attempts, confirmation required, five password
// failures per fifteen minutes, one hour tokens and thirty day sessions.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:           "gs",
		Issuer:              "gosession-localidp",
		CodeTTL:             5 * time.Minute,
		CodeDigits:          6,
		MaxCodeAttempts:     5,
		RequireConfirmation: true,
		MaxLoginAttempts:    5,
		LoginCooldown:       15 * time.Minute,
		AccessTTL:           time.Hour,
		SessionTTL:          30 * 24 * time.Hour,
		Password:            password.DefaultConfig(),
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.KeyPrefix == "" {
		return errors.New("localidp: KeyPrefix must not be empty")
	}
	if c.CodeTTL <= 0 {
		return errors.New("localidp: CodeTTL must be > 0")
	}
	if c.CodeDigits < internal.MinCodeDigits || c.CodeDigits > internal.MaxCodeDigits {
		return errors.New("localidp: CodeDigits must be in [4,10]")
	}
	if c.MaxCodeAttempts < 1 {
		return errors.New("localidp: MaxCodeAttempts must be >= 1")
	}
	if c.MaxLoginAttempts < 0 {
		return errors.New("localidp: MaxLoginAttempts must be >= 0")
	}
	if c.MaxLoginAttempts > 0 && c.LoginCooldown <= 0 {
		return errors.New("localidp: LoginCooldown must be > 0 when MaxLoginAttempts is set")
	}
	if c.AccessTTL <= 0 {
		return errors.New("localidp: AccessTTL must be > 0")
	}
	if c.SessionTTL < c.AccessTTL {
		return errors.New("localidp: SessionTTL must be >= AccessTTL")
	}
	return nil
}
