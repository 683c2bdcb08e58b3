package cognito

import (
	"errors"
	"time"
)

// Config identifies the user pool app client.
type Config struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
	// ChallengeTTL bounds how long an issued challenge session is kept
	// for ExchangeCode. Cognito sessions last three minutes.
	ChallengeTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Region:       "us-east-1",
		ChallengeTTL: 3 * time.Minute,
	}
}

func (c Config) Validate() error {
	if c.Region == "" {
		return errors.New("cognito: Region must not be empty")
	}
	if c.ClientID == "" {
		return errors.New("cognito: ClientID must not be empty")
	}
	if c.ChallengeTTL <= 0 {
		return errors.New("cognito: ChallengeTTL must be > 0")
	}
	return nil
}
