package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountBackend  = errors.New("account store unavailable")
)

// Account is the provider-side record of one identity. SecretHash is empty
// for passwordless accounts.
type Account struct {
	Subject       string `json:"sub"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phone,omitempty"`
	Username      string `json:"username,omitempty"`
	DisplayName   string `json:"name,omitempty"`
	SecretHash    string `json:"secret,omitempty"`
	Confirmed     bool   `json:"confirmed"`
	EmailVerified bool   `json:"email_verified"`
	PhoneVerified bool   `json:"phone_verified"`
	MFAEnabled    bool   `json:"mfa"`
	MFAMedium     string `json:"mfa_medium,omitempty"`
	AuthType      string `json:"auth_type"`
	CreatedAt     int64  `json:"created_at"`
}

// AccountStore keeps accounts as JSON under prefix:sub:<subject>, with one
// prefix:alias:<alias> pointer per login identifier.
type AccountStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewAccountStore(redisClient redis.UniversalClient, prefix string) *AccountStore {
	if prefix == "" {
		prefix = "gsa"
	}
	return &AccountStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *AccountStore) subjectKey(subject string) string {
	return s.prefix + ":sub:" + subject
}

func (s *AccountStore) aliasKey(alias string) string {
	return s.prefix + ":alias:" + alias
}

// Create claims every alias for account.Subject and then writes the record.
// If any alias is taken the aliases claimed so far are released and
// ErrAccountExists is returned.
func (s *AccountStore) Create(ctx context.Context, account *Account, aliases []string) error {
	if len(aliases) == 0 {
		return errors.New("account requires at least one alias")
	}

	claimed := make([]string, 0, len(aliases))
	release := func() {
		if len(claimed) > 0 {
			s.redis.Del(ctx, claimed...)
		}
	}

	for _, alias := range aliases {
		key := s.aliasKey(alias)
		ok, err := s.redis.SetNX(ctx, key, account.Subject, 0).Result()
		if err != nil {
			release()
			return fmt.Errorf("%w: %v", ErrAccountBackend, err)
		}
		if !ok {
			release()
			return ErrAccountExists
		}
		claimed = append(claimed, key)
	}

	if err := s.put(ctx, account); err != nil {
		release()
		return err
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, subject string) (*Account, error) {
	data, err := s.redis.Get(ctx, s.subjectKey(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountBackend, err)
	}

	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &account, nil
}

// Lookup resolves a login identifier to its account.
func (s *AccountStore) Lookup(ctx context.Context, alias string) (*Account, error) {
	subject, err := s.redis.Get(ctx, s.aliasKey(alias)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountBackend, err)
	}
	return s.Get(ctx, subject)
}

// Update overwrites an existing account. Aliases are not changed.
func (s *AccountStore) Update(ctx context.Context, account *Account) error {
	n, err := s.redis.Exists(ctx, s.subjectKey(account.Subject)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountBackend, err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return s.put(ctx, account)
}

func (s *AccountStore) put(ctx context.Context, account *Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.subjectKey(account.Subject), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountBackend, err)
	}
	return nil
}
