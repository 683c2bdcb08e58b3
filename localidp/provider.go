package localidp

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/internal/stores"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	ErrRedisRequired = errors.New("localidp: redis client is required")
)

// Provider is an identity.Provider backed by Redis.
//
// Like an SDK instance, a Provider holds at most one current session: the
// last successful Authenticate, ExchangeCode or Refresh. Provider is safe
// for concurrent use.
type Provider struct {
	config   Config
	accounts *stores.AccountStore
	codes    *stores.CodeStore
	sessions *stores.SessionStore
	logins   *rate.Limiter
	hasher   *password.Argon2
	tokens   *jwt.Manager
	sender   Sender
	logger   zerolog.Logger

	mu      sync.Mutex
	current *currentSession
}

type currentSession struct {
	id      string
	subject string
	tokens  identity.Tokens
}

// Option customizes a Provider.
type Option func(*Provider)

// WithSender sets the code delivery channel. The default writes codes to
// the provider logger through a LogSender.
func WithSender(s Sender) Option {
	return func(p *Provider) {
		p.sender = s
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// New validates cfg and returns a Provider over rdb.
func New(rdb redis.UniversalClient, cfg Config, opts ...Option) (*Provider, error) {
	if rdb == nil {
		return nil, ErrRedisRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("localidp: %w", err)
	}

	jcfg := cfg.JWT
	if jcfg.SigningMethod == "" {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("localidp: generate signing key: %w", err)
		}
		jcfg.SigningMethod = jwt.MethodEd25519
		jcfg.PrivateKey = priv
		jcfg.PublicKey = pub
	}
	jcfg.AccessTTL = cfg.AccessTTL
	jcfg.Issuer = cfg.Issuer
	tokens, err := jwt.NewManager(jcfg)
	if err != nil {
		return nil, fmt.Errorf("localidp: %w", err)
	}

	p := &Provider{
		config:   cfg,
		accounts: stores.NewAccountStore(rdb, cfg.KeyPrefix+":acct"),
		codes:    stores.NewCodeStore(rdb, cfg.KeyPrefix+":code"),
		sessions: stores.NewSessionStore(rdb, cfg.KeyPrefix+":sess"),
		logins:   rate.New(rdb, rate.Config{
			Prefix:      cfg.KeyPrefix + ":login",
			MaxAttempts: cfg.MaxLoginAttempts,
			Cooldown:    cfg.LoginCooldown,
		}),
		hasher: hasher,
		tokens: tokens,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "localidp").Logger()
	if p.sender == nil {
		p.sender = NewLogSender(p.logger)
	}
	return p, nil
}

// Tokens exposes the token manager so callers can verify what the provider
// issued.
func (p *Provider) Tokens() *jwt.Manager {
	return p.tokens
}

func (p *Provider) setCurrent(cur *currentSession) {
	p.mu.Lock()
	p.current = cur
	p.mu.Unlock()
}

func (p *Provider) getCurrent() *currentSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// live returns the current session if it has not been revoked or expired.
func (p *Provider) live(ctx context.Context) (*currentSession, error) {
	cur := p.getCurrent()
	if cur == nil {
		return nil, identity.ErrNoSession
	}
	if _, err := p.sessions.Get(ctx, cur.id); err != nil {
		if errors.Is(err, stores.ErrSessionNotFound) {
			p.mu.Lock()
			if p.current == cur {
				p.current = nil
			}
			p.mu.Unlock()
			return nil, identity.ErrNoSession
		}
		return nil, unavailable(err)
	}
	return cur, nil
}

// issueSession opens a provider session for account and makes it current.
func (p *Provider) issueSession(ctx context.Context, account *stores.Account) (identity.Tokens, error) {
	refresh, err := internal.NewRefreshToken()
	if err != nil {
		return identity.Tokens{}, err
	}
	sid := refresh.Session.String()

	record := &stores.SessionRecord{
		Subject:     account.Subject,
		RefreshHash: refresh.SecretHash(),
		ExpiresAt:   time.Now().Add(p.config.SessionTTL).Unix(),
	}
	if err := p.sessions.Save(ctx, sid, record, p.config.SessionTTL); err != nil {
		return identity.Tokens{}, unavailable(err)
	}

	tokens, err := p.mint(sid, account)
	if err != nil {
		return identity.Tokens{}, err
	}
	tokens.RefreshToken = refresh.String()

	p.setCurrent(&currentSession{id: sid, subject: account.Subject, tokens: tokens})
	p.logger.Debug().Str("subject", account.Subject).Msg("session issued")
	return tokens, nil
}

func (p *Provider) mint(sid string, account *stores.Account) (identity.Tokens, error) {
	access, exp, err := p.tokens.CreateAccess(account.Subject, sid)
	if err != nil {
		return identity.Tokens{}, err
	}
	idToken, err := p.tokens.CreateIdentity(account.Subject, sid, jwt.IdentityClaims{
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		PhoneNumber:   account.PhoneNumber,
		PhoneVerified: account.PhoneVerified,
		Username:      account.Username,
		Name:          account.DisplayName,
		AuthType:      account.AuthType,
		MFAEnabled:    account.MFAEnabled,
		MFAType:       account.MFAMedium,
	})
	if err != nil {
		return identity.Tokens{}, err
	}
	return identity.Tokens{AccessToken: access, IDToken: idToken, ExpiresAt: exp}, nil
}

// issueCode stores a fresh code for purpose under id and delivers it.
func (p *Provider) issueCode(ctx context.Context, purpose stores.Purpose, id string, rec stores.CodeRecord, destination string) error {
	code, err := internal.NewCode(p.config.CodeDigits)
	if err != nil {
		return err
	}
	rec.Purpose = purpose
	rec.CodeHash = internal.HashCode(id, code)
	rec.ExpiresAt = time.Now().Add(p.config.CodeTTL).Unix()
	if err := p.codes.Save(ctx, id, &rec, p.config.CodeTTL); err != nil {
		return unavailable(err)
	}

	err = p.sender.Send(ctx, Delivery{
		Purpose:     purpose.String(),
		Subject:     rec.Subject,
		Medium:      identity.DeliveryMedium(rec.Medium),
		Destination: destination,
		Code:        code,
	})
	if err != nil {
		_ = p.codes.Delete(ctx, purpose, id)
		return fmt.Errorf("%w: deliver code: %v", identity.ErrUnavailable, err)
	}
	return nil
}

// consumeCode maps code store outcomes to provider errors. Exhausted or
// missing confirmation and reset codes are invalid codes; exhausted or
// missing challenges are expired sessions.
func (p *Provider) consumeCode(ctx context.Context, purpose stores.Purpose, id, code string) (*stores.CodeRecord, error) {
	rec, err := p.codes.Consume(ctx, purpose, id, internal.HashCode(id, code), p.config.MaxCodeAttempts)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, stores.ErrCodeMismatch):
		return nil, identity.ErrInvalidCode
	case errors.Is(err, stores.ErrCodeAttemptsExceeded):
		if purpose == stores.PurposeMFA || purpose == stores.PurposeOTP {
			return nil, identity.ErrExpiredSession
		}
		return nil, identity.ErrRateLimited
	case errors.Is(err, stores.ErrCodeNotFound):
		if purpose == stores.PurposeMFA || purpose == stores.PurposeOTP {
			return nil, identity.ErrExpiredSession
		}
		return nil, identity.ErrInvalidCode
	default:
		return nil, unavailable(err)
	}
}

func (p *Provider) lookup(ctx context.Context, identifier string) (*stores.Account, error) {
	account, err := p.accounts.Lookup(ctx, normalize(identifier))
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return nil, identity.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return account, nil
}

func profileOf(a *stores.Account) identity.Profile {
	return identity.Profile{
		Subject:       a.Subject,
		DisplayName:   a.DisplayName,
		Username:      a.Username,
		Email:         a.Email,
		PhoneNumber:   a.PhoneNumber,
		EmailVerified: a.EmailVerified,
		PhoneVerified: a.PhoneVerified,
		MFAEnabled:    a.MFAEnabled,
		MFAType:       a.MFAMedium,
		AuthType:      identity.AuthType(a.AuthType),
		CreatedAt:     time.Unix(a.CreatedAt, 0).UTC(),
	}
}

// destinationFor picks where codes for account go over medium. An empty
// result means the account has no address for it.
func destinationFor(a *stores.Account, medium identity.DeliveryMedium) string {
	if medium == identity.MediumSMS {
		return a.PhoneNumber
	}
	return a.Email
}

// preferredMedium is SMS for phone-first accounts and accounts without an
// email address, EMAIL otherwise.
func preferredMedium(a *stores.Account) identity.DeliveryMedium {
	if a.Email == "" || identity.AuthType(a.AuthType) == identity.AuthPhone {
		if a.PhoneNumber != "" {
			return identity.MediumSMS
		}
	}
	return identity.MediumEmail
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// mask hides most of a destination the way hosted providers report it.
func mask(destination string) string {
	if at := strings.IndexByte(destination, '@'); at > 0 {
		return destination[:1] + "***" + destination[at:]
	}
	if n := len(destination); n > 4 {
		return strings.Repeat("*", n-4) + destination[n-4:]
	}
	return destination
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
}

var _ identity.Provider = (*Provider)(nil)
var _ identity.MFAConfigurer = (*Provider)(nil)
