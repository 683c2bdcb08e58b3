package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidConfig  = errors.New("jwt: invalid configuration")
	ErrNoSigningKey   = errors.New("jwt: manager has no signing key")
	ErrUnknownKey     = errors.New("jwt: token names an unknown key")
	ErrFutureIssuedAt = errors.New("jwt: token issued too far in the future")
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

const (
	maxLeeway           = 2 * time.Minute
	defaultMaxFutureIAT = 10 * time.Minute
	maxFutureIATLimit   = 24 * time.Hour
)

// Config configures a Manager. AccessTTL applies to access and id tokens
// alike. When VerifyKeys is set, tokens must carry a kid naming one of them.
// An ed25519 manager without PublicKey verifies with the public half of
// PrivateKey.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Manager mints and parses the access and id tokens of the local identity
// provider. Keys are decoded once by NewManager.
type Manager struct {
	config Config
	method jwt.SigningMethod
	parser *jwt.Parser

	signKey   any
	verifyKey any
	byKID     map[string]any
}

// AccessClaims is the payload of an access token. Subject carries the
// identity, SID the provider session the token belongs to.
type AccessClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// IdentityClaims is the payload of an id token: the profile attributes a
// client may display without another provider round trip.
type IdentityClaims struct {
	SID           string `json:"sid"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PhoneVerified bool   `json:"phone_number_verified,omitempty"`
	Username      string `json:"preferred_username,omitempty"`
	Name          string `json:"name,omitempty"`
	AuthType      string `json:"auth_type,omitempty"`
	MFAEnabled    bool   `json:"mfa,omitempty"`
	MFAType       string `json:"mfa_type,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg, decodes its keys and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("%w: AccessTTL must be > 0", ErrInvalidConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, fmt.Errorf("%w: Leeway must be in [0,%s]", ErrInvalidConfig, maxLeeway)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = defaultMaxFutureIAT
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > maxFutureIATLimit {
		return nil, fmt.Errorf("%w: MaxFutureIAT must be in (0,%s]", ErrInvalidConfig, maxFutureIATLimit)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg}
	var err error
	switch cfg.SigningMethod {
	case MethodHS256:
		err = m.loadHMAC()
	case MethodEd25519:
		err = m.loadEd25519()
	default:
		err = fmt.Errorf("%w: unsupported signing method %q", ErrInvalidConfig, cfg.SigningMethod)
	}
	if err != nil {
		return nil, err
	}
	if cfg.KeyID != "" && len(m.byKID) > 0 {
		if _, ok := m.byKID[cfg.KeyID]; !ok {
			return nil, fmt.Errorf("%w: KeyID %q is not in VerifyKeys", ErrInvalidConfig, cfg.KeyID)
		}
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{m.method.Alg()})}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(options...)
	return m, nil
}

func (m *Manager) loadHMAC() error {
	if len(m.config.PrivateKey) == 0 {
		return fmt.Errorf("%w: hs256 requires PrivateKey", ErrInvalidConfig)
	}
	m.method = jwt.SigningMethodHS256
	m.signKey = m.config.PrivateKey
	m.verifyKey = m.config.PrivateKey
	if len(m.config.VerifyKeys) > 0 {
		m.byKID = make(map[string]any, len(m.config.VerifyKeys))
		for kid, key := range m.config.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return fmt.Errorf("%w: VerifyKeys contains an empty kid", ErrInvalidConfig)
			}
			m.byKID[kid] = key
		}
	}
	return nil
}

func (m *Manager) loadEd25519() error {
	m.method = jwt.SigningMethodEdDSA
	if len(m.config.PrivateKey) > 0 {
		priv, err := parseEdPrivateKey(m.config.PrivateKey)
		if err != nil {
			return err
		}
		m.signKey = priv
		m.verifyKey = priv.Public()
	}
	if len(m.config.PublicKey) > 0 {
		pub, err := parseEdPublicKey(m.config.PublicKey)
		if err != nil {
			return err
		}
		m.verifyKey = pub
	}
	if len(m.config.VerifyKeys) > 0 {
		m.byKID = make(map[string]any, len(m.config.VerifyKeys))
		for kid, key := range m.config.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return fmt.Errorf("%w: VerifyKeys contains an empty kid", ErrInvalidConfig)
			}
			pub, err := parseEdPublicKey(key)
			if err != nil {
				return fmt.Errorf("verify key %q: %w", kid, err)
			}
			m.byKID[kid] = pub
		}
	}
	if m.verifyKey == nil && len(m.byKID) == 0 {
		return fmt.Errorf("%w: ed25519 requires a key to verify with", ErrInvalidConfig)
	}
	return nil
}

// CreateAccess signs an access token for subject in session sid and
// returns it with its expiry.
func (m *Manager) CreateAccess(subject, sid string) (string, time.Time, error) {
	claims := AccessClaims{
		SID:              sid,
		RegisteredClaims: m.registered(subject),
	}
	token, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// CreateIdentity signs an id token. The registered claims of id are
// replaced; subject and sid identify the session as for CreateAccess.
func (m *Manager) CreateIdentity(subject, sid string, id IdentityClaims) (string, error) {
	id.SID = sid
	id.RegisteredClaims = m.registered(subject)
	return m.sign(id)
}

// ParseAccess verifies an access token and returns its claims.
func (m *Manager) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseIdentity verifies an id token and returns its claims.
func (m *Manager) ParseIdentity(token string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	if err := m.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) registered(subject string) jwt.RegisteredClaims {
	now := time.Now()
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    m.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
	}
	if m.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return rc
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	if m.signKey == nil {
		return "", ErrNoSigningKey
	}
	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.signKey)
}

func (m *Manager) parse(raw string, claims jwt.Claims) error {
	token, err := m.parser.ParseWithClaims(raw, claims, m.keyFor)
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}

	iat, err := claims.GetIssuedAt()
	if err == nil && iat != nil && iat.After(time.Now().Add(m.config.MaxFutureIAT)) {
		return ErrFutureIssuedAt
	}
	return nil
}

// keyFor picks the verification key named by the token header.
func (m *Manager) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	switch {
	case len(m.byKID) > 0:
		key, ok := m.byKID[kid]
		if !ok {
			return nil, ErrUnknownKey
		}
		return key, nil
	case m.config.KeyID != "" && kid != m.config.KeyID:
		return nil, ErrUnknownKey
	}
	return m.verifyKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 private key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: PEM block is not an ed25519 private key", ErrInvalidConfig)
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 public key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: PEM block is not an ed25519 public key", ErrInvalidConfig)
	}
	return edKey, nil
}
