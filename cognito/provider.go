package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

const (
	flowUserPassword = types.AuthFlowType("USER_PASSWORD_AUTH")
	flowUserAuth     = types.AuthFlowType("USER_AUTH")

	challengeSMSMFA   = types.ChallengeNameType("SMS_MFA")
	challengeEmailOTP = types.ChallengeNameType("EMAIL_OTP")
	challengeSMSOTP   = types.ChallengeNameType("SMS_OTP")
	challengeCustom   = types.ChallengeNameType("CUSTOM_CHALLENGE")
)

var (
	ErrAPIRequired          = errors.New("cognito: API client is required")
	ErrUnsupportedChallenge = errors.New("cognito: unsupported auth challenge")
)

// Provider binds identity.Provider to a Cognito user pool app client.
//
// Like the Amplify client it replaces, a Provider holds one signed-in user:
// the tokens of the last completed sign-in. Challenge sessions handed out by
// Authenticate and RequestCode are remembered for ChallengeTTL so
// ExchangeCode can answer them.
type Provider struct {
	api     API
	config  Config
	logger  zerolog.Logger
	pending *ttlcache.Cache[string, pendingChallenge]

	mu      sync.Mutex
	current *identity.Tokens
}

// pendingChallenge is keyed by the session handed to the caller. session is
// the latest Cognito session for it, which changes when a wrong code is
// answered with a fresh one.
type pendingChallenge struct {
	name     types.ChallengeNameType
	username string
	session  string
}

type Option func(*Provider)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// New returns a Provider over api.
func New(api API, cfg Config, opts ...Option) (*Provider, error) {
	if api == nil {
		return nil, ErrAPIRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Provider{
		api:     api,
		config:  cfg,
		logger:  zerolog.Nop(),
		pending: ttlcache.New(
			ttlcache.WithTTL[string, pendingChallenge](cfg.ChallengeTTL),
			ttlcache.WithDisableTouchOnHit[string, pendingChallenge](),
		),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "cognito").Logger()
	return p, nil
}

// NewFromEnv loads the default AWS configuration for cfg.Region and returns
// a Provider over a real Cognito client.
func NewFromEnv(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("cognito: load aws config: %w", err)
	}
	return New(cip.NewFromConfig(awsCfg), cfg, opts...)
}

// secretHash is the SECRET_HASH parameter for app clients with a secret,
// nil otherwise.
func (p *Provider) secretHash(username string) *string {
	if p.config.ClientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(p.config.ClientSecret))
	mac.Write([]byte(username + p.config.ClientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func (p *Provider) withSecret(username string, params map[string]string) map[string]string {
	if h := p.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}
	return params
}

func (p *Provider) Register(ctx context.Context, identifier, secret string, attrs identity.Attributes) (identity.Registration, error) {
	var userAttrs []types.AttributeType
	add := func(name, value string) {
		if value != "" {
			userAttrs = append(userAttrs, types.AttributeType{Name: aws.String(name), Value: aws.String(value)})
		}
	}
	add("email", attrs.Email)
	add("phone_number", attrs.PhoneNumber)
	add("name", attrs.DisplayName)
	add("preferred_username", attrs.Username)

	out, err := p.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(p.config.ClientID),
		Username:       aws.String(identifier),
		Password:       aws.String(secret),
		SecretHash:     p.secretHash(identifier),
		UserAttributes: userAttrs,
	})
	if err != nil {
		return identity.Registration{}, mapError(err, callAccount)
	}

	reg := identity.Registration{SubjectID: aws.ToString(out.UserSub), Complete: out.UserConfirmed}
	if out.UserConfirmed {
		reg.NextStep = identity.NextStepDone
	} else {
		reg.NextStep = identity.NextStepConfirmSignUp
	}
	return reg, nil
}

func (p *Provider) ConfirmRegistration(ctx context.Context, identifier, code string) (identity.Confirmation, error) {
	_, err := p.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(p.config.ClientID),
		Username:         aws.String(identifier),
		ConfirmationCode: aws.String(code),
		SecretHash:       p.secretHash(identifier),
	})
	if err != nil {
		return identity.Confirmation{}, mapError(err, callAccount)
	}
	return identity.Confirmation{Complete: true}, nil
}

// Authenticate runs USER_PASSWORD_AUTH. An SMS_MFA or EMAIL_OTP challenge
// is reported as an MFA challenge.
func (p *Provider) Authenticate(ctx context.Context, identifier, secret string) (identity.Authentication, error) {
	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: flowUserPassword,
		ClientId: aws.String(p.config.ClientID),
		AuthParameters: p.withSecret(identifier, map[string]string{
			"USERNAME": identifier,
			"PASSWORD": secret,
		}),
	})
	if err != nil {
		return identity.Authentication{}, mapError(err, callAuth)
	}

	if out.AuthenticationResult != nil {
		tokens := p.signIn(out.AuthenticationResult)
		return identity.Authentication{Tokens: &tokens}, nil
	}

	switch out.ChallengeName {
	case challengeSMSMFA, challengeEmailOTP:
		session := aws.ToString(out.Session)
		p.remember(session, out.ChallengeName, challengeUser(out.ChallengeParameters, identifier))
		return identity.Authentication{
			Challenge: identity.ChallengeMFA,
			Session:   session,
			Medium:    mediumOf(out.ChallengeName, out.ChallengeParameters),
		}, nil
	default:
		return identity.Authentication{}, fmt.Errorf("%w: %s", ErrUnsupportedChallenge, out.ChallengeName)
	}
}

// RequestCode starts a passwordless USER_AUTH sign-in with EMAIL_OTP or
// SMS_OTP as the preferred challenge.
func (p *Provider) RequestCode(ctx context.Context, identifier string, medium identity.DeliveryMedium) (identity.CodeRequest, error) {
	if !medium.Valid() {
		return identity.CodeRequest{}, fmt.Errorf("%w: unsupported delivery medium %q", identity.ErrInvalidInput, medium)
	}
	preferred := challengeEmailOTP
	if medium == identity.MediumSMS {
		preferred = challengeSMSOTP
	}

	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: flowUserAuth,
		ClientId: aws.String(p.config.ClientID),
		AuthParameters: p.withSecret(identifier, map[string]string{
			"USERNAME":            identifier,
			"PREFERRED_CHALLENGE": string(preferred),
		}),
	})
	if err != nil {
		return identity.CodeRequest{}, mapError(err, callAccount)
	}

	switch out.ChallengeName {
	case challengeEmailOTP, challengeSMSOTP, challengeCustom:
	default:
		return identity.CodeRequest{}, fmt.Errorf("%w: %s", ErrUnsupportedChallenge, out.ChallengeName)
	}
	session := aws.ToString(out.Session)
	p.remember(session, out.ChallengeName, challengeUser(out.ChallengeParameters, identifier))
	return identity.CodeRequest{
		Session:     session,
		Medium:      medium,
		Destination: out.ChallengeParameters["CODE_DELIVERY_DESTINATION"],
	}, nil
}

// ExchangeCode answers a remembered challenge. A wrong code keeps the
// challenge; success or an expired session forgets it.
func (p *Provider) ExchangeCode(ctx context.Context, session, code string) (identity.Exchange, error) {
	item := p.pending.Get(session)
	if item == nil || item.IsExpired() {
		return identity.Exchange{}, identity.ErrExpiredSession
	}
	ch := item.Value()

	responses := map[string]string{"USERNAME": ch.username}
	switch ch.name {
	case challengeSMSMFA:
		responses["SMS_MFA_CODE"] = code
	case challengeEmailOTP:
		responses["EMAIL_OTP_CODE"] = code
	case challengeSMSOTP:
		responses["SMS_OTP_CODE"] = code
	default:
		responses["ANSWER"] = code
	}

	out, err := p.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      ch.name,
		ClientId:           aws.String(p.config.ClientID),
		Session:            aws.String(ch.session),
		ChallengeResponses: p.withSecret(ch.username, responses),
	})
	if err != nil {
		mapped := mapError(err, callChallenge)
		if !errors.Is(mapped, identity.ErrInvalidCode) {
			p.pending.Delete(session)
		}
		return identity.Exchange{}, mapped
	}
	if out.AuthenticationResult == nil {
		// Cognito answers a wrong code on some challenges with a fresh
		// session for the same challenge. The caller keeps retrying with
		// the session it already holds.
		if out.ChallengeName == ch.name && out.Session != nil {
			ch.session = aws.ToString(out.Session)
			p.pending.Set(session, ch, ttlcache.DefaultTTL)
			return identity.Exchange{}, identity.ErrInvalidCode
		}
		p.pending.Delete(session)
		return identity.Exchange{}, fmt.Errorf("%w: %s", ErrUnsupportedChallenge, out.ChallengeName)
	}
	p.pending.Delete(session)

	tokens := p.signIn(out.AuthenticationResult)
	profile, err := p.CurrentIdentity(ctx)
	if err != nil {
		return identity.Exchange{}, err
	}
	return identity.Exchange{Profile: profile, Tokens: tokens}, nil
}

func (p *Provider) CurrentIdentity(ctx context.Context) (identity.Profile, error) {
	tokens := p.tokens()
	if tokens == nil {
		return identity.Profile{}, identity.ErrNoSession
	}
	out, err := p.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(tokens.AccessToken)})
	if err != nil {
		return identity.Profile{}, mapError(err, callSession)
	}
	return profileOf(out), nil
}

func (p *Provider) CurrentTokens(_ context.Context) (identity.Tokens, error) {
	tokens := p.tokens()
	if tokens == nil {
		return identity.Tokens{}, identity.ErrNoSession
	}
	return *tokens, nil
}

func (p *Provider) RequestPasswordReset(ctx context.Context, identifier string) error {
	_, err := p.api.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(p.config.ClientID),
		Username:   aws.String(identifier),
		SecretHash: p.secretHash(identifier),
	})
	return mapError(err, callAccount)
}

func (p *Provider) ConfirmPasswordReset(ctx context.Context, identifier, code, newSecret string) error {
	_, err := p.api.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(p.config.ClientID),
		Username:         aws.String(identifier),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newSecret),
		SecretHash:       p.secretHash(identifier),
	})
	return mapError(err, callAccount)
}

// Resume adopts tokens persisted by an earlier Provider, keeping them only
// if Cognito still accepts the access token.
func (p *Provider) Resume(ctx context.Context, tokens identity.Tokens) error {
	if !tokens.Complete() {
		return identity.ErrNoSession
	}
	if _, err := p.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(tokens.AccessToken)}); err != nil {
		return mapError(err, callSession)
	}
	p.mu.Lock()
	p.current = &tokens
	p.mu.Unlock()
	return nil
}

// InvalidateSession signs the user out everywhere and forgets the local
// tokens. The tokens are forgotten even when the remote sign-out fails.
func (p *Provider) InvalidateSession(ctx context.Context) error {
	p.mu.Lock()
	tokens := p.current
	p.current = nil
	p.mu.Unlock()

	if tokens == nil {
		return identity.ErrNoSession
	}
	_, err := p.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(tokens.AccessToken)})
	return mapError(err, callSession)
}

// SetMFAPreference enables SMS or email MFA as the preferred factor, or
// disables both.
func (p *Provider) SetMFAPreference(ctx context.Context, enabled bool, medium identity.DeliveryMedium) (identity.Profile, error) {
	tokens := p.tokens()
	if tokens == nil {
		return identity.Profile{}, identity.ErrNoSession
	}

	in := &cip.SetUserMFAPreferenceInput{AccessToken: aws.String(tokens.AccessToken)}
	switch {
	case !enabled:
		in.SMSMfaSettings = &types.SMSMfaSettingsType{Enabled: false, PreferredMfa: false}
		in.EmailMfaSettings = &types.EmailMfaSettingsType{Enabled: false, PreferredMfa: false}
	case medium == identity.MediumSMS:
		in.SMSMfaSettings = &types.SMSMfaSettingsType{Enabled: true, PreferredMfa: true}
	case medium == identity.MediumEmail:
		in.EmailMfaSettings = &types.EmailMfaSettingsType{Enabled: true, PreferredMfa: true}
	default:
		return identity.Profile{}, fmt.Errorf("%w: unsupported delivery medium %q", identity.ErrInvalidInput, medium)
	}

	if _, err := p.api.SetUserMFAPreference(ctx, in); err != nil {
		return identity.Profile{}, mapError(err, callSession)
	}
	profile, err := p.CurrentIdentity(ctx)
	if err != nil {
		return identity.Profile{}, err
	}
	profile.MFAEnabled = enabled
	profile.MFAType = ""
	if enabled {
		profile.MFAType = string(medium)
	}
	return profile, nil
}

func (p *Provider) tokens() *identity.Tokens {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Provider) signIn(res *types.AuthenticationResultType) identity.Tokens {
	tokens := identity.Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		IDToken:      aws.ToString(res.IdToken),
	}
	if res.ExpiresIn > 0 {
		tokens.ExpiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	p.mu.Lock()
	p.current = &tokens
	p.mu.Unlock()
	return tokens
}

func (p *Provider) remember(session string, name types.ChallengeNameType, username string) {
	p.pending.DeleteExpired()
	p.pending.Set(session, pendingChallenge{name: name, username: username, session: session}, ttlcache.DefaultTTL)
	p.logger.Debug().Str("challenge", string(name)).Msg("challenge issued")
}

// challengeUser prefers the USER_ID_FOR_SRP parameter Cognito returns,
// which is the pool username even when the user signed in with an alias.
func challengeUser(params map[string]string, fallback string) string {
	if u := params["USER_ID_FOR_SRP"]; u != "" {
		return u
	}
	if u := params["USERNAME"]; u != "" {
		return u
	}
	return fallback
}

func mediumOf(name types.ChallengeNameType, params map[string]string) identity.DeliveryMedium {
	if m, ok := identity.ParseDeliveryMedium(params["CODE_DELIVERY_DELIVERY_MEDIUM"]); ok {
		return m
	}
	if name == challengeEmailOTP {
		return identity.MediumEmail
	}
	return identity.MediumSMS
}

func profileOf(out *cip.GetUserOutput) identity.Profile {
	profile := identity.Profile{Username: aws.ToString(out.Username)}
	for _, a := range out.UserAttributes {
		v := aws.ToString(a.Value)
		switch aws.ToString(a.Name) {
		case "sub":
			profile.Subject = v
		case "email":
			profile.Email = v
		case "email_verified":
			profile.EmailVerified = strings.EqualFold(v, "true")
		case "phone_number":
			profile.PhoneNumber = v
		case "phone_number_verified":
			profile.PhoneVerified = strings.EqualFold(v, "true")
		case "name":
			profile.DisplayName = v
		case "preferred_username":
			profile.Username = v
		}
	}
	switch aws.ToString(out.PreferredMfaSetting) {
	case "SMS_MFA":
		profile.MFAEnabled, profile.MFAType = true, string(identity.MediumSMS)
	case "EMAIL_OTP":
		profile.MFAEnabled, profile.MFAType = true, string(identity.MediumEmail)
	}
	return profile
}

var _ identity.Provider = (*Provider)(nil)
var _ identity.MFAConfigurer = (*Provider)(nil)
