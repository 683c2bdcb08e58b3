package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/rs/zerolog"
)

var testErrors = Errors{
	EmptyIdentifier:       errors.New("empty identifier"),
	EmptySecret:           errors.New("empty secret"),
	SecretTooShort:        errors.New("secret too short"),
	EmptyCode:             errors.New("empty code"),
	CodeLength:            errors.New("bad code length"),
	InvalidMedium:         errors.New("invalid medium"),
	NoPendingChallenge:    errors.New("no pending challenge"),
	ChallengeMismatch:     errors.New("challenge mismatch"),
	NotAuthenticated:      errors.New("not authenticated"),
	AlreadyAuthenticated:  errors.New("already authenticated"),
	CapabilityUnsupported: errors.New("capability unsupported"),
	IncompleteTokens:      errors.New("incomplete tokens"),
}

type classified struct {
	kind  Kind
	op    string
	field string
	cause error
}

func (c *classified) Error() string { return fmt.Sprintf("%d %s %s: %v", c.kind, c.op, c.field, c.cause) }
func (c *classified) Unwrap() error { return c.cause }

type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int

	authErr      error
	mfa          bool
	exchangeErr  error
	logoutErr    error
	identityErr  error
	exchangeCode string
	tokens       identity.Tokens
	profile      identity.Profile
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls:        map[string]int{},
		exchangeCode: "123456",
		tokens:       identity.Tokens{AccessToken: "a", RefreshToken: "r", IDToken: "i"},
		profile:      identity.Profile{Subject: "sub-1", Email: "a@b.com"},
	}
}

func (f *fakeProvider) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeProvider) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeProvider) Register(context.Context, string, string, identity.Attributes) (identity.Registration, error) {
	f.hit("Register")
	return identity.Registration{SubjectID: "sub-new", NextStep: identity.NextStepConfirmSignUp}, nil
}

func (f *fakeProvider) ConfirmRegistration(_ context.Context, _ string, code string) (identity.Confirmation, error) {
	f.hit("ConfirmRegistration")
	if code != f.exchangeCode {
		return identity.Confirmation{}, identity.ErrInvalidCode
	}
	return identity.Confirmation{Complete: true}, nil
}

func (f *fakeProvider) Authenticate(context.Context, string, string) (identity.Authentication, error) {
	f.hit("Authenticate")
	if f.authErr != nil {
		return identity.Authentication{}, f.authErr
	}
	if f.mfa {
		return identity.Authentication{Challenge: identity.ChallengeMFA, Session: "mfa-session", Medium: identity.MediumSMS}, nil
	}
	return identity.Authentication{}, nil
}

func (f *fakeProvider) CurrentIdentity(context.Context) (identity.Profile, error) {
	f.hit("CurrentIdentity")
	if f.identityErr != nil {
		return identity.Profile{}, f.identityErr
	}
	return f.profile, nil
}

func (f *fakeProvider) CurrentTokens(context.Context) (identity.Tokens, error) {
	f.hit("CurrentTokens")
	return f.tokens, nil
}

func (f *fakeProvider) RequestCode(_ context.Context, _ string, medium identity.DeliveryMedium) (identity.CodeRequest, error) {
	f.hit("RequestCode")
	return identity.CodeRequest{Session: "otp-session", Medium: medium}, nil
}

func (f *fakeProvider) ExchangeCode(_ context.Context, _ string, code string) (identity.Exchange, error) {
	f.hit("ExchangeCode")
	if f.exchangeErr != nil {
		return identity.Exchange{}, f.exchangeErr
	}
	if code != f.exchangeCode {
		return identity.Exchange{}, identity.ErrInvalidCode
	}
	return identity.Exchange{Profile: identity.Profile{Subject: "sub-1"}, Tokens: f.tokens}, nil
}

func (f *fakeProvider) RequestPasswordReset(context.Context, string) error {
	f.hit("RequestPasswordReset")
	return nil
}

func (f *fakeProvider) ConfirmPasswordReset(context.Context, string, string, string) error {
	f.hit("ConfirmPasswordReset")
	return nil
}

func (f *fakeProvider) InvalidateSession(context.Context) error {
	f.hit("InvalidateSession")
	return f.logoutErr
}

func (f *fakeProvider) SetMFAPreference(_ context.Context, enabled bool, medium identity.DeliveryMedium) (identity.Profile, error) {
	f.hit("SetMFAPreference")
	p := f.profile
	p.MFAEnabled = enabled
	return p, nil
}

func newTestDeps(p identity.Provider) (Deps, *storage.MemoryKV) {
	kv := storage.NewMemoryKV(0)
	adapter, _ := storage.NewAdapter(kv)
	return Deps{
		Store:    session.NewStore(),
		Provider: p,
		Storage:  adapter,
		Rules:    Rules{MinSecretLength: 8, CodeLength: 6},
		Errors:   testErrors,
		Metrics:  Metrics{Outcomes: map[string]Outcome{}},
		Logger:   zerolog.Nop(),
		Classify: func(kind Kind, op, field string, cause error) error {
			return &classified{kind: kind, op: op, field: field, cause: cause}
		},
	}, kv
}

// withFreshStore returns deps for a second client over the same kv.
func withFreshStore(t *testing.T, deps Deps, kv storage.KV) Deps {
	t.Helper()
	adapter, err := storage.NewAdapter(kv)
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	deps.Store = session.NewStore()
	deps.Storage = adapter
	return deps
}

func kindOf(err error) Kind {
	var c *classified
	if errors.As(err, &c) {
		return c.kind
	}
	return 0
}
