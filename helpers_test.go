package goSession

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/identity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int

	mfa          bool
	code         string
	authErr      error
	identityErr  error
	logoutErr    error
	tokens       identity.Tokens
	profile      identity.Profile
	resetGate    chan struct{}
	resetEntered chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls: map[string]int{},
		code:  "123456",
		tokens: identity.Tokens{
			AccessToken:  "access",
			RefreshToken: "refresh",
			IDToken:      "id",
		},
		profile: identity.Profile{Subject: "sub-1", DisplayName: "Alice"},
	}
}

func (f *fakeProvider) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeProvider) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
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

func (f *fakeProvider) set(fn func(*fakeProvider)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeProvider) Register(_ context.Context, identifier, _ string, _ identity.Attributes) (identity.Registration, error) {
	f.hit("Register")
	if identifier == "taken@b.com" {
		return identity.Registration{}, identity.ErrAlreadyExists
	}
	return identity.Registration{SubjectID: "sub-new", NextStep: identity.NextStepConfirmSignUp}, nil
}

func (f *fakeProvider) ConfirmRegistration(_ context.Context, _ string, code string) (identity.Confirmation, error) {
	f.hit("ConfirmRegistration")
	if code != f.code {
		return identity.Confirmation{}, identity.ErrInvalidCode
	}
	return identity.Confirmation{Complete: true}, nil
}

func (f *fakeProvider) Authenticate(context.Context, string, string) (identity.Authentication, error) {
	f.hit("Authenticate")
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identityErr != nil {
		return identity.Profile{}, f.identityErr
	}
	return f.profile, nil
}

func (f *fakeProvider) CurrentTokens(context.Context) (identity.Tokens, error) {
	f.hit("CurrentTokens")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens, nil
}

func (f *fakeProvider) RequestCode(_ context.Context, identifier string, medium identity.DeliveryMedium) (identity.CodeRequest, error) {
	f.hit("RequestCode")
	return identity.CodeRequest{Session: "otp-session", Medium: medium, Destination: identifier}, nil
}

func (f *fakeProvider) ExchangeCode(_ context.Context, session, code string) (identity.Exchange, error) {
	f.hit("ExchangeCode")
	if code != f.code {
		return identity.Exchange{}, identity.ErrInvalidCode
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return identity.Exchange{Profile: identity.Profile{Subject: "sub-1"}, Tokens: f.tokens}, nil
}

func (f *fakeProvider) RequestPasswordReset(context.Context, string) error {
	f.hit("RequestPasswordReset")
	if f.resetEntered != nil {
		f.resetEntered <- struct{}{}
	}
	if f.resetGate != nil {
		<-f.resetGate
	}
	return nil
}

func (f *fakeProvider) ConfirmPasswordReset(_ context.Context, _ string, code, _ string) error {
	f.hit("ConfirmPasswordReset")
	if code != f.code {
		return identity.ErrInvalidCode
	}
	return nil
}

func (f *fakeProvider) InvalidateSession(context.Context) error {
	f.hit("InvalidateSession")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeProvider) SetMFAPreference(_ context.Context, enabled bool, medium identity.DeliveryMedium) (identity.Profile, error) {
	f.hit("SetMFAPreference")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile.MFAEnabled = enabled
	f.profile.MFAType = string(medium)
	return f.profile, nil
}

// plainProvider hides the optional MFAConfigurer capability.
type plainProvider struct {
	identity.Provider
}

func newTestClient(t *testing.T, p identity.Provider, opts ...func(*Builder)) *Client {
	t.Helper()

	b := New().WithProvider(p)
	for _, opt := range opts {
		opt(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
