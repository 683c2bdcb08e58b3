package flows

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Store != nil && s.deps.Provider != nil
}

func (s Service) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	return RunSignup(ctx, req, s.deps)
}

func (s Service) ConfirmRegistration(ctx context.Context, kind IdentifierKind, identifier, code string) (ConfirmResult, error) {
	return RunConfirmRegistration(ctx, kind, identifier, code, s.deps)
}

func (s Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	return RunLogin(ctx, req, s.deps)
}

func (s Service) VerifyMFA(ctx context.Context, code string, tempUser *identity.Profile) (VerifyResult, error) {
	return RunVerifyMFA(ctx, code, tempUser, s.deps)
}

func (s Service) RequestOTP(ctx context.Context, identifier string, medium identity.DeliveryMedium) (OTPResult, error) {
	return RunRequestOTP(ctx, identifier, medium, s.deps)
}

func (s Service) VerifyOTP(ctx context.Context, code string) (VerifyResult, error) {
	return RunVerifyOTP(ctx, code, s.deps)
}

func (s Service) RequestPasswordReset(ctx context.Context, identifier string) error {
	return RunRequestPasswordReset(ctx, identifier, s.deps)
}

func (s Service) ConfirmPasswordReset(ctx context.Context, identifier, code, newSecret string) error {
	return RunConfirmPasswordReset(ctx, identifier, code, newSecret, s.deps)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps)
}

func (s Service) RestoreSession(ctx context.Context) (bool, error) {
	return RunRestoreSession(ctx, s.deps)
}

func (s Service) SetMFAPreference(ctx context.Context, enabled bool, medium identity.DeliveryMedium) (identity.Profile, error) {
	return RunSetMFAPreference(ctx, enabled, medium, s.deps)
}
