package identity

import "context"

// Provider is the identity capability goSession orchestrates.
//
// Implementations hold their own notion of the current session: a successful
// Authenticate or ExchangeCode makes CurrentIdentity and CurrentTokens
// answer for that identity until InvalidateSession.
type Provider interface {
	Register(ctx context.Context, identifier, secret string, attrs Attributes) (Registration, error)
	ConfirmRegistration(ctx context.Context, identifier, code string) (Confirmation, error)
	Authenticate(ctx context.Context, identifier, secret string) (Authentication, error)
	CurrentIdentity(ctx context.Context) (Profile, error)
	CurrentTokens(ctx context.Context) (Tokens, error)
	RequestCode(ctx context.Context, identifier string, medium DeliveryMedium) (CodeRequest, error)
	ExchangeCode(ctx context.Context, session, code string) (Exchange, error)
	RequestPasswordReset(ctx context.Context, identifier string) error
	ConfirmPasswordReset(ctx context.Context, identifier, code, newSecret string) error
	InvalidateSession(ctx context.Context) error
}

// MFAConfigurer is implemented by providers that let an authenticated
// identity toggle its second factor.
type MFAConfigurer interface {
	SetMFAPreference(ctx context.Context, enabled bool, medium DeliveryMedium) (Profile, error)
}
