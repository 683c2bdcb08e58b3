package identity

import "errors"

var (
	// ErrInvalidCredentials reports an unknown identifier or a wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCode reports a wrong confirmation, reset or one-time code.
	ErrInvalidCode = errors.New("invalid code")
	// ErrAlreadyExists reports a registration for an identifier that is taken.
	ErrAlreadyExists = errors.New("identity already exists")
	// ErrNotConfirmed reports an authentication attempt on an unconfirmed registration.
	ErrNotConfirmed = errors.New("identity not confirmed")
	// ErrExpiredSession reports an exhausted or expired challenge session.
	ErrExpiredSession = errors.New("challenge session expired")
	// ErrNoSession reports that the provider holds no authenticated session.
	ErrNoSession = errors.New("no active session")
	// ErrNotFound reports an unknown identifier on confirmation.
	ErrNotFound = errors.New("identity not found")
	// ErrInvalidInput reports a request the provider rejected as malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited reports a request refused by provider-side throttling.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable reports a transport or backend failure.
	ErrUnavailable = errors.New("identity provider unavailable")
)
