package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
)

var (
	// ErrValidation matches every local input rejection. No provider call was made.
	ErrValidation = errors.New("validation error")
	// ErrProvider matches every failure reported by the identity provider.
	ErrProvider = errors.New("provider error")
	// ErrState matches every operation invoked in the wrong session state.
	ErrState = errors.New("state error")

	// ErrEmptyIdentifier is returned when an email, phone number or username is blank.
	ErrEmptyIdentifier = errors.New("identifier is required")
	// ErrEmptySecret is returned when a password field is blank.
	ErrEmptySecret = errors.New("password is required")
	// ErrSecretTooShort is returned when a password is shorter than Config.Validation.MinSecretLength.
	ErrSecretTooShort = errors.New("password too short")
	// ErrEmptyCode is returned when a verification, OTP or MFA code is blank.
	ErrEmptyCode = errors.New("code is required")
	// ErrCodeLength is returned when a code is not exactly Config.Validation.CodeLength characters.
	ErrCodeLength = errors.New("code has wrong length")
	// ErrInvalidMedium is returned for a delivery medium other than EMAIL or SMS.
	ErrInvalidMedium = errors.New("invalid delivery medium")

	// ErrNoPendingChallenge is returned when a code is verified with no challenge outstanding.
	ErrNoPendingChallenge = errors.New("no pending challenge")
	// ErrChallengeMismatch is returned when the pending challenge is of the other kind.
	ErrChallengeMismatch = errors.New("pending challenge is of a different kind")
	// ErrNotAuthenticated is returned by operations that need an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAlreadyAuthenticated is returned when a challenge is started on an active session.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	// ErrCapabilityUnsupported is returned when the provider lacks an optional capability.
	ErrCapabilityUnsupported = errors.New("provider does not support this operation")
	// ErrIncompleteTokens is returned when the provider hands back a partial token set.
	ErrIncompleteTokens = errors.New("provider returned an incomplete token set")

	// ErrProviderRequired is returned by Build without WithProvider.
	ErrProviderRequired = errors.New("identity provider required")
	// ErrBuilderUsed is returned by a second Build on the same builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClientNotReady is returned by operations on a nil or closed client.
	ErrClientNotReady = errors.New("client not initialized")
)

// ErrorKind is the top-level class of an [*Error].
type ErrorKind uint8

const (
	// KindValidation marks local input rejections.
	KindValidation ErrorKind = ErrorKind(flows.KindValidation)
	// KindProvider marks provider failures.
	KindProvider ErrorKind = ErrorKind(flows.KindProvider)
	// KindState marks usage errors against the current session state.
	KindState ErrorKind = ErrorKind(flows.KindState)
)

// String returns the lowercase kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProvider:
		return "provider"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindProvider:
		return ErrProvider
	case KindState:
		return ErrState
	default:
		return nil
	}
}

// ProviderCode subdivides provider failures.
type ProviderCode string

const (
	CodeInvalidCredentials ProviderCode = "invalid_credentials"
	CodeInvalidCode        ProviderCode = "invalid_code"
	CodeAlreadyExists      ProviderCode = "already_exists"
	CodeNotConfirmed       ProviderCode = "not_confirmed"
	CodeExpiredSession     ProviderCode = "expired_session"
	CodeNoSession          ProviderCode = "no_session"
	CodeNotFound           ProviderCode = "not_found"
	CodeInvalidInput       ProviderCode = "invalid_input"
	CodeRateLimited        ProviderCode = "rate_limited"
	CodeUnavailable        ProviderCode = "unavailable"
	CodeUnknown            ProviderCode = "unknown"
)

// Error is the classified error every Client operation returns. It is
// recorded in State.LastError and returned to the caller.
//
// errors.Is matches both the kind sentinel (ErrValidation, ErrProvider,
// ErrState) and the wrapped cause (ErrSecretTooShort, identity.ErrInvalidCode).
type Error struct {
	Kind  ErrorKind
	Code  ProviderCode
	Op    string
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := "gosession: " + e.Op + ": " + e.Kind.String()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a classified error, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf returns the provider code of a classified error, or "".
func CodeOf(err error) ProviderCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func classify(kind flows.Kind, op, field string, cause error) error {
	e := &Error{Kind: ErrorKind(kind), Op: op, Field: field, Err: cause}
	if e.Kind == KindProvider {
		e.Code = providerCode(cause)
	}
	return e
}

func providerCode(err error) ProviderCode {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, identity.ErrInvalidCode):
		return CodeInvalidCode
	case errors.Is(err, identity.ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, identity.ErrNotConfirmed):
		return CodeNotConfirmed
	case errors.Is(err, identity.ErrExpiredSession):
		return CodeExpiredSession
	case errors.Is(err, identity.ErrNoSession):
		return CodeNoSession
	case errors.Is(err, identity.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, identity.ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, identity.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, identity.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return CodeUnavailable
	default:
		return CodeUnknown
	}
}

func flowErrors() flows.Errors {
	return flows.Errors{
		EmptyIdentifier:       ErrEmptyIdentifier,
		EmptySecret:           ErrEmptySecret,
		SecretTooShort:        ErrSecretTooShort,
		EmptyCode:             ErrEmptyCode,
		CodeLength:            ErrCodeLength,
		InvalidMedium:         ErrInvalidMedium,
		NoPendingChallenge:    ErrNoPendingChallenge,
		ChallengeMismatch:     ErrChallengeMismatch,
		NotAuthenticated:      ErrNotAuthenticated,
		AlreadyAuthenticated:  ErrAlreadyAuthenticated,
		CapabilityUnsupported: ErrCapabilityUnsupported,
		IncompleteTokens:      ErrIncompleteTokens,
	}
}
