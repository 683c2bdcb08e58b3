package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/rs/zerolog"
)

// Kind classifies a failure for the root error mapping.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindProvider
	KindState
)

// Operation names. They double as audit event prefixes and metric keys.
const (
	OpSignup               = "signup"
	OpConfirmRegistration  = "confirm_registration"
	OpLogin                = "login"
	OpVerifyMFA            = "verify_mfa"
	OpRequestOTP           = "request_otp"
	OpVerifyOTP            = "verify_otp"
	OpRequestPasswordReset = "request_password_reset"
	OpConfirmPasswordReset = "confirm_password_reset"
	OpLogout               = "logout"
	OpRestoreSession       = "restore_session"
	OpSetMFAPreference     = "set_mfa_preference"
)

// Rules are the local input rules checked before any provider call.
type Rules struct {
	MinSecretLength int
	CodeLength      int
}

// Errors carries host-level sentinel errors used by the flows.
type Errors struct {
	EmptyIdentifier       error
	EmptySecret           error
	SecretTooShort        error
	EmptyCode             error
	CodeLength            error
	InvalidMedium         error
	NoPendingChallenge    error
	ChallengeMismatch     error
	NotAuthenticated      error
	AlreadyAuthenticated  error
	CapabilityUnsupported error
	IncompleteTokens      error
}

// Outcome holds the metric IDs for an operation's success and failure.
type Outcome struct {
	Success int
	Failure int
}

// Metrics carries metric IDs needed by the flows.
type Metrics struct {
	Outcomes              map[string]Outcome
	MFARequired           int
	ValidationRejected    int
	StateRejected         int
	ProviderLogoutFailure int
	PersistenceFailure    int
	RestoreMiss           int
}

// Deps captures everything the flows need from the host.
type Deps struct {
	Store    *session.Store
	Provider identity.Provider
	Storage  *storage.Adapter
	Rules    Rules
	Errors   Errors
	Metrics  Metrics

	RevalidateOnRestore bool
	DiscardExpired      bool

	Now      func() time.Time
	Logger   zerolog.Logger
	Classify func(kind Kind, op, field string, cause error) error

	// ProviderCode maps a provider error to a code safe to audit.
	ProviderCode func(error) string

	MetricInc       func(int)
	ObserveProvider func(time.Duration)
	EmitAudit       func(ctx context.Context, eventType string, success bool, subject string, err error, metadata func() map[string]string)
}
