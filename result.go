package goSession

import (
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// Result is the envelope every Client operation returns next to its error.
// Err is the same value as the returned error. A pending challenge is a
// successful result, not an error.
type Result[T any] struct {
	OK   bool
	Data T
	Err  error
}

func succeeded[T any](v T) Result[T] {
	return Result[T]{OK: true, Data: v}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func resultOf[T any](v T, err error) (Result[T], error) {
	if err != nil {
		return failed[T](err), err
	}
	return succeeded(v), nil
}

// SignupOutcome describes a registration.
type SignupOutcome struct {
	Subject  string
	NextStep string
	// Complete is true when the provider needs no confirmation step.
	Complete bool
	Profile  identity.Profile
}

// VerifyOutcome describes a registration confirmation.
type VerifyOutcome struct {
	Complete bool
}

// LoginOutcome is either an authenticated profile or a pending challenge.
type LoginOutcome struct {
	Profile *identity.Profile

	ChallengePending bool
	Challenge        session.ChallengeKind
	Session          string
	// TempUser is what is known about the user before the challenge is met.
	// Pass it back to VerifyMFA.
	TempUser *identity.Profile
}

// OTPOutcome describes a dispatched one-time code.
type OTPOutcome struct {
	Medium      identity.DeliveryMedium
	Destination string
}

// SessionOutcome is the profile of a session granted by a completed challenge.
type SessionOutcome struct {
	Profile identity.Profile
}

// Empty is the payload of operations that return nothing.
type Empty struct{}
