package session

import (
	"fmt"

	"github.com/MrEthical07/goSession/identity"
)

// Event is a state transition. The set of events is closed; see the types
// in this file.
type Event interface {
	Name() string
	apply(*State) error
	durable() bool
}

// OperationStarted marks an operation as outstanding and clears LastError.
// A signup start is OperationStarted{Op: "signup"}.
type OperationStarted struct{ Op string }

// OperationFinished releases an outstanding operation.
type OperationFinished struct{ Op string }

// SignupSucceeded records a freshly registered, unauthenticated profile.
type SignupSucceeded struct{ Profile identity.Profile }

// LoginSucceeded installs a full session.
type LoginSucceeded struct {
	Profile identity.Profile
	Tokens  identity.Tokens
}

// MFARequired starts an MFA challenge, replacing any other challenge.
type MFARequired struct {
	Session  string
	TempUser identity.Profile
}

// MFAVerified completes a pending MFA challenge.
type MFAVerified struct {
	Profile identity.Profile
	Tokens  identity.Tokens
}

// OTPRequested starts a one-time-code challenge, replacing any other challenge.
type OTPRequested struct {
	Session    string
	Medium     identity.DeliveryMedium
	Identifier string
}

// OTPVerified completes a pending one-time-code challenge.
type OTPVerified struct {
	Profile identity.Profile
	Tokens  identity.Tokens
}

// ProfileUpdated replaces the profile of the current user.
type ProfileUpdated struct{ Profile identity.Profile }

// OperationFailed records err. Everything else, including a pending
// challenge, is preserved so the caller can retry.
type OperationFailed struct{ Err error }

// LoggedOut resets the session to empty.
type LoggedOut struct{}

// ErrorCleared clears LastError.
type ErrorCleared struct{}

func (OperationStarted) Name() string  { return "OperationStarted" }
func (OperationFinished) Name() string { return "OperationFinished" }
func (SignupSucceeded) Name() string   { return "SignupSucceeded" }
func (LoginSucceeded) Name() string    { return "LoginSucceeded" }
func (MFARequired) Name() string       { return "MFARequired" }
func (MFAVerified) Name() string       { return "MFAVerified" }
func (OTPRequested) Name() string      { return "OTPRequested" }
func (OTPVerified) Name() string       { return "OTPVerified" }
func (ProfileUpdated) Name() string    { return "ProfileUpdated" }
func (OperationFailed) Name() string   { return "OperationFailed" }
func (LoggedOut) Name() string         { return "LoggedOut" }
func (ErrorCleared) Name() string      { return "ErrorCleared" }

func (OperationStarted) durable() bool  { return false }
func (OperationFinished) durable() bool { return false }
func (SignupSucceeded) durable() bool   { return true }
func (LoginSucceeded) durable() bool    { return true }
func (MFARequired) durable() bool       { return false }
func (MFAVerified) durable() bool       { return true }
func (OTPRequested) durable() bool      { return false }
func (OTPVerified) durable() bool       { return true }
func (ProfileUpdated) durable() bool    { return true }
func (OperationFailed) durable() bool   { return false }
func (LoggedOut) durable() bool         { return true }
func (ErrorCleared) durable() bool      { return false }

func (e OperationStarted) apply(s *State) error {
	s.inFlight++
	s.Busy = true
	s.LastError = nil
	return nil
}

func (e OperationFinished) apply(s *State) error {
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.Busy = s.inFlight > 0
	return nil
}

func (e SignupSucceeded) apply(s *State) error {
	p := e.Profile
	p.EmailVerified = false
	p.PhoneVerified = false
	s.User = &p
	s.Tokens = nil
	s.Authenticated = false
	return nil
}

func (e LoginSucceeded) apply(s *State) error {
	return authenticate(s, e.Profile, e.Tokens)
}

func (e MFARequired) apply(s *State) error {
	if s.Authenticated {
		return reject(e, "session already authenticated")
	}
	u := e.TempUser
	s.Challenge = Challenge{Kind: ChallengeMFA, Session: e.Session, TempUser: &u}
	return nil
}

func (e MFAVerified) apply(s *State) error {
	if s.Challenge.Kind != ChallengeMFA {
		return reject(e, "no pending mfa challenge")
	}
	return authenticate(s, e.Profile, e.Tokens)
}

func (e OTPRequested) apply(s *State) error {
	if s.Authenticated {
		return reject(e, "session already authenticated")
	}
	s.Challenge = Challenge{
		Kind:       ChallengeOTP,
		Session:    e.Session,
		Medium:     e.Medium,
		Identifier: e.Identifier,
	}
	return nil
}

func (e OTPVerified) apply(s *State) error {
	if s.Challenge.Kind != ChallengeOTP {
		return reject(e, "no pending otp challenge")
	}
	return authenticate(s, e.Profile, e.Tokens)
}

func (e ProfileUpdated) apply(s *State) error {
	if s.User == nil {
		return reject(e, "no current user")
	}
	p := e.Profile
	s.User = &p
	return nil
}

func (e OperationFailed) apply(s *State) error {
	s.LastError = e.Err
	return nil
}

func (LoggedOut) apply(s *State) error {
	inFlight := s.inFlight
	*s = State{inFlight: inFlight, Busy: inFlight > 0}
	return nil
}

func (ErrorCleared) apply(s *State) error {
	s.LastError = nil
	return nil
}

func authenticate(s *State, p identity.Profile, t identity.Tokens) error {
	if !t.Complete() {
		return fmt.Errorf("%w: incomplete token set", ErrInvariantViolated)
	}
	s.User = &p
	s.Tokens = &t
	s.Authenticated = true
	s.Challenge = Challenge{}
	return nil
}

func reject(e Event, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrTransitionRejected, e.Name(), reason)
}
