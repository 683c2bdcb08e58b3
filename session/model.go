package session

import "github.com/MrEthical07/goSession/identity"

// ChallengeKind identifies the pending multi-step exchange, if any.
type ChallengeKind uint8

const (
	ChallengeNone ChallengeKind = iota
	ChallengeMFA
	ChallengeOTP
)

func (k ChallengeKind) String() string {
	switch k {
	case ChallengeMFA:
		return "mfa"
	case ChallengeOTP:
		return "otp"
	default:
		return "none"
	}
}

// Challenge is the single in-progress exchange. MFA challenges carry
// TempUser; OTP challenges carry Medium and Identifier.
type Challenge struct {
	Kind       ChallengeKind
	Session    string
	TempUser   *identity.Profile
	Medium     identity.DeliveryMedium
	Identifier string
}

// Pending reports whether a challenge is outstanding.
func (c Challenge) Pending() bool {
	return c.Kind != ChallengeNone
}

// State is a snapshot of the session. Values returned by the store are
// copies; mutating them has no effect on the store.
type State struct {
	User          *identity.Profile
	Tokens        *identity.Tokens
	Authenticated bool
	Challenge     Challenge
	LastError     error
	Busy          bool

	inFlight int
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Tokens != nil {
		t := *s.Tokens
		out.Tokens = &t
	}
	if s.Challenge.TempUser != nil {
		u := *s.Challenge.TempUser
		out.Challenge.TempUser = &u
	}
	return out
}

// Commit describes one applied batch of events.
type Commit struct {
	Seq    uint64
	Events []string
	State  State

	// DurableChanged is set when User or Tokens changed.
	DurableChanged bool
	// Cleared is set when the batch ended the session.
	Cleared bool
}
