package identity

import (
	"strings"
	"time"
)

// DeliveryMedium names the channel a one-time code is sent through.
type DeliveryMedium string

const (
	MediumEmail DeliveryMedium = "EMAIL"
	MediumSMS   DeliveryMedium = "SMS"
)

// Valid reports whether m is a supported medium.
func (m DeliveryMedium) Valid() bool {
	return m == MediumEmail || m == MediumSMS
}

// ParseDeliveryMedium accepts "email"/"sms" in any case.
func ParseDeliveryMedium(s string) (DeliveryMedium, bool) {
	m := DeliveryMedium(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

// AuthType records how a profile last authenticated.
type AuthType string

const (
	AuthPassword          AuthType = "password"
	AuthPhone             AuthType = "phone"
	AuthUsername          AuthType = "username"
	AuthPasswordlessEmail AuthType = "passwordless_email"
	AuthPasswordlessSMS   AuthType = "passwordless_sms"
)

// PasswordlessAuthType maps a delivery medium to its passwordless auth type.
func PasswordlessAuthType(m DeliveryMedium) AuthType {
	if m == MediumSMS {
		return AuthPasswordlessSMS
	}
	return AuthPasswordlessEmail
}

// Profile is the provider-agnostic projection of an identity.
type Profile struct {
	Subject       string    `json:"subject"`
	DisplayName   string    `json:"displayName"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email,omitempty"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	PhoneVerified bool      `json:"phoneVerified"`
	MFAEnabled    bool      `json:"mfaEnabled"`
	MFAType       string    `json:"mfaType,omitempty"`
	AuthType      AuthType  `json:"authType"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Merge fills empty fields of p from fallback. Booleans are OR-ed.
func (p Profile) Merge(fallback Profile) Profile {
	out := p
	if out.Subject == "" {
		out.Subject = fallback.Subject
	}
	if out.DisplayName == "" {
		out.DisplayName = fallback.DisplayName
	}
	if out.Username == "" {
		out.Username = fallback.Username
	}
	if out.Email == "" {
		out.Email = fallback.Email
	}
	if out.PhoneNumber == "" {
		out.PhoneNumber = fallback.PhoneNumber
	}
	if out.MFAType == "" {
		out.MFAType = fallback.MFAType
	}
	if out.AuthType == "" {
		out.AuthType = fallback.AuthType
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = fallback.CreatedAt
	}
	out.EmailVerified = out.EmailVerified || fallback.EmailVerified
	out.PhoneVerified = out.PhoneVerified || fallback.PhoneVerified
	out.MFAEnabled = out.MFAEnabled || fallback.MFAEnabled
	return out
}

// Tokens is an opaque bearer credential set. It is never parsed here.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	IDToken      string    `json:"idToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Complete reports whether all three tokens are present.
func (t Tokens) Complete() bool {
	return t.AccessToken != "" && t.RefreshToken != "" && t.IDToken != ""
}

// Expired reports whether ExpiresAt is set and not after now.
func (t Tokens) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Attributes are the profile attributes supplied at registration.
type Attributes struct {
	DisplayName string
	Email       string
	PhoneNumber string
	Username    string
	AuthType    AuthType
}

// Next steps reported by Register.
const (
	NextStepConfirmSignUp = "CONFIRM_SIGN_UP"
	NextStepDone          = "DONE"
)

// Registration is the result of Register.
type Registration struct {
	SubjectID string
	NextStep  string
	Complete  bool
}

// Confirmation is the result of ConfirmRegistration.
type Confirmation struct {
	Complete bool
}

// ChallengeKind names an intermediate step a provider can demand.
type ChallengeKind string

const (
	ChallengeNone ChallengeKind = ""
	ChallengeMFA  ChallengeKind = "MFA"
)

// Authentication is the result of Authenticate: either Tokens, or a
// challenge with an opaque Session to continue it.
type Authentication struct {
	Tokens    *Tokens
	Challenge ChallengeKind
	Session   string
	Medium    DeliveryMedium
}

// CodeRequest is the result of RequestCode.
type CodeRequest struct {
	Session     string
	Medium      DeliveryMedium
	Destination string
}

// Exchange is the result of ExchangeCode.
type Exchange struct {
	Profile Profile
	Tokens  Tokens
}
