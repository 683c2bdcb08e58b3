package flows

import (
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/goSession/identity"
)

// IdentifierKind says which attribute an identifier names.
type IdentifierKind uint8

const (
	IdentifierEmail IdentifierKind = iota
	IdentifierPhone
	IdentifierUsername
)

// Field is the input field name used in validation errors.
func (k IdentifierKind) Field() string {
	switch k {
	case IdentifierPhone:
		return "phone"
	case IdentifierUsername:
		return "username"
	default:
		return "email"
	}
}

// AuthType is the auth type recorded for password logins with this kind.
func (k IdentifierKind) AuthType() identity.AuthType {
	switch k {
	case IdentifierPhone:
		return identity.AuthPhone
	case IdentifierUsername:
		return identity.AuthUsername
	default:
		return identity.AuthPassword
	}
}

// profileFor is the partial profile implied by an identifier.
func (k IdentifierKind) profileFor(id string) identity.Profile {
	p := identity.Profile{AuthType: k.AuthType()}
	switch k {
	case IdentifierPhone:
		p.PhoneNumber = id
	case IdentifierUsername:
		p.Username = id
	default:
		p.Email = id
	}
	return p
}

func (k IdentifierKind) matches(p *identity.Profile, id string) bool {
	if p == nil {
		return false
	}
	switch k {
	case IdentifierPhone:
		return p.PhoneNumber == id
	case IdentifierUsername:
		return p.Username == id
	default:
		return strings.EqualFold(p.Email, id)
	}
}

func mediumKind(m identity.DeliveryMedium) IdentifierKind {
	if m == identity.MediumSMS {
		return IdentifierPhone
	}
	return IdentifierEmail
}

// CheckIdentifier returns the trimmed identifier or errs.EmptyIdentifier.
func CheckIdentifier(v string, errs Errors) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errs.EmptyIdentifier
	}
	return v, nil
}

// CheckSecret enforces the non-empty and minimum length rules.
func CheckSecret(v string, rules Rules, errs Errors) error {
	if v == "" {
		return errs.EmptySecret
	}
	if utf8.RuneCountInString(v) < rules.MinSecretLength {
		return errs.SecretTooShort
	}
	return nil
}

// CheckCode enforces the non-empty and exact length rules.
func CheckCode(v string, rules Rules, errs Errors) error {
	if v == "" {
		return errs.EmptyCode
	}
	if utf8.RuneCountInString(v) != rules.CodeLength {
		return errs.CodeLength
	}
	return nil
}

func (r *run) identifier(field, v string) (string, error) {
	id, err := CheckIdentifier(v, r.deps.Errors)
	if err != nil {
		return "", r.fail(KindValidation, field, err)
	}
	return id, nil
}

func (r *run) secret(field, v string) error {
	if err := CheckSecret(v, r.deps.Rules, r.deps.Errors); err != nil {
		return r.fail(KindValidation, field, err)
	}
	return nil
}

func (r *run) code(v string) error {
	if err := CheckCode(v, r.deps.Rules, r.deps.Errors); err != nil {
		return r.fail(KindValidation, "code", err)
	}
	return nil
}

func (r *run) medium(m identity.DeliveryMedium) error {
	if !m.Valid() {
		return r.fail(KindValidation, "medium", r.deps.Errors.InvalidMedium)
	}
	return nil
}
