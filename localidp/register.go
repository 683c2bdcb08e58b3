package localidp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/stores"
	"github.com/MrEthical07/goSession/password"
	"github.com/google/uuid"
)

// Register creates an account reachable under identifier and every address
// in attrs. With RequireConfirmation a code goes to the account's preferred
// medium and the registration is incomplete until ConfirmRegistration.
func (p *Provider) Register(ctx context.Context, identifier, secret string, attrs identity.Attributes) (identity.Registration, error) {
	primary := normalize(identifier)
	if primary == "" {
		return identity.Registration{}, fmt.Errorf("%w: identifier is required", identity.ErrInvalidInput)
	}

	hash, err := p.hasher.Hash(secret)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return identity.Registration{}, fmt.Errorf("%w: %v", identity.ErrInvalidInput, err)
		}
		return identity.Registration{}, err
	}

	authType := attrs.AuthType
	if authType == "" {
		authType = identity.AuthPassword
	}
	account := &stores.Account{
		Subject:     uuid.NewString(),
		Email:       normalize(attrs.Email),
		PhoneNumber: normalize(attrs.PhoneNumber),
		Username:    normalize(attrs.Username),
		DisplayName: attrs.DisplayName,
		SecretHash:  hash,
		Confirmed:   !p.config.RequireConfirmation,
		AuthType:    string(authType),
		CreatedAt:   time.Now().Unix(),
	}

	if err := p.accounts.Create(ctx, account, aliasesOf(primary, account)); err != nil {
		if errors.Is(err, stores.ErrAccountExists) {
			return identity.Registration{}, identity.ErrAlreadyExists
		}
		return identity.Registration{}, unavailable(err)
	}
	p.logger.Debug().Str("subject", account.Subject).Str("auth_type", account.AuthType).Msg("account registered")

	if !p.config.RequireConfirmation {
		return identity.Registration{SubjectID: account.Subject, NextStep: identity.NextStepDone, Complete: true}, nil
	}

	medium := preferredMedium(account)
	rec := stores.CodeRecord{Subject: account.Subject, Identifier: primary, Medium: string(medium)}
	if err := p.issueCode(ctx, stores.PurposeConfirm, account.Subject, rec, destinationFor(account, medium)); err != nil {
		return identity.Registration{}, err
	}
	return identity.Registration{SubjectID: account.Subject, NextStep: identity.NextStepConfirmSignUp}, nil
}

// ConfirmRegistration consumes the confirmation code of the account behind
// identifier and marks the address it was delivered to as verified.
func (p *Provider) ConfirmRegistration(ctx context.Context, identifier, code string) (identity.Confirmation, error) {
	account, err := p.lookup(ctx, identifier)
	if err != nil {
		return identity.Confirmation{}, err
	}
	if account.Confirmed {
		return identity.Confirmation{}, fmt.Errorf("%w: account is already confirmed", identity.ErrInvalidInput)
	}

	rec, err := p.consumeCode(ctx, stores.PurposeConfirm, account.Subject, code)
	if err != nil {
		return identity.Confirmation{}, err
	}

	account.Confirmed = true
	if identity.DeliveryMedium(rec.Medium) == identity.MediumSMS {
		account.PhoneVerified = true
	} else if account.Email != "" {
		account.EmailVerified = true
	}
	if err := p.accounts.Update(ctx, account); err != nil {
		return identity.Confirmation{}, unavailable(err)
	}
	p.logger.Debug().Str("subject", account.Subject).Msg("account confirmed")
	return identity.Confirmation{Complete: true}, nil
}

// aliasesOf lists the distinct login identifiers of account, primary first.
func aliasesOf(primary string, account *stores.Account) []string {
	out := []string{primary}
	for _, a := range []string{account.Email, account.PhoneNumber, account.Username} {
		if a == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == a {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}
