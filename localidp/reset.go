package localidp

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/stores"
	"github.com/MrEthical07/goSession/password"
)

// RequestPasswordReset sends a reset code to the account behind identifier.
// Unknown identifiers succeed silently so the call does not reveal which
// accounts exist.
func (p *Provider) RequestPasswordReset(ctx context.Context, identifier string) error {
	if normalize(identifier) == "" {
		return fmt.Errorf("%w: identifier is required", identity.ErrInvalidInput)
	}
	account, err := p.lookup(ctx, identifier)
	if errors.Is(err, identity.ErrNotFound) {
		p.logger.Debug().Msg("password reset requested for unknown identifier")
		return nil
	}
	if err != nil {
		return err
	}

	medium := preferredMedium(account)
	rec := stores.CodeRecord{Subject: account.Subject, Identifier: normalize(identifier), Medium: string(medium)}
	return p.issueCode(ctx, stores.PurposeReset, account.Subject, rec, destinationFor(account, medium))
}

// ConfirmPasswordReset replaces the secret of the account behind identifier
// when code matches. Unknown identifiers report an invalid code.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, identifier, code, newSecret string) error {
	hash, err := p.hasher.Hash(newSecret)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return fmt.Errorf("%w: %v", identity.ErrInvalidInput, err)
		}
		return err
	}

	account, err := p.lookup(ctx, identifier)
	if errors.Is(err, identity.ErrNotFound) {
		return identity.ErrInvalidCode
	}
	if err != nil {
		return err
	}

	if _, err := p.consumeCode(ctx, stores.PurposeReset, account.Subject, code); err != nil {
		return err
	}

	account.SecretHash = hash
	if err := p.accounts.Update(ctx, account); err != nil {
		return unavailable(err)
	}
	if err := p.logins.Reset(ctx, normalize(identifier)); err != nil {
		p.logger.Warn().Err(err).Msg("reset login attempts")
	}
	p.logger.Debug().Str("subject", account.Subject).Msg("password reset")
	return nil
}
