package localidp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/internal/stores"
	"github.com/google/uuid"
)

// Authenticate checks identifier and secret. Unknown identifiers and wrong
// secrets are indistinguishable and both count against the identifier's
// login budget. Accounts with MFA get a challenge session instead of tokens.
func (p *Provider) Authenticate(ctx context.Context, identifier, secret string) (identity.Authentication, error) {
	id := normalize(identifier)
	if err := p.logins.Check(ctx, id); err != nil {
		return identity.Authentication{}, limiterErr(err)
	}

	account, err := p.lookup(ctx, id)
	if err != nil && !errors.Is(err, identity.ErrNotFound) {
		return identity.Authentication{}, err
	}
	ok := false
	if account != nil && account.SecretHash != "" {
		ok, err = p.hasher.Verify(secret, account.SecretHash)
		if err != nil {
			ok = false
		}
	}
	if !ok {
		if err := p.logins.Fail(ctx, id); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			return identity.Authentication{}, limiterErr(err)
		}
		return identity.Authentication{}, identity.ErrInvalidCredentials
	}
	if !account.Confirmed {
		return identity.Authentication{}, identity.ErrNotConfirmed
	}
	if err := p.logins.Reset(ctx, id); err != nil {
		p.logger.Warn().Err(err).Msg("reset login attempts")
	}
	p.upgradeHash(ctx, account, secret)

	if account.MFAEnabled {
		medium := identity.DeliveryMedium(account.MFAMedium)
		if !medium.Valid() {
			medium = preferredMedium(account)
		}
		challenge := uuid.NewString()
		rec := stores.CodeRecord{Subject: account.Subject, Identifier: id, Medium: string(medium)}
		if err := p.issueCode(ctx, stores.PurposeMFA, challenge, rec, destinationFor(account, medium)); err != nil {
			return identity.Authentication{}, err
		}
		p.logger.Debug().Str("subject", account.Subject).Str("medium", string(medium)).Msg("mfa challenge issued")
		return identity.Authentication{Challenge: identity.ChallengeMFA, Session: challenge, Medium: medium}, nil
	}

	tokens, err := p.issueSession(ctx, account)
	if err != nil {
		return identity.Authentication{}, err
	}
	return identity.Authentication{Tokens: &tokens}, nil
}

// RequestCode starts a passwordless sign-in for identifier over medium.
// Unknown identifiers are accepted; ExchangeCode provisions the account.
func (p *Provider) RequestCode(ctx context.Context, identifier string, medium identity.DeliveryMedium) (identity.CodeRequest, error) {
	if !medium.Valid() {
		return identity.CodeRequest{}, fmt.Errorf("%w: unsupported delivery medium %q", identity.ErrInvalidInput, medium)
	}
	id := normalize(identifier)
	if id == "" {
		return identity.CodeRequest{}, fmt.Errorf("%w: identifier is required", identity.ErrInvalidInput)
	}

	rec := stores.CodeRecord{Identifier: id, Medium: string(medium)}
	account, err := p.lookup(ctx, id)
	switch {
	case err == nil:
		rec.Subject = account.Subject
	case !errors.Is(err, identity.ErrNotFound):
		return identity.CodeRequest{}, err
	}

	challenge := uuid.NewString()
	if err := p.issueCode(ctx, stores.PurposeOTP, challenge, rec, id); err != nil {
		return identity.CodeRequest{}, err
	}
	return identity.CodeRequest{Session: challenge, Medium: medium, Destination: mask(id)}, nil
}

// ExchangeCode answers an MFA or passwordless challenge. On success the
// identity's session becomes current.
func (p *Provider) ExchangeCode(ctx context.Context, session, code string) (identity.Exchange, error) {
	rec, err := p.consumeCode(ctx, stores.PurposeMFA, session, code)
	if errors.Is(err, identity.ErrExpiredSession) {
		rec, err = p.consumeCode(ctx, stores.PurposeOTP, session, code)
	}
	if err != nil {
		return identity.Exchange{}, err
	}

	var account *stores.Account
	if rec.Purpose == stores.PurposeOTP {
		account, err = p.passwordlessAccount(ctx, rec)
	} else {
		account, err = p.accounts.Get(ctx, rec.Subject)
		if errors.Is(err, stores.ErrAccountNotFound) {
			err = identity.ErrExpiredSession
		} else if err != nil {
			err = unavailable(err)
		}
	}
	if err != nil {
		return identity.Exchange{}, err
	}

	tokens, err := p.issueSession(ctx, account)
	if err != nil {
		return identity.Exchange{}, err
	}
	return identity.Exchange{Profile: profileOf(account), Tokens: tokens}, nil
}

// passwordlessAccount resolves the account a verified OTP challenge proves
// control of, creating a confirmed passwordless account when there is none.
// The address the code was delivered to becomes verified.
func (p *Provider) passwordlessAccount(ctx context.Context, rec *stores.CodeRecord) (*stores.Account, error) {
	medium := identity.DeliveryMedium(rec.Medium)

	account, err := p.lookup(ctx, rec.Identifier)
	if errors.Is(err, identity.ErrNotFound) {
		account = &stores.Account{
			Subject:   uuid.NewString(),
			Confirmed: true,
			AuthType:  string(identity.PasswordlessAuthType(medium)),
			CreatedAt: time.Now().Unix(),
		}
		if medium == identity.MediumSMS {
			account.PhoneNumber = rec.Identifier
			account.PhoneVerified = true
		} else {
			account.Email = rec.Identifier
			account.EmailVerified = true
		}
		err = p.accounts.Create(ctx, account, []string{rec.Identifier})
		if err == nil {
			p.logger.Debug().Str("subject", account.Subject).Msg("passwordless account provisioned")
			return account, nil
		}
		if !errors.Is(err, stores.ErrAccountExists) {
			return nil, unavailable(err)
		}
		account, err = p.lookup(ctx, rec.Identifier)
	}
	if err != nil {
		return nil, err
	}

	changed := !account.Confirmed
	account.Confirmed = true
	if medium == identity.MediumSMS && !account.PhoneVerified {
		account.PhoneVerified, changed = true, true
	}
	if medium == identity.MediumEmail && !account.EmailVerified {
		account.EmailVerified, changed = true, true
	}
	if changed {
		if err := p.accounts.Update(ctx, account); err != nil {
			return nil, unavailable(err)
		}
	}
	return account, nil
}

// upgradeHash re-hashes secret when the stored hash was made with weaker
// parameters than the current ones. Failures keep the old hash.
func (p *Provider) upgradeHash(ctx context.Context, account *stores.Account, secret string) {
	stale, err := p.hasher.NeedsUpgrade(account.SecretHash)
	if err != nil || !stale {
		return
	}
	hash, err := p.hasher.Hash(secret)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", account.Subject).Msg("rehash secret")
		return
	}
	account.SecretHash = hash
	if err := p.accounts.Update(ctx, account); err != nil {
		p.logger.Warn().Err(err).Str("subject", account.Subject).Msg("store upgraded secret hash")
		return
	}
	p.logger.Debug().Str("subject", account.Subject).Msg("secret hash upgraded")
}

func limiterErr(err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		return identity.ErrRateLimited
	}
	return unavailable(err)
}
