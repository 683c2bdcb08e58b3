package localidp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/stores"
)

// CurrentIdentity returns the profile of the current session's account.
func (p *Provider) CurrentIdentity(ctx context.Context) (identity.Profile, error) {
	cur, err := p.live(ctx)
	if err != nil {
		return identity.Profile{}, err
	}
	account, err := p.accounts.Get(ctx, cur.subject)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return identity.Profile{}, identity.ErrNoSession
		}
		return identity.Profile{}, unavailable(err)
	}
	return profileOf(account), nil
}

// CurrentTokens returns the tokens issued for the current session.
func (p *Provider) CurrentTokens(ctx context.Context) (identity.Tokens, error) {
	cur, err := p.live(ctx)
	if err != nil {
		return identity.Tokens{}, err
	}
	return cur.tokens, nil
}

// InvalidateSession revokes the current session. Tokens minted for it stop
// resolving through Refresh even where they have not expired.
func (p *Provider) InvalidateSession(ctx context.Context) error {
	cur := p.getCurrent()
	if cur == nil {
		return identity.ErrNoSession
	}
	p.setCurrent(nil)
	if err := p.sessions.Delete(ctx, cur.id); err != nil {
		return unavailable(err)
	}
	p.logger.Debug().Str("subject", cur.subject).Msg("session revoked")
	return nil
}

// Refresh resumes the session a refresh token belongs to, mints fresh
// access and id tokens for it and makes it current. It lets a new Provider
// instance pick up a session persisted by an earlier one.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (identity.Tokens, error) {
	refresh, err := internal.ParseRefreshToken(refreshToken)
	if err != nil {
		return identity.Tokens{}, identity.ErrNoSession
	}
	sid := refresh.Session.String()
	record, err := p.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, stores.ErrSessionNotFound) {
			return identity.Tokens{}, identity.ErrNoSession
		}
		return identity.Tokens{}, unavailable(err)
	}
	hash := refresh.SecretHash()
	if subtle.ConstantTimeCompare(hash[:], record.RefreshHash[:]) != 1 {
		return identity.Tokens{}, identity.ErrNoSession
	}

	account, err := p.accounts.Get(ctx, record.Subject)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return identity.Tokens{}, identity.ErrNoSession
		}
		return identity.Tokens{}, unavailable(err)
	}

	tokens, err := p.mint(sid, account)
	if err != nil {
		return identity.Tokens{}, err
	}
	tokens.RefreshToken = refreshToken
	p.setCurrent(&currentSession{id: sid, subject: account.Subject, tokens: tokens})
	return tokens, nil
}

// Resume makes the session behind tokens current again. It is Refresh
// without the new tokens, for callers that already persisted a full set.
func (p *Provider) Resume(ctx context.Context, tokens identity.Tokens) error {
	_, err := p.Refresh(ctx, tokens.RefreshToken)
	return err
}

// SetMFAPreference turns the second factor of the current account on or
// off. Enabling requires an address for medium.
func (p *Provider) SetMFAPreference(ctx context.Context, enabled bool, medium identity.DeliveryMedium) (identity.Profile, error) {
	cur, err := p.live(ctx)
	if err != nil {
		return identity.Profile{}, err
	}
	account, err := p.accounts.Get(ctx, cur.subject)
	if err != nil {
		if errors.Is(err, stores.ErrAccountNotFound) {
			return identity.Profile{}, identity.ErrNoSession
		}
		return identity.Profile{}, unavailable(err)
	}

	if enabled {
		if !medium.Valid() {
			return identity.Profile{}, fmt.Errorf("%w: unsupported delivery medium %q", identity.ErrInvalidInput, medium)
		}
		if destinationFor(account, medium) == "" {
			return identity.Profile{}, fmt.Errorf("%w: account has no %s address", identity.ErrInvalidInput, medium)
		}
		account.MFAEnabled = true
		account.MFAMedium = string(medium)
	} else {
		account.MFAEnabled = false
		account.MFAMedium = ""
	}

	if err := p.accounts.Update(ctx, account); err != nil {
		return identity.Profile{}, unavailable(err)
	}
	p.logger.Debug().Str("subject", account.Subject).Bool("mfa", enabled).Msg("mfa preference updated")
	return profileOf(account), nil
}
