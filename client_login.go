package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
)

// Login authenticates email with password. When the provider demands a
// second factor the result is OK with Data.ChallengePending set and a nil
// error; complete it with VerifyMFA.
func (c *Client) Login(ctx context.Context, email, password string) (Result[LoginOutcome], error) {
	return c.login(ctx, flows.IdentifierEmail, email, password)
}

// LoginWithPhone authenticates a phone number with password.
func (c *Client) LoginWithPhone(ctx context.Context, phone, password string) (Result[LoginOutcome], error) {
	return c.login(ctx, flows.IdentifierPhone, phone, password)
}

// LoginWithUsername authenticates a username with password.
func (c *Client) LoginWithUsername(ctx context.Context, username, password string) (Result[LoginOutcome], error) {
	return c.login(ctx, flows.IdentifierUsername, username, password)
}

func (c *Client) login(ctx context.Context, kind flows.IdentifierKind, identifier, password string) (Result[LoginOutcome], error) {
	if !c.ready() {
		return failed[LoginOutcome](ErrClientNotReady), ErrClientNotReady
	}
	res, err := c.flows.Login(ctx, flows.LoginRequest{Kind: kind, Identifier: identifier, Secret: password})
	return resultOf(LoginOutcome{
		Profile:          res.Profile,
		ChallengePending: res.ChallengePending,
		Challenge:        res.Challenge,
		Session:          res.Session,
		TempUser:         res.TempUser,
	}, err)
}

// VerifyMFA completes the pending MFA challenge with code. tempUser is the
// LoginOutcome.TempUser of the login that raised the challenge and may be
// nil. Without a pending MFA challenge it fails with ErrState and makes no
// provider call. A wrong code keeps the challenge for a retry.
func (c *Client) VerifyMFA(ctx context.Context, code string, tempUser *identity.Profile) (Result[SessionOutcome], error) {
	if !c.ready() {
		return failed[SessionOutcome](ErrClientNotReady), ErrClientNotReady
	}
	res, err := c.flows.VerifyMFA(ctx, code, tempUser)
	return resultOf(SessionOutcome{Profile: res.Profile}, err)
}
