package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
)

// Signup registers email with password and records the new, unverified user
// as the current user. The session is not authenticated; confirm with
// VerifyEmail and then Login.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) (Result[SignupOutcome], error) {
	return c.signup(ctx, flows.SignupRequest{
		Kind:       flows.IdentifierEmail,
		Identifier: email,
		Secret:     password,
		Attributes: identity.Attributes{DisplayName: displayName},
	})
}

// SignupWithPhone registers a phone number. The confirmation code is sent by SMS.
func (c *Client) SignupWithPhone(ctx context.Context, phone, password, displayName string) (Result[SignupOutcome], error) {
	return c.signup(ctx, flows.SignupRequest{
		Kind:       flows.IdentifierPhone,
		Identifier: phone,
		Secret:     password,
		Attributes: identity.Attributes{DisplayName: displayName},
	})
}

// SignupWithUsername registers a username. email may be empty; when set it
// receives the confirmation code.
func (c *Client) SignupWithUsername(ctx context.Context, username, email, password, displayName string) (Result[SignupOutcome], error) {
	return c.signup(ctx, flows.SignupRequest{
		Kind:       flows.IdentifierUsername,
		Identifier: username,
		Secret:     password,
		Attributes: identity.Attributes{DisplayName: displayName, Email: email},
	})
}

func (c *Client) signup(ctx context.Context, req flows.SignupRequest) (Result[SignupOutcome], error) {
	if !c.ready() {
		return failed[SignupOutcome](ErrClientNotReady), ErrClientNotReady
	}
	res, err := c.flows.Signup(ctx, req)
	return resultOf(SignupOutcome{
		Subject:  res.Subject,
		NextStep: res.NextStep,
		Complete: res.Complete,
		Profile:  res.Profile,
	}, err)
}

// VerifyEmail confirms a registration code. It never logs the user in. When
// the current user has this email its EmailVerified flag is set.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) (Result[VerifyOutcome], error) {
	return c.confirm(ctx, flows.IdentifierEmail, email, code)
}

// VerifyPhone confirms a registration code sent by SMS.
func (c *Client) VerifyPhone(ctx context.Context, phone, code string) (Result[VerifyOutcome], error) {
	return c.confirm(ctx, flows.IdentifierPhone, phone, code)
}

// VerifyUsername confirms a registration made with SignupWithUsername.
func (c *Client) VerifyUsername(ctx context.Context, username, code string) (Result[VerifyOutcome], error) {
	return c.confirm(ctx, flows.IdentifierUsername, username, code)
}

func (c *Client) confirm(ctx context.Context, kind flows.IdentifierKind, identifier, code string) (Result[VerifyOutcome], error) {
	if !c.ready() {
		return failed[VerifyOutcome](ErrClientNotReady), ErrClientNotReady
	}
	res, err := c.flows.ConfirmRegistration(ctx, kind, identifier, code)
	return resultOf(VerifyOutcome{Complete: res.Complete}, err)
}
