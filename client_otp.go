package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
)

// RequestOTP asks the provider to send a one-time sign-in code to identifier
// over medium and records the challenge. It fails with ErrState when a
// session is already authenticated. Requesting again replaces the challenge.
func (c *Client) RequestOTP(ctx context.Context, identifier string, medium identity.DeliveryMedium) (Result[OTPOutcome], error) {
	if !c.ready() {
		return failed[OTPOutcome](ErrClientNotReady), ErrClientNotReady
	}
	res, err := c.flows.RequestOTP(ctx, identifier, medium)
	return resultOf(OTPOutcome{Medium: res.Medium, Destination: res.Destination}, err)
}

// RequestOTPEmail is RequestOTP over email.
func (c *Client) RequestOTPEmail(ctx context.Context, email string) (Result[OTPOutcome], error) {
	return c.RequestOTP(ctx, email, identity.MediumEmail)
}

// RequestOTPSMS is RequestOTP over SMS.
func (c *Client) RequestOTPSMS(ctx context.Context, phone string) (Result[OTPOutcome], error) {
	return c.RequestOTP(ctx, phone, identity.MediumSMS)
}

// VerifyOTP exchanges code for a session using the pending OTP challenge.
// Without one it fails with ErrState (ErrNoPendingChallenge or
// ErrChallengeMismatch) and makes no provider call. A wrong code is recorded
// in State.LastError and the challenge stays pending.
func (c *Client) VerifyOTP(ctx context.Context, code string) (Result[SessionOutcome], error) {
	if !c.ready() {
		return failed[SessionOutcome](ErrClientNotReady), ErrClientNotReady
	}
	res, err := c.flows.VerifyOTP(ctx, code)
	return resultOf(SessionOutcome{Profile: res.Profile}, err)
}
