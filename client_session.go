package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
)

// Logout asks the provider to invalidate its session and then always clears
// the local session and durable storage, even when the provider call fails.
func (c *Client) Logout(ctx context.Context) (Result[Empty], error) {
	if !c.ready() {
		return failed[Empty](ErrClientNotReady), ErrClientNotReady
	}
	return resultOf(Empty{}, c.flows.Logout(ctx))
}

// RestoreSession installs a previously persisted session. Data is false when
// there is nothing usable to restore, which is not an error. With
// Config.Restore.RevalidateWithProvider a session the provider no longer
// recognizes is discarded; when the provider cannot be reached the stored
// session is kept and Data is false.
func (c *Client) RestoreSession(ctx context.Context) (Result[bool], error) {
	if !c.ready() {
		return failed[bool](ErrClientNotReady), ErrClientNotReady
	}
	return resultOf(c.flows.RestoreSession(ctx))
}

// EnableMFA turns on the second factor over medium for the authenticated
// user. The provider must implement identity.MFAConfigurer.
func (c *Client) EnableMFA(ctx context.Context, medium identity.DeliveryMedium) (Result[identity.Profile], error) {
	if !c.ready() {
		return failed[identity.Profile](ErrClientNotReady), ErrClientNotReady
	}
	return resultOf(c.flows.SetMFAPreference(ctx, true, medium))
}

// DisableMFA turns the second factor off for the authenticated user.
func (c *Client) DisableMFA(ctx context.Context) (Result[identity.Profile], error) {
	if !c.ready() {
		return failed[identity.Profile](ErrClientNotReady), ErrClientNotReady
	}
	return resultOf(c.flows.SetMFAPreference(ctx, false, ""))
}
