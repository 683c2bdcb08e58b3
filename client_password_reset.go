package goSession

import "context"

// RequestPasswordReset asks the provider to send a reset code. Only
// State.Busy and State.LastError change.
func (c *Client) RequestPasswordReset(ctx context.Context, identifier string) (Result[Empty], error) {
	if !c.ready() {
		return failed[Empty](ErrClientNotReady), ErrClientNotReady
	}
	return resultOf(Empty{}, c.flows.RequestPasswordReset(ctx, identifier))
}

// ConfirmPasswordReset sets newPassword using the reset code. It does not log
// the user in.
func (c *Client) ConfirmPasswordReset(ctx context.Context, identifier, code, newPassword string) (Result[Empty], error) {
	if !c.ready() {
		return failed[Empty](ErrClientNotReady), ErrClientNotReady
	}
	return resultOf(Empty{}, c.flows.ConfirmPasswordReset(ctx, identifier, code, newPassword))
}
