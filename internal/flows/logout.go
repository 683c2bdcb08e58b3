package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// RunLogout invalidates the provider session on a best-effort basis and then
// always clears local and durable session state.
func RunLogout(ctx context.Context, deps Deps) error {
	r := begin(ctx, OpLogout, &deps)
	defer r.release()

	if cur := deps.Store.Current(); cur.User != nil {
		r.subject = cur.User.Subject
	}

	if err := callProviderErr(r, deps.Provider.InvalidateSession); err != nil {
		r.inc(deps.Metrics.ProviderLogoutFailure)
		r.meta["provider_error"] = r.providerCode(err)
		deps.Logger.Warn().Err(err).Msg("provider session invalidation failed; clearing local session anyway")
	}
	return r.succeed(session.LoggedOut{})
}
