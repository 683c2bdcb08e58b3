package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// RunRestoreSession loads a persisted session and installs it. It reports
// false, without error, when there is nothing usable to restore.
func RunRestoreSession(ctx context.Context, deps Deps) (bool, error) {
	r := begin(ctx, OpRestoreSession, &deps)
	defer r.release()

	miss := func(reason string) (bool, error) {
		r.meta["result"] = reason
		r.uncounted = true
		r.inc(deps.Metrics.RestoreMiss)
		if err := r.succeed(); err != nil {
			return false, err
		}
		return false, nil
	}
	drop := func(reason string) (bool, error) {
		if _, err := deps.Storage.ClearAt(ctx, r.tx.Seq()); err != nil {
			r.inc(deps.Metrics.PersistenceFailure)
			deps.Logger.Warn().Err(err).Msg("clearing stale session failed")
		}
		return miss(reason)
	}

	if deps.Storage == nil {
		return miss("no_storage")
	}
	d, err := deps.Storage.Load(ctx)
	if err != nil {
		r.inc(deps.Metrics.PersistenceFailure)
		deps.Logger.Warn().Err(err).Msg("loading stored session failed")
		return miss("load_error")
	}
	if d == nil {
		return miss("empty")
	}
	if deps.DiscardExpired && d.Tokens.Expired(r.now()) {
		return drop("expired")
	}

	profile := *d.User
	r.subject = profile.Subject
	r.skipPersist = true
	if deps.RevalidateOnRestore {
		live, err := callProvider(r, deps.Provider.CurrentIdentity)
		if err != nil {
			if !sessionRejected(err) {
				deps.Logger.Warn().Err(err).Msg("could not revalidate stored session; keeping it")
				return miss("revalidation_unavailable")
			}
			deps.Logger.Info().Err(err).Msg("provider rejected stored session")
			return drop("revalidation_failed")
		}
		profile = live.Merge(profile)
		r.skipPersist = false
	}

	r.meta["result"] = "restored"
	if err := r.succeed(session.LoginSucceeded{Profile: profile, Tokens: *d.Tokens}); err != nil {
		return false, err
	}
	return true, nil
}

// sessionRejected reports whether err means the provider no longer accepts
// the stored session, as opposed to being unable to answer.
func sessionRejected(err error) bool {
	return errors.Is(err, identity.ErrNoSession) ||
		errors.Is(err, identity.ErrInvalidCredentials) ||
		errors.Is(err, identity.ErrExpiredSession)
}
