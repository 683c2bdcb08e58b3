package flows

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// RunVerifyMFA completes a pending MFA challenge. Attributes the provider
// does not return are taken from the challenge's own record first, then
// from tempUser.
func RunVerifyMFA(ctx context.Context, code string, tempUser *identity.Profile, deps Deps) (VerifyResult, error) {
	r := begin(ctx, OpVerifyMFA, &deps)
	defer r.release()

	if err := r.code(code); err != nil {
		return VerifyResult{}, err
	}
	ch, err := r.challenge(session.ChallengeMFA)
	if err != nil {
		return VerifyResult{}, err
	}

	ex, err := callProvider(r, func(ctx context.Context) (identity.Exchange, error) {
		return deps.Provider.ExchangeCode(ctx, ch.Session, code)
	})
	if err != nil {
		return VerifyResult{}, r.fail(KindProvider, "", err)
	}
	if !ex.Tokens.Complete() {
		return VerifyResult{}, r.fail(KindProvider, "", deps.Errors.IncompleteTokens)
	}

	profile := ex.Profile
	if ch.TempUser != nil {
		profile = profile.Merge(*ch.TempUser)
	}
	if tempUser != nil {
		profile = profile.Merge(*tempUser)
	}
	r.subject = profile.Subject

	if err := r.succeed(session.MFAVerified{Profile: profile, Tokens: ex.Tokens}); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Profile: profile}, nil
}

// RunSetMFAPreference turns the second factor on or off for the
// authenticated user and stores the updated profile.
func RunSetMFAPreference(ctx context.Context, enabled bool, medium identity.DeliveryMedium, deps Deps) (identity.Profile, error) {
	r := begin(ctx, OpSetMFAPreference, &deps)
	defer r.release()

	r.meta["enabled"] = strconv.FormatBool(enabled)
	if enabled {
		if err := r.medium(medium); err != nil {
			return identity.Profile{}, err
		}
		r.meta["medium"] = string(medium)
	}

	cur := deps.Store.Current()
	if !cur.Authenticated {
		return identity.Profile{}, r.fail(KindState, "", deps.Errors.NotAuthenticated)
	}
	r.subject = cur.User.Subject

	cfg, ok := deps.Provider.(identity.MFAConfigurer)
	if !ok {
		return identity.Profile{}, r.fail(KindState, "", deps.Errors.CapabilityUnsupported)
	}

	updated, err := callProvider(r, func(ctx context.Context) (identity.Profile, error) {
		return cfg.SetMFAPreference(ctx, enabled, medium)
	})
	if err != nil {
		return identity.Profile{}, r.fail(KindProvider, "", err)
	}

	profile := updated.Merge(*cur.User)
	profile.MFAEnabled = enabled
	if enabled {
		profile.MFAType = string(medium)
	} else {
		profile.MFAType = ""
	}
	if err := r.succeed(session.ProfileUpdated{Profile: profile}); err != nil {
		return identity.Profile{}, err
	}
	return profile, nil
}
