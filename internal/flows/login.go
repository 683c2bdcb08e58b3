package flows

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// LoginRequest authenticates Identifier (of Kind) with Secret.
type LoginRequest struct {
	Kind       IdentifierKind
	Identifier string
	Secret     string
}

// LoginResult is the flow-local login response shape. Exactly one of
// Profile or ChallengePending is set.
type LoginResult struct {
	Profile          *identity.Profile
	ChallengePending bool
	Challenge        session.ChallengeKind
	Session          string
	TempUser         *identity.Profile
}

// RunLogin authenticates with a secret. An MFA demand from the provider is
// not an error: it commits MFARequired and returns ChallengePending.
func RunLogin(ctx context.Context, req LoginRequest, deps Deps) (LoginResult, error) {
	r := begin(ctx, OpLogin, &deps)
	defer r.release()

	id, err := r.identifier(req.Kind.Field(), req.Identifier)
	if err != nil {
		return LoginResult{}, err
	}
	if err := r.secret("password", req.Secret); err != nil {
		return LoginResult{}, err
	}
	r.meta["identifier"] = id

	auth, err := callProvider(r, func(ctx context.Context) (identity.Authentication, error) {
		return deps.Provider.Authenticate(ctx, id, req.Secret)
	})
	if err != nil {
		return LoginResult{}, r.fail(KindProvider, "", err)
	}

	if auth.Challenge == identity.ChallengeMFA {
		temp := req.Kind.profileFor(id)
		temp.MFAEnabled = true
		temp.MFAType = string(auth.Medium)
		r.pending = true
		r.meta["challenge"] = "mfa"
		if err := r.succeed(session.MFARequired{Session: auth.Session, TempUser: temp}); err != nil {
			return LoginResult{}, err
		}
		r.inc(deps.Metrics.MFARequired)
		return LoginResult{
			ChallengePending: true,
			Challenge:        session.ChallengeMFA,
			Session:          auth.Session,
			TempUser:         &temp,
		}, nil
	}

	profile, tokens, err := fetchSession(r, auth.Tokens)
	if err != nil {
		return LoginResult{}, err
	}
	profile = profile.Merge(req.Kind.profileFor(id))
	r.subject = profile.Subject

	if err := r.succeed(session.LoginSucceeded{Profile: profile, Tokens: tokens}); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Profile: &profile}, nil
}

// fetchSession reads the profile and token set the provider now holds.
// Tokens returned inline by Authenticate are used when complete.
func fetchSession(r *run, inline *identity.Tokens) (identity.Profile, identity.Tokens, error) {
	profile, err := callProvider(r, r.deps.Provider.CurrentIdentity)
	if err != nil {
		return identity.Profile{}, identity.Tokens{}, r.fail(KindProvider, "", err)
	}

	var tokens identity.Tokens
	if inline != nil && inline.Complete() {
		tokens = *inline
	} else {
		tokens, err = callProvider(r, r.deps.Provider.CurrentTokens)
		if err != nil {
			return identity.Profile{}, identity.Tokens{}, r.fail(KindProvider, "", err)
		}
	}
	if !tokens.Complete() {
		return identity.Profile{}, identity.Tokens{}, r.fail(KindProvider, "", r.deps.Errors.IncompleteTokens)
	}
	return profile, tokens, nil
}
