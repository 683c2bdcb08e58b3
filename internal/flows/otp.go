package flows

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// OTPResult is the flow-local response for a code request.
type OTPResult struct {
	Medium      identity.DeliveryMedium
	Destination string
}

// VerifyResult is the flow-local response for a completed challenge.
type VerifyResult struct {
	Profile identity.Profile
}

// RunRequestOTP asks the provider to send a one-time code and records the
// resulting challenge. It refuses to run on an authenticated session.
func RunRequestOTP(ctx context.Context, identifier string, medium identity.DeliveryMedium, deps Deps) (OTPResult, error) {
	r := begin(ctx, OpRequestOTP, &deps)
	defer r.release()

	if err := r.medium(medium); err != nil {
		return OTPResult{}, err
	}
	id, err := r.identifier(mediumKind(medium).Field(), identifier)
	if err != nil {
		return OTPResult{}, err
	}
	r.meta["identifier"] = id
	r.meta["medium"] = string(medium)

	if deps.Store.Current().Authenticated {
		return OTPResult{}, r.fail(KindState, "", deps.Errors.AlreadyAuthenticated)
	}

	req, err := callProvider(r, func(ctx context.Context) (identity.CodeRequest, error) {
		return deps.Provider.RequestCode(ctx, id, medium)
	})
	if err != nil {
		return OTPResult{}, r.fail(KindProvider, "", err)
	}

	if err := r.succeed(session.OTPRequested{Session: req.Session, Medium: medium, Identifier: id}); err != nil {
		return OTPResult{}, err
	}
	return OTPResult{Medium: medium, Destination: req.Destination}, nil
}

// RunVerifyOTP exchanges code for a session using the pending OTP
// challenge. A wrong code leaves the challenge in place for a retry.
func RunVerifyOTP(ctx context.Context, code string, deps Deps) (VerifyResult, error) {
	r := begin(ctx, OpVerifyOTP, &deps)
	defer r.release()

	if err := r.code(code); err != nil {
		return VerifyResult{}, err
	}
	ch, err := r.challenge(session.ChallengeOTP)
	if err != nil {
		return VerifyResult{}, err
	}
	r.meta["medium"] = string(ch.Medium)

	ex, err := callProvider(r, func(ctx context.Context) (identity.Exchange, error) {
		return deps.Provider.ExchangeCode(ctx, ch.Session, code)
	})
	if err != nil {
		return VerifyResult{}, r.fail(KindProvider, "", err)
	}
	if !ex.Tokens.Complete() {
		return VerifyResult{}, r.fail(KindProvider, "", deps.Errors.IncompleteTokens)
	}

	fallback := mediumKind(ch.Medium).profileFor(ch.Identifier)
	fallback.AuthType = identity.PasswordlessAuthType(ch.Medium)
	profile := ex.Profile.Merge(fallback)
	r.subject = profile.Subject

	if err := r.succeed(session.OTPVerified{Profile: profile, Tokens: ex.Tokens}); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Profile: profile}, nil
}

// challenge returns the pending challenge if it is of kind want.
func (r *run) challenge(want session.ChallengeKind) (session.Challenge, error) {
	ch := r.deps.Store.Current().Challenge
	if !ch.Pending() {
		return session.Challenge{}, r.fail(KindState, "", r.deps.Errors.NoPendingChallenge)
	}
	if ch.Kind != want {
		return session.Challenge{}, r.fail(KindState, "", r.deps.Errors.ChallengeMismatch)
	}
	return ch, nil
}
