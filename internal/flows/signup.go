package flows

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// SignupRequest registers Identifier (of Kind) with Secret.
type SignupRequest struct {
	Kind       IdentifierKind
	Identifier string
	Secret     string
	Attributes identity.Attributes
}

// SignupResult is the flow-local signup response shape.
type SignupResult struct {
	Subject  string
	NextStep string
	Complete bool
	Profile  identity.Profile
}

// RunSignup registers a new identity and records it as the current,
// unauthenticated user. Verification is a separate step.
func RunSignup(ctx context.Context, req SignupRequest, deps Deps) (SignupResult, error) {
	r := begin(ctx, OpSignup, &deps)
	defer r.release()

	id, err := r.identifier(req.Kind.Field(), req.Identifier)
	if err != nil {
		return SignupResult{}, err
	}
	if err := r.secret("password", req.Secret); err != nil {
		return SignupResult{}, err
	}
	r.meta["identifier"] = id

	attrs := req.Attributes
	switch req.Kind {
	case IdentifierPhone:
		attrs.PhoneNumber = id
	case IdentifierUsername:
		attrs.Username = id
	default:
		attrs.Email = id
	}
	if attrs.AuthType == "" {
		attrs.AuthType = req.Kind.AuthType()
	}

	reg, err := callProvider(r, func(ctx context.Context) (identity.Registration, error) {
		return deps.Provider.Register(ctx, id, req.Secret, attrs)
	})
	if err != nil {
		return SignupResult{}, r.fail(KindProvider, "", err)
	}
	r.subject = reg.SubjectID

	profile := identity.Profile{
		Subject:     reg.SubjectID,
		DisplayName: attrs.DisplayName,
		Username:    attrs.Username,
		Email:       attrs.Email,
		PhoneNumber: attrs.PhoneNumber,
		AuthType:    attrs.AuthType,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.succeed(session.SignupSucceeded{Profile: profile}); err != nil {
		return SignupResult{}, err
	}

	return SignupResult{
		Subject:  reg.SubjectID,
		NextStep: reg.NextStep,
		Complete: reg.Complete,
		Profile:  profile,
	}, nil
}
