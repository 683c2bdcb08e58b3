package flows

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// ConfirmResult is the flow-local confirmation response shape.
type ConfirmResult struct {
	Complete bool
}

// RunConfirmRegistration confirms a registration code for an email or phone
// identifier. It never authenticates; when the current user is the one being
// confirmed its verified flag is updated.
func RunConfirmRegistration(ctx context.Context, kind IdentifierKind, identifier, code string, deps Deps) (ConfirmResult, error) {
	r := begin(ctx, OpConfirmRegistration, &deps)
	defer r.release()

	id, err := r.identifier(kind.Field(), identifier)
	if err != nil {
		return ConfirmResult{}, err
	}
	if err := r.code(code); err != nil {
		return ConfirmResult{}, err
	}
	r.meta["identifier"] = id
	r.meta["kind"] = kind.Field()

	conf, err := callProvider(r, func(ctx context.Context) (identity.Confirmation, error) {
		return deps.Provider.ConfirmRegistration(ctx, id, code)
	})
	if err != nil {
		return ConfirmResult{}, r.fail(KindProvider, "", err)
	}

	var events []session.Event
	if cur := deps.Store.Current(); conf.Complete && kind.matches(cur.User, id) {
		p := *cur.User
		r.subject = p.Subject
		switch kind {
		case IdentifierPhone:
			p.PhoneVerified = true
		default:
			p.EmailVerified = true
		}
		events = append(events, session.ProfileUpdated{Profile: p})
	}
	if err := r.succeed(events...); err != nil {
		return ConfirmResult{}, err
	}
	return ConfirmResult{Complete: conf.Complete}, nil
}
