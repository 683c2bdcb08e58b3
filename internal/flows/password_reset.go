package flows

import "context"

// RunRequestPasswordReset asks the provider to send a reset code. Only the
// busy flag and last error of the session change.
func RunRequestPasswordReset(ctx context.Context, identifier string, deps Deps) error {
	r := begin(ctx, OpRequestPasswordReset, &deps)
	defer r.release()

	id, err := r.identifier("identifier", identifier)
	if err != nil {
		return err
	}
	r.meta["identifier"] = id

	if err := callProviderErr(r, func(ctx context.Context) error {
		return deps.Provider.RequestPasswordReset(ctx, id)
	}); err != nil {
		return r.fail(KindProvider, "", err)
	}
	return r.succeed()
}

// RunConfirmPasswordReset sets a new secret using a reset code.
func RunConfirmPasswordReset(ctx context.Context, identifier, code, newSecret string, deps Deps) error {
	r := begin(ctx, OpConfirmPasswordReset, &deps)
	defer r.release()

	id, err := r.identifier("identifier", identifier)
	if err != nil {
		return err
	}
	if err := r.code(code); err != nil {
		return err
	}
	if err := r.secret("new_password", newSecret); err != nil {
		return err
	}
	r.meta["identifier"] = id

	if err := callProviderErr(r, func(ctx context.Context) error {
		return deps.Provider.ConfirmPasswordReset(ctx, id, code, newSecret)
	}); err != nil {
		return r.fail(KindProvider, "", err)
	}
	return r.succeed()
}
