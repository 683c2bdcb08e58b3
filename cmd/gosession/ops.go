package main

import (
	"context"
	"fmt"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// identifierKind is how a signup, verify or login names the account.
type identifierKind string

const (
	kindEmail    identifierKind = "email"
	kindPhone    identifierKind = "phone"
	kindUsername identifierKind = "username"
)

func parseKind(s string) (identifierKind, error) {
	switch k := identifierKind(strings.ToLower(s)); k {
	case kindEmail, kindPhone, kindUsername:
		return k, nil
	default:
		return "", fmt.Errorf("unknown identifier kind %q (email, phone or username)", s)
	}
}

func parseMedium(s string) (identity.DeliveryMedium, error) {
	m, ok := identity.ParseDeliveryMedium(s)
	if !ok {
		return "", fmt.Errorf("unknown medium %q (email or sms)", s)
	}
	return m, nil
}

type signupArgs struct {
	kind       identifierKind
	identifier string
	email      string
	password   string
	name       string
}

func (a *app) signup(ctx context.Context, in signupArgs) error {
	var (
		res goSession.Result[goSession.SignupOutcome]
		err error
	)
	switch in.kind {
	case kindPhone:
		res, err = a.client.SignupWithPhone(ctx, in.identifier, in.password, in.name)
	case kindUsername:
		res, err = a.client.SignupWithUsername(ctx, in.identifier, in.email, in.password, in.name)
	default:
		res, err = a.client.Signup(ctx, in.identifier, in.password, in.name)
	}
	if err != nil {
		return err
	}
	if res.Data.Complete {
		fmt.Fprintf(a.out, "registered %s; no confirmation needed\n", res.Data.Subject)
		return nil
	}
	fmt.Fprintf(a.out, "registered %s; confirm with the code that was sent (next step %s)\n", res.Data.Subject, res.Data.NextStep)
	return nil
}

func (a *app) verify(ctx context.Context, kind identifierKind, identifier, code string) error {
	var err error
	switch kind {
	case kindPhone:
		_, err = a.client.VerifyPhone(ctx, identifier, code)
	case kindUsername:
		_, err = a.client.VerifyUsername(ctx, identifier, code)
	default:
		_, err = a.client.VerifyEmail(ctx, identifier, code)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "confirmed; you can log in now")
	return nil
}

// login reports whether an MFA challenge is now pending.
func (a *app) login(ctx context.Context, kind identifierKind, identifier, password string) (bool, error) {
	var (
		res goSession.Result[goSession.LoginOutcome]
		err error
	)
	switch kind {
	case kindPhone:
		res, err = a.client.LoginWithPhone(ctx, identifier, password)
	case kindUsername:
		res, err = a.client.LoginWithUsername(ctx, identifier, password)
	default:
		res, err = a.client.Login(ctx, identifier, password)
	}
	if err != nil {
		return false, err
	}
	if res.Data.ChallengePending {
		fmt.Fprintf(a.out, "%s code required\n", strings.ToUpper(res.Data.Challenge.String()))
		return true, nil
	}
	a.printProfile("logged in as", res.Data.Profile)
	return false, nil
}

func (a *app) verifyMFA(ctx context.Context, code string) error {
	var temp *identity.Profile
	if st := a.client.State(); st.Challenge.Kind == session.ChallengeMFA {
		temp = st.Challenge.TempUser
	}
	res, err := a.client.VerifyMFA(ctx, code, temp)
	if err != nil {
		return err
	}
	a.printProfile("logged in as", &res.Data.Profile)
	return nil
}

func (a *app) requestOTP(ctx context.Context, identifier string, medium identity.DeliveryMedium) error {
	res, err := a.client.RequestOTP(ctx, identifier, medium)
	if err != nil {
		return err
	}
	dest := res.Data.Destination
	if dest == "" {
		dest = identifier
	}
	fmt.Fprintf(a.out, "code sent by %s to %s\n", strings.ToLower(string(res.Data.Medium)), dest)
	return nil
}

func (a *app) verifyOTP(ctx context.Context, code string) error {
	res, err := a.client.VerifyOTP(ctx, code)
	if err != nil {
		return err
	}
	a.printProfile("logged in as", &res.Data.Profile)
	return nil
}

func (a *app) requestReset(ctx context.Context, identifier string) error {
	if _, err := a.client.RequestPasswordReset(ctx, identifier); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "if the account exists a reset code was sent")
	return nil
}

func (a *app) confirmReset(ctx context.Context, identifier, code, password string) error {
	if _, err := a.client.ConfirmPasswordReset(ctx, identifier, code, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed; log in with the new password")
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if _, err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *app) setMFA(ctx context.Context, enable bool, medium identity.DeliveryMedium) error {
	var (
		res goSession.Result[identity.Profile]
		err error
	)
	if enable {
		res, err = a.client.EnableMFA(ctx, medium)
	} else {
		res, err = a.client.DisableMFA(ctx)
	}
	if err != nil {
		return err
	}
	if res.Data.MFAEnabled {
		fmt.Fprintf(a.out, "MFA enabled (%s)\n", strings.ToLower(res.Data.MFAType))
	} else {
		fmt.Fprintln(a.out, "MFA disabled")
	}
	return nil
}

func (a *app) printProfile(prefix string, p *identity.Profile) {
	if p == nil {
		fmt.Fprintln(a.out, prefix, "(unknown)")
		return
	}
	name := p.DisplayName
	for _, alt := range []string{p.Email, p.PhoneNumber, p.Username, p.Subject} {
		if name != "" {
			break
		}
		name = alt
	}
	fmt.Fprintf(a.out, "%s %s (%s)\n", prefix, name, p.Subject)
}

func (a *app) printState() {
	st := a.client.State()
	if st.Authenticated {
		a.printProfile("authenticated:", st.User)
		if st.User != nil {
			fmt.Fprintf(a.out, "  auth type: %s  mfa: %t\n", st.User.AuthType, st.User.MFAEnabled)
		}
		if st.Tokens != nil && !st.Tokens.ExpiresAt.IsZero() {
			fmt.Fprintf(a.out, "  tokens expire: %s\n", st.Tokens.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
	} else {
		fmt.Fprintln(a.out, "not authenticated")
	}
	if st.Challenge.Pending() {
		fmt.Fprintf(a.out, "  pending challenge: %s\n", st.Challenge.Kind)
	}
	if st.LastError != nil {
		fmt.Fprintf(a.out, "  last error: %v\n", st.LastError)
	}
}

// describe prefixes provider failures with their code.
func describe(err error) string {
	if code := goSession.CodeOf(err); code != "" {
		return fmt.Sprintf("[%s] %v", code, err)
	}
	return err.Error()
}
