package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const shellPrompt = "gosession> "

const shellHelp = `commands:
  signup email|phone <identifier> <password> [display name]
  signup username <username> <email> <password> [display name]
  verify email|phone|username <identifier> <code>
  login email|phone|username <identifier> <password>
  mfa <code>                      answer a pending MFA challenge
  otp email|sms <identifier>      request a one-time sign-in code
  code <code>                     answer a pending one-time code
  reset <identifier>              request a password reset code
  reset-confirm <identifier> <code> <new password>
  mfa-enable email|sms
  mfa-disable
  restore                         load the stored session
  whoami                          print the session
  clear                           forget the last error
  logout
  exit`

var errShellExit = errors.New("exit")

// shell reads one command per line until EOF or exit. Command failures are
// printed and the loop continues; the session and any pending challenge
// carry over between lines.
func (a *app) shell(ctx context.Context, in io.Reader) error {
	if ok, err := a.restore(ctx); err != nil {
		fmt.Fprintln(a.out, "restore:", describe(err))
	} else if ok {
		a.printState()
	}

	sc := bufio.NewScanner(in)
	fmt.Fprint(a.out, shellPrompt)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 {
			err := a.exec(ctx, fields)
			if errors.Is(err, errShellExit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(a.out, "error:", describe(err))
			}
		}
		fmt.Fprint(a.out, shellPrompt)
	}
	fmt.Fprintln(a.out)
	return sc.Err()
}

func usage(line string) error {
	return fmt.Errorf("usage: %s", line)
}

func (a *app) exec(ctx context.Context, fields []string) error {
	name, args := fields[0], fields[1:]
	switch name {
	case "help", "?":
		fmt.Fprintln(a.out, shellHelp)
		return nil
	case "exit", "quit":
		return errShellExit

	case "signup":
		if len(args) < 3 {
			return usage("signup email|phone|username <identifier> ...")
		}
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		in := signupArgs{kind: kind, identifier: args[1]}
		rest := args[2:]
		if kind == kindUsername {
			if len(rest) < 2 {
				return usage("signup username <username> <email> <password> [display name]")
			}
			in.email, rest = rest[0], rest[1:]
		}
		in.password = rest[0]
		in.name = strings.Join(rest[1:], " ")
		return a.signup(ctx, in)

	case "verify":
		if len(args) != 3 {
			return usage("verify email|phone|username <identifier> <code>")
		}
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		return a.verify(ctx, kind, args[1], args[2])

	case "login":
		if len(args) != 3 {
			return usage("login email|phone|username <identifier> <password>")
		}
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		pending, err := a.login(ctx, kind, args[1], args[2])
		if err == nil && pending {
			fmt.Fprintln(a.out, "answer with: mfa <code>")
		}
		return err

	case "mfa":
		if len(args) != 1 {
			return usage("mfa <code>")
		}
		return a.verifyMFA(ctx, args[0])

	case "otp":
		if len(args) != 2 {
			return usage("otp email|sms <identifier>")
		}
		medium, err := parseMedium(args[0])
		if err != nil {
			return err
		}
		if err := a.requestOTP(ctx, args[1], medium); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "answer with: code <code>")
		return nil

	case "code":
		if len(args) != 1 {
			return usage("code <code>")
		}
		return a.verifyOTP(ctx, args[0])

	case "reset":
		if len(args) != 1 {
			return usage("reset <identifier>")
		}
		return a.requestReset(ctx, args[0])

	case "reset-confirm":
		if len(args) != 3 {
			return usage("reset-confirm <identifier> <code> <new password>")
		}
		return a.confirmReset(ctx, args[0], args[1], args[2])

	case "mfa-enable":
		if len(args) != 1 {
			return usage("mfa-enable email|sms")
		}
		medium, err := parseMedium(args[0])
		if err != nil {
			return err
		}
		return a.setMFA(ctx, true, medium)

	case "mfa-disable":
		return a.setMFA(ctx, false, "")

	case "restore":
		ok, err := a.restore(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "no stored session")
			return nil
		}
		a.printState()
		return nil

	case "whoami", "state":
		a.printState()
		return nil

	case "clear":
		a.client.ClearError()
		return nil

	case "logout":
		return a.logout(ctx)

	default:
		return fmt.Errorf("unknown command %q; try help", name)
	}
}
