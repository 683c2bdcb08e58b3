package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrEthical07/goSession/identity"
	"github.com/spf13/cobra"
)

func newRootCmd(opts ...appOption) *cobra.Command {
	root := &cobra.Command{
		Use:   "gosession",
		Short: "Drive a goSession client from the command line",
		Long: `gosession runs signup, login, one-time code, password reset and logout
flows through a goSession client. Sessions are persisted in Redis, so a login
in one invocation is restored by the next. Without a Redis address every
invocation starts empty; use the shell command to keep state in one process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		newSignupCmd(opts),
		newVerifyCmd(opts),
		newLoginCmd(opts),
		newOTPCmd(opts),
		newResetCmd(opts),
		newMFACmd(opts),
		newWhoamiCmd(opts),
		newLogoutCmd(opts),
		newShellCmd(opts),
	)
	return root
}

// withApp builds the app for one command from its flags and closes it when
// fn returns.
func withApp(cmd *cobra.Command, opts []appOption, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, cmd.OutOrStdout(), opts...)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

// promptCodes reads codes from in until verify accepts one. Wrong codes are
// retried; any other failure ends the prompt.
func promptCodes(out io.Writer, in *bufio.Reader, verify func(code string) error) error {
	for {
		fmt.Fprint(out, "code: ")
		line, err := in.ReadString('\n')
		code := strings.TrimSpace(line)
		if code != "" {
			verr := verify(code)
			if verr == nil {
				return nil
			}
			if !errors.Is(verr, identity.ErrInvalidCode) {
				return verr
			}
			fmt.Fprintln(out, "wrong code, try again")
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("no code entered")
			}
			return err
		}
	}
}

func readSecret(out io.Writer, in *bufio.Reader, flagValue, label string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSignupCmd(opts []appOption) *cobra.Command {
	var in signupArgs
	var kind string
	cmd := &cobra.Command{
		Use:   "signup <identifier>",
		Short: "Register an account by email, phone number or username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			in.kind, in.identifier = k, args[0]
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				pw, err := readSecret(a.out, bufio.NewReader(cmd.InOrStdin()), in.password, "password")
				if err != nil {
					return err
				}
				in.password = pw
				return a.signup(ctx, in)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(kindEmail), "identifier kind: email, phone or username")
	cmd.Flags().StringVar(&in.email, "email", "", "email for a username signup")
	cmd.Flags().StringVar(&in.password, "password", "", "password; prompted when empty")
	cmd.Flags().StringVar(&in.name, "name", "", "display name")
	return cmd
}

func newVerifyCmd(opts []appOption) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "verify <identifier> <code>",
		Short: "Confirm a registration with the code that was sent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.verify(ctx, k, args[0], args[1])
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(kindEmail), "identifier kind: email, phone or username")
	return cmd
}

func newLoginCmd(opts []appOption) *cobra.Command {
	var kind, password string
	cmd := &cobra.Command{
		Use:   "login <identifier>",
		Short: "Log in with a password, answering an MFA challenge on stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				stdin := bufio.NewReader(cmd.InOrStdin())
				pw, err := readSecret(a.out, stdin, password, "password")
				if err != nil {
					return err
				}
				pending, err := a.login(ctx, k, args[0], pw)
				if err != nil || !pending {
					return err
				}
				return promptCodes(a.out, stdin, func(code string) error {
					return a.verifyMFA(ctx, code)
				})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(kindEmail), "identifier kind: email, phone or username")
	cmd.Flags().StringVar(&password, "password", "", "password; prompted when empty")
	return cmd
}

func newOTPCmd(opts []appOption) *cobra.Command {
	var medium string
	cmd := &cobra.Command{
		Use:   "otp <identifier>",
		Short: "Log in with a one-time code read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMedium(medium)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.requestOTP(ctx, args[0], m); err != nil {
					return err
				}
				return promptCodes(a.out, bufio.NewReader(cmd.InOrStdin()), func(code string) error {
					return a.verifyOTP(ctx, code)
				})
			})
		},
	}
	cmd.Flags().StringVar(&medium, "medium", "email", "delivery medium: email or sms")
	return cmd
}

func newResetCmd(opts []appOption) *cobra.Command {
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset a forgotten password",
	}

	request := &cobra.Command{
		Use:   "request <identifier>",
		Short: "Send a password reset code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.requestReset(ctx, args[0])
			})
		},
	}

	var password string
	confirm := &cobra.Command{
		Use:   "confirm <identifier> <code>",
		Short: "Set a new password with a reset code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				pw, err := readSecret(a.out, bufio.NewReader(cmd.InOrStdin()), password, "new password")
				if err != nil {
					return err
				}
				return a.confirmReset(ctx, args[0], args[1], pw)
			})
		},
	}
	confirm.Flags().StringVar(&password, "password", "", "new password; prompted when empty")

	reset.AddCommand(request, confirm)
	return reset
}

func newMFACmd(opts []appOption) *cobra.Command {
	mfa := &cobra.Command{
		Use:   "mfa",
		Short: "Turn the second factor of the stored session's account on or off",
	}

	var medium string
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Require a code by email or SMS at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := parseMedium(medium)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				return a.setMFA(ctx, true, m)
			})
		},
	}
	enable.Flags().StringVar(&medium, "medium", "email", "delivery medium: email or sms")

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Stop requiring a code at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				return a.setMFA(ctx, false, "")
			})
		},
	}

	mfa.AddCommand(enable, disable)
	return mfa
}

func newWhoamiCmd(opts []appOption) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Restore the stored session and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.restore(ctx); err != nil {
					return err
				}
				a.printState()
				return nil
			})
		},
	}
}

func newLogoutCmd(opts []appOption) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session here and at the provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.restore(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("restoring the stored session failed; clearing it anyway")
				}
				return a.logout(ctx)
			})
		},
	}
}

func newShellCmd(opts []appOption) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against one client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.shell(ctx, cmd.InOrStdin())
			})
		},
	}
}

var errNoStoredSession = errors.New("no stored session; log in first")

func (a *app) requireSession(ctx context.Context) error {
	ok, err := a.restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNoStoredSession
	}
	return nil
}
