package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/localidp"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

// codeBox keeps the last code sent to each destination.
type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func newCodeBox() *codeBox {
	return &codeBox{codes: map[string]string{}}
}

func (b *codeBox) sender() localidp.Sender {
	return localidp.SenderFunc(func(_ context.Context, d localidp.Delivery) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.codes[d.Destination] = d.Code
		return nil
	})
}

func (b *codeBox) code(t *testing.T, destination string) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.codes[destination]
	if !ok {
		t.Fatalf("no code sent to %s", destination)
	}
	return c
}

func wrong(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

// lines is an io.Reader that produces each line only when it is read, so a
// line can depend on codes sent earlier in the same command.
type lines struct {
	next []func() string
}

func (l *lines) Read(p []byte) (int, error) {
	if len(l.next) == 0 {
		return 0, io.EOF
	}
	s := l.next[0]() + "\n"
	l.next = l.next[1:]
	return copy(p, s), nil
}

func startRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func testConfig(addr string) cliConfig {
	return cliConfig{
		Provider: providerLocal,
		Redis:    redisConfig{Addr: addr, Prefix: "test"},
		Session:  sessionConfig{Revalidate: true, DiscardExpired: true},
	}
}

func newTestApp(t *testing.T, addr string, box *codeBox) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a, err := newApp(context.Background(), testConfig(addr), &out, withSender(box.sender()), withLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.close)
	return a, &out
}

func run(t *testing.T, a *app, line string) {
	t.Helper()
	if err := a.exec(context.Background(), strings.Fields(line)); err != nil {
		t.Fatalf("%s: %v", line, err)
	}
}

func TestShellSignupConfirmLoginWithMFA(t *testing.T) {
	box := newCodeBox()
	a, out := newTestApp(t, startRedis(t).Addr(), box)
	ctx := context.Background()

	run(t, a, "signup email a@b.com correct-horse Alice Liddell")
	run(t, a, "verify email a@b.com "+box.code(t, "a@b.com"))
	run(t, a, "login email a@b.com correct-horse")
	if !strings.Contains(out.String(), "logged in as Alice Liddell") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	run(t, a, "mfa-enable email")
	run(t, a, "logout")

	run(t, a, "login email a@b.com correct-horse")
	if !strings.Contains(out.String(), "MFA code required") {
		t.Fatalf("expected an MFA challenge:\n%s", out)
	}
	code := box.code(t, "a@b.com")
	if err := a.exec(ctx, []string{"mfa", wrong(code)}); err == nil {
		t.Fatal("expected the wrong code to fail")
	}
	if !a.client.State().Challenge.Pending() {
		t.Fatal("wrong code must keep the challenge")
	}
	run(t, a, "mfa "+code)
	if !a.client.State().Authenticated {
		t.Fatal("expected an authenticated session")
	}
}

func TestShellLoop(t *testing.T) {
	box := newCodeBox()
	a, out := newTestApp(t, startRedis(t).Addr(), box)

	script := &lines{next: []func() string{
		func() string { return "signup username alice a@b.com correct-horse" },
		func() string { return "verify username alice " + box.code(t, "a@b.com") },
		func() string { return "otp email a@b.com" },
		func() string { return "code " + wrong(box.code(t, "a@b.com")) },
		func() string { return "code " + box.code(t, "a@b.com") },
		func() string { return "whoami" },
		func() string { return "bogus" },
		func() string { return "logout" },
		func() string { return "whoami" },
		func() string { return "exit" },
		func() string { return "whoami" },
	}}
	if err := a.shell(context.Background(), script); err != nil {
		t.Fatalf("shell: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"code sent by email to a***@b.com",
		"error: [invalid_code]",
		"authenticated: a@b.com",
		`unknown command "bogus"`,
		"logged out",
		"not authenticated",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Count(got, "not authenticated") != 1 {
		t.Fatalf("commands after exit must not run:\n%s", got)
	}
}

func TestShellUsageErrors(t *testing.T) {
	a, _ := newTestApp(t, startRedis(t).Addr(), newCodeBox())
	ctx := context.Background()

	for _, line := range []string{
		"signup email a@b.com",
		"signup username alice correct-horse",
		"verify fax a@b.com 123456",
		"login email a@b.com",
		"otp pigeon a@b.com",
		"mfa-enable",
	} {
		if err := a.exec(ctx, strings.Fields(line)); err == nil {
			t.Fatalf("%s: expected an error", line)
		}
	}
}
