package goSession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/rs/zerolog"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type panicSink struct{}

func (panicSink) Emit(context.Context, AuditEvent) { panic("sink failure") }

func auditConfig(buffer int, dropIfFull bool) Config {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = buffer
	cfg.Audit.DropIfFull = dropIfFull
	return cfg
}

func collectEvents(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()
	events := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("expected %d audit events, got %d", n, len(events))
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	c := newTestClient(t, newFakeProvider(), func(b *Builder) { b.WithAuditSink(sink) })

	_, _ = c.Login(context.Background(), "a@b.com", "pw123456")
	c.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEventsPerOutcome(t *testing.T) {
	p := newFakeProvider()
	sink := NewChannelSink(16)
	c := newTestClient(t, p, func(b *Builder) {
		b.WithConfig(auditConfig(16, false)).WithAuditSink(sink)
	})
	ctx := context.Background()

	_, _ = c.Login(ctx, "a@b.com", "short")
	p.set(func(f *fakeProvider) { f.mfa = true })
	_, _ = c.Login(ctx, "a@b.com", "pw123456")
	_, _ = c.VerifyMFA(ctx, "123456", nil)

	events := collectEvents(t, sink, 3)
	want := []struct {
		eventType string
		success   bool
		errCode   string
	}{
		{"login_failure", false, "validation"},
		{"login_challenge", true, ""},
		{"verify_mfa_success", true, ""},
	}
	for i, w := range want {
		ev := events[i]
		if ev.EventType != w.eventType || ev.Success != w.success || ev.Error != w.errCode {
			t.Fatalf("event %d: got %+v, want %+v", i, ev, w)
		}
		if ev.Timestamp.IsZero() {
			t.Fatalf("event %d has no timestamp", i)
		}
	}
	if events[2].Subject != "sub-1" {
		t.Fatalf("expected subject on success event, got %q", events[2].Subject)
	}
	if events[1].Metadata["challenge"] != "mfa" {
		t.Fatalf("expected challenge metadata, got %+v", events[1].Metadata)
	}
}

func TestAuditProviderErrorCodes(t *testing.T) {
	if got := auditErrorCode(classify(2, "login", "", errors.New("boom"))); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
	if got := auditErrorCode(errors.New("raw")); got != auditErrInternal {
		t.Fatalf("expected internal, got %q", got)
	}
	if got := auditErrorCode(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestLogoutAuditRecordsProviderCodeNotMessage(t *testing.T) {
	p := newFakeProvider()
	sink := NewChannelSink(16)
	c := newTestClient(t, p, func(b *Builder) {
		b.WithConfig(auditConfig(16, false)).WithAuditSink(sink)
	})
	p.set(func(f *fakeProvider) {
		f.logoutErr = fmt.Errorf("%w: dial tcp 10.0.0.7:443 for a@b.com", identity.ErrUnavailable)
	})

	_, _ = c.Logout(context.Background())
	ev := collectEvents(t, sink, 1)[0]
	if ev.EventType != "logout_success" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if got := ev.Metadata["provider_error"]; got != string(CodeUnavailable) {
		t.Fatalf("expected provider code in metadata, got %q", got)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, zerolog.Nop())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, zerolog.Nop())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditSinkPanicDoesNotStopDispatcher(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, panicSink{}, zerolog.Nop())
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
	dispatcher.Close()

	if got := dispatcher.SinkFailures(); got != 2 {
		t.Fatalf("expected both events delivered despite panics, got %d", got)
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: "login_success",
		Subject:   "u1",
		Success:   true,
	})

	if !buf.Contains("login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"subject\":\"u1\"") {
		t.Fatal("expected JSON log line to contain subject")
	}
}

func TestAuditLoggerSinkWritesStructuredLine(t *testing.T) {
	var buf syncBuffer
	sink := NewLoggerSink(zerolog.New(&buf))
	sink.Emit(context.Background(), AuditEvent{
		EventType: "logout_success",
		Success:   true,
		Metadata:  map[string]string{"provider_error": "timeout"},
	})

	if !buf.Contains(`"event":"logout_success"`) || !buf.Contains(`"level":"info"`) {
		t.Fatal("expected structured audit line")
	}
	if !buf.Contains("provider_error") {
		t.Fatal("expected metadata in audit line")
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{}, zerolog.Nop())

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	p := newFakeProvider()
	sink := NewChannelSink(32)
	c := newTestClient(t, p, func(b *Builder) {
		b.WithConfig(auditConfig(32, false)).WithAuditSink(sink)
	})
	ctx := context.Background()

	const secret = "correct-password-123"
	const code = "123456"
	_, _ = c.Login(ctx, "a@b.com", secret)
	_, _ = c.Logout(ctx)
	_, _ = c.RequestOTPEmail(ctx, "a@b.com")
	_, _ = c.VerifyOTP(ctx, code)
	_, _ = c.ConfirmPasswordReset(ctx, "a@b.com", code, secret)

	events := collectEvents(t, sink, 5)
	needles := []string{secret, code, p.tokens.AccessToken, p.tokens.RefreshToken}
	for _, ev := range events {
		for _, needle := range needles {
			if stringContains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if stringContains(k, needle) || stringContains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stringContains(string(b.buf), v)
}

func stringContains(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	if len(sub) > len(s) {
		return false
	}
	for i := 0; i <= len(s)-len(sub); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
