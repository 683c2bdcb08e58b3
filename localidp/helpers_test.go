package localidp

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// captureSender records the last code delivered to each destination.
type captureSender struct {
	mu    sync.Mutex
	last  map[string]Delivery
	count int
}

func newCaptureSender() *captureSender {
	return &captureSender{last: make(map[string]Delivery)}
}

func (s *captureSender) Send(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[d.Destination] = d
	s.count++
	return nil
}

func (s *captureSender) code(t *testing.T, destination string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.last[destination]
	if !ok {
		t.Fatalf("no code delivered to %q", destination)
	}
	return d.Code
}

func (s *captureSender) delivery(destination string) (Delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.last[destination]
	return d, ok
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

func newTestProvider(t *testing.T, mutate func(*Config)) (*Provider, *captureSender, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := fastConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sender := newCaptureSender()
	p, err := New(rdb, cfg, WithSender(sender))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, sender, mr, rdb
}

// wrong returns a code of the same length that differs from code.
func wrong(code string) string {
	b := []byte(code)
	if b[0] == '9' {
		b[0] = '0'
	} else {
		b[0]++
	}
	return string(b)
}
