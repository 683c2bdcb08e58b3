package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "gsr"

// Config holds limiter tuning parameters. MaxAttempts <= 0 disables the
// limiter.
type Config struct {
	Prefix      string
	MaxAttempts int
	Cooldown    time.Duration
}

// Limiter counts failed attempts per identifier in fixed windows of
// Cooldown. The window opens on the first failure; once MaxAttempts
// failures land in it the identifier is locked until it closes.
type Limiter struct {
	rdb redis.UniversalClient
	cfg Config
}

func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	return &Limiter{rdb: rdb, cfg: cfg}
}

func (l *Limiter) enabled() bool        { return l.cfg.MaxAttempts > 0 }
func (l *Limiter) key(id string) string { return l.cfg.Prefix + ":" + id }

// Check returns ErrRateLimited when id has used up its attempt budget.
func (l *Limiter) Check(ctx context.Context, id string) error {
	if !l.enabled() {
		return nil
	}
	n, err := l.Attempts(ctx, id)
	if err != nil {
		return err
	}
	if n >= l.cfg.MaxAttempts {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt for id. It returns ErrRateLimited on the
// failure that exhausts the budget and on every one after it.
func (l *Limiter) Fail(ctx context.Context, id string) error {
	if !l.enabled() {
		return nil
	}

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, l.key(id))
		if l.cfg.Cooldown > 0 {
			pipe.ExpireNX(ctx, l.key(id), l.cfg.Cooldown)
		}
		return nil
	})
	if err != nil {
		return backend(err)
	}
	if incr.Val() >= int64(l.cfg.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the failure window for id after a success.
func (l *Limiter) Reset(ctx context.Context, id string) error {
	if err := l.rdb.Del(ctx, l.key(id)).Err(); err != nil {
		return backend(err)
	}
	return nil
}

// Attempts returns the failures counted for id in the current window.
// Unknown identifiers report zero like known ones.
func (l *Limiter) Attempts(ctx context.Context, id string) (int, error) {
	n, err := l.rdb.Get(ctx, l.key(id)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, backend(err)
	case n < 0:
		return 0, nil
	}
	return n, nil
}

func backend(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
