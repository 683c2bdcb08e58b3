package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/goSession/identity"
	"github.com/rs/zerolog"
)

const recordVersion1 = 1

const (
	DefaultUserKey   = "authUser"
	DefaultTokensKey = "authTokens"
)

var (
	// ErrBackend wraps failures of the underlying KV.
	ErrBackend = errors.New("session storage unavailable")
	// ErrNilKV is returned by NewAdapter when kv is nil.
	ErrNilKV = errors.New("nil key-value store")
)

// Durable is the persisted part of a session.
type Durable struct {
	User   *identity.Profile
	Tokens *identity.Tokens
}

type record[T any] struct {
	Version int `json:"v"`
	Data    T   `json:"data"`
}

// Adapter maps Durable values onto two KV keys. Writes are serialized; the
// *At variants also drop writes made on behalf of an older commit.
type Adapter struct {
	kv        KV
	userKey   string
	tokensKey string
	log       zerolog.Logger

	mu      sync.Mutex
	written uint64
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithKeys overrides the default key names.
func WithKeys(userKey, tokensKey string) Option {
	return func(a *Adapter) {
		if userKey != "" {
			a.userKey = userKey
		}
		if tokensKey != "" {
			a.tokensKey = tokensKey
		}
	}
}

// WithLogger sets the logger used to report discarded records.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// NewAdapter returns an adapter over kv.
func NewAdapter(kv KV, opts ...Option) (*Adapter, error) {
	if kv == nil {
		return nil, ErrNilKV
	}
	a := &Adapter{
		kv:        kv,
		userKey:   DefaultUserKey,
		tokensKey: DefaultTokensKey,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.userKey == a.tokensKey {
		return nil, errors.New("user and tokens keys must differ")
	}
	return a, nil
}

// Save writes d. A nil field deletes its key, so Save with no tokens never
// leaves stale credentials behind.
func (a *Adapter) Save(ctx context.Context, d Durable) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.save(ctx, d)
}

// SaveAt writes d for the store commit seq. It reports false without
// writing when a later commit has already been written or cleared. Sequence
// numbers must all come from one session store.
func (a *Adapter) SaveAt(ctx context.Context, seq uint64, d Durable) (bool, error) {
	return a.ordered(seq, func() error { return a.save(ctx, d) })
}

// ClearAt is Clear ordered by commit like SaveAt.
func (a *Adapter) ClearAt(ctx context.Context, seq uint64) (bool, error) {
	return a.ordered(seq, func() error { return a.clear(ctx) })
}

func (a *Adapter) ordered(seq uint64, write func() error) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if seq < a.written {
		return false, nil
	}
	a.written = seq
	return true, write()
}

func (a *Adapter) save(ctx context.Context, d Durable) error {
	if d.User == nil && d.Tokens == nil {
		return a.clear(ctx)
	}
	if d.Tokens != nil && !d.Tokens.Complete() {
		return errors.New("refusing to persist a partial token set")
	}

	if d.User != nil {
		if err := a.put(ctx, a.userKey, record[identity.Profile]{Version: recordVersion1, Data: *d.User}); err != nil {
			return err
		}
	} else if err := a.del(ctx, a.userKey); err != nil {
		return err
	}

	if d.Tokens != nil {
		return a.put(ctx, a.tokensKey, record[identity.Tokens]{Version: recordVersion1, Data: *d.Tokens})
	}
	return a.del(ctx, a.tokensKey)
}

// Load returns the stored session, or nil when there is none. Undecodable or
// incomplete data is reported as nil, not as an error.
func (a *Adapter) Load(ctx context.Context) (*Durable, error) {
	rawUser, okUser, err := a.kv.Get(ctx, a.userKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	rawTokens, okTokens, err := a.kv.Get(ctx, a.tokensKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !okUser || !okTokens {
		return nil, nil
	}

	var user record[identity.Profile]
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.Version != recordVersion1 {
		a.log.Warn().Str("key", a.userKey).Msg("discarding unreadable stored profile")
		return nil, nil
	}
	var tokens record[identity.Tokens]
	if err := json.Unmarshal([]byte(rawTokens), &tokens); err != nil || tokens.Version != recordVersion1 {
		a.log.Warn().Str("key", a.tokensKey).Msg("discarding unreadable stored tokens")
		return nil, nil
	}
	if !tokens.Data.Complete() {
		a.log.Warn().Str("key", a.tokensKey).Msg("discarding partial stored tokens")
		return nil, nil
	}

	return &Durable{User: &user.Data, Tokens: &tokens.Data}, nil
}

// Clear removes both keys. Both deletes are attempted.
func (a *Adapter) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clear(ctx)
}

func (a *Adapter) clear(ctx context.Context) error {
	errUser := a.del(ctx, a.userKey)
	errTokens := a.del(ctx, a.tokensKey)
	return errors.Join(errUser, errTokens)
}

func (a *Adapter) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := a.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (a *Adapter) del(ctx context.Context, key string) error {
	if err := a.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}
