package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/rs/zerolog"
)

// Builder assembles a [Client].
type Builder struct {
	config   Config
	provider identity.Provider
	kv       storage.KV
	logger   *zerolog.Logger

	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. It is validated by Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider sets the identity provider. It is required.
func (b *Builder) WithProvider(p identity.Provider) *Builder {
	b.provider = p
	return b
}

// WithStorage sets the key-value store for the durable session. Without it
// Build uses an in-process [storage.MemoryKV].
func (b *Builder) WithStorage(kv storage.KV) *Builder {
	b.kv = kv
	return b
}

// WithLogger sets the logger. The default discards everything.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// The sink only receives events when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled turns the in-process counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records provider latency buckets. It has no effect
// unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used for profile timestamps and
// expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build fails when the configuration is invalid, no provider was set, or the
// builder was already used.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.provider == nil {
		return nil, ErrProviderRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = b.logger.With().Str("component", "gosession").Logger()
	}

	c := &Client{
		config:   cfg,
		store:    session.NewStore(),
		provider: b.provider,
		logger:   logger,
	}

	kv := b.kv
	if kv == nil {
		c.memKV = storage.NewMemoryKV(cfg.Storage.MemoryMaxAge)
		kv = c.memKV
	}
	adapter, err := storage.NewAdapter(kv,
		storage.WithKeys(cfg.Storage.UserKey, cfg.Storage.TokensKey),
		storage.WithLogger(logger),
	)
	if err != nil {
		if c.memKV != nil {
			c.memKV.Close()
		}
		return nil, err
	}
	c.storage = adapter

	c.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	c.metrics = NewMetrics(cfg.Metrics)

	now := b.now
	if now == nil {
		now = time.Now
	}

	c.flows = flows.New(flows.Deps{
		Store:               c.store,
		Provider:            c.provider,
		Storage:             c.storage,
		Rules:               flows.Rules{MinSecretLength: cfg.Validation.MinSecretLength, CodeLength: cfg.Validation.CodeLength},
		Errors:              flowErrors(),
		Metrics:             flowMetrics(),
		RevalidateOnRestore: cfg.Restore.RevalidateWithProvider,
		DiscardExpired:      cfg.Restore.DiscardExpired,
		Now:                 now,
		Logger:              logger,
		Classify:            classify,
		ProviderCode:        func(err error) string { return string(providerCode(err)) },
		MetricInc:           func(id int) { c.metricInc(MetricID(id)) },
		ObserveProvider:     c.observeProvider,
		EmitAudit:           c.emitAudit,
	})

	b.built = true

	return c, nil
}

func flowMetrics() flows.Metrics {
	outcome := func(success, failure MetricID) flows.Outcome {
		return flows.Outcome{Success: int(success), Failure: int(failure)}
	}
	return flows.Metrics{
		Outcomes: map[string]flows.Outcome{
			flows.OpSignup:               outcome(MetricSignupSuccess, MetricSignupFailure),
			flows.OpConfirmRegistration:  outcome(MetricVerificationSuccess, MetricVerificationFailure),
			flows.OpLogin:                outcome(MetricLoginSuccess, MetricLoginFailure),
			flows.OpVerifyMFA:            outcome(MetricMFAVerifySuccess, MetricMFAVerifyFailure),
			flows.OpRequestOTP:           outcome(MetricOTPRequestSuccess, MetricOTPRequestFailure),
			flows.OpVerifyOTP:            outcome(MetricOTPVerifySuccess, MetricOTPVerifyFailure),
			flows.OpRequestPasswordReset: outcome(MetricPasswordResetRequestSuccess, MetricPasswordResetRequestFailure),
			flows.OpConfirmPasswordReset: outcome(MetricPasswordResetConfirmSuccess, MetricPasswordResetConfirmFailure),
			flows.OpLogout:               outcome(MetricLogoutSuccess, MetricLogoutFailure),
			flows.OpRestoreSession:       outcome(MetricRestoreSuccess, MetricRestoreFailure),
			flows.OpSetMFAPreference:     outcome(MetricMFAPreferenceSuccess, MetricMFAPreferenceFailure),
		},
		MFARequired:           int(MetricMFARequired),
		ValidationRejected:    int(MetricValidationRejected),
		StateRejected:         int(MetricStateRejected),
		ProviderLogoutFailure: int(MetricProviderLogoutFailure),
		PersistenceFailure:    int(MetricPersistenceFailure),
		RestoreMiss:           int(MetricRestoreMiss),
	}
}
