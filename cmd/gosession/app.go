package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/cognito"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/localidp"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// resumer is implemented by providers that can pick up a session persisted
// by an earlier process.
type resumer interface {
	Resume(ctx context.Context, tokens identity.Tokens) error
}

// app is one CLI invocation: a Client, its provider and the Redis they share.
type app struct {
	cfg      cliConfig
	logger   zerolog.Logger
	out      io.Writer
	rdb      redis.UniversalClient
	mr       *miniredis.Miniredis
	kv       storage.KV
	provider identity.Provider
	client   *goSession.Client
	metrics  *http.Server
	sessCfg  goSession.Config
}

type appOption func(*appOptions)

type appOptions struct {
	logger zerolog.Logger
	sender localidp.Sender
}

// withSender replaces the logging code sender of the local provider.
func withSender(s localidp.Sender) appOption {
	return func(o *appOptions) {
		o.sender = s
	}
}

func withLogger(l zerolog.Logger) appOption {
	return func(o *appOptions) {
		o.logger = l
	}
}

func newLogger(cfg logConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func newApp(ctx context.Context, cfg cliConfig, out io.Writer, opts ...appOption) (*app, error) {
	o := appOptions{logger: newLogger(cfg.Log)}
	for _, opt := range opts {
		opt(&o)
	}

	a := &app{cfg: cfg, logger: o.logger, out: out}

	addr := cfg.Redis.Addr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		a.mr = mr
		addr = mr.Addr()
		a.logger.Warn().Str("addr", addr).Msg("no redis address; using in-process miniredis, state ends with this process")
	}
	a.rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})

	var err error
	switch cfg.Provider {
	case providerCognito:
		ccfg := cognito.DefaultConfig()
		ccfg.Region = cfg.Cognito.Region
		ccfg.UserPoolID = cfg.Cognito.UserPoolID
		ccfg.ClientID = cfg.Cognito.ClientID
		ccfg.ClientSecret = cfg.Cognito.ClientSecret
		a.provider, err = cognito.NewFromEnv(ctx, ccfg, cognito.WithLogger(a.logger))
	default:
		lcfg := localidp.DefaultConfig()
		lcfg.KeyPrefix = cfg.Redis.Prefix + ":idp"
		sender := o.sender
		if sender == nil {
			sender = localidp.NewLogSender(a.logger)
		}
		a.provider, err = localidp.New(a.rdb, lcfg, localidp.WithLogger(a.logger), localidp.WithSender(sender))
	}
	if err != nil {
		a.close()
		return nil, err
	}

	a.kv = storage.NewRedisKV(a.rdb, cfg.Redis.Prefix+":session", cfg.Session.TTL)

	a.sessCfg = goSession.DefaultConfig()
	a.sessCfg.Restore.RevalidateWithProvider = cfg.Session.Revalidate
	a.sessCfg.Restore.DiscardExpired = cfg.Session.DiscardExpired
	a.sessCfg.Audit.Enabled = true
	a.sessCfg.Metrics.Enabled = true
	a.sessCfg.Metrics.EnableLatencyHistograms = cfg.Metrics.Addr != ""

	a.client, err = goSession.New().
		WithConfig(a.sessCfg).
		WithProvider(a.provider).
		WithStorage(a.kv).
		WithLogger(a.logger).
		WithAuditSink(goSession.NewLoggerSink(a.logger)).
		Build()
	if err != nil {
		a.close()
		return nil, err
	}

	a.client.Subscribe(func(c session.Commit) {
		a.logger.Debug().
			Uint64("seq", c.Seq).
			Strs("events", c.Events).
			Bool("authenticated", c.State.Authenticated).
			Str("challenge", c.State.Challenge.Kind.String()).
			Msg("session changed")
	})

	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cfg.Metrics.Addr); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) error {
	h, err := prometheus.Handler(a.client)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	a.logger.Info().Str("addr", addr).Msg("serving metrics on /metrics")
	return nil
}

func (a *app) close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.mr != nil {
		a.mr.Close()
	}
}

// restore loads the persisted session into the client. Providers that can
// resume are pointed at the stored tokens first, so revalidation and later
// provider calls act on that session.
func (a *app) restore(ctx context.Context) (bool, error) {
	if r, ok := a.provider.(resumer); ok {
		adapter, err := storage.NewAdapter(a.kv,
			storage.WithKeys(a.sessCfg.Storage.UserKey, a.sessCfg.Storage.TokensKey),
			storage.WithLogger(a.logger))
		if err != nil {
			return false, err
		}
		d, err := adapter.Load(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("reading stored session failed")
		} else if d != nil {
			if err := r.Resume(ctx, *d.Tokens); err != nil {
				a.logger.Debug().Err(err).Msg("provider did not resume the stored session")
			}
		}
	}
	res, err := a.client.RestoreSession(ctx)
	return res.Data, err
}
