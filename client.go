package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/rs/zerolog"
)

// Client owns one authentication session and runs every flow against it.
//
// Client methods are safe for concurrent use. Each operation commits its
// outcome to the session atomically; observers see commits in order.
type Client struct {
	config   Config
	store    *session.Store
	provider identity.Provider
	storage  *storage.Adapter
	memKV    *storage.MemoryKV
	flows    flows.Service
	audit    *auditDispatcher
	metrics  *Metrics
	logger   zerolog.Logger
}

// Close drains the audit dispatcher and stops the default in-memory store's
// expiry loop. The session itself remains readable.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
	if c.memKV != nil {
		c.memKV.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// dispatch buffer was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot copies the current counters and histograms.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// State returns a copy of the current session.
func (c *Client) State() session.State {
	if c == nil || c.store == nil {
		return session.State{}
	}
	return c.store.Current()
}

// Subscribe registers fn to receive every commit, in order. fn may call back
// into the client, for example ClearError; commits it causes are delivered
// after the one being handled. The returned function unsubscribes.
func (c *Client) Subscribe(fn session.Observer) func() {
	if c == nil || c.store == nil {
		return func() {}
	}
	return c.store.Subscribe(fn)
}

// ClearError removes State.LastError. Calling it repeatedly is harmless.
func (c *Client) ClearError() {
	if c == nil || c.store == nil {
		return
	}
	_, _ = c.store.Apply(session.ErrorCleared{})
}

// Provider returns the identity provider the client was built with.
func (c *Client) Provider() identity.Provider {
	if c == nil {
		return nil
	}
	return c.provider
}

func (c *Client) ready() bool {
	return c != nil && c.flows.Initialized()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) observeProvider(d time.Duration) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Observe(MetricProviderLatency, d)
}
