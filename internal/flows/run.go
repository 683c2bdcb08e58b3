package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// run is the per-call bookkeeping shared by every flow.
type run struct {
	ctx  context.Context
	deps *Deps
	tx   *session.Txn
	op   string

	subject     string
	meta        map[string]string
	pending     bool
	skipPersist bool
	// uncounted suppresses the success counter; the outcome is counted elsewhere.
	uncounted bool
}

func begin(ctx context.Context, op string, deps *Deps) *run {
	return &run{
		ctx:  ctx,
		deps: deps,
		tx:   deps.Store.Begin(op),
		op:   op,
		meta: map[string]string{},
	}
}

func (r *run) release() {
	r.tx.Release()
}

func (r *run) fail(kind Kind, field string, cause error) error {
	err := cause
	if r.deps.Classify != nil {
		err = r.deps.Classify(kind, r.op, field, cause)
	}
	_, _ = r.tx.Fail(err)

	switch kind {
	case KindValidation:
		r.inc(r.deps.Metrics.ValidationRejected)
	case KindState:
		r.inc(r.deps.Metrics.StateRejected)
	}
	if o, ok := r.deps.Metrics.Outcomes[r.op]; ok {
		r.inc(o.Failure)
	}
	r.audit("_failure", false, err)
	r.deps.Logger.Debug().Str("op", r.op).Err(err).Msg("operation failed")
	return err
}

// succeed commits events with the release. A rejected batch is turned into
// a state failure.
func (r *run) succeed(events ...session.Event) error {
	commit, err := r.tx.End(events...)
	if err != nil {
		return r.fail(KindState, "", err)
	}
	if !r.skipPersist {
		r.persist(commit)
	}

	if r.pending {
		r.audit("_challenge", true, nil)
	} else {
		if o, ok := r.deps.Metrics.Outcomes[r.op]; ok && !r.uncounted {
			r.inc(o.Success)
		}
		r.audit("_success", true, nil)
	}
	r.deps.Logger.Debug().Str("op", r.op).Uint64("seq", commit.Seq).Msg("operation committed")
	return nil
}

// persist writes the durable part of commit. Writes are ordered by commit
// sequence, so a slow save never lands after a later logout's clear.
func (r *run) persist(commit session.Commit) {
	if !commit.DurableChanged || r.deps.Storage == nil {
		return
	}
	st := commit.State
	var (
		written bool
		err     error
	)
	if commit.Cleared && st.User == nil {
		written, err = r.deps.Storage.ClearAt(r.ctx, commit.Seq)
	} else {
		written, err = r.deps.Storage.SaveAt(r.ctx, commit.Seq, storage.Durable{User: st.User, Tokens: st.Tokens})
	}
	if err != nil {
		r.inc(r.deps.Metrics.PersistenceFailure)
		r.deps.Logger.Warn().Str("op", r.op).Err(err).Msg("session storage write failed")
		return
	}
	if !written {
		r.deps.Logger.Debug().Str("op", r.op).Uint64("seq", commit.Seq).Msg("storage write superseded by a later commit")
	}
}

func (r *run) inc(id int) {
	if r.deps.MetricInc != nil && id >= 0 {
		r.deps.MetricInc(id)
	}
}

func (r *run) audit(suffix string, success bool, err error) {
	if r.deps.EmitAudit == nil {
		return
	}
	meta := r.meta
	r.deps.EmitAudit(r.ctx, r.op+suffix, success, r.subject, err, func() map[string]string {
		return meta
	})
}

// providerCode reduces a provider error to a stable code for audit metadata.
func (r *run) providerCode(err error) string {
	if r.deps.ProviderCode == nil {
		return "unknown"
	}
	return r.deps.ProviderCode(err)
}

func (r *run) now() time.Time {
	if r.deps.Now != nil {
		return r.deps.Now()
	}
	return time.Now()
}

// callProvider runs fn and records its latency.
func callProvider[T any](r *run, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	out, err := fn(r.ctx)
	if r.deps.ObserveProvider != nil {
		r.deps.ObserveProvider(time.Since(start))
	}
	return out, err
}

func callProviderErr(r *run, fn func(context.Context) error) error {
	_, err := callProvider(r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
