package session

import "sync"

// Txn brackets one operation. Begin marks the store busy; exactly one of
// End, Fail or Release finishes it. Defer Release so the busy flag is
// dropped on every exit path.
type Txn struct {
	store *Store
	op    string
	seq   uint64

	mu   sync.Mutex
	done bool
}

// Begin commits OperationStarted{op} and returns the open transaction.
func (s *Store) Begin(op string) *Txn {
	// OperationStarted has no precondition and cannot be rejected.
	c, _ := s.Apply(OperationStarted{Op: op})
	return &Txn{store: s, op: op, seq: c.Seq}
}

// Op returns the operation name the transaction was opened with.
func (t *Txn) Op() string { return t.op }

// Seq returns the sequence number of the commit that opened the transaction.
func (t *Txn) Seq() uint64 { return t.seq }

// End commits events together with OperationFinished as one batch. When the
// batch is rejected nothing is committed and the transaction stays open so
// the caller can Fail it.
func (t *Txn) End(events ...Event) (Commit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return Commit{}, ErrTxnClosed
	}
	batch := make([]Event, 0, len(events)+1)
	batch = append(batch, events...)
	batch = append(batch, OperationFinished{Op: t.op})
	c, err := t.store.Apply(batch...)
	if err != nil {
		return Commit{}, err
	}
	t.done = true
	return c, nil
}

// Fail commits OperationFailed{err} together with OperationFinished.
func (t *Txn) Fail(err error) (Commit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return Commit{}, ErrTxnClosed
	}
	t.done = true
	return t.store.Apply(OperationFailed{Err: err}, OperationFinished{Op: t.op})
}

// Release commits OperationFinished if the transaction is still open.
// It is safe to call any number of times.
func (t *Txn) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	_, _ = t.store.Apply(OperationFinished{Op: t.op})
}
