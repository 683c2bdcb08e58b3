package session

import (
	"fmt"
	"slices"
	"sync"
)

// Observer receives every committed batch, in commit order. Observers run
// synchronously on the goroutine draining the delivery queue. An observer
// may call back into the store; the commits it causes are delivered after
// the one it is handling.
type Observer func(Commit)

// Store is the single owner of a session [State].
type Store struct {
	mu    sync.Mutex
	state State
	seq   uint64

	observers map[uint64]Observer
	nextObs   uint64

	// pending holds commits not yet delivered. Only the goroutine that set
	// delivering drains it.
	pending    []Commit
	delivering bool
}

// NewStore returns a store holding the empty state.
func NewStore() *Store {
	return &Store{observers: make(map[uint64]Observer)}
}

// Current returns a copy of the current state.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Observer) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Apply folds events over a copy of the state and commits the result only
// if every event was accepted and the final state is valid.
func (s *Store) Apply(events ...Event) (Commit, error) {
	s.mu.Lock()

	next := s.state.clone()
	names := make([]string, 0, len(events))
	var durable, cleared bool
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := ev.apply(&next); err != nil {
			s.mu.Unlock()
			return Commit{}, err
		}
		names = append(names, ev.Name())
		durable = durable || ev.durable()
		if _, ok := ev.(LoggedOut); ok {
			cleared = true
		}
	}
	if err := CheckInvariants(next); err != nil {
		s.mu.Unlock()
		return Commit{}, err
	}

	s.state = next
	s.seq++
	commit := Commit{
		Seq:            s.seq,
		Events:         names,
		State:          next.clone(),
		DurableChanged: durable,
		Cleared:        cleared,
	}
	s.pending = append(s.pending, commit)
	if s.delivering {
		s.mu.Unlock()
		return commit, nil
	}
	s.delivering = true
	s.drain()
	return commit, nil
}

// drain delivers queued commits until none are left. It is entered with mu
// held and returns with mu released.
func (s *Store) drain() {
	finished := false
	defer func() {
		// An observer panicked; let the next commit resume delivery.
		if !finished {
			s.mu.Lock()
			s.delivering = false
			s.mu.Unlock()
		}
	}()

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = Commit{}
		s.pending = s.pending[1:]
		observers := s.snapshotObservers()
		s.mu.Unlock()

		for _, fn := range observers {
			fn(next.withState(next.State.clone()))
		}
		s.mu.Lock()
	}
	s.pending = nil
	s.delivering = false
	finished = true
	s.mu.Unlock()
}

func (s *Store) snapshotObservers() []Observer {
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	return observers
}

func (c Commit) withState(st State) Commit {
	c.State = st
	return c
}

// CheckInvariants reports the first invariant st violates, if any.
func CheckInvariants(st State) error {
	hasBoth := st.User != nil && st.Tokens != nil
	if st.Authenticated != hasBoth {
		return fmt.Errorf("%w: authenticated=%v with user=%v tokens=%v",
			ErrInvariantViolated, st.Authenticated, st.User != nil, st.Tokens != nil)
	}
	if st.Challenge.Pending() && st.Authenticated {
		return fmt.Errorf("%w: challenge %s pending on authenticated session", ErrInvariantViolated, st.Challenge.Kind)
	}
	if st.Tokens != nil && !st.Tokens.Complete() {
		return fmt.Errorf("%w: partial token set", ErrInvariantViolated)
	}
	if st.Busy != (st.inFlight > 0) {
		return fmt.Errorf("%w: busy flag out of sync", ErrInvariantViolated)
	}
	return nil
}
