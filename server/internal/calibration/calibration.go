// Package calibration holds the estimator the server is currently using.
//
// The threshold can change at runtime (config hot reload). Store keeps the
// active *fractal.Estimator behind an atomic pointer: readers load it once per
// request and keep a consistent threshold for the whole calculation, while Set
// swaps in a new one without blocking them.
package calibration

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// Snapshot is the active estimator together with when it was installed.
type Snapshot struct {
	Estimator *fractal.Estimator
	Version   uint64
	UpdatedAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	cur atomic.Pointer[Snapshot]
	now func() time.Time

	mu        sync.Mutex // serialises Set and guards listeners
	listeners []func(Snapshot)
}

// New returns a Store initialised with cfg.
func New(cfg fractal.Config) (*Store, error) {
	est, err := fractal.New(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{now: time.Now}
	s.cur.Store(&Snapshot{Estimator: est, Version: 1, UpdatedAt: s.now()})
	return s, nil
}

// Current returns the active estimator.
func (s *Store) Current() *fractal.Estimator {
	return s.cur.Load().Estimator
}

// Snapshot returns the active estimator with its version metadata.
func (s *Store) Snapshot() Snapshot {
	return *s.cur.Load()
}

// Set installs an estimator for cfg. If the threshold is unchanged, nothing
// happens and changed is false. Listeners run synchronously after the swap.
func (s *Store) Set(cfg fractal.Config) (changed bool, err error) {
	est, err := fractal.New(cfg)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	prev := s.cur.Load()
	if prev.Estimator.Threshold() == est.Threshold() {
		s.mu.Unlock()
		return false, nil
	}
	next := &Snapshot{Estimator: est, Version: prev.Version + 1, UpdatedAt: s.now()}
	s.cur.Store(next)
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(*next)
	}
	return true, nil
}

// OnChange registers fn to be called after every successful Set.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
