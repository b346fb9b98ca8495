package configsync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mechvibesdx/settings/internal/settings"
	"github.com/mechvibesdx/settings/internal/store"
)

// DefaultInterval is the delay between two polls of the store.
const DefaultInterval = 100 * time.Millisecond

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithInterval overrides the polling delay.
func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFileWatch asks the synchronizer to watch path for filesystem events and
// poll immediately when it changes. Polling continues regardless.
func WithFileWatch(path string) Option {
	return func(s *Synchronizer) {
		s.watchPath = path
	}
}

// Synchronizer gives one surface an automatically refreshing view of the
// store. The store does not know about it; changes are discovered by
// re-reading the document and comparing last_updated.
type Synchronizer struct {
	store     store.Store
	logger    *zap.Logger
	interval  time.Duration
	watchPath string

	// writeMu orders store round trips with the accepts that follow them.
	writeMu sync.Mutex

	mu      sync.RWMutex
	current settings.Snapshot
	nextSub int
	subs    map[int]chan settings.Snapshot

	nudge chan struct{}
	wg    sync.WaitGroup
	done  chan struct{}
}

// New loads the store once, synchronously, and starts polling in the
// background until ctx is cancelled.
func New(ctx context.Context, st store.Store, logger *zap.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    st,
		logger:   logger,
		interval: DefaultInterval,
		subs:     make(map[int]chan settings.Snapshot),
		nudge:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.current = st.Load()

	if s.watchPath != "" {
		if err := s.startWatch(ctx); err != nil {
			logger.Warn("file watch unavailable, relying on polling", zap.String("path", s.watchPath), zap.Error(err))
		}
	}

	s.wg.Add(1)
	go s.run(ctx)

	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	return s
}

// Current returns the most recently accepted snapshot.
func (s *Synchronizer) Current() settings.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update applies mutate to a fresh copy of the store, persists it and makes
// the result visible locally without waiting for the next poll. A failed save
// is logged only; the local view still moves to the mutated snapshot until
// the next poll reads a different revision from disk.
func (s *Synchronizer) Update(mutate func(*settings.Snapshot)) settings.Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := s.store.Update(mutate)
	if err != nil {
		s.logger.Error("failed to save config", zap.Error(err))
	}
	s.accept(next)
	s.logger.Debug("config updated", zap.Time("last_updated", next.LastUpdated))
	return next.Clone()
}

// Refresh polls the store once and reports whether a different revision was
// accepted. A load that fell back to defaults carries no timestamp and counts
// as no change.
func (s *Synchronizer) Refresh() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fresh := s.store.Load()
	if fresh.LastUpdated.IsZero() {
		return false
	}
	return s.accept(fresh)
}

// Nudge requests an immediate poll. Extra nudges before the poll runs are
// coalesced.
func (s *Synchronizer) Nudge() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

// Subscribe returns a channel receiving every accepted snapshot. Slow readers
// only see the latest one. The returned function unsubscribes and closes the
// channel.
func (s *Synchronizer) Subscribe() (<-chan settings.Snapshot, func()) {
	ch := make(chan settings.Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// Done is closed once the background loop has exited.
func (s *Synchronizer) Done() <-chan struct{} {
	return s.done
}

func (s *Synchronizer) run(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.nudge:
			timer.Stop()
		}

		if s.Refresh() {
			s.logger.Debug("config changed on disk", zap.Time("last_updated", s.Current().LastUpdated))
		}
		timer.Reset(s.interval)
	}
}

// accept replaces the held snapshot whenever the timestamps differ. The store
// is the single source of truth, so a restored or clock-skewed older revision
// is taken as well.
func (s *Synchronizer) accept(fresh settings.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fresh.SameRevision(s.current) {
		return false
	}
	s.current = fresh
	for _, ch := range s.subs {
		publish(ch, fresh.Clone())
	}
	return true
}

func publish(ch chan settings.Snapshot, snapshot settings.Snapshot) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}
