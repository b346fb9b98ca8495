package theme

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mechvibesdx/settings/internal/store"
)

// Broadcaster owns the themes collection. Every write goes through its lock
// and is pushed to subscribers as a new generation, so all readers agree as
// soon as Update returns.
type Broadcaster struct {
	path   string
	logger *zap.Logger
	clock  func() time.Time

	mu     sync.Mutex
	themes Themes

	generation atomic.Uint64

	subMu   sync.Mutex
	nextSub int
	subs    map[int]chan uint64
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithClock overrides the time source used for theme timestamps.
func WithClock(clock func() time.Time) Option {
	return func(b *Broadcaster) {
		b.clock = clock
	}
}

// Load reads the themes document at path. A missing or unreadable document
// starts an empty collection.
func Load(path string, logger *zap.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		path:   path,
		logger: logger,
		clock:  time.Now,
		themes: Default(),
		subs:   make(map[int]chan uint64),
	}
	for _, opt := range opts {
		opt(b)
	}

	loaded := Default()
	if err := store.ReadJSON(path, &loaded); err != nil {
		if !store.IsNotExist(err) {
			logger.Warn("failed to load themes, starting empty", zap.String("path", path), zap.Error(err))
		}
		return b
	}
	b.themes = loaded.Clone()
	return b
}

// Themes returns a copy of the current collection.
func (b *Broadcaster) Themes() Themes {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.themes.Clone()
}

// Generation returns the number of successful writes so far.
func (b *Broadcaster) Generation() uint64 {
	return b.generation.Load()
}

// Update applies mutate to a copy of the collection and persists it. The new
// value is committed only if both succeed; subscribers are notified after the
// lock is released.
func (b *Broadcaster) Update(mutate func(*Themes) error) error {
	b.mu.Lock()
	next := b.themes.Clone()
	if err := mutate(&next); err != nil {
		b.mu.Unlock()
		return err
	}
	next.LastUpdated = b.clock().UTC()
	if err := store.WriteJSON(b.path, next); err != nil {
		b.mu.Unlock()
		b.logger.Error("failed to save themes", zap.String("path", b.path), zap.Error(err))
		return fmt.Errorf("save themes: %w", err)
	}
	b.themes = next
	b.mu.Unlock()

	b.generation.Add(1)
	b.notify()
	return nil
}

// Upsert creates or replaces a custom theme.
func (b *Broadcaster) Upsert(name, description, css string) error {
	return b.Update(func(t *Themes) error {
		return t.Upsert(name, description, css, b.clock().UTC())
	})
}

// Delete removes a custom theme.
func (b *Broadcaster) Delete(name string) error {
	return b.Update(func(t *Themes) error {
		return t.Delete(name)
	})
}

// Subscribe returns a channel that receives the generation after each write.
// Slow readers only see the latest generation. The returned function
// unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	b.subMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			close(ch)
			b.subMu.Unlock()
		})
	}
}

// Watch calls fn with the current collection and again after every write,
// until ctx is cancelled. It blocks.
func (b *Broadcaster) Watch(ctx context.Context, fn func(Themes)) {
	updates, cancel := b.Subscribe()
	defer cancel()

	fn(b.Themes())
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			fn(b.Themes())
		}
	}
}

// notify sends the latest generation rather than the caller's, so racing
// writers cannot leave an older value buffered behind a newer one.
func (b *Broadcaster) notify() {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	gen := b.generation.Load()

	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- gen:
		default:
		}
	}
}
