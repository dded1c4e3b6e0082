// package locks provides keyed mutual exclusion for playlist mutations.
//
// Import and sync hold a lock per external identity. Manual edits hold a lock per playlist ID,
// plus the external identity's lock when the playlist is synced.
// [KeyedMutex] serves a single process, [RedisLocker] serves several instances sharing one database.
package locks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/plmirror/internal/shared"
)

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

// Locker acquires exclusive ownership of a key until the returned [Unlock] is called.
//
// Lock blocks until the key is free or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// ExternalKey is the lock key of a synced playlist's external identity.
func ExternalKey(userID int64, platform, externalID string) string {
	return fmt.Sprintf("%d/%s/%s", userID, platform, externalID)
}

// PlaylistKey is the lock key of a stored playlist.
func PlaylistKey(id string) string {
	return "playlist:" + id
}

// LockAll acquires every key in sorted order so concurrent batches cannot deadlock.
//
// Duplicate keys are locked once. On failure every lock already taken is released.
func LockAll(ctx context.Context, l Locker, keys []string) (Unlock, error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]Unlock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, key := range sorted {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, unlock)
	}

	return once(release), nil
}

func once(fn func()) Unlock {
	var o sync.Once
	return func() { o.Do(fn) }
}

// KeyedMutex is an in-process [Locker]. Entries are reference counted and dropped when unused.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock implements [Locker].
func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return once(func() {
			<-e.ch
			m.release(key, e)
		}), nil
	case <-ctx.Done():
		m.release(key, e)
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrLockTimeout, key, ctx.Err())
	}
}

func (m *KeyedMutex) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
