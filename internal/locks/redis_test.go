package locks

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"

	"github.com/desertthunder/plmirror/internal/shared"
)

func newTestRedisLocker(t *testing.T, m *miniredis.Miniredis, ttl time.Duration) (*RedisLocker, *bytes.Buffer) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	var buf bytes.Buffer
	return NewRedisLocker(client, ttl, log.New(&buf)), &buf
}

func TestRedisLocker(t *testing.T) {
	const key = "1/netease/p1"
	redisKey := redisKeyPrefix + key

	t.Run("lock sets key with ttl and unlock deletes it", func(t *testing.T) {
		m := miniredis.RunT(t)
		l, _ := newTestRedisLocker(t, m, 30*time.Second)

		unlock, err := l.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		if !m.Exists(redisKey) {
			t.Fatal("expected lock key to be set")
		}
		if got := m.TTL(redisKey); got != 30*time.Second {
			t.Errorf("expected ttl 30s, got %v", got)
		}

		unlock()
		if m.Exists(redisKey) {
			t.Error("expected lock key to be deleted")
		}
	})

	t.Run("times out while held", func(t *testing.T) {
		m := miniredis.RunT(t)
		l, _ := newTestRedisLocker(t, m, 30*time.Second)

		unlock, err := l.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
		defer cancel()

		_, err = l.Lock(ctx, key)
		if !errors.Is(err, shared.ErrLockTimeout) {
			t.Fatalf("expected ErrLockTimeout, got %v", err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected error to wrap DeadlineExceeded, got %v", err)
		}
	})

	t.Run("waits until released", func(t *testing.T) {
		m := miniredis.RunT(t)
		l, _ := newTestRedisLocker(t, m, 30*time.Second)

		unlock, err := l.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}

		var released atomic.Bool
		go func() {
			time.Sleep(100 * time.Millisecond)
			released.Store(true)
			unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		second, err := l.Lock(ctx, key)
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		defer second()

		if !released.Load() {
			t.Error("second holder acquired the lock before the first released it")
		}
	})

	t.Run("excludes concurrent holders", func(t *testing.T) {
		m := miniredis.RunT(t)
		l, _ := newTestRedisLocker(t, m, 30*time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var active, maxActive int32
		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := l.Lock(ctx, key)
				if err != nil {
					t.Errorf("Lock() error = %v", err)
					return
				}
				defer unlock()

				n := atomic.AddInt32(&active, 1)
				for {
					cur := atomic.LoadInt32(&maxActive)
					if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
			}()
		}
		wg.Wait()

		if maxActive != 1 {
			t.Errorf("expected at most one holder, saw %d", maxActive)
		}
		if m.Exists(redisKey) {
			t.Error("expected lock key to be deleted after all holders released")
		}
	})

	t.Run("expired holder does not release the next holder's lock", func(t *testing.T) {
		m := miniredis.RunT(t)
		l, _ := newTestRedisLocker(t, m, time.Second)

		stale, err := l.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}

		m.FastForward(2 * time.Second)
		if m.Exists(redisKey) {
			t.Fatal("expected lock to expire")
		}

		current, err := l.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("Lock() after expiry error = %v", err)
		}
		token, _ := m.Get(redisKey)

		stale()
		if got, _ := m.Get(redisKey); got != token {
			t.Fatalf("stale unlock removed the current holder's lock (token %q, now %q)", token, got)
		}

		current()
		if m.Exists(redisKey) {
			t.Error("expected current holder's unlock to delete the key")
		}
	})

	t.Run("LockAll over redis", func(t *testing.T) {
		m := miniredis.RunT(t)
		l, _ := newTestRedisLocker(t, m, 30*time.Second)

		unlock, err := LockAll(context.Background(), l, []string{"b", "a", "b"})
		if err != nil {
			t.Fatalf("LockAll() error = %v", err)
		}
		if !m.Exists(redisKeyPrefix+"a") || !m.Exists(redisKeyPrefix+"b") {
			t.Error("expected both keys held")
		}

		unlock()
		if len(m.Keys()) != 0 {
			t.Errorf("expected no keys left, got %v", m.Keys())
		}
	})

	t.Run("failed release is logged", func(t *testing.T) {
		m, err := miniredis.Run()
		if err != nil {
			t.Fatalf("failed to start redis: %v", err)
		}
		l, buf := newTestRedisLocker(t, m, 30*time.Second)

		unlock, err := l.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}

		m.Close()
		unlock()

		if !strings.Contains(buf.String(), "failed to release lock") {
			t.Errorf("expected release failure to be logged, got %q", buf.String())
		}
	})
}
