package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()

	var (
		wg      sync.WaitGroup
		counter int
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "user-1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			counter++
			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if maxSeen != 1 {
		t.Fatalf("expected at most one holder at a time, saw %d", maxSeen)
	}
	if len(l.keys) != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", len(l.keys))
	}
}

func TestLocalIndependentKeys(t *testing.T) {
	l := NewLocal()

	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("expected key b to be free, got %v", err)
	}
	unlockB()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("expected lock to be free after release, got %v", err)
	}
	again()
}

func TestRedisLockSurfacesConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	l := NewRedis(rdb, "test", WithMaxWait(100*time.Millisecond))
	if got := l.key("vote:u1"); got != "test:vote:u1" {
		t.Fatalf("unexpected key %q", got)
	}

	unlock, err := l.Lock(context.Background(), "vote:u1")
	if err == nil {
		unlock()
		t.Fatalf("expected error from unreachable redis")
	}
	if errors.Is(err, ErrNotAcquired) {
		t.Fatalf("connection failure should not look like contention: %v", err)
	}
}

func newTestRedis(t *testing.T, opts ...RedisOption) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), DisableIdentity: true})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, "test", opts...), mr
}

func TestRedisLockContention(t *testing.T) {
	l, mr := newTestRedis(t, WithTTL(5*time.Second), WithMaxWait(150*time.Millisecond))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "vote:u1")
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if !mr.Exists("test:vote:u1") {
		t.Fatalf("expected lock key to be set")
	}
	if ttl := mr.TTL("test:vote:u1"); ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("expected lock key to expire, got ttl %v", ttl)
	}

	if _, err := l.Lock(ctx, "vote:u1"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired while held, got %v", err)
	}

	other, err := l.Lock(ctx, "vote:u2")
	if err != nil {
		t.Fatalf("independent key should not block: %v", err)
	}
	other()

	unlock()
	if mr.Exists("test:vote:u1") {
		t.Fatalf("expected release to delete the key")
	}

	again, err := l.Lock(ctx, "vote:u1")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}

func TestRedisLockWaiterAcquiresAfterRelease(t *testing.T) {
	l, _ := newTestRedis(t, WithMaxWait(2*time.Second))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "friends:a:b")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		unlock()
	}()

	start := time.Now()
	second, err := l.Lock(ctx, "friends:a:b")
	if err != nil {
		t.Fatalf("waiter should acquire after release: %v", err)
	}
	defer second()
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("waiter acquired before the holder released")
	}
}

func TestRedisUnlockKeepsForeignToken(t *testing.T) {
	l, mr := newTestRedis(t)

	unlock, err := l.Lock(context.Background(), "vote:u1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// the lease expired and another holder took the key
	mr.Del("test:vote:u1")
	if err := mr.Set("test:vote:u1", "other-holder"); err != nil {
		t.Fatalf("seed foreign holder: %v", err)
	}

	unlock()
	got, err := mr.Get("test:vote:u1")
	if err != nil || got != "other-holder" {
		t.Fatalf("release must not delete another holder's lock, got %q (%v)", got, err)
	}
}

func TestRedisLockHonoursContext(t *testing.T) {
	l, _ := newTestRedis(t, WithMaxWait(5*time.Second))

	unlock, err := l.Lock(context.Background(), "vote:u1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "vote:u1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}
