package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLua deletes the lock only if it still carries our token.
var releaseLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX with a TTL so that several API
// instances share the same per-key exclusion.
type Redis struct {
	rdb      redis.UniversalClient
	prefix   string
	ttl      time.Duration
	spinWait time.Duration
	maxWait  time.Duration
}

// RedisOption customises a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets how long a lock survives if its holder never releases it.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithMaxWait bounds how long Lock spins before giving up with ErrNotAcquired.
func WithMaxWait(d time.Duration) RedisOption {
	return func(r *Redis) { r.maxWait = d }
}

// NewRedis builds a Redis locker. Keys are stored under prefix.
func NewRedis(rdb redis.UniversalClient, prefix string, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:      rdb,
		prefix:   prefix,
		ttl:      10 * time.Second,
		spinWait: 50 * time.Millisecond,
		maxWait:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

// Lock implements Locker.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.key(key)
	token := uuid.NewString()
	deadline := time.Now().Add(r.maxWait)

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", k, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, k)
		}

		timer := time.NewTimer(r.spinWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled by the time we release
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseLua.Run(releaseCtx, r.rdb, []string{k}, token).Err()
		})
	}, nil
}
