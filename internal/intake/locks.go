package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionLocker serializes the assemble-transcript -> call-provider ->
// persist-reply window per session. Without it, concurrent sends against
// one session interleave transcript snapshots.
type SessionLocker interface {
	// Acquire blocks (bounded) until the session lock is held and returns
	// a release func. Exhausting the wait budget returns ErrSessionBusy.
	Acquire(ctx context.Context, sessionID int64) (release func(), err error)
}

// RedisSessionLocker implements SessionLocker with a SET NX key per session.
// The TTL bounds how long a crashed holder can wedge a session.
type RedisSessionLocker struct {
	client    *redis.Client
	ttl       time.Duration
	waitDelay time.Duration
	maxWaits  int
}

// NewRedisSessionLocker builds a redis-backed locker.
func NewRedisSessionLocker(client *redis.Client, ttl, waitDelay time.Duration, maxWaits int) *RedisSessionLocker {
	if client == nil {
		panic("intake: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	if waitDelay <= 0 {
		waitDelay = time.Second
	}
	if maxWaits <= 0 {
		maxWaits = 30
	}
	return &RedisSessionLocker{
		client:    client,
		ttl:       ttl,
		waitDelay: waitDelay,
		maxWaits:  maxWaits,
	}
}

func sessionLockKey(sessionID int64) string {
	return fmt.Sprintf("session_lock:%d", sessionID)
}

// Acquire polls SET NX until the lock is granted or the wait budget runs out.
func (l *RedisSessionLocker) Acquire(ctx context.Context, sessionID int64) (func(), error) {
	key := sessionLockKey(sessionID)
	token := uuid.NewString()

	release, err := awaitWithTimeout(ctx, l.waitDelay, l.maxWaits, func(ctx context.Context) (func(), bool, error) {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("intake: session lock acquire failed: %w", err)
		}
		if !ok {
			return nil, false, nil
		}
		return func() { l.release(key, token) }, true, nil
	})
	if errors.Is(err, ErrProviderTimeout) {
		return nil, ErrSessionBusy
	}
	return release, err
}

// release deletes the key only if this holder still owns it, so an expired
// lock reclaimed by another caller is never clobbered.
func (l *RedisSessionLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	_ = l.client.Eval(ctx, script, []string{key}, token).Err()
}

// MemorySessionLocker is the in-process fallback used when redis is not
// configured. Sufficient for a single API instance.
type MemorySessionLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewMemorySessionLocker builds the in-process locker.
func NewMemorySessionLocker() *MemorySessionLocker {
	return &MemorySessionLocker{locks: make(map[int64]*sync.Mutex)}
}

// Acquire takes the per-session mutex, respecting context cancellation.
func (l *MemorySessionLocker) Acquire(ctx context.Context, sessionID int64) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return m.Unlock, nil
	case <-ctx.Done():
		// The goroutine will eventually take the mutex; hand it straight back.
		go func() {
			<-acquired
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
}
