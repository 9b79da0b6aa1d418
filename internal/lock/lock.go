package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotAcquired = errors.New("lock is held by another owner")
	// ErrLeaseLost is returned by Refresh once the lease expired or was taken over.
	ErrLeaseLost = errors.New("lease is no longer held")
)

// Locker grants exclusive, TTL-bounded leases on a key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is one held lock. Refresh pushes the expiry ttl into the future and
// fails with ErrLeaseLost when the lock is no longer ours.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// LocalLocker only coordinates callers inside one process.
type LocalLocker struct {
	mu      sync.Mutex
	holders map[string]localHold
	now     func() time.Time
}

type localHold struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{holders: make(map[string]localHold), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.holders[key]; ok && now.Before(h.expires) {
		return nil, ErrNotAcquired
	}

	token := uuid.NewString()
	l.holders[key] = localHold{token: token, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: token}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  string
}

func (le *localLease) Refresh(_ context.Context, ttl time.Duration) error {
	le.locker.mu.Lock()
	defer le.locker.mu.Unlock()

	now := le.locker.now()
	h, ok := le.locker.holders[le.key]
	if !ok || h.token != le.token || !now.Before(h.expires) {
		return ErrLeaseLost
	}
	h.expires = now.Add(ttl)
	le.locker.holders[le.key] = h
	return nil
}

func (le *localLease) Release(_ context.Context) error {
	le.locker.mu.Lock()
	defer le.locker.mu.Unlock()

	if h, ok := le.locker.holders[le.key]; ok && h.token == le.token {
		delete(le.locker.holders, le.key)
	}
	return nil
}
