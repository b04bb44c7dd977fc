package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker grants leases within one process; used when Redis is not configured
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

type lease struct {
	token     uint64
	expiresAt time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker(now func() time.Time) *LocalLocker {
	if now == nil {
		now = time.Now
	}
	return &LocalLocker{leases: make(map[string]lease), now: now}
}

// TryLock acquires key for ttl. Expired leases are taken over.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, false, nil
	}

	l.next++
	mine := lease{token: l.next, expiresAt: now.Add(ttl)}
	l.leases[key] = mine

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.token == mine.token {
			delete(l.leases, key)
		}
		return nil
	}
	return release, true, nil
}
