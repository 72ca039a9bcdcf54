package lock

import (
	"sync"

	"go.uber.org/atomic"
)

// SleepLock is a blocking mutual-exclusion lock that may yield the calling
// goroutine. It must never be acquired while a SpinLock is held.
type SleepLock struct {
	name string
	mu   sync.Mutex
	held atomic.Bool
}

// NewSleepLock creates a named, initially-unheld sleep lock.
func NewSleepLock(name string) *SleepLock {
	return &SleepLock{name: name}
}

// Acquire blocks until the lock is available.
func (l *SleepLock) Acquire() {
	l.mu.Lock()
	l.held.Store(true)
}

// Release gives up the lock. Panics if the lock is not held at all; it does
// not check which goroutine holds it, mirroring xv6's unconditional
// releasesleep() contract (the caller is required to have checked Holding
// first, or to simply know it acquired the lock).
func (l *SleepLock) Release() {
	if !l.held.CAS(true, false) {
		panic("lock: release of unheld sleep lock " + l.name)
	}
	l.mu.Unlock()
}

// Holding reports whether the lock is currently held by anyone. Safe to call
// without holding the lock, matching xv6's holdingsleep().
func (l *SleepLock) Holding() bool {
	return l.held.Load()
}

// Name returns the lock's diagnostic name.
func (l *SleepLock) Name() string { return l.name }
