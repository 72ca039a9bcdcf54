// Package lock provides the two lock kinds the cache and allocator are built
// on: a non-blocking SpinLock and a blocking SleepLock. Real kernel spinlocks
// disable local interrupts while held; a goroutine has no such primitive, so
// SpinLock's contract is narrowed to "never voluntarily sleeps, never calls
// into anything that might block" — callers must still honor that discipline,
// the same way xv6 callers must never call a sleeping function with a
// spinlock held.
package lock

import (
	"fmt"
	"runtime"

	"go.uber.org/atomic"
)

// SpinLock is a busy-wait mutual-exclusion lock. It must never be held across
// a call that can block (disk I/O, SleepLock.Acquire).
type SpinLock struct {
	name string
	held atomic.Bool
}

// NewSpinLock creates a named, initially-unheld spin lock. The name is purely
// diagnostic, surfacing in panic messages the way xv6's initlock(name) does.
func NewSpinLock(name string) *SpinLock {
	return &SpinLock{name: name}
}

// Acquire busy-waits until the lock is free, then takes it.
func (l *SpinLock) Acquire() {
	for !l.held.CAS(false, true) {
		runtime.Gosched()
	}
}

// TryAcquire takes the lock without blocking, reporting whether it succeeded.
func (l *SpinLock) TryAcquire() bool {
	return l.held.CAS(false, true)
}

// Release gives up the lock. Releasing a lock not held by the caller is a
// programmer invariant violation, exactly as an unbalanced xv6 release().
func (l *SpinLock) Release() {
	if !l.held.CAS(true, false) {
		panic(fmt.Sprintf("lock: release of unheld spinlock %q", l.name))
	}
}

// Name returns the lock's diagnostic name.
func (l *SpinLock) Name() string { return l.name }
