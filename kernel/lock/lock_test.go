package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinLockExclusion(t *testing.T) {
	l := NewSpinLock("test")

	var counter int
	var wg sync.WaitGroup
	const goroutines = 50
	const iterations = 200

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				l.Acquire()
				counter++
				l.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*iterations, counter)
}

func TestSpinLockReleaseUnheldPanics(t *testing.T) {
	l := NewSpinLock("test")
	assert.Panics(t, func() { l.Release() })
}

func TestSpinLockTryAcquire(t *testing.T) {
	l := NewSpinLock("test")
	require.True(t, l.TryAcquire())
	require.False(t, l.TryAcquire())
	l.Release()
	require.True(t, l.TryAcquire())
}

func TestSleepLockBlocksAndReports(t *testing.T) {
	l := NewSleepLock("buffer")
	require.False(t, l.Holding())

	l.Acquire()
	require.True(t, l.Holding())

	done := make(chan struct{})
	go func() {
		l.Acquire()
		close(done)
		l.Release()
	}()

	select {
	case <-done:
		t.Fatal("second Acquire returned while lock was still held")
	default:
	}

	l.Release()
	<-done
	require.False(t, l.Holding())
}

func TestSleepLockReleaseUnheldPanics(t *testing.T) {
	l := NewSleepLock("buffer")
	assert.Panics(t, func() { l.Release() })
}
