// Package cpu supplies the allocator's CPU-identity collaborator:
// DetectNumCPU (a host CPU count for sizing the pool fan-out) and
// Affinity.Current (the shard-selection hint).
//
// A real kernel can ask "which physical CPU is this code running on" with
// interrupts disabled and get an exact, stable answer for the duration of
// the disabled section. Portable Go has no equivalent: goroutines are
// scheduled onto Ms which migrate across Ps, and the runtime does not
// export the current P's identity. Current approximates it instead of
// requiring it, because every caller in kernel/kalloc already has a
// cross-pool steal fallback — an imprecise shard hint only costs a cache
// miss, never correctness.
package cpu

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/cpu"
)

// DetectNumCPU returns the number of logical host CPUs, for callers that
// want to size N_CPU off the real machine instead of a fixed constant.
// gopsutil is tried first; a platform-specific syscall probe (see
// sys_linux.go / sys_other.go) backs it up before falling back to
// runtime.NumCPU.
func DetectNumCPU() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	if n, ok := sysNumCPU(); ok && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Affinity hands out shard indices in [0, n) with per-goroutine locality:
// repeated calls from the same goroutine tend to receive the same index,
// without requiring true OS-thread CPU affinity.
type Affinity struct {
	n    int
	pool sync.Pool
}

// NewAffinity builds an affinity resolver over n shards. n must be positive.
func NewAffinity(n int) *Affinity {
	if n <= 0 {
		panic("cpu: NewAffinity requires n > 0")
	}
	a := &Affinity{n: n}
	next := new(int)
	a.pool.New = func() interface{} {
		id := *next % n
		*next++
		return id
	}
	return a
}

// Current returns a shard index in [0, n). It pins the calling goroutine to
// its OS thread for the duration of the read — the closest public Go
// primitive to "disable preemption, read cpu id, re-enable" — then consults
// the sync.Pool-backed affinity token. sync.Pool's documented per-P victim
// cache is what gives repeated calls from the same goroutine a stable shard
// most of the time; it is never guaranteed, which is why every caller must
// tolerate a wrong answer.
func (a *Affinity) Current() int {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	id := a.pool.Get().(int)
	a.pool.Put(id)
	return id
}

// N returns the number of shards this resolver was built with.
func (a *Affinity) N() int { return a.n }
