// Package kalloc implements a per-CPU physical page allocator with a
// cross-pool steal fallback, the Go rendering of xv6's kernel/kalloc.c.
package kalloc

import (
	"fmt"

	"github.com/louix33/xv6kern/kernel/cpu"
	"github.com/louix33/xv6kern/logger"
	"go.uber.org/atomic"
)

// Address identifies a free or allocated frame by its absolute address in
// [KernelEnd, PhysTop), never a Go pointer — spec.md's "safe API is alloc ->
// Address, free(Address)" substitution for kalloc.c writing a next-pointer
// directly into the freed page. A caller cannot dereference an Address into
// the arena and retain a live reference past Free; it must ask the
// Allocator.
type Address uint64

const (
	allocJunk byte = 0x05 // kalloc.c: memset(r, 5, PGSIZE)
	freeJunk  byte = 0x01 // kalloc.c: memset(pa, 1, PGSIZE)
)

// cpuIdentity is the seam Allocator calls through to pick a home pool.
// *cpu.Affinity satisfies it in production; tests substitute a fake that
// returns a fixed index to pin a goroutine to a specific pool deterministically.
type cpuIdentity interface {
	Current() int
}

// Config sizes an Allocator. Frames are carved out of [KernelEnd, PhysTop)
// in PageSize steps, mirroring kalloc.c's freerange(end, PHYSTOP) boundary
// math: PGROUNDUP(KernelEnd) is approximated by requiring KernelEnd already
// be page-aligned, and the loop runs while p+PageSize <= PhysTop.
type Config struct {
	PageSize  int
	KernelEnd uint64
	PhysTop   uint64
	NumCPU    int
}

// Stats are cumulative counters for internal/metrics and tests.
type Stats struct {
	Allocs    uint64
	Frees     uint64
	Steals    uint64
	Exhausted uint64 // Alloc calls that found no free frame anywhere
}

// Allocator owns one contiguous arena split into fixed-size frames, handed
// out through NumCPU independent freelists ("pools"). Frame identity is
// tracked in a parallel next-pointer array rather than by writing into the
// frame's own bytes, so the arena can be ordinary Go memory.
type Allocator struct {
	cfg    Config
	frames int

	arena []byte
	next  []int32

	pools    []*pool
	affinity cpuIdentity

	allocs    atomic.Uint64
	frees     atomic.Uint64
	steals    atomic.Uint64
	exhausted atomic.Uint64
}

// Init builds an Allocator and, mirroring kinit()+freerange(), frees every
// frame in [KernelEnd, PhysTop) exactly once, landing the whole arena on
// pool 0 — contention then spreads it to the other pools purely through
// ordinary Alloc/Free traffic and cross-pool stealing.
func Init(cfg Config) (*Allocator, error) {
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("kalloc: invalid page size %d", cfg.PageSize)
	}
	if cfg.NumCPU <= 0 {
		return nil, fmt.Errorf("kalloc: invalid NumCPU %d", cfg.NumCPU)
	}
	if cfg.PhysTop <= cfg.KernelEnd {
		return nil, fmt.Errorf("kalloc: PhysTop %d must be greater than KernelEnd %d", cfg.PhysTop, cfg.KernelEnd)
	}
	if cfg.KernelEnd%uint64(cfg.PageSize) != 0 {
		return nil, fmt.Errorf("kalloc: KernelEnd %d is not page-aligned to %d", cfg.KernelEnd, cfg.PageSize)
	}

	frames := int((cfg.PhysTop - cfg.KernelEnd) / uint64(cfg.PageSize))
	if frames < cfg.NumCPU {
		return nil, fmt.Errorf("kalloc: only %d frames available for %d CPU pools, need at least one each", frames, cfg.NumCPU)
	}

	a := &Allocator{
		cfg:      cfg,
		frames:   frames,
		arena:    make([]byte, frames*cfg.PageSize),
		next:     make([]int32, frames),
		pools:    make([]*pool, cfg.NumCPU),
		affinity: cpu.NewAffinity(cfg.NumCPU),
	}
	for i := range a.pools {
		a.pools[i] = newPool(fmt.Sprintf("kalloc.pool[%d]", i))
	}

	for i := 0; i < frames; i++ {
		a.frameData(i, freeJunk)
		a.pushFrame(0, i)
	}

	return a, nil
}

// NumFrames returns the total number of frames the arena manages.
func (a *Allocator) NumFrames() int { return a.frames }

func (a *Allocator) frameData(idx int, junk byte) {
	d := a.arena[idx*a.cfg.PageSize : (idx+1)*a.cfg.PageSize]
	for i := range d {
		d[i] = junk
	}
}

func (a *Allocator) addrFor(idx int) Address {
	return Address(a.cfg.KernelEnd + uint64(idx)*uint64(a.cfg.PageSize))
}

// frameIndex validates addr and returns the frame it names. An address
// below KernelEnd, one past PhysTop, or misaligned to PageSize is a
// programmer error, surfaced as a panic the way kalloc.c's kfree calls
// panic("kfree") — xv6's kfree checks exactly this lower bound
// (`(uint64)pa % PGSIZE || (char*)pa < end`).
func (a *Allocator) frameIndex(addr Address) int {
	if uint64(addr) < a.cfg.KernelEnd {
		panicOutOfRange(addr, a.frames)
	}
	offset := uint64(addr) - a.cfg.KernelEnd
	if offset%uint64(a.cfg.PageSize) != 0 {
		panicMisaligned(addr, a.cfg.PageSize)
	}
	idx := offset / uint64(a.cfg.PageSize)
	if idx >= uint64(a.frames) {
		panicOutOfRange(addr, a.frames)
	}
	return int(idx)
}

func (a *Allocator) popFrame(poolIdx int) (int, bool) {
	p := a.pools[poolIdx]
	p.lock.Acquire()
	defer p.lock.Release()
	if p.head < 0 {
		return 0, false
	}
	idx := int(p.head)
	p.head = a.next[idx]
	return idx, true
}

func (a *Allocator) pushFrame(poolIdx, idx int) {
	p := a.pools[poolIdx]
	p.lock.Acquire()
	defer p.lock.Release()
	a.next[idx] = p.head
	p.head = int32(idx)
}

// Alloc returns a freshly allocated frame. It pops from the calling
// goroutine's own pool first; failing that it linearly probes every other
// pool once, stealing the first free frame it finds. A freed frame's bytes
// are filled with 0x05 before being handed back, the same tripwire
// kalloc.c's memset leaves for use-before-init bugs. ok is false only when
// every pool is empty — Alloc never panics on exhaustion, since running out
// of memory is an ordinary, recoverable condition for a caller to handle.
func (a *Allocator) Alloc() (addr Address, ok bool) {
	home := a.affinity.Current() % a.cfg.NumCPU

	if idx, found := a.popFrame(home); found {
		a.frameData(idx, allocJunk)
		a.allocs.Inc()
		return a.addrFor(idx), true
	}

	for i := 1; i < a.cfg.NumCPU; i++ {
		victim := (home + i) % a.cfg.NumCPU
		if idx, found := a.popFrame(victim); found {
			a.frameData(idx, allocJunk)
			a.allocs.Inc()
			a.steals.Inc()
			logger.Debugf("kalloc: pool %d stole frame %d from pool %d", home, idx, victim)
			return a.addrFor(idx), true
		}
	}

	a.exhausted.Inc()
	return 0, false
}

// Free returns a frame to the calling goroutine's own pool, filling its
// bytes with 0x01 first. Freeing a misaligned or out-of-range address
// panics.
func (a *Allocator) Free(addr Address) {
	idx := a.frameIndex(addr)
	a.frameData(idx, freeJunk)
	home := a.affinity.Current() % a.cfg.NumCPU
	a.pushFrame(home, idx)
	a.frees.Inc()
}

// Stats returns a snapshot of the cumulative counters.
func (a *Allocator) Stats() Stats {
	return Stats{
		Allocs:    a.allocs.Load(),
		Frees:     a.frees.Load(),
		Steals:    a.steals.Load(),
		Exhausted: a.exhausted.Load(),
	}
}
