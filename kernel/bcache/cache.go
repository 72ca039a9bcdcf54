// Package bcache implements a sharded disk buffer cache: a fixed pool of
// buffers spread across hash buckets, each independently lockable, with a
// cross-bucket steal fallback when a bucket runs out of locally reusable
// buffers. It is the Go rendering of xv6's kernel/bio.c.
package bcache

import (
	"encoding/binary"
	"fmt"

	"github.com/OneOfOne/xxhash"
	"github.com/louix33/xv6kern/kernel/disk"
	"github.com/louix33/xv6kern/kernel/lock"
	"github.com/louix33/xv6kern/logger"
	"go.uber.org/atomic"
)

// Config sizes a Cache. NBuf is the total number of buffers the cache will
// ever hold; NBucket is the number of independent hash buckets they are
// spread across. BlockSize is the size in bytes of one disk block.
type Config struct {
	NBuf      int
	NBucket   int
	BlockSize int
}

// DefaultConfig mirrors xv6's NBUF=30 split across NBUCKET=13 buckets.
func DefaultConfig() Config {
	return Config{NBuf: 30, NBucket: 13, BlockSize: 1024}
}

// Stats are cumulative counters, useful for tests and for internal/metrics.
type Stats struct {
	Hits        uint64
	Misses      uint64
	LocalReuses uint64
	Steals      uint64
}

// Cache is a fixed-size, sharded buffer cache over a disk.Device.
type Cache struct {
	cfg     Config
	dev     disk.Device
	buckets []*bucket
	bufs    []Buffer
	arena   []byte

	hits        atomic.Uint64
	misses      atomic.Uint64
	localReuses atomic.Uint64
	steals      atomic.Uint64
}

// New builds a Cache with cfg.NBuf buffers spread round-robin across
// cfg.NBucket buckets, each backed by cfg.BlockSize bytes carved out of one
// contiguous arena allocated up front — the cache never allocates a Data
// slice again after New returns.
func New(cfg Config, dev disk.Device) (*Cache, error) {
	if cfg.NBuf <= 0 || cfg.NBucket <= 0 || cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("bcache: invalid config %+v", cfg)
	}
	if dev == nil {
		return nil, fmt.Errorf("bcache: nil device")
	}
	if !isPrime(cfg.NBucket) {
		logger.Warnf("bcache: NBucket=%d is not prime, hashing may cluster for sequentially numbered blocks", cfg.NBucket)
	}

	c := &Cache{
		cfg:     cfg,
		dev:     dev,
		buckets: make([]*bucket, cfg.NBucket),
		bufs:    make([]Buffer, cfg.NBuf),
		arena:   make([]byte, cfg.NBuf*cfg.BlockSize),
	}

	for i := range c.buckets {
		c.buckets[i] = newBucket(fmt.Sprintf("bcache.bucket[%d]", i))
	}

	for i := range c.bufs {
		b := &c.bufs[i]
		b.Data = c.arena[i*cfg.BlockSize : (i+1)*cfg.BlockSize]
		b.Lock = lock.NewSleepLock(fmt.Sprintf("bcache.buffer[%d]", i))
		bk := c.buckets[i%cfg.NBucket]
		bk.insertFront(b)
	}

	return c, nil
}

// isPrime reports whether n is prime; xv6 picks NBUCKET=13 for exactly this
// reason, so New warns rather than rejects when a caller picks a composite
// bucket count.
func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func (c *Cache) hash(device, block uint32) int {
	var key [8]byte
	binary.BigEndian.PutUint32(key[0:4], device)
	binary.BigEndian.PutUint32(key[4:8], block)
	h := xxhash.New64()
	h.Write(key[:])
	return int(h.Sum64() % uint64(c.cfg.NBucket))
}

// Stats returns a snapshot of the cumulative counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		LocalReuses: c.localReuses.Load(),
		Steals:      c.steals.Load(),
	}
}

// acquireOrAllocate returns a sleep-locked buffer for (device, block),
// either an existing cached copy (with refcnt incremented) or a freshly
// claimed one (local reuse or cross-bucket steal). It never touches the
// disk; the caller decides whether to fill Data.
//
// Lock ordering: the home bucket lock is acquired alone for the hit and
// local-reuse checks. If neither succeeds, the home lock is released before
// any victim bucket lock is taken. Every subsequent probe acquires exactly
// two bucket locks, always in ascending bucket-index order regardless of
// which one is "home" and which is "victim" — this is the stricter policy
// spec.md allows as an alternative to the simple home-then-victim order,
// and it rules out the AB-BA deadlock two concurrent callers with swapped
// home/victim roles could otherwise hit. Each probe re-checks the home
// bucket for the target identity before committing a steal, since another
// goroutine may have inserted it there while this one held no lock at all.
func (c *Cache) acquireOrAllocate(device, block uint32) *Buffer {
	home := c.hash(device, block)
	hb := c.buckets[home]

	hb.lock.Acquire()
	if b := hb.findByIdentity(device, block); b != nil {
		b.refcnt++
		hb.lock.Release()
		c.hits.Inc()
		return b
	}
	if b := hb.findReusable(); b != nil {
		b.Device, b.Block, b.Valid, b.refcnt = device, block, false, 1
		hb.lock.Release()
		c.localReuses.Inc()
		return b
	}
	hb.lock.Release()

	for i := 1; i < c.cfg.NBucket; i++ {
		victim := (home + i) % c.cfg.NBucket
		lo, hi := home, victim
		if lo > hi {
			lo, hi = hi, lo
		}
		loBk, hiBk := c.buckets[lo], c.buckets[hi]

		loBk.lock.Acquire()
		hiBk.lock.Acquire()

		if b := hb.findByIdentity(device, block); b != nil {
			b.refcnt++
			hiBk.lock.Release()
			loBk.lock.Release()
			c.hits.Inc()
			return b
		}

		vb := c.buckets[victim]
		if b := vb.findReusable(); b != nil {
			vb.unlink(b)
			b.Device, b.Block, b.Valid, b.refcnt = device, block, false, 1
			hb.insertFront(b)
			hiBk.lock.Release()
			loBk.lock.Release()
			c.steals.Inc()
			logger.Debugf("bcache: stole buffer from bucket %d into bucket %d for device %d block %d", victim, home, device, block)
			return b
		}

		hiBk.lock.Release()
		loBk.lock.Release()
	}

	err := &capacityError{device: device, block: block, nbuf: c.cfg.NBuf}
	logger.Errorf("%s", err.Error())
	panic(err.Error())
}

// Read returns the buffer for (device, block), reading it from disk first
// if it was not already cached. The returned LockedBuffer holds the
// buffer's sleep lock; the caller must pass it to Release when done.
func (c *Cache) Read(device, block uint32) (*LockedBuffer, error) {
	b := c.acquireOrAllocate(device, block)
	b.Lock.Acquire()

	if !b.Valid {
		if err := c.dev.ReadBlock(device, block, b.Data); err != nil {
			b.Lock.Release()
			c.releaseIdentity(b)
			return nil, fmt.Errorf("bcache: reading device %d block %d: %w", device, block, err)
		}
		b.Valid = true
		c.misses.Inc()
	}

	return &LockedBuffer{buf: b}, nil
}

// Write flushes lb's contents to disk. The caller must hold lb, i.e. have
// obtained it from Read and not yet called Release.
func (c *Cache) Write(lb *LockedBuffer) error {
	b := lb.buf
	if !b.Lock.Holding() {
		panicInvariant("Write called without holding the buffer lock")
	}
	return c.dev.WriteBlock(b.Device, b.Block, b.Data)
}

// Release gives up the caller's hold on lb, releasing the sleep lock and
// decrementing the buffer's reference count under its bucket lock. Once the
// count reaches zero the buffer becomes eligible for local reuse or theft,
// but it keeps its stale contents until reused — xv6 relies on the same
// property so a buffer re-acquired before reuse still has valid data.
func (c *Cache) Release(lb *LockedBuffer) {
	b := lb.buf
	if !b.Lock.Holding() {
		panicInvariant("Release called without holding the buffer lock")
	}
	b.Lock.Release()
	c.releaseIdentity(b)
}

func (c *Cache) releaseIdentity(b *Buffer) {
	bk := c.buckets[c.hash(b.Device, b.Block)]
	bk.lock.Acquire()
	b.refcnt--
	if b.refcnt < 0 {
		bk.lock.Release()
		panicInvariant("refcnt underflow for device %d block %d", b.Device, b.Block)
	}
	bk.lock.Release()
}

// Pin increments a buffer's reference count without requiring the sleep
// lock, keeping it resident even across intervening Release calls from
// other holders. Unpin undoes it. These mirror xv6's bpin/bunpin, used by
// callers such as a log layer that must keep a block cached across a
// multi-step transaction.
func (c *Cache) Pin(b *Buffer) {
	bk := c.buckets[c.hash(b.Device, b.Block)]
	bk.lock.Acquire()
	b.refcnt++
	bk.lock.Release()
}

func (c *Cache) Unpin(b *Buffer) {
	c.releaseIdentity(b)
}
