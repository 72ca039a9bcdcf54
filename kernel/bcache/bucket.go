package bcache

import "github.com/louix33/xv6kern/kernel/lock"

// bucket is one hash bucket: a spin-lock guarding a circular doubly-linked
// list of buffers, headed by a sentinel node that is never itself a usable
// buffer. sentinel.next is the buffer most recently linked into the bucket
// (by New or by a steal); hits and local reuse do not reorder the list.
// Walking sentinel.next, .next.next, ... wraps back to sentinel.
//
// This mirrors xv6's bcache.bucket[i], a struct buf used purely as a list
// head. The fix applied here against the original source: a buffer stolen
// into this bucket gets prev = sentinel, never a raw pointer to the bucket
// array's base element.
type bucket struct {
	lock     *lock.SpinLock
	sentinel *Buffer
}

func newBucket(name string) *bucket {
	s := &Buffer{}
	s.prev, s.next = s, s
	return &bucket{lock: lock.NewSpinLock(name), sentinel: s}
}

// insertFront links b in immediately after the sentinel. Caller holds bk.lock.
func (bk *bucket) insertFront(b *Buffer) {
	b.next = bk.sentinel.next
	b.prev = bk.sentinel
	bk.sentinel.next.prev = b
	bk.sentinel.next = b
}

// unlink removes b from whichever list it is currently threaded into.
func (bk *bucket) unlink(b *Buffer) {
	b.prev.next = b.next
	b.next.prev = b.prev
	b.prev, b.next = nil, nil
}

// findByIdentity returns the buffer with the given (device, block) identity,
// or nil. Caller holds bk.lock.
func (bk *bucket) findByIdentity(device, block uint32) *Buffer {
	for b := bk.sentinel.next; b != bk.sentinel; b = b.next {
		if b.Device == device && b.Block == block {
			return b
		}
	}
	return nil
}

// findReusable returns a buffer with refcnt == 0, or nil. Caller holds bk.lock.
func (bk *bucket) findReusable() *Buffer {
	for b := bk.sentinel.next; b != bk.sentinel; b = b.next {
		if b.refcnt == 0 {
			return b
		}
	}
	return nil
}
