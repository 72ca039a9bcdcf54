package bcache

import "github.com/louix33/xv6kern/kernel/lock"

// Buffer is one cached disk block, the Go analogue of xv6's struct buf.
//
// Device, Block, and refcnt are protected by the bucket lock of the bucket
// the buffer currently lives in (derived from hash(Device, Block), never
// stored). Valid and Data are protected by Lock, the per-buffer sleep lock —
// a caller must hold Lock before trusting either. The reservation sequence
// in acquireOrAllocate writes Valid=false under the bucket lock and later
// Valid=true under the sleep lock; the release of one lock and acquire of
// the other by the same goroutine, followed by the next waiter acquiring
// that same lock, gives the happens-before edge that makes this safe
// without an atomic or a second mutex.
type Buffer struct {
	Device uint32
	Block  uint32
	Valid  bool

	refcnt int32

	Data []byte
	Lock *lock.SleepLock

	prev, next *Buffer
}

// LockedBuffer is the handle returned by Read: proof the caller holds the
// buffer's sleep lock and may read or write Data.
type LockedBuffer struct {
	buf *Buffer
}

func (lb *LockedBuffer) Device() uint32 { return lb.buf.Device }
func (lb *LockedBuffer) Block() uint32  { return lb.buf.Block }
func (lb *LockedBuffer) Valid() bool    { return lb.buf.Valid }
func (lb *LockedBuffer) Data() []byte   { return lb.buf.Data }

// Raw exposes the underlying Buffer for Pin/Unpin, which operate on buffer
// identity rather than the locked contents.
func (lb *LockedBuffer) Raw() *Buffer { return lb.buf }
