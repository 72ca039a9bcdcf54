package disk

import (
	"sync"

	"github.com/juju/errors"
)

// MemDevice is an in-memory Device for tests: blocks live in a map keyed by
// (device, block) so unit tests never touch the filesystem, the same role
// the teacher's in-memory storage fakes play for buffer-pool tests.
type MemDevice struct {
	blockSize int

	mu     sync.Mutex
	blocks map[uint64][]byte
	reads  int
	writes int

	// strict, when true, makes ReadBlock of a block that was never written
	// return a juju/errors NotFound error instead of a zeroed block, so an
	// unexpected read of a never-written block fails loudly.
	strict bool
}

// NewMemDevice creates an in-memory device. When strict is true, reading an
// unwritten block is an error rather than a zero-filled block.
func NewMemDevice(blockSize int, strict bool) *MemDevice {
	return &MemDevice{
		blockSize: blockSize,
		blocks:    make(map[uint64][]byte),
		strict:    strict,
	}
}

func key(device, block uint32) uint64 {
	return uint64(device)<<32 | uint64(block)
}

func (d *MemDevice) ReadBlock(device, block uint32, into []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++

	if len(into) != d.blockSize {
		return errors.Errorf("disk: ReadBlock buffer length %d != block size %d", len(into), d.blockSize)
	}

	data, ok := d.blocks[key(device, block)]
	if !ok {
		if d.strict {
			return errors.NotFoundf("device %d block %d", device, block)
		}
		for i := range into {
			into[i] = 0
		}
		return nil
	}

	copy(into, data)
	return nil
}

func (d *MemDevice) WriteBlock(device, block uint32, from []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++

	if len(from) != d.blockSize {
		return errors.Errorf("disk: WriteBlock buffer length %d != block size %d", len(from), d.blockSize)
	}

	stored := make([]byte, d.blockSize)
	copy(stored, from)
	d.blocks[key(device, block)] = stored
	return nil
}

// Reads returns the number of ReadBlock calls observed so far.
func (d *MemDevice) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// Writes returns the number of WriteBlock calls observed so far.
func (d *MemDevice) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}
