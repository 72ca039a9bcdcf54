package bcache

import (
	"fmt"

	"github.com/louix33/xv6kern/logger"
)

// capacityError is raised when acquireOrAllocate finds no reusable buffer
// anywhere in the cache. It is always delivered via panic, never returned,
// matching spec.md's "capacity exhaustion, buffer cache" policy: the cache
// is sized wrong for the workload and there is no safe fallback.
type capacityError struct {
	device, block uint32
	nbuf          int
}

func (e *capacityError) Error() string {
	return fmt.Sprintf("bcache: no free buffer for device %d block %d (all %d buffers pinned)", e.device, e.block, e.nbuf)
}

func panicInvariant(format string, args ...interface{}) {
	msg := fmt.Sprintf("bcache: "+format, args...)
	logger.Errorf("%s", msg)
	panic(msg)
}
