package kalloc

import (
	"fmt"

	"github.com/louix33/xv6kern/logger"
)

func panicMisaligned(addr Address, pageSize int) {
	msg := fmt.Sprintf("kalloc: Free called with misaligned address %#x (page size %d)", uint64(addr), pageSize)
	logger.Errorf("%s", msg)
	panic(msg)
}

func panicOutOfRange(addr Address, frames int) {
	msg := fmt.Sprintf("kalloc: Free called with out-of-range address %#x (%d frames managed)", uint64(addr), frames)
	logger.Errorf("%s", msg)
	panic(msg)
}
