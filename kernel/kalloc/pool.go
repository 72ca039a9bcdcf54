package kalloc

import "github.com/louix33/xv6kern/kernel/lock"

// pool is one per-CPU freelist: a spin-lock guarding the head index of an
// intrusive singly-linked list threaded through Allocator.next. head == -1
// means empty, the Go stand-in for xv6's NULL struct run pointer.
type pool struct {
	lock *lock.SpinLock
	head int32
}

func newPool(name string) *pool {
	return &pool{lock: lock.NewSpinLock(name), head: -1}
}
