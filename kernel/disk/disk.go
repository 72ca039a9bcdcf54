// Package disk provides the disk_rw collaborator kernel/bcache is specified
// against. The real block device driver is out of scope for the cache
// itself; this package exists so the cache has something concrete and
// testable to call on a miss or an explicit write.
package disk

// Device is a synchronous block device: ReadBlock fills a buffer's data from
// stable storage, WriteBlock flushes it. Implementations must be safe for
// concurrent use by multiple devices/blocks; xv6's virtio_disk_rw serializes
// internally. MemDevice serializes every call under one mutex; FileDevice
// locks only its file table and relies on ReadAt/WriteAt being safe for
// concurrent use.
type Device interface {
	ReadBlock(device, block uint32, into []byte) error
	WriteBlock(device, block uint32, from []byte) error
}
