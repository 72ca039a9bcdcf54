package disk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileDevice backs each device number by its own regular file, one block
// every BlockSize bytes from offset zero — the file-backed analogue of
// xv6's virtio disk image.
type FileDevice struct {
	dir       string
	blockSize int

	mu    sync.Mutex
	files map[uint32]*os.File
}

// NewFileDevice creates a FileDevice rooted at dir; per-device files are
// created lazily on first use.
func NewFileDevice(dir string, blockSize int) (*FileDevice, error) {
	if blockSize <= 0 {
		return nil, errors.Errorf("disk: invalid block size %d", blockSize)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "disk: creating device directory %s", dir)
	}
	return &FileDevice{dir: dir, blockSize: blockSize, files: make(map[uint32]*os.File)}, nil
}

func (d *FileDevice) fileFor(device uint32) (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.files[device]; ok {
		return f, nil
	}

	path := filepath.Join(d.dir, fmt.Sprintf("dev-%d.img", device))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "disk: opening device %d", device)
	}
	d.files[device] = f
	return f, nil
}

// ReadBlock reads one block from device into into. A block never written to
// reads back as zeros, the same way a sparse file reads as zeros.
func (d *FileDevice) ReadBlock(device, block uint32, into []byte) error {
	if len(into) != d.blockSize {
		return errors.Errorf("disk: ReadBlock buffer length %d != block size %d", len(into), d.blockSize)
	}

	f, err := d.fileFor(device)
	if err != nil {
		return err
	}

	off := int64(block) * int64(d.blockSize)
	n, err := f.ReadAt(into, off)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return errors.Wrapf(err, "disk: reading device %d block %d", device, block)
	}
	for i := n; i < len(into); i++ {
		into[i] = 0
	}
	return nil
}

// WriteBlock writes one block to device from from.
func (d *FileDevice) WriteBlock(device, block uint32, from []byte) error {
	if len(from) != d.blockSize {
		return errors.Errorf("disk: WriteBlock buffer length %d != block size %d", len(from), d.blockSize)
	}

	f, err := d.fileFor(device)
	if err != nil {
		return err
	}

	off := int64(block) * int64(d.blockSize)
	if _, err := f.WriteAt(from, off); err != nil {
		return errors.Wrapf(err, "disk: writing device %d block %d", device, block)
	}
	return nil
}

// Close releases every open per-device file handle.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var first error
	for dev, f := range d.files {
		if err := f.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "disk: closing device %d", dev)
		}
	}
	if first != nil {
		return first
	}
	return nil
}
