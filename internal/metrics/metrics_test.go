package metrics

import (
	"testing"
	"time"

	"github.com/louix33/xv6kern/kernel/bcache"
	"github.com/louix33/xv6kern/kernel/disk"
	"github.com/louix33/xv6kern/kernel/kalloc"
	"github.com/stretchr/testify/require"
)

func TestReporterStartStopDoesNotHang(t *testing.T) {
	dev := disk.NewMemDevice(512, false)
	cache, err := bcache.New(bcache.Config{NBuf: 4, NBucket: 2, BlockSize: 512}, dev)
	require.NoError(t, err)

	alloc, err := kalloc.Init(kalloc.Config{PageSize: 4096, PhysTop: 8 * 4096, NumCPU: 2})
	require.NoError(t, err)

	r := NewReporter(cache, alloc, 5*time.Millisecond)
	r.Start()
	time.Sleep(20 * time.Millisecond)
	r.Stop()
}

func TestReporterToleratesNilSources(t *testing.T) {
	r := NewReporter(nil, nil, time.Millisecond)
	r.Start()
	time.Sleep(5 * time.Millisecond)
	r.Stop()
}
