package kalloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedCPU is a cpuIdentity fake that always reports the same pool index,
// letting a test pin a goroutine to a specific pool instead of relying on
// cpu.Affinity's best-effort locality.
type fixedCPU struct{ id int }

func (f fixedCPU) Current() int { return f.id }

func testConfig(numCPU int, frames int) Config {
	const pageSize = 4096
	return Config{
		PageSize:  pageSize,
		KernelEnd: 0,
		PhysTop:   uint64(frames) * pageSize,
		NumCPU:    numCPU,
	}
}

func TestInitRejectsTooFewFramesForCPUCount(t *testing.T) {
	_, err := Init(testConfig(8, 4))
	require.Error(t, err)
}

func TestInitRejectsMisalignedKernelEnd(t *testing.T) {
	cfg := testConfig(1, 4)
	cfg.KernelEnd = 1
	_, err := Init(cfg)
	require.Error(t, err)
}

func TestAllocReturnsDistinctPageAlignedAddresses(t *testing.T) {
	a, err := Init(testConfig(1, 8))
	require.NoError(t, err)

	seen := map[Address]bool{}
	for i := 0; i < 8; i++ {
		addr, ok := a.Alloc()
		require.True(t, ok)
		require.False(t, seen[addr], "address reused while still live")
		require.Zero(t, uint64(addr)%4096)
		seen[addr] = true
	}

	_, ok := a.Alloc()
	require.False(t, ok, "allocator should be exhausted")
}

func TestFreeThenAllocReusesFrame(t *testing.T) {
	a, err := Init(testConfig(1, 2))
	require.NoError(t, err)

	addr1, ok := a.Alloc()
	require.True(t, ok)
	a.Free(addr1)

	addr2, ok := a.Alloc()
	require.True(t, ok)
	require.Equal(t, addr1, addr2)
}

func TestFreeMisalignedAddressPanics(t *testing.T) {
	a, err := Init(testConfig(1, 4))
	require.NoError(t, err)

	require.Panics(t, func() {
		a.Free(Address(1))
	})
}

func TestFreeOutOfRangeAddressPanics(t *testing.T) {
	a, err := Init(testConfig(1, 4))
	require.NoError(t, err)

	require.Panics(t, func() {
		a.Free(Address(100 * 4096))
	})
}

func TestAllFramesLandOnPoolZeroAfterInit(t *testing.T) {
	// Every frame is freed against pool 0 during Init; a single-CPU caller
	// (affinity always resolves to 0) must be able to drain the whole
	// arena without ever needing to steal.
	a, err := Init(testConfig(4, 16))
	require.NoError(t, err)
	a.affinity = fixedCPU{id: 0}

	for i := 0; i < 16; i++ {
		_, ok := a.Alloc()
		require.True(t, ok)
	}
	stats := a.Stats()
	require.Equal(t, uint64(16), stats.Allocs)
	require.Equal(t, uint64(0), stats.Steals)
}

func TestCrossPoolStealWhenHomePoolEmpty(t *testing.T) {
	// Init lands every frame on pool 0. Pinning the caller to pool 1 means
	// the local pop always misses, so the first Alloc must steal — the
	// allocator analogue of cache_test.go's TestCrossBucketStealWhenHomeBucketFull.
	a, err := Init(testConfig(4, 16))
	require.NoError(t, err)
	a.affinity = fixedCPU{id: 1}

	addr, ok := a.Alloc()
	require.True(t, ok)
	require.Equal(t, uint64(1), a.Stats().Steals)

	a.Free(addr)
}

func TestAddressesAreOffsetFromKernelEnd(t *testing.T) {
	cfg := testConfig(1, 4)
	cfg.KernelEnd = 10 * 4096
	cfg.PhysTop = cfg.KernelEnd + 4*4096

	a, err := Init(cfg)
	require.NoError(t, err)

	addr, ok := a.Alloc()
	require.True(t, ok)
	require.GreaterOrEqual(t, uint64(addr), cfg.KernelEnd)
	require.Zero(t, (uint64(addr)-cfg.KernelEnd)%4096)
}

func TestFreeBelowKernelEndPanics(t *testing.T) {
	cfg := testConfig(1, 4)
	cfg.KernelEnd = 10 * 4096
	cfg.PhysTop = cfg.KernelEnd + 4*4096

	a, err := Init(cfg)
	require.NoError(t, err)

	require.Panics(t, func() {
		a.Free(Address(0))
	})
}

func TestAllocAndFreeConserveFrameCount(t *testing.T) {
	a, err := Init(testConfig(4, 64))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				addr, ok := a.Alloc()
				if !ok {
					continue
				}
				a.Free(addr)
			}
		}()
	}
	wg.Wait()

	drained := 0
	for {
		if _, ok := a.Alloc(); !ok {
			break
		}
		drained++
	}
	require.Equal(t, 64, drained)
}
