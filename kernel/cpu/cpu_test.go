package cpu

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffinityRange(t *testing.T) {
	a := NewAffinity(4)
	for i := 0; i < 100; i++ {
		id := a.Current()
		require.GreaterOrEqual(t, id, 0)
		require.Less(t, id, 4)
	}
}

func TestAffinityConcurrentCallersStayInRange(t *testing.T) {
	a := NewAffinity(8)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := a.Current()
				assert.True(t, id >= 0 && id < 8)
			}
		}()
	}
	wg.Wait()
}

func TestNewAffinityPanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { NewAffinity(0) })
	assert.Panics(t, func() { NewAffinity(-1) })
}

func TestDetectNumCPUPositive(t *testing.T) {
	require.Greater(t, DetectNumCPU(), 0)
}
