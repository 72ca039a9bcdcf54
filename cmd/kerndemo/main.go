// Command kerndemo wires kernel/disk, kernel/bcache and kernel/kalloc
// together and drives a handful of concurrent readers, writers and
// allocators against them — a runnable smoke test in the same spirit as
// cmd/demo_buffer_pool_optimized/test_optimized_only.go.
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/louix33/xv6kern/internal/config"
	"github.com/louix33/xv6kern/internal/metrics"
	"github.com/louix33/xv6kern/kernel/bcache"
	"github.com/louix33/xv6kern/kernel/disk"
	"github.com/louix33/xv6kern/kernel/kalloc"
	"github.com/louix33/xv6kern/logger"
)

func main() {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		logger.Errorf("kerndemo: %v", err)
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "kerndemo-*")
	if err != nil {
		logger.Errorf("kerndemo: creating scratch dir: %v", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	dev, err := disk.NewFileDevice(dir, cfg.BlockSize)
	if err != nil {
		logger.Errorf("kerndemo: %v", err)
		os.Exit(1)
	}
	defer dev.Close()

	cache, err := bcache.New(bcache.Config{NBuf: cfg.NBuf, NBucket: cfg.NBucket, BlockSize: cfg.BlockSize}, dev)
	if err != nil {
		logger.Errorf("kerndemo: %v", err)
		os.Exit(1)
	}

	alloc, err := kalloc.Init(kalloc.Config{
		PageSize:  cfg.PageSize,
		KernelEnd: cfg.KernelEnd,
		PhysTop:   cfg.PhysTop,
		NumCPU:    cfg.NumCPU,
	})
	if err != nil {
		logger.Errorf("kerndemo: %v", err)
		os.Exit(1)
	}

	reporter := metrics.NewReporter(cache, alloc, 500*time.Millisecond)
	reporter.Start()
	defer reporter.Stop()

	runBufferWorkload(cache)
	runAllocatorWorkload(alloc)

	fmt.Println("bcache:", cache.Stats())
	fmt.Println("kalloc:", alloc.Stats())
}

func runBufferWorkload(cache *bcache.Cache) {
	const goroutines = 8
	const opsPerGoroutine = 200

	var wg sync.WaitGroup
	start := time.Now()

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				device := uint32(g % 3)
				block := uint32(i % 64)

				lb, err := cache.Read(device, block)
				if err != nil {
					logger.Errorf("kerndemo: read device %d block %d: %v", device, block, err)
					return
				}
				if i%2 == 0 {
					copy(lb.Data(), fmt.Sprintf("g=%d i=%d", g, i))
					if err := cache.Write(lb); err != nil {
						logger.Errorf("kerndemo: write device %d block %d: %v", device, block, err)
					}
				}
				cache.Release(lb)
			}
		}(g)
	}

	wg.Wait()
	logger.Infof("kerndemo: buffer workload finished in %v", time.Since(start))
}

func runAllocatorWorkload(alloc *kalloc.Allocator) {
	const goroutines = 8
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	start := time.Now()

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			held := make([]kalloc.Address, 0, 8)
			for i := 0; i < opsPerGoroutine; i++ {
				if len(held) < 8 {
					if addr, ok := alloc.Alloc(); ok {
						held = append(held, addr)
						continue
					}
				}
				if len(held) > 0 {
					alloc.Free(held[len(held)-1])
					held = held[:len(held)-1]
				}
			}
			for _, addr := range held {
				alloc.Free(addr)
			}
		}()
	}

	wg.Wait()
	logger.Infof("kerndemo: allocator workload finished in %v", time.Since(start))
}
