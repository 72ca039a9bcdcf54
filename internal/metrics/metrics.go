// Package metrics periodically logs bcache/kalloc counters, the read-only
// analogue of the teacher's backgroundLRUMaintenance ticker loop — no
// eviction policy runs here, only observation.
package metrics

import (
	"sync"
	"time"

	"github.com/louix33/xv6kern/kernel/bcache"
	"github.com/louix33/xv6kern/kernel/kalloc"
	"github.com/louix33/xv6kern/logger"
)

// cacheStats and allocStats are the sources a Reporter reads counter
// snapshots from; bcache.Cache and kalloc.Allocator satisfy them.
type cacheStats interface {
	Stats() bcache.Stats
}

type allocStats interface {
	Stats() kalloc.Stats
}

// Reporter logs cache and allocator stats on a fixed interval until Stop is
// called, mirroring backgroundLRUMaintenance's stopChan/WaitGroup shutdown
// protocol.
type Reporter struct {
	cache  cacheStats
	alloc  allocStats
	period time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewReporter builds a Reporter over cache and alloc. Either may be nil if
// only one subsystem is being observed.
func NewReporter(cache cacheStats, alloc allocStats, period time.Duration) *Reporter {
	return &Reporter{cache: cache, alloc: alloc, period: period, stopChan: make(chan struct{})}
}

// Start launches the background logging goroutine. Each call starts one
// more goroutine, and Stop ends all of them. A Reporter cannot be restarted:
// after Stop its stop channel stays closed, so a second Stop panics.
func (r *Reporter) Start() {
	r.wg.Add(1)
	go r.run()
}

func (r *Reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.logOnce()
		}
	}
}

func (r *Reporter) logOnce() {
	if r.cache != nil {
		s := r.cache.Stats()
		logger.Infof("bcache stats: hits=%d misses=%d local_reuses=%d steals=%d", s.Hits, s.Misses, s.LocalReuses, s.Steals)
	}
	if r.alloc != nil {
		s := r.alloc.Stats()
		logger.Infof("kalloc stats: allocs=%d frees=%d steals=%d exhausted=%d", s.Allocs, s.Frees, s.Steals, s.Exhausted)
	}
}

// Stop signals the background goroutine and waits for it to exit.
func (r *Reporter) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}
