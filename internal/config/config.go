// Package config loads the sizing parameters for the buffer cache and page
// allocator, following server/conf's Cfg/ini.File pattern from the teacher:
// an INI file is the primary source, parsed section by section with typed
// defaults.
package config

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Config holds every tunable the demo and tests need to construct a
// bcache.Cache and a kalloc.Allocator.
type Config struct {
	Raw *ini.File `toml:"-"`

	// [bcache]
	NBuf      int `toml:"n_buf"`
	NBucket   int `toml:"n_bucket"`
	BlockSize int `toml:"block_size"`

	// [kalloc]
	NumCPU    int    `toml:"num_cpu"`
	PageSize  int    `toml:"page_size"`
	KernelEnd uint64 `toml:"kernel_end"`
	PhysTop   uint64 `toml:"phys_top"`
}

// Default mirrors xv6's NBUF=30/NBUCKET=13 buffer cache and a modest
// 256-frame, 4-CPU page pool, small enough for unit tests and the demo.
func Default() Config {
	return Config{
		Raw:       ini.Empty(),
		NBuf:      30,
		NBucket:   13,
		BlockSize: 1024,
		NumCPU:    4,
		PageSize:  4096,
		KernelEnd: 0,
		PhysTop:   256 * 4096,
	}
}

// Load reads path as an INI file, falling back to Default's values for any
// key that is absent, mirroring Cfg.Load's section-by-section parse but
// returning an error instead of os.Exit on failure.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := ini.Load(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: loading %s", path)
	}
	cfg.Raw = raw

	bc := raw.Section("bcache")
	cfg.NBuf = bc.Key("n_buf").MustInt(cfg.NBuf)
	cfg.NBucket = bc.Key("n_bucket").MustInt(cfg.NBucket)
	cfg.BlockSize = bc.Key("block_size").MustInt(cfg.BlockSize)

	ka := raw.Section("kalloc")
	cfg.NumCPU = ka.Key("num_cpu").MustInt(cfg.NumCPU)
	cfg.PageSize = ka.Key("page_size").MustInt(cfg.PageSize)
	cfg.KernelEnd = uint64(ka.Key("kernel_end").MustInt64(int64(cfg.KernelEnd)))
	cfg.PhysTop = uint64(ka.Key("phys_top").MustInt64(int64(cfg.PhysTop)))

	return cfg, nil
}

// Validate reports whether cfg's values are sane enough to build a Cache
// and an Allocator from, without touching either constructor.
func (c Config) Validate() error {
	if c.NBuf <= 0 || c.NBucket <= 0 || c.BlockSize <= 0 {
		return errors.Errorf("config: invalid bcache sizing %+v", c)
	}
	if c.NumCPU <= 0 || c.PageSize <= 0 || c.PhysTop <= c.KernelEnd {
		return errors.Errorf("config: invalid kalloc sizing %+v", c)
	}
	return nil
}
