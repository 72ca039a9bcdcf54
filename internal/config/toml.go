package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// snapshot is the TOML-serializable subset of Config: Raw is an *ini.File
// and does not round-trip through struct tags, so it is excluded.
type snapshot struct {
	NBuf      int    `toml:"n_buf"`
	NBucket   int    `toml:"n_bucket"`
	BlockSize int    `toml:"block_size"`
	NumCPU    int    `toml:"num_cpu"`
	PageSize  int    `toml:"page_size"`
	KernelEnd uint64 `toml:"kernel_end"`
	PhysTop   uint64 `toml:"phys_top"`
}

func (c Config) toSnapshot() snapshot {
	return snapshot{
		NBuf:      c.NBuf,
		NBucket:   c.NBucket,
		BlockSize: c.BlockSize,
		NumCPU:    c.NumCPU,
		PageSize:  c.PageSize,
		KernelEnd: c.KernelEnd,
		PhysTop:   c.PhysTop,
	}
}

// DumpTOML writes cfg's sizing parameters to path in TOML, the export
// format test fixtures read back with LoadTOML — a second, independent
// serialization of the same values the INI loader produces, useful for
// pinning a known-good configuration into a test golden file.
func DumpTOML(cfg Config, path string) error {
	b, err := toml.Marshal(cfg.toSnapshot())
	if err != nil {
		return errors.Wrap(err, "config: marshaling TOML snapshot")
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "config: writing %s", path)
	}
	return nil
}

// LoadTOML reads a snapshot written by DumpTOML, starting from Default for
// any field the file omits.
func LoadTOML(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: reading %s", path)
	}

	cfg := Default()
	snap := cfg.toSnapshot()
	if err := toml.Unmarshal(b, &snap); err != nil {
		return Config{}, errors.Wrapf(err, "config: unmarshaling %s", path)
	}

	cfg.NBuf, cfg.NBucket, cfg.BlockSize = snap.NBuf, snap.NBucket, snap.BlockSize
	cfg.NumCPU, cfg.PageSize = snap.NumCPU, snap.PageSize
	cfg.KernelEnd, cfg.PhysTop = snap.KernelEnd, snap.PhysTop
	return cfg, nil
}
