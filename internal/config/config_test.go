package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kerndemo.ini")
	const ini = `
[bcache]
n_buf = 60
n_bucket = 17
block_size = 2048

[kalloc]
num_cpu = 8
page_size = 4096
kernel_end = 0
phys_top = 4194304
`
	require.NoError(t, os.WriteFile(path, []byte(ini), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 60, cfg.NBuf)
	require.Equal(t, 17, cfg.NBucket)
	require.Equal(t, 8, cfg.NumCPU)
	require.Equal(t, uint64(4194304), cfg.PhysTop)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.Error(t, err)
}

func TestValidateRejectsBadSizing(t *testing.T) {
	cfg := Default()
	cfg.NBuf = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.PhysTop = cfg.KernelEnd
	require.Error(t, cfg.Validate())
}

func TestDumpAndLoadTOMLRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.toml")

	want := Default()
	want.NBuf = 42
	want.NumCPU = 6

	require.NoError(t, DumpTOML(want, path))

	got, err := LoadTOML(path)
	require.NoError(t, err)
	require.Equal(t, want.NBuf, got.NBuf)
	require.Equal(t, want.NumCPU, got.NumCPU)
	require.Equal(t, want.PageSize, got.PageSize)
}
