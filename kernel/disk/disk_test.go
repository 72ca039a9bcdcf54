package disk

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
)

func TestMemDeviceRoundTrip(t *testing.T) {
	d := NewMemDevice(512, false)

	want := make([]byte, 512)
	for i := range want {
		want[i] = byte(i)
	}

	require.NoError(t, d.WriteBlock(1, 7, want))

	got := make([]byte, 512)
	require.NoError(t, d.ReadBlock(1, 7, got))
	require.Equal(t, want, got)
}

func TestMemDeviceUnwrittenBlockReadsZero(t *testing.T) {
	d := NewMemDevice(512, false)
	got := make([]byte, 512)
	for i := range got {
		got[i] = 0xFF
	}
	require.NoError(t, d.ReadBlock(1, 0, got))
	for _, b := range got {
		require.Zero(t, b)
	}
}

func TestMemDeviceStrictModeReturnsNotFound(t *testing.T) {
	d := NewMemDevice(512, true)
	got := make([]byte, 512)
	err := d.ReadBlock(1, 0, got)
	require.Error(t, err)
	require.True(t, errors.IsNotFound(err))
}

func TestMemDeviceCountsCalls(t *testing.T) {
	d := NewMemDevice(512, false)
	buf := make([]byte, 512)
	_ = d.ReadBlock(1, 0, buf)
	_ = d.WriteBlock(1, 0, buf)
	_ = d.WriteBlock(1, 1, buf)

	require.Equal(t, 1, d.Reads())
	require.Equal(t, 2, d.Writes())
}

func TestFileDeviceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d, err := NewFileDevice(dir, 512)
	require.NoError(t, err)
	defer d.Close()

	want := make([]byte, 512)
	for i := range want {
		want[i] = byte(255 - i)
	}

	require.NoError(t, d.WriteBlock(3, 2, want))

	got := make([]byte, 512)
	require.NoError(t, d.ReadBlock(3, 2, got))
	require.Equal(t, want, got)
}

func TestFileDeviceUnwrittenBlockReadsZero(t *testing.T) {
	dir := t.TempDir()
	d, err := NewFileDevice(dir, 256)
	require.NoError(t, err)
	defer d.Close()

	got := make([]byte, 256)
	require.NoError(t, d.ReadBlock(9, 100, got))
	for _, b := range got {
		require.Zero(t, b)
	}
}

func TestFileDeviceRejectsWrongBufferLength(t *testing.T) {
	dir := t.TempDir()
	d, err := NewFileDevice(dir, 512)
	require.NoError(t, err)
	defer d.Close()

	require.Error(t, d.ReadBlock(1, 0, make([]byte, 10)))
	require.Error(t, d.WriteBlock(1, 0, make([]byte, 10)))
}
