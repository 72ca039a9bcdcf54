//go:build !linux

package cpu

// sysNumCPU has no portable implementation outside Linux; DetectNumCPU falls
// back to gopsutil or runtime.NumCPU.
func sysNumCPU() (int, bool) {
	return 0, false
}
