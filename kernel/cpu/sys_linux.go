//go:build linux

package cpu

import "golang.org/x/sys/unix"

// sysNumCPU asks the kernel directly, via sched_getaffinity on pid 0, how
// many CPUs this process is allowed to run on — narrower than the raw host
// CPU count when running under a cgroup/cpuset, and the reason this probe
// sits ahead of runtime.NumCPU as a fallback.
func sysNumCPU() (int, bool) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 0, false
	}
	n := set.Count()
	return n, n > 0
}
