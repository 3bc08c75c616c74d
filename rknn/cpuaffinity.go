package rknn

import (
	"fmt"
	"sort"
	"strings"
	"syscall"
	"unsafe"
)

// CoreType selects a CPU cluster of a big.LITTLE Rockchip SoC
type CoreType int

const (
	FastCores CoreType = iota
	SlowCores
	AllCores
)

// ParseCoreType converts fast, slow or all to a CoreType
func ParseCoreType(name string) (CoreType, error) {

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fast":
		return FastCores, nil
	case "slow":
		return SlowCores, nil
	case "all", "":
		return AllCores, nil
	}

	return AllCores, fmt.Errorf("unknown core type %q, use fast, slow or all", name)
}

// cluster lists the CPU numbers of the fast and efficient cores of a SoC.
// SoCs with a single cluster list the same cores for both.
type cluster struct {
	fast []int
	slow []int
}

var platforms = map[string]cluster{
	// 4x A76 + 4x A55
	"rk3588": {fast: []int{4, 5, 6, 7}, slow: []int{0, 1, 2, 3}},
	// 2x A76 + 4x A55
	"rk3582": {fast: []int{4, 5}, slow: []int{0, 1, 2, 3}},
	// 4x A72 + 4x A53
	"rk3576": {fast: []int{4, 5, 6, 7}, slow: []int{0, 1, 2, 3}},
	"rk3568": {fast: []int{0, 1, 2, 3}, slow: []int{0, 1, 2, 3}},
	"rk3566": {fast: []int{0, 1, 2, 3}, slow: []int{0, 1, 2, 3}},
	"rk3562": {fast: []int{0, 1, 2, 3}, slow: []int{0, 1, 2, 3}},
}

// Platforms returns the known platform names
func Platforms() []string {

	names := make([]string, 0, len(platforms))

	for name := range platforms {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// PlatformCoreMask returns the affinity mask of a core type on a platform
func PlatformCoreMask(platform string, ct CoreType) (uintptr, error) {

	c, ok := platforms[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return 0, fmt.Errorf("unknown platform %q, use one of %s", platform,
			strings.Join(Platforms(), ", "))
	}

	switch ct {
	case FastCores:
		return CPUCoreMask(c.fast), nil
	case SlowCores:
		return CPUCoreMask(c.slow), nil
	default:
		return CPUCoreMask(c.fast) | CPUCoreMask(c.slow), nil
	}
}

// CPUCoreMask builds an affinity mask from CPU numbers, eg: []int{4,5,6,7}
func CPUCoreMask(cores []int) uintptr {

	var mask uintptr

	for _, core := range cores {
		mask |= 1 << core
	}

	return mask
}

// SetCPUAffinity pins the process to the cores in mask
func SetCPUAffinity(mask uintptr) error {

	_, _, errno := syscall.RawSyscall(syscall.SYS_SCHED_SETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if errno != 0 {
		return fmt.Errorf("failed to set CPU affinity: %w", errno)
	}

	return nil
}

// GetCPUAffinity returns the affinity mask the process runs with
func GetCPUAffinity() (uintptr, error) {

	var mask uintptr

	_, _, errno := syscall.RawSyscall(syscall.SYS_SCHED_GETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if errno != 0 {
		return 0, fmt.Errorf("failed to get CPU affinity: %w", errno)
	}

	return mask, nil
}

// SetCPUAffinityByPlatform pins the process to a core type of the platform
func SetCPUAffinityByPlatform(platform string, ct CoreType) error {

	mask, err := PlatformCoreMask(platform, ct)

	if err != nil {
		return err
	}

	return SetCPUAffinity(mask)
}
