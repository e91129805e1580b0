package gpu

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed major.minor.patch triple
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return sign(int64(v.Major) - int64(o.Major))
	case v.Minor != o.Minor:
		return sign(int64(v.Minor) - int64(o.Minor))
	default:
		return sign(int64(v.Patch) - int64(o.Patch))
	}
}

func sign(n int64) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// ParseVersion parses up to three dot separated components. The major
// component must be numeric; missing or malformed minor and patch
// components read as 0.
func ParseVersion(s string) (Version, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")

	major, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Version{}, false
	}

	component := func(i int) uint32 {
		if i >= len(parts) {
			return 0
		}
		n, err := strconv.ParseUint(parts[i], 10, 32)
		if err != nil {
			return 0
		}
		return uint32(n)
	}

	return Version{Major: uint32(major), Minor: component(1), Patch: component(2)}, true
}

// CompareVersions returns -1, 0 or 1. An unparsable version sorts below
// any parsable one; two unparsable versions compare equal.
func CompareVersions(a, b string) int {
	va, okA := ParseVersion(a)
	vb, okB := ParseVersion(b)

	switch {
	case okA && okB:
		return va.compare(vb)
	case okA:
		return 1
	case okB:
		return -1
	default:
		return 0
	}
}

// CompatibilityResult is the outcome of a CUDA compatibility check
type CompatibilityResult struct {
	Compatible        bool    `json:"compatible"`
	CurrentVersion    *string `json:"current_version"`
	RequiredVersion   string  `json:"required_version"`
	UpgradeSuggestion *string `json:"upgrade_suggestion"`
}

// CheckCompatibility compares the device's CUDA version with the minimum
// its architecture needs. A missing version is never compatible.
func CheckCompatibility(device DeviceRecord) CompatibilityResult {
	arch := device.Arch()
	result := CompatibilityResult{
		CurrentVersion:  device.RuntimeVersion,
		RequiredVersion: RequiredVersion(arch),
	}

	if device.RuntimeVersion != nil {
		result.Compatible = CompareVersions(*device.RuntimeVersion, result.RequiredVersion) >= 0
	}

	if !result.Compatible {
		result.UpgradeSuggestion = ptr(UpgradeSuggestion(arch, device.RuntimeVersion))
	}
	return result
}

// UpgradeSuggestion renders remediation advice for an outdated CUDA runtime.
func UpgradeSuggestion(arch Architecture, current *string) string {
	currentInfo := "CUDA version not detected"
	if current != nil {
		currentInfo = "Current CUDA version: " + *current
	}

	return fmt.Sprintf(`%s

Your %s GPU requires CUDA %s or newer.

Recommended steps:
1. Open the NVIDIA driver download page: https://www.nvidia.com/drivers
2. Download and install the latest NVIDIA driver for your GPU
3. Restart the computer and run the application again

Note: current NVIDIA drivers ship the matching CUDA runtime.`,
		currentInfo, arch.DisplayName(), RequiredVersion(arch))
}

// CompatibilityReport renders a device summary and, for NVIDIA devices,
// the compatibility verdict.
func CompatibilityReport(device DeviceRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GPU: %s\n", device.DisplayName())
	fmt.Fprintf(&b, "Vendor: %s\n", device.Vendor)
	if device.Architecture != nil {
		fmt.Fprintf(&b, "Architecture: %s\n", device.Architecture.DisplayName())
	}
	if device.MemoryMB != nil {
		fmt.Fprintf(&b, "VRAM: %d MB\n", *device.MemoryMB)
	}
	if device.DriverVersion != nil {
		fmt.Fprintf(&b, "Driver version: %s\n", *device.DriverVersion)
	}
	if device.RuntimeVersion != nil {
		fmt.Fprintf(&b, "CUDA version: %s\n", *device.RuntimeVersion)
	}

	if device.Vendor == VendorNvidia {
		compat := CheckCompatibility(device)
		verdict := "✓ compatible"
		if !compat.Compatible {
			verdict = "✗ incompatible"
		}
		fmt.Fprintf(&b, "\nCompatibility: %s\n", verdict)
		fmt.Fprintf(&b, "Required CUDA version: %s\n", compat.RequiredVersion)
		if compat.UpgradeSuggestion != nil {
			fmt.Fprintf(&b, "\nUpgrade suggestion:\n%s\n", *compat.UpgradeSuggestion)
		}
	}

	return b.String()
}
