package gpu

import "strings"

type archMarker struct {
	arch    Architecture
	markers []string
}

var archTable = []archMarker{
	{ArchBlackwell, []string{"RTX 50", "RTX50"}},
	{ArchAdaLovelace, []string{"RTX 40", "RTX40"}},
	{ArchAmpere, []string{"RTX 30", "RTX30"}},
	{ArchTuring, []string{"RTX 20", "RTX20"}},
	{ArchTuring, []string{"GTX 16", "GTX16"}},
}

var minRuntimeVersion = map[Architecture]string{
	ArchTuring:      "10.0",
	ArchAmpere:      "11.0",
	ArchAdaLovelace: "11.8",
	ArchBlackwell:   "12.0",
	ArchUnknown:     "10.0",
}

// ClassifyArchitecture infers the NVIDIA generation from a product name.
func ClassifyArchitecture(name string) Architecture {
	upper := strings.ToUpper(name)
	for _, entry := range archTable {
		for _, m := range entry.markers {
			if strings.Contains(upper, m) {
				return entry.arch
			}
		}
	}
	return ArchUnknown
}

// RequiredVersion returns the minimum CUDA version for the architecture.
func RequiredVersion(arch Architecture) string {
	if v, ok := minRuntimeVersion[arch]; ok {
		return v
	}
	return minRuntimeVersion[ArchUnknown]
}
