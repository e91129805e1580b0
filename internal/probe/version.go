package probe

import "fmt"

// FormatCUDAVersion converts NVML's integer CUDA version (e.g. 12020) to "12.2".
func FormatCUDAVersion(v int) string {
	return fmt.Sprintf("%d.%d", v/1000, (v%1000)/10)
}
