//go:build !cuda

package probe

import "errors"

// ErrNVMLUnavailable is returned when the binary was built without the cuda tag.
var ErrNVMLUnavailable = errors.New("NVML disabled: rebuild with -tags cuda")

// NewNVMLProbe reports that NVML support is not compiled in.
func NewNVMLProbe() (Probe, error) {
	return nil, ErrNVMLUnavailable
}
