//go:build cuda

package probe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVMLDevice is the subset of nvml.Device the probe needs (for mocking)
type NVMLDevice interface {
	GetName() (string, nvml.Return)
	GetMemoryInfo() (nvml.Memory, nvml.Return)
}

// NVMLLibrary is the subset of the NVML API the probe needs (for mocking)
type NVMLLibrary interface {
	Init() nvml.Return
	Shutdown() nvml.Return
	DeviceGetCount() (int, nvml.Return)
	DeviceGetHandleByIndex(index int) (NVMLDevice, nvml.Return)
	SystemGetDriverVersion() (string, nvml.Return)
	SystemGetCudaDriverVersion() (int, nvml.Return)
}

type realNVML struct{}

func (realNVML) Init() nvml.Return     { return nvml.Init() }
func (realNVML) Shutdown() nvml.Return { return nvml.Shutdown() }

func (realNVML) DeviceGetCount() (int, nvml.Return) { return nvml.DeviceGetCount() }

func (realNVML) DeviceGetHandleByIndex(index int) (NVMLDevice, nvml.Return) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return nil, ret
	}
	return device, ret
}

func (realNVML) SystemGetDriverVersion() (string, nvml.Return) {
	return nvml.SystemGetDriverVersion()
}

func (realNVML) SystemGetCudaDriverVersion() (int, nvml.Return) {
	return nvml.SystemGetCudaDriverVersion()
}

// NVMLProbe answers the GPU queries from the NVIDIA management library.
// System queries (OS, CPU, memory) are unsupported.
type NVMLProbe struct {
	lib  NVMLLibrary
	node string
}

// NewNVMLProbe creates a probe backed by the real NVML library.
func NewNVMLProbe() (Probe, error) {
	return NewNVMLProbeWithLibrary(realNVML{}), nil
}

// NewNVMLProbeWithLibrary creates a probe with a custom NVML implementation (for testing)
func NewNVMLProbeWithLibrary(lib NVMLLibrary) *NVMLProbe {
	node, err := os.Hostname()
	if err != nil {
		node = "localhost"
	}
	return &NVMLProbe{lib: lib, node: node}
}

// Query answers q from NVML, initialising and shutting the library down per call.
func (p *NVMLProbe) Query(_ context.Context, q Query) (string, error) {
	switch q {
	case QueryAdapters, QueryDriverVersion, QueryCUDAVersion:
	default:
		return "", fmt.Errorf("%w: %s via nvml", ErrUnsupportedQuery, q)
	}

	if ret := p.lib.Init(); ret != nvml.SUCCESS {
		return "", fmt.Errorf("failed to initialize NVML: %v", nvml.ErrorString(ret))
	}
	defer p.lib.Shutdown()

	switch q {
	case QueryDriverVersion:
		v, ret := p.lib.SystemGetDriverVersion()
		if ret != nvml.SUCCESS {
			return "", fmt.Errorf("failed to get driver version: %v", nvml.ErrorString(ret))
		}
		return v, nil
	case QueryCUDAVersion:
		v, ret := p.lib.SystemGetCudaDriverVersion()
		if ret != nvml.SUCCESS {
			return "", fmt.Errorf("failed to get CUDA version: %v", nvml.ErrorString(ret))
		}
		return FormatCUDAVersion(v), nil
	default:
		return p.adapters()
	}
}

func (p *NVMLProbe) adapters() (string, error) {
	count, ret := p.lib.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return "", fmt.Errorf("failed to get device count: %v", nvml.ErrorString(ret))
	}

	var b strings.Builder
	b.WriteString("Node,AdapterRAM,Name\n")
	for i := 0; i < count; i++ {
		device, ret := p.lib.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		name, ret := device.GetName()
		if ret != nvml.SUCCESS || name == "" {
			continue
		}
		var total uint64
		if mem, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
			total = mem.Total
		}
		fmt.Fprintf(&b, "%s,%d,%s\n", p.node, total, strings.ReplaceAll(name, ",", " "))
	}
	return b.String(), nil
}
