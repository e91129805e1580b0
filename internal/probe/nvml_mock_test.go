//go:build cuda

package probe

import (
	"context"
	"strings"
	"testing"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

type mockNVML struct {
	initReturn    nvml.Return
	driverVersion string
	cudaVersion   int
	devices       []mockDevice
	shutdowns     int
}

type mockDevice struct {
	name        string
	memoryTotal uint64
	nameReturn  nvml.Return
}

func (m *mockNVML) Init() nvml.Return { return m.initReturn }

func (m *mockNVML) Shutdown() nvml.Return {
	m.shutdowns++
	return nvml.SUCCESS
}

func (m *mockNVML) DeviceGetCount() (int, nvml.Return) { return len(m.devices), nvml.SUCCESS }

func (m *mockNVML) DeviceGetHandleByIndex(index int) (NVMLDevice, nvml.Return) {
	if index < 0 || index >= len(m.devices) {
		return nil, nvml.ERROR_INVALID_ARGUMENT
	}
	return m.devices[index], nvml.SUCCESS
}

func (m *mockNVML) SystemGetDriverVersion() (string, nvml.Return) {
	return m.driverVersion, nvml.SUCCESS
}

func (m *mockNVML) SystemGetCudaDriverVersion() (int, nvml.Return) {
	return m.cudaVersion, nvml.SUCCESS
}

func (d mockDevice) GetName() (string, nvml.Return) { return d.name, d.nameReturn }

func (d mockDevice) GetMemoryInfo() (nvml.Memory, nvml.Return) {
	return nvml.Memory{Total: d.memoryTotal}, nvml.SUCCESS
}

func TestNVMLProbe_Adapters(t *testing.T) {
	lib := &mockNVML{
		initReturn: nvml.SUCCESS,
		devices: []mockDevice{
			{name: "NVIDIA GeForce RTX 4090", memoryTotal: 24 * 1024 * 1024 * 1024, nameReturn: nvml.SUCCESS},
			{name: "", nameReturn: nvml.ERROR_UNKNOWN},
		},
	}

	out, err := NewNVMLProbeWithLibrary(lib).Query(context.Background(), QueryAdapters)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 device, got %q", out)
	}
	if !strings.HasSuffix(lines[1], ",25769803776,NVIDIA GeForce RTX 4090") {
		t.Errorf("device line = %q", lines[1])
	}
	if lib.shutdowns != 1 {
		t.Errorf("expected NVML shutdown once, got %d", lib.shutdowns)
	}
}

func TestNVMLProbe_Versions(t *testing.T) {
	lib := &mockNVML{initReturn: nvml.SUCCESS, driverVersion: "535.104.05", cudaVersion: 12020}
	p := NewNVMLProbeWithLibrary(lib)

	driver, err := p.Query(context.Background(), QueryDriverVersion)
	if err != nil || driver != "535.104.05" {
		t.Errorf("driver = %q, %v", driver, err)
	}

	cuda, err := p.Query(context.Background(), QueryCUDAVersion)
	if err != nil || cuda != "12.2" {
		t.Errorf("cuda = %q, %v", cuda, err)
	}
}

func TestNVMLProbe_InitFailed(t *testing.T) {
	lib := &mockNVML{initReturn: nvml.ERROR_LIBRARY_NOT_FOUND}

	if _, err := NewNVMLProbeWithLibrary(lib).Query(context.Background(), QueryAdapters); err == nil {
		t.Error("expected error when NVML init fails")
	}
}

func TestNVMLProbe_SystemQueriesUnsupported(t *testing.T) {
	lib := &mockNVML{initReturn: nvml.SUCCESS}

	_, err := NewNVMLProbeWithLibrary(lib).Query(context.Background(), QueryCPUName)
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported error, got %v", err)
	}
}
