// Package probe abstracts the host queries that produce raw hardware facts.
//
// A Probe answers a fixed set of queries with plain text. Callers parse the
// text themselves, so a backend can be swapped per platform (shelling out to
// OS utilities, asking NVML, or replaying a fixture) without touching the
// detection logic.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Query names one kind of raw fact a probe can report.
type Query string

const (
	// QueryAdapters lists display adapters as CSV with a header line and
	// the columns Node,AdapterRAM,Name (AdapterRAM in bytes).
	QueryAdapters Query = "adapters"
	// QueryDriverVersion reports the NVIDIA driver version.
	QueryDriverVersion Query = "driver_version"
	// QueryCUDAVersion reports the CUDA runtime version as "major.minor".
	QueryCUDAVersion Query = "cuda_version"
	// QueryCUDABanner returns the nvidia-smi banner containing "CUDA Version: X.Y".
	QueryCUDABanner Query = "cuda_banner"
	// QueryOSVersion reports the operating system version string.
	QueryOSVersion Query = "os_version"
	// QueryCPUName reports "Name=<cpu model>".
	QueryCPUName Query = "cpu_name"
	// QueryTotalMemory reports "TotalPhysicalMemory=<bytes>".
	QueryTotalMemory Query = "total_memory"
)

// AllQueries lists every query in a stable order.
var AllQueries = []Query{
	QueryAdapters,
	QueryDriverVersion,
	QueryCUDAVersion,
	QueryCUDABanner,
	QueryOSVersion,
	QueryCPUName,
	QueryTotalMemory,
}

// ErrUnsupportedQuery is returned when a backend cannot answer a query.
var ErrUnsupportedQuery = errors.New("probe: unsupported query")

// Probe runs a host query and returns the text it produced.
type Probe interface {
	Query(ctx context.Context, q Query) (string, error)
}

// Func adapts an ordinary function to the Probe interface.
type Func func(ctx context.Context, q Query) (string, error)

// Query calls f(ctx, q).
func (f Func) Query(ctx context.Context, q Query) (string, error) {
	return f(ctx, q)
}

type chain []Probe

// Chain returns a probe that asks each backend in order and returns the
// first non-empty answer. When every backend fails the last error is returned.
func Chain(probes ...Probe) Probe {
	c := make(chain, 0, len(probes))
	for _, p := range probes {
		if p != nil {
			c = append(c, p)
		}
	}
	return c
}

func (c chain) Query(ctx context.Context, q Query) (string, error) {
	lastErr := fmt.Errorf("%w: %s", ErrUnsupportedQuery, q)
	for _, p := range c {
		out, err := p.Query(ctx, q)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(out) != "" {
			return out, nil
		}
	}
	return "", lastErr
}
