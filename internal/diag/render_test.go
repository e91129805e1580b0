package diag

import (
	"strings"
	"testing"
	"time"

	"gpuguard/internal/gpu"
)

func sampleReport() Report {
	name := "NVIDIA GeForce RTX 4090"
	arch := gpu.ArchAdaLovelace
	vram := uint64(24564)
	driver := "551.86"
	cuda := "12.4"

	return Report{
		ID:          "2f1c5c1e-4a7d-4f4e-9a53-0b6f0f4c2d11",
		GeneratedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		System:      SystemInfo{OS: "windows", OSVersion: "10.0.22631", CPU: "AMD Ryzen 9 7950X", MemoryMB: 65536},
		Devices: []gpu.DeviceRecord{{
			Available:      true,
			Name:           &name,
			MemoryMB:       &vram,
			DriverVersion:  &driver,
			RuntimeVersion: &cuda,
			Vendor:         gpu.VendorNvidia,
			Architecture:   &arch,
			IsDiscrete:     true,
		}},
		Runtime: RuntimeInfo{AppVersion: "1.0.0", ComputeDevice: "GPU:0 (NVIDIA GeForce RTX 4090)", UptimeSeconds: 42},
	}
}

func TestRenderText(t *testing.T) {
	text := RenderText(sampleReport())

	for _, want := range []string{
		"--- System Info ---",
		"--- GPU Info ---",
		"--- Runtime Info ---",
		"Generated: 2024-03-01 12:30:00 UTC",
		"OS: windows 10.0.22631",
		"Memory: 65536 MB",
		"GPU 0: NVIDIA GeForce RTX 4090",
		"  Architecture: Ada Lovelace",
		"  VRAM: 24564 MB",
		"  CUDA: 12.4",
		"Compute device: GPU:0 (NVIDIA GeForce RTX 4090)",
		"Uptime: 42 seconds",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}

	if strings.Contains(text, "Recent Errors") {
		t.Error("Recent Errors section should be omitted when empty")
	}
	if !strings.HasPrefix(text, reportHeader) || !strings.HasSuffix(text, reportFooter+"\n") {
		t.Error("report should start with the header and end with the footer")
	}
}

func TestRenderText_RecentErrors(t *testing.T) {
	r := sampleReport()
	r.RecentErrors = []string{"2024-03-01 12:00:00: GPU execution failed"}

	text := RenderText(r)
	if !strings.Contains(text, "--- Recent Errors ---\n  2024-03-01 12:00:00: GPU execution failed\n") {
		t.Errorf("recent errors not rendered:\n%s", text)
	}
}
