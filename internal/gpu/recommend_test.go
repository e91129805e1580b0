package gpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func withVRAM(mb uint64) DeviceRecord {
	d := device("NVIDIA GeForce RTX 3080")
	d.MemoryMB = ptr(mb)
	return d
}

func TestRecommendConfig(t *testing.T) {
	tests := []struct {
		name   string
		device DeviceRecord
		want   RecommendedConfig
	}{
		{"10GB", withVRAM(10240), RecommendedConfig{Threads: 8, MemoryLimitMB: 7168, BatchSize: 4, Reason: "high performance profile (8GB+ VRAM)"}},
		{"6GB", withVRAM(6144), RecommendedConfig{Threads: 6, MemoryLimitMB: 4300, BatchSize: 2, Reason: "recommended profile (6GB VRAM)"}},
		{"4GB", withVRAM(4096), RecommendedConfig{Threads: 4, MemoryLimitMB: 2457, BatchSize: 1, Reason: "standard profile (4GB VRAM)"}},
		{"2GB", withVRAM(2048), RecommendedConfig{Threads: 2, MemoryLimitMB: 1024, BatchSize: 1, Reason: "low VRAM profile (2GB VRAM)"}},
		{"1GB", withVRAM(1024), RecommendedConfig{Threads: 4, BatchSize: 1, Reason: "insufficient VRAM, CPU mode advised"}},
		{"unavailable", UnavailableDevice(), RecommendedConfig{Threads: 4, BatchSize: 1, Reason: "GPU unavailable, using CPU mode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, RecommendConfig(tt.device)); diff != "" {
				t.Errorf("RecommendConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	gpu := withVRAM(8192)
	valid := RuntimeConfig{Enabled: true, Threads: 8, MemoryLimitMB: 4096, BatchSize: 4}

	tests := []struct {
		name    string
		cfg     RuntimeConfig
		device  DeviceRecord
		wantErr bool
	}{
		{"valid", valid, gpu, false},
		{"disabled on unavailable device", RuntimeConfig{}, UnavailableDevice(), false},
		{"enabled on unavailable device", valid, UnavailableDevice(), true},
		{"memory over VRAM", RuntimeConfig{Enabled: true, Threads: 8, MemoryLimitMB: 9000, BatchSize: 4}, gpu, true},
		{"zero threads", RuntimeConfig{Enabled: true, Threads: 0, MemoryLimitMB: 1024, BatchSize: 1}, gpu, true},
		{"too many threads", RuntimeConfig{Enabled: true, Threads: 33, MemoryLimitMB: 1024, BatchSize: 1}, gpu, true},
		{"zero batch", RuntimeConfig{Enabled: true, Threads: 4, MemoryLimitMB: 1024, BatchSize: 0}, gpu, true},
		{"batch too large", RuntimeConfig{Enabled: true, Threads: 4, MemoryLimitMB: 1024, BatchSize: 17}, gpu, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg, tt.device)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
