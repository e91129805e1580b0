package gpu

import (
	"errors"
	"fmt"
)

// RecommendedConfig is a VRAM tiered runtime configuration
type RecommendedConfig struct {
	Threads       uint32 `json:"threads"`
	MemoryLimitMB uint64 `json:"memory_limit_mb"`
	BatchSize     uint32 `json:"batch_size"`
	Reason        string `json:"reason"`
}

// RuntimeConfig is a user supplied GPU runtime configuration
type RuntimeConfig struct {
	Enabled       bool   `json:"enabled"`
	Threads       uint32 `json:"threads"`
	MemoryLimitMB uint64 `json:"memory_limit_mb"`
	BatchSize     uint32 `json:"batch_size"`
}

type vramTier struct {
	minMB        uint64
	threads      uint32
	limitPercent uint64
	batch        uint32
	reason       string
}

var vramTiers = []vramTier{
	{8192, 8, 70, 4, "high performance profile (8GB+ VRAM)"},
	{6144, 6, 70, 2, "recommended profile (6GB VRAM)"},
	{4096, 4, 60, 1, "standard profile (4GB VRAM)"},
	{2048, 2, 50, 1, "low VRAM profile (2GB VRAM)"},
}

// RecommendConfig suggests threads, memory limit and batch size for a device.
func RecommendConfig(device DeviceRecord) RecommendedConfig {
	if !device.Available {
		return RecommendedConfig{Threads: 4, BatchSize: 1, Reason: "GPU unavailable, using CPU mode"}
	}

	vram := device.VRAM()
	for _, tier := range vramTiers {
		if vram >= tier.minMB {
			return RecommendedConfig{
				Threads:       tier.threads,
				MemoryLimitMB: vram * tier.limitPercent / 100,
				BatchSize:     tier.batch,
				Reason:        tier.reason,
			}
		}
	}

	return RecommendedConfig{Threads: 4, BatchSize: 1, Reason: "insufficient VRAM, CPU mode advised"}
}

// ValidateConfig checks a runtime configuration against a device.
// A disabled configuration is always valid.
func ValidateConfig(cfg RuntimeConfig, device DeviceRecord) error {
	if !cfg.Enabled {
		return nil
	}
	if !device.Available {
		return errors.New("GPU unavailable, cannot enable GPU acceleration")
	}
	if vram := device.VRAM(); cfg.MemoryLimitMB > vram {
		return fmt.Errorf("memory limit (%d MB) exceeds available VRAM (%d MB)", cfg.MemoryLimitMB, vram)
	}
	if cfg.Threads == 0 || cfg.Threads > 32 {
		return errors.New("threads must be between 1 and 32")
	}
	if cfg.BatchSize == 0 || cfg.BatchSize > 16 {
		return errors.New("batch size must be between 1 and 16")
	}
	return nil
}
