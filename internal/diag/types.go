package diag

import (
	"time"

	"gpuguard/internal/gpu"
)

// SystemInfo describes the host
type SystemInfo struct {
	OS        string `json:"os"`
	OSVersion string `json:"os_version"`
	CPU       string `json:"cpu"`
	MemoryMB  uint64 `json:"memory_mb"`
}

// RuntimeInfo describes the running process and its fallback state
type RuntimeInfo struct {
	AppVersion    string `json:"app_version"`
	ComputeDevice string `json:"compute_device"`
	FallbackCount uint32 `json:"fallback_count"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
}

// Report is a complete diagnostic snapshot
type Report struct {
	ID           string             `json:"id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	System       SystemInfo         `json:"system"`
	Devices      []gpu.DeviceRecord `json:"gpus"`
	Runtime      RuntimeInfo        `json:"runtime"`
	RecentErrors []string           `json:"recent_errors"`
}

// Manifest represents the diagnostic package manifest
type Manifest struct {
	Timestamp string         `json:"timestamp"`
	Host      string         `json:"host"`
	ReportID  string         `json:"report_id"`
	Version   string         `json:"gpuguard_version"`
	Files     []ManifestFile `json:"files"`
}

// ManifestFile represents a file in the diagnostic package
type ManifestFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// Config configures diagnostic collection
type Config struct {
	LogDir        string
	ConfigPath    string
	OutputPath    string
	IncludeLogs   bool
	IncludeConfig bool
	Version       string
	// RecentErrors caps the fallback events listed in a report.
	RecentErrors int
	// JournalPath adds fallbacks from earlier runs to the report when set.
	JournalPath string
	// Passphrase seals the package when non-empty.
	Passphrase string
	// StartedAt is the process start used for uptime; zero means collector creation.
	StartedAt time.Time
}

// NewConfig creates a default diagnostic config
func NewConfig(version string) *Config {
	return &Config{
		LogDir:        "/var/log/gpuguard",
		ConfigPath:    "/etc/gpuguard/config.yaml",
		OutputPath:    generateOutputPath(time.Now()),
		IncludeLogs:   true,
		IncludeConfig: true,
		Version:       version,
		RecentErrors:  5,
	}
}

func generateOutputPath(now time.Time) string {
	return "gpuguard-diag-" + now.UTC().Format("20060102-150405") + ".zip"
}
