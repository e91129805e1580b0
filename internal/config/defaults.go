package config

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Probe: ProbeAuto,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Fallback: FallbackConfig{
			AutoFallback: true,
			HistoryLimit: 100,
			StartOnGPU:   true,
		},
		Diagnostics: DiagnosticsConfig{
			RecentErrors: 5,
			LogDir:       "/var/log/gpuguard",
			OutputDir:    ".",
		},
	}
}
