package config

// Config represents the complete gpuguard configuration
type Config struct {
	// Probe selects the system probe backend: auto, command, nvml or static.
	Probe        string            `yaml:"probe"`
	ProbeFixture string            `yaml:"probe_fixture"`
	Logging      LoggingConfig     `yaml:"logging"`
	Fallback     FallbackConfig    `yaml:"fallback"`
	Diagnostics  DiagnosticsConfig `yaml:"diagnostics"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// FallbackConfig controls the GPU to CPU fallback manager
type FallbackConfig struct {
	AutoFallback bool `yaml:"auto_fallback"`
	// HistoryLimit caps retained fallback events; 0 keeps everything.
	HistoryLimit int  `yaml:"history_limit"`
	StartOnGPU   bool `yaml:"start_on_gpu"`
	// ExclusiveGPU makes exec take a lease on its device and run on the CPU
	// when another process holds it.
	ExclusiveGPU bool `yaml:"exclusive_gpu"`
}

// DiagnosticsConfig controls diagnostic report collection
type DiagnosticsConfig struct {
	RecentErrors int    `yaml:"recent_errors"`
	LogDir       string `yaml:"log_dir"`
	OutputDir    string `yaml:"output_dir"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
