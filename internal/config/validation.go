package config

import (
	"fmt"
	"slices"
)

const (
	// ProbeAuto picks NVML when compiled in, the command probe otherwise.
	ProbeAuto = "auto"
	// ProbeCommand shells out to platform utilities.
	ProbeCommand = "command"
	// ProbeNVML queries the NVIDIA management library.
	ProbeNVML = "nvml"
	// ProbeStatic replays canned probe output from probe_fixture.
	ProbeStatic = "static"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateProbe()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateFallback()...)
	errors = append(errors, c.validateDiagnostics()...)

	return errors
}

func (c *Config) validateProbe() []ValidationError {
	validProbes := []string{ProbeAuto, ProbeCommand, ProbeNVML, ProbeStatic}
	if !slices.Contains(validProbes, c.Probe) {
		return []ValidationError{{
			Path:    "probe",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validProbes, c.Probe),
		}}
	}

	if c.Probe == ProbeStatic && c.ProbeFixture == "" {
		return []ValidationError{{
			Path:    "probe_fixture",
			Message: "is required when probe is 'static'",
		}}
	}

	return nil
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
		})
	}

	validFormats := []string{"json", "text"}
	if !slices.Contains(validFormats, c.Logging.Format) {
		errors = append(errors, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validFormats, c.Logging.Format),
		})
	}

	return errors
}

func (c *Config) validateFallback() []ValidationError {
	if c.Fallback.HistoryLimit >= 0 {
		return nil
	}

	return []ValidationError{{
		Path:    "fallback.history_limit",
		Message: fmt.Sprintf("must be non-negative, got %d", c.Fallback.HistoryLimit),
	}}
}

func (c *Config) validateDiagnostics() []ValidationError {
	var errors []ValidationError

	if c.Diagnostics.RecentErrors < 1 || c.Diagnostics.RecentErrors > 100 {
		errors = append(errors, ValidationError{
			Path:    "diagnostics.recent_errors",
			Message: fmt.Sprintf("must be between 1 and 100, got %d", c.Diagnostics.RecentErrors),
		})
	}

	if c.Diagnostics.OutputDir == "" {
		errors = append(errors, ValidationError{
			Path:    "diagnostics.output_dir",
			Message: "must not be empty",
		})
	}

	return errors
}
