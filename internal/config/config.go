package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gpuguard/internal/configdir"
)

const (
	systemConfigFile = "config.yaml"
	userConfigDir    = ".gpuguard"
	userConfigFile   = "config.yaml"
)

// Load loads and merges configuration from system and user files
// Priority: defaults < system config < user config
func Load() (Config, error) {
	cfg := DefaultConfig()

	if err := mergeConfigFile(&cfg, SystemConfigPath()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load system config: %w", err)
		}
	}

	if userPath := UserConfigPath(); userPath != "" {
		if err := mergeConfigFile(&cfg, userPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("failed to load user config: %w", err)
			}
		}
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// LoadFrom loads configuration from a specific file path
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeConfigFile(&cfg, path); err != nil {
		return cfg, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// mergeConfigFile decodes a YAML file on top of cfg. Keys absent from the
// file keep their current value, so explicit false overrides a true default.
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is constructed from trusted sources
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(errs))
	for _, err := range errs {
		b.WriteString("  - " + err.Error() + "\n")
	}
	return b.String()
}

// SystemConfigPath returns the path to the system configuration file
func SystemConfigPath() string {
	return filepath.Join(configdir.ConfigDir(), systemConfigFile)
}

// UserConfigPath returns the path to the user configuration file
func UserConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, userConfigFile)
}
