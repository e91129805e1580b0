package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"gpuguard/internal/logging"
)

const (
	// DefaultStateDir is the default location for gpuguard state files
	DefaultStateDir = "/var/lib/gpuguard"
	// EnvStateDir overrides the state directory.
	EnvStateDir = "GPUGUARD_STATE_DIR"
	// DefaultStatePermissions is the default permission for state directories
	DefaultStatePermissions = 0o750
	// DefaultFilePermissions is the default permission for state files
	DefaultFilePermissions = 0o600
)

// GetStateDir returns the state directory from environment or uses the provided default.
// It returns an absolute path when possible.
func GetStateDir(defaultDir string) string {
	if env := os.Getenv(EnvStateDir); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
		return env
	}
	return defaultDir
}

// EnsureStateDirectory creates the state directory if it doesn't exist.
func EnsureStateDirectory(path string) error {
	if err := os.MkdirAll(path, DefaultStatePermissions); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// AtomicWriteFile writes data to a temp file next to path and renames it
// into place, so readers never observe a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, logger *logging.Logger) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureStateDirectory(dir); err != nil {
			return err
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("fsutil.cleanup.failed", "Failed to remove temp file", map[string]interface{}{
				"path":  tmpPath,
				"error": removeErr.Error(),
			})
		}
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// CloseWithError closes a resource and logs any error. Meant for defer.
func CloseWithError(closer func() error, logger *logging.Logger, resource string) {
	if err := closer(); err != nil {
		logger.Warn("fsutil.close.failed", fmt.Sprintf("Failed to close %s", resource), map[string]interface{}{
			"error": err.Error(),
		})
	}
}
