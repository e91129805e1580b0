// Package gpulock gives a process an exclusive, expiring lease on one GPU
// device so concurrent workloads do not share it.
package gpulock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gpuguard/internal/fsutil"
	"gpuguard/internal/logging"
)

// DefaultLeaseTimeout is how long a lease is honoured before it is treated as stale.
const DefaultLeaseTimeout = 6 * time.Hour

// Manager manages GPU lease acquisition and release
type Manager struct {
	stateDir     string
	logger       *logging.Logger
	leaseTimeout time.Duration
	now          func() time.Time
}

// NewManager creates a lease manager storing lock files in stateDir
func NewManager(stateDir string, logger *logging.Logger) *Manager {
	return &Manager{
		stateDir:     stateDir,
		logger:       logger,
		leaseTimeout: DefaultLeaseTimeout,
		now:          time.Now,
	}
}

// SetLeaseTimeout overrides the stale threshold
func (m *Manager) SetLeaseTimeout(d time.Duration) {
	m.leaseTimeout = d
}

func (m *Manager) lockPath(deviceID int32) string {
	return filepath.Join(m.stateDir, fmt.Sprintf("gpu%d.lock.json", deviceID))
}

// Acquire takes the lease on deviceID for holder. A lease held by the same
// holder is renewed; a stale lease is cleared. Any other live lease yields
// an error wrapping ErrHeld.
func (m *Manager) Acquire(deviceID int32, holder string) error {
	if holder == "" {
		return errors.New("holder must not be empty")
	}
	if err := fsutil.EnsureStateDirectory(m.stateDir); err != nil {
		return err
	}

	info := LockInfo{
		DeviceID: deviceID,
		Holder:   holder,
		PID:      os.Getpid(),
		SinceTS:  m.now().UTC(),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lease: %w", err)
	}

	// One retry after clearing a stale lease.
	for attempt := 0; attempt < 2; attempt++ {
		created, err := m.createExclusive(deviceID, data)
		if err != nil {
			return err
		}
		if created {
			m.logger.Info("gpu.lock.acquired", "GPU lease acquired", map[string]interface{}{
				"device_id": deviceID,
				"holder":    holder,
			})
			return nil
		}

		existing, err := m.load(deviceID)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read existing lease: %w", err)
		}

		if existing.Holder == holder {
			return fsutil.AtomicWriteFile(m.lockPath(deviceID), data, fsutil.DefaultFilePermissions, m.logger)
		}

		age := existing.Age(m.now())
		if age <= m.leaseTimeout {
			return fmt.Errorf("%w: device %d by %s (acquired %s ago)",
				ErrHeld, deviceID, existing.Holder, age.Round(time.Second))
		}

		m.logger.Warn("gpu.lock.stale_detected", "Stale GPU lease detected", map[string]interface{}{
			"device_id":      deviceID,
			"current_holder": existing.Holder,
			"age_seconds":    age.Seconds(),
		})
		if err := m.remove(deviceID); err != nil {
			return fmt.Errorf("failed to clear stale lease: %w", err)
		}
	}

	return fmt.Errorf("%w: device %d is contended", ErrHeld, deviceID)
}

func (m *Manager) createExclusive(deviceID int32, data []byte) (bool, error) {
	file, err := os.OpenFile(m.lockPath(deviceID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, fsutil.DefaultFilePermissions)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lease file: %w", err)
	}
	defer fsutil.CloseWithError(file.Close, m.logger, "GPU lease file")

	if _, err := file.Write(data); err != nil {
		return false, fmt.Errorf("failed to write lease file: %w", err)
	}
	return true, nil
}

// Release drops the lease on deviceID. Only the current holder may release it.
func (m *Manager) Release(deviceID int32, holder string) error {
	existing, err := m.load(deviceID)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("gpu.lock.release.no_lock", "No GPU lease to release", map[string]interface{}{
				"device_id": deviceID,
			})
			return nil
		}
		return fmt.Errorf("failed to read existing lease: %w", err)
	}

	if existing.Holder != holder {
		return fmt.Errorf("cannot release lease on device %d: held by %s, not %s", deviceID, existing.Holder, holder)
	}

	if err := m.remove(deviceID); err != nil {
		return err
	}

	m.logger.Info("gpu.lock.released", "GPU lease released", map[string]interface{}{
		"device_id": deviceID,
		"holder":    holder,
	})
	return nil
}

// Status returns the live lease on deviceID, or nil when the device is free
// or the lease is stale.
func (m *Manager) Status(deviceID int32) (*LockInfo, error) {
	info, err := m.load(deviceID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lease: %w", err)
	}
	if info.Age(m.now()) > m.leaseTimeout {
		return nil, nil
	}
	return info, nil
}

func (m *Manager) remove(deviceID int32) error {
	if err := os.Remove(m.lockPath(deviceID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lease file: %w", err)
	}
	return nil
}

func (m *Manager) load(deviceID int32) (*LockInfo, error) {
	data, err := os.ReadFile(m.lockPath(deviceID))
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lease: %w", err)
	}
	return &info, nil
}
