// Package fallback tracks which compute device a workload should use and
// moves it from GPU to CPU when GPU execution fails.
package fallback

import (
	"sync"
	"sync/atomic"
	"time"

	"gpuguard/internal/logging"
)

// ExecutionFailedReason is recorded when Execute falls back after a GPU error.
const ExecutionFailedReason = "GPU execution failed"

// Event records one GPU to CPU transition. Events are never modified.
type Event struct {
	Timestamp    time.Time     `json:"timestamp"`
	FromDevice   ComputeDevice `json:"from_device"`
	ToDevice     ComputeDevice `json:"to_device"`
	Reason       string        `json:"reason"`
	ErrorDetails *string       `json:"error_details"`
}

// Status summarises the manager state
type Status struct {
	CurrentDevice       ComputeDevice `json:"current_device"`
	FallbackCount       uint32        `json:"fallback_count"`
	LastFallback        *Event        `json:"last_fallback"`
	AutoFallbackEnabled bool          `json:"auto_fallback_enabled"`
}

// Manager owns the current compute device and the fallback history.
// It is safe for concurrent use.
type Manager struct {
	deviceMu sync.RWMutex
	device   ComputeDevice

	historyMu    sync.RWMutex
	history      []Event
	historyLimit int

	autoMu       sync.RWMutex
	autoFallback bool

	count atomic.Uint32

	journal *Journal
	logger  *logging.Logger
	now     func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for device changes and fallbacks.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHistoryLimit keeps only the most recent n events; n <= 0 keeps all.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		m.historyLimit = n
	}
}

// WithAutoFallback sets the initial auto-fallback flag.
func WithAutoFallback(enabled bool) Option {
	return func(m *Manager) {
		m.autoFallback = enabled
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithJournal persists every fallback to j. History and status stay local
// to this process; readers of earlier runs load the journal themselves.
func WithJournal(j *Journal) Option {
	return func(m *Manager) {
		m.journal = j
	}
}

// NewManager creates a manager on the CPU with auto-fallback enabled.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		autoFallback: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithGPU creates a manager that starts on the given GPU.
func NewManagerWithGPU(id int32, name string, opts ...Option) *Manager {
	m := NewManager(opts...)
	m.device = GPU(id, name)
	return m
}

// CurrentDevice returns the device workloads should use now.
func (m *Manager) CurrentDevice() ComputeDevice {
	m.deviceMu.RLock()
	defer m.deviceMu.RUnlock()
	return m.device
}

// SetDevice replaces the current device without recording an event.
func (m *Manager) SetDevice(d ComputeDevice) {
	m.deviceMu.Lock()
	m.device = d
	m.deviceMu.Unlock()

	m.logger.Info("fallback.device.set", "Compute device set", map[string]interface{}{
		"device": d.String(),
	})
}

// SwitchToGPU selects a GPU
func (m *Manager) SwitchToGPU(id int32, name string) {
	m.deviceMu.Lock()
	m.device = GPU(id, name)
	m.deviceMu.Unlock()

	m.logger.Info("fallback.switch.gpu", "Switched to GPU mode", map[string]interface{}{
		"device_id": id,
		"name":      name,
	})
}

// SwitchToCPU selects the CPU without recording a fallback.
func (m *Manager) SwitchToCPU() {
	m.deviceMu.Lock()
	m.device = CPU()
	m.deviceMu.Unlock()

	m.logger.Info("fallback.switch.cpu", "Switched to CPU mode", nil)
}

// IsUsingGPU reports whether the current device is a GPU
func (m *Manager) IsUsingGPU() bool {
	return m.CurrentDevice().IsGPU()
}

// SetAutoFallback enables or disables automatic fallback in Execute.
func (m *Manager) SetAutoFallback(enabled bool) {
	m.autoMu.Lock()
	defer m.autoMu.Unlock()
	m.autoFallback = enabled
}

// IsAutoFallbackAllowed reports the auto-fallback flag
func (m *Manager) IsAutoFallbackAllowed() bool {
	m.autoMu.RLock()
	defer m.autoMu.RUnlock()
	return m.autoFallback
}

// FallbackCount returns the number of fallbacks since creation. It never
// decreases, even when old history entries are dropped.
func (m *Manager) FallbackCount() uint32 {
	return m.count.Load()
}

// History returns a copy of the retained fallback events, oldest first.
func (m *Manager) History() []Event {
	m.historyMu.RLock()
	defer m.historyMu.RUnlock()

	out := make([]Event, len(m.history))
	copy(out, m.history)
	return out
}

// TriggerFallback moves a GPU workload to the CPU and records why.
// It does nothing when the current device is already the CPU.
func (m *Manager) TriggerFallback(reason string, details *string) {
	m.deviceMu.Lock()
	from := m.device
	if !from.IsGPU() {
		m.deviceMu.Unlock()
		m.logger.Debug("fallback.skip", "Already on CPU, no fallback needed", nil)
		return
	}
	m.device = CPU()
	m.deviceMu.Unlock()

	event := Event{
		Timestamp:  m.now().UTC(),
		FromDevice: from,
		ToDevice:   CPU(),
		Reason:     reason,
	}
	if details != nil {
		d := *details
		event.ErrorDetails = &d
	}

	m.historyMu.Lock()
	m.history = append(m.history, event)
	if m.historyLimit > 0 && len(m.history) > m.historyLimit {
		m.history = append([]Event(nil), m.history[len(m.history)-m.historyLimit:]...)
	}
	m.historyMu.Unlock()

	m.count.Add(1)

	payload := map[string]interface{}{
		"from":   from.String(),
		"to":     event.ToDevice.String(),
		"reason": reason,
	}
	if details != nil {
		payload["details"] = *details
	}
	m.logger.Warn("fallback.triggered", "GPU fallback to CPU", payload)

	if m.journal != nil {
		if err := m.journal.Append(event); err != nil {
			m.logger.Warn("fallback.journal.write_failed", "Failed to persist fallback event", map[string]interface{}{
				"path":  m.journal.Path(),
				"error": err.Error(),
			})
		}
	}
}

// StatusSummary reports the current device, counter, last event and flag.
func (m *Manager) StatusSummary() Status {
	status := Status{
		CurrentDevice:       m.CurrentDevice(),
		FallbackCount:       m.FallbackCount(),
		AutoFallbackEnabled: m.IsAutoFallbackAllowed(),
	}

	m.historyMu.RLock()
	if n := len(m.history); n > 0 {
		last := m.history[n-1]
		status.LastFallback = &last
	}
	m.historyMu.RUnlock()

	return status
}
