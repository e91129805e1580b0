package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gpuguard/internal/diag"
	"gpuguard/internal/fallback"
	"gpuguard/internal/gpu"
	"gpuguard/internal/logging"
)

const (
	down = "down"

	manualFallbackReason = "manual fallback from console"
)

// Deps are the long-lived components the console drives
type Deps struct {
	Logger    *logging.Logger
	Detector  *gpu.Detector
	Manager   *fallback.Manager
	Collector *diag.Collector
	StateDir  string
}

// Model represents the TUI application state
type Model struct {
	startTime time.Time
	quitting  bool

	logger    *logging.Logger
	detector  *gpu.Detector
	manager   *fallback.Manager
	collector *diag.Collector

	// UI State
	currentScreen Screen
	selection     int
	lastError     string
	stateManager  *UIStateManager

	detection    gpu.DetectionResult
	hasDetection bool

	report        *diag.Report
	statusMessage string
}

// NewModel creates a new TUI model and runs an initial detection
func NewModel(deps Deps) Model {
	m := Model{
		startTime:     time.Now(),
		logger:        deps.Logger,
		detector:      deps.Detector,
		manager:       deps.Manager,
		collector:     deps.Collector,
		currentScreen: ScreenMenu,
		stateManager:  NewUIStateManager(deps.StateDir, deps.Logger),
	}

	if state, err := m.stateManager.Load(); err == nil {
		m.currentScreen = state.CurrentScreen
		m.selection = state.Selection
		m.lastError = state.LastError
	}

	m.loadDevices()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	key := keyMsg.String()

	if next, handled, cmd := m.handleQuitKeys(key); handled {
		return next, cmd
	}

	if next, handled := m.handleEscapeKey(key); handled {
		return next, nil
	}

	if next, handled := m.handleMenuNavigationKeys(key); handled {
		return next, nil
	}

	if next, handled := m.handleMenuSelectionKey(key); handled {
		return next, nil
	}

	if next, handled := m.handleShortcutKeys(key); handled {
		return next, nil
	}

	if next, handled := m.handleDevicesScreenKeys(key); handled {
		return next, nil
	}

	if next, handled := m.handleFallbackScreenKeys(key); handled {
		return next, nil
	}

	if next, handled := m.handleDiagnosticsScreenKeys(key); handled {
		return next, nil
	}

	return m, nil
}

func (m Model) handleQuitKeys(key string) (tea.Model, bool, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		m.saveState()
		return m, true, tea.Quit
	}
	return m, false, nil
}

func (m Model) handleEscapeKey(key string) (tea.Model, bool) {
	if key == "esc" && m.currentScreen != ScreenMenu {
		m = m.returnToMenu()
		m.saveState()
		return m, true
	}
	return m, false
}

func (m Model) handleMenuNavigationKeys(key string) (tea.Model, bool) {
	if m.currentScreen != ScreenMenu {
		return m, false
	}

	switch key {
	case "up", "k":
		return m.navigateUp(), true
	case down, "j":
		return m.navigateDown(), true
	}
	return m, false
}

func (m Model) handleMenuSelectionKey(key string) (tea.Model, bool) {
	if m.currentScreen != ScreenMenu {
		return m, false
	}

	if key == "enter" || key == " " {
		updated := m.selectMenuItem()
		updated.saveState()
		return updated, true
	}
	return m, false
}

func (m Model) handleShortcutKeys(key string) (tea.Model, bool) {
	switch key {
	case "1", "2", "3", "?":
		updated := m.selectMenuByKey(key)
		updated.saveState()
		return updated, true
	}
	return m, false
}

func (m Model) handleDevicesScreenKeys(key string) (tea.Model, bool) {
	if m.currentScreen != ScreenDevices {
		return m, false
	}

	if key == "r" {
		return m.refresh(), true
	}
	return m, false
}

func (m Model) handleFallbackScreenKeys(key string) (tea.Model, bool) {
	if m.currentScreen != ScreenFallback {
		return m, false
	}

	switch key {
	case "g":
		return m.switchToRecommendedGPU(), true
	case "c":
		m.manager.SwitchToCPU()
		m.statusMessage = "Switched to CPU"
		return m, true
	case "f":
		return m.triggerManualFallback(), true
	case "a":
		enabled := !m.manager.IsAutoFallbackAllowed()
		m.manager.SetAutoFallback(enabled)
		m.statusMessage = "Auto-fallback " + onOff(enabled)
		return m, true
	}
	return m, false
}

func (m Model) handleDiagnosticsScreenKeys(key string) (tea.Model, bool) {
	if m.currentScreen != ScreenDiagnostics {
		return m, false
	}

	if key == "r" || key == "enter" {
		return m.generateReport(), true
	}
	return m, false
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.currentScreen {
	case ScreenDevices:
		return m.renderDevicesScreen()
	case ScreenFallback:
		return m.renderFallbackScreen()
	case ScreenDiagnostics:
		return m.renderDiagnosticsScreen()
	case ScreenHelp:
		return m.renderHelpScreen()
	default:
		return m.renderMenu()
	}
}

func (m *Model) saveState() {
	state := &UIState{
		CurrentScreen: m.currentScreen,
		Selection:     m.selection,
		LastError:     m.lastError,
	}

	if err := m.stateManager.Save(state); err != nil {
		m.logger.Warn("tui.state.save_failed", "Failed to save UI state", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (m *Model) loadDevices() {
	if m.detector == nil {
		return
	}
	m.detection = m.detector.Detect(context.Background())
	m.hasDetection = true
}

func (m Model) refresh() Model {
	m.loadDevices()
	m.statusMessage = "Refreshed GPU detection"
	m.lastError = ""
	return m
}

func (m Model) switchToRecommendedGPU() Model {
	rec, ok := m.detection.Recommended()
	if !ok {
		m.lastError = "No GPU available to switch to"
		return m
	}
	m.manager.SwitchToGPU(rec.DeviceID, rec.DisplayName())
	m.statusMessage = "Switched to " + m.manager.CurrentDevice().String()
	m.lastError = ""
	return m
}

func (m Model) triggerManualFallback() Model {
	if !m.manager.IsUsingGPU() {
		m.statusMessage = "Already on CPU"
		return m
	}
	m.manager.TriggerFallback(manualFallbackReason, nil)
	m.statusMessage = "Fell back to CPU"
	return m
}

func (m Model) generateReport() Model {
	if m.collector == nil {
		m.lastError = "Diagnostics unavailable"
		return m
	}
	report := m.collector.Collect(context.Background(), m.manager)
	m.report = &report
	m.statusMessage = "Report " + report.ID + " generated"
	return m
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
