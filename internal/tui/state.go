package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gpuguard/internal/fsutil"
	"gpuguard/internal/logging"
)

const (
	// UIStateFileName is the name of the UI state file
	UIStateFileName = "ui_state.json"
)

// UIStateManager persists the menu screen, selection and last error
type UIStateManager struct {
	stateDir string
	logger   *logging.Logger
}

// NewUIStateManager creates a new UI state manager
func NewUIStateManager(stateDir string, logger *logging.Logger) *UIStateManager {
	return &UIStateManager{
		stateDir: stateDir,
		logger:   logger,
	}
}

func (m *UIStateManager) getStatePath() string {
	return filepath.Join(m.stateDir, UIStateFileName)
}

// Load loads the UI state from disk, returning the menu state when no file exists
func (m *UIStateManager) Load() (*UIState, error) {
	data, err := os.ReadFile(m.getStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &UIState{
				CurrentScreen: ScreenMenu,
				Updated:       time.Now().UTC(),
			}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state UIState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	if !knownScreen(state.CurrentScreen) {
		state.CurrentScreen = ScreenMenu
		state.Selection = 0
	}

	return &state, nil
}

// Save saves the UI state to disk
func (m *UIStateManager) Save(state *UIState) error {
	if err := fsutil.EnsureStateDirectory(m.stateDir); err != nil {
		return err
	}

	state.Updated = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := fsutil.AtomicWriteFile(m.getStatePath(), data, fsutil.DefaultFilePermissions, m.logger); err != nil {
		return err
	}

	m.logger.Debug("tui.state.saved", "UI state saved", map[string]interface{}{
		"screen":    state.CurrentScreen,
		"selection": state.Selection,
	})

	return nil
}

func knownScreen(s Screen) bool {
	if s == ScreenMenu {
		return true
	}
	for _, item := range DefaultMenuItems() {
		if item.Screen == s {
			return true
		}
	}
	return false
}
