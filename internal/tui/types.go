package tui

import "time"

// Screen represents different TUI screens
type Screen string

const (
	// ScreenMenu is the main menu screen
	ScreenMenu Screen = "menu"
	// ScreenDevices lists detected GPUs and the compatibility verdict
	ScreenDevices Screen = "devices"
	// ScreenFallback shows and controls the fallback manager
	ScreenFallback Screen = "fallback"
	// ScreenDiagnostics renders a diagnostic report
	ScreenDiagnostics Screen = "diagnostics"
	// ScreenHelp shows help overlay
	ScreenHelp Screen = "help"
)

// MenuItem represents a menu item
type MenuItem struct {
	Key         string // Number key or letter
	Label       string
	Description string
	Screen      Screen
}

// UIState represents the persisted UI state
// Data contract: ui_state.json
type UIState struct {
	CurrentScreen Screen    `json:"menu"`
	Selection     int       `json:"selection"`
	LastError     string    `json:"last_error"`
	Updated       time.Time `json:"updated"`
}

// DefaultMenuItems returns the default main menu items
func DefaultMenuItems() []MenuItem {
	return []MenuItem{
		{Key: "1", Label: "Devices", Description: "Detected GPUs and CUDA compatibility", Screen: ScreenDevices},
		{Key: "2", Label: "Fallback", Description: "Current compute device and fallback history", Screen: ScreenFallback},
		{Key: "3", Label: "Diagnostics", Description: "Generate a diagnostic report", Screen: ScreenDiagnostics},
		{Key: "?", Label: "Help", Description: "Show help", Screen: ScreenHelp},
	}
}
