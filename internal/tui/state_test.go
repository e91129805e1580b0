package tui

import (
	"os"
	"path/filepath"
	"testing"

	"gpuguard/internal/logging"
)

func TestUIStateManager_SaveAndLoad(t *testing.T) {
	manager := NewUIStateManager(t.TempDir(), logging.NewLogger(logging.LevelError))

	state := &UIState{
		CurrentScreen: ScreenFallback,
		Selection:     1,
		LastError:     "test error",
	}
	if err := manager.Save(state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.CurrentScreen != ScreenFallback || loaded.Selection != 1 || loaded.LastError != "test error" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Updated.IsZero() {
		t.Error("Expected Updated to be set on save")
	}
}

func TestUIStateManager_LoadMissingFile(t *testing.T) {
	manager := NewUIStateManager(t.TempDir(), nil)

	state, err := manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state.CurrentScreen != ScreenMenu || state.Selection != 0 {
		t.Errorf("default state = %+v", state)
	}
}

func TestUIStateManager_UnknownScreenResets(t *testing.T) {
	dir := t.TempDir()
	content := `{"menu":"models","selection":4,"last_error":""}`
	if err := os.WriteFile(filepath.Join(dir, UIStateFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	state, err := NewUIStateManager(dir, nil).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state.CurrentScreen != ScreenMenu || state.Selection != 0 {
		t.Errorf("state = %+v, want reset to menu", state)
	}
}

func TestUIStateManager_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, UIStateFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewUIStateManager(dir, nil).Load(); err == nil {
		t.Error("Load() should fail on corrupt state")
	}
}
