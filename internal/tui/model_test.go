package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gpuguard/internal/diag"
	"gpuguard/internal/fallback"
	"gpuguard/internal/gpu"
	"gpuguard/internal/logging"
	"gpuguard/internal/probe"
)

var rtxProbe = probe.Static{
	probe.QueryAdapters: "Node,AdapterRAM,Name\n" +
		"HOST,1073741824,Intel(R) UHD Graphics 630\n" +
		"HOST,10737418240,NVIDIA GeForce RTX 3080\n",
	probe.QueryDriverVersion: "551.86",
	probe.QueryCUDAVersion:   "12.4",
	probe.QueryOSVersion:     "Linux 6.8",
	probe.QueryCPUName:       "Name=Test CPU",
	probe.QueryTotalMemory:   "TotalPhysicalMemory=17179869184",
}

func newTestModelWithProbe(t *testing.T, p probe.Probe) Model {
	t.Helper()

	logger := logging.NewLogger(logging.LevelError)
	cfg := diag.NewConfig("test")
	cfg.LogDir = t.TempDir()
	cfg.IncludeLogs = false
	cfg.IncludeConfig = false

	return NewModel(Deps{
		Logger:    logger,
		Detector:  gpu.NewDetector(p, logger),
		Manager:   fallback.NewManager(fallback.WithLogger(logger)),
		Collector: diag.NewCollector(cfg, p, logger),
		StateDir:  t.TempDir(),
	})
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	return newTestModelWithProbe(t, rtxProbe)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case down:
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(key(k))
		next, ok := updated.(Model)
		if !ok {
			t.Fatal("Expected Model type from Update")
		}
		m = next
	}
	return m
}

func TestNewModel(t *testing.T) {
	m := newTestModel(t)

	if m.startTime.IsZero() {
		t.Error("Expected startTime to be set")
	}
	if m.currentScreen != ScreenMenu {
		t.Errorf("currentScreen = %s, want menu", m.currentScreen)
	}
	if !m.hasDetection || len(m.detection.Devices) != 2 {
		t.Fatalf("detection = %+v, want two devices", m.detection)
	}
	if m.Init() != nil {
		t.Error("Expected Init to return nil command")
	}
}

func TestModelUpdate_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := newTestModel(t)
			updated, cmd := m.Update(key(k))

			if !updated.(Model).quitting {
				t.Error("Expected quitting to be true")
			}
			if cmd == nil {
				t.Error("Expected quit command")
			}
			if updated.View() != "" {
				t.Error("Expected empty view when quitting")
			}
		})
	}
}

func TestModelUpdate_IgnoresNonKeyMessages(t *testing.T) {
	m := newTestModel(t)
	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if cmd != nil || updated.(Model).currentScreen != ScreenMenu {
		t.Error("window size message changed model")
	}
}

func TestMenuNavigation(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want int
	}{
		{"down", []string{down}, 1},
		{"j twice", []string{"j", "j"}, 2},
		{"up wraps to bottom", []string{"up"}, len(DefaultMenuItems()) - 1},
		{"down wraps to top", []string{down, down, down, down}, 0},
		{"k after j", []string{"j", "k"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(t, newTestModel(t), tt.keys...)
			if m.selection != tt.want {
				t.Errorf("selection = %d, want %d", m.selection, tt.want)
			}
		})
	}
}

func TestMenuSelection(t *testing.T) {
	tests := []struct {
		keys []string
		want Screen
	}{
		{[]string{"1"}, ScreenDevices},
		{[]string{"2"}, ScreenFallback},
		{[]string{"3"}, ScreenDiagnostics},
		{[]string{"?"}, ScreenHelp},
		{[]string{"enter"}, ScreenDevices},
		{[]string{down, " "}, ScreenFallback},
		{[]string{"3", "esc"}, ScreenMenu},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.keys, "+"), func(t *testing.T) {
			m := press(t, newTestModel(t), tt.keys...)
			if m.currentScreen != tt.want {
				t.Errorf("currentScreen = %s, want %s", m.currentScreen, tt.want)
			}
		})
	}
}

func TestDevicesScreen(t *testing.T) {
	m := press(t, newTestModel(t), "1")
	view := m.View()

	for _, want := range []string{"GPU Devices", "NVIDIA GeForce RTX 3080", "Ampere", "10240 MB", "compatible", "high performance profile"} {
		if !strings.Contains(view, want) {
			t.Errorf("devices view missing %q:\n%s", want, view)
		}
	}

	m = press(t, m, "r")
	if m.statusMessage != "Refreshed GPU detection" {
		t.Errorf("statusMessage = %q", m.statusMessage)
	}
}

func TestDevicesScreen_NoGPU(t *testing.T) {
	m := press(t, newTestModelWithProbe(t, probe.Static{probe.QueryAdapters: "Node,AdapterRAM,Name\n"}), "1")

	if !strings.Contains(m.View(), "no GPU devices detected") {
		t.Errorf("expected fallback reason in view:\n%s", m.View())
	}
}

func TestFallbackScreen_Controls(t *testing.T) {
	m := press(t, newTestModel(t), "2")

	m = press(t, m, "g")
	if !m.manager.IsUsingGPU() {
		t.Fatal("expected GPU after 'g'")
	}
	if got := m.manager.CurrentDevice().DeviceID; got != 1 {
		t.Errorf("DeviceID = %d, want recommended device 1", got)
	}

	m = press(t, m, "f")
	if m.manager.IsUsingGPU() {
		t.Error("expected CPU after manual fallback")
	}
	if m.manager.FallbackCount() != 1 {
		t.Errorf("FallbackCount = %d, want 1", m.manager.FallbackCount())
	}
	if !strings.Contains(m.View(), manualFallbackReason) {
		t.Errorf("history missing manual fallback:\n%s", m.View())
	}

	m = press(t, m, "f")
	if m.statusMessage != "Already on CPU" || m.manager.FallbackCount() != 1 {
		t.Errorf("second fallback on CPU changed state: %q count=%d", m.statusMessage, m.manager.FallbackCount())
	}

	m = press(t, m, "a")
	if m.manager.IsAutoFallbackAllowed() {
		t.Error("expected auto-fallback disabled after 'a'")
	}

	m = press(t, m, "g", "c")
	if m.manager.IsUsingGPU() {
		t.Error("expected CPU after 'c'")
	}
}

func TestFallbackScreen_NoGPU(t *testing.T) {
	m := press(t, newTestModelWithProbe(t, probe.Static{probe.QueryAdapters: "Node,AdapterRAM,Name\n"}), "2", "g")

	if m.lastError == "" {
		t.Error("expected error when switching to a missing GPU")
	}
	if m.manager.IsUsingGPU() {
		t.Error("manager switched to GPU without a device")
	}
}

func TestDiagnosticsScreen(t *testing.T) {
	m := press(t, newTestModel(t), "3")
	if !strings.Contains(m.View(), "No report generated yet.") {
		t.Errorf("unexpected initial view:\n%s", m.View())
	}

	m = press(t, m, "r")
	if m.report == nil {
		t.Fatal("expected report after 'r'")
	}

	view := m.View()
	for _, want := range []string{"Diagnostic Report", "NVIDIA GeForce RTX 3080", m.report.ID} {
		if !strings.Contains(view, want) {
			t.Errorf("diagnostics view missing %q", want)
		}
	}
}

func TestScreenKeysAreScoped(t *testing.T) {
	m := press(t, newTestModel(t), "g", "f", "r")

	if m.manager.IsUsingGPU() {
		t.Error("fallback key handled outside fallback screen")
	}
	if m.report != nil {
		t.Error("diagnostics key handled outside diagnostics screen")
	}
}

func TestHelpAndMenuViews(t *testing.T) {
	m := newTestModel(t)
	menu := m.View()
	for _, item := range DefaultMenuItems() {
		if !strings.Contains(menu, item.Label) {
			t.Errorf("menu missing %q", item.Label)
		}
	}

	help := press(t, m, "?").View()
	for _, want := range []string{"Keyboard Shortcuts", "Trigger a manual fallback", "Quit gpuguard"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestModel_RestoresPersistedScreen(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError)
	stateDir := t.TempDir()
	deps := Deps{
		Logger:   logger,
		Detector: gpu.NewDetector(rtxProbe, logger),
		Manager:  fallback.NewManager(),
		StateDir: stateDir,
	}

	m := NewModel(deps)
	m = press(t, m, "2")

	restored := NewModel(deps)
	if restored.currentScreen != ScreenFallback || restored.selection != 1 {
		t.Errorf("restored screen=%s selection=%d, want fallback/1", restored.currentScreen, restored.selection)
	}
}

func TestDiagnosticsScreen_NoCollector(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError)
	m := NewModel(Deps{
		Logger:   logger,
		Detector: gpu.NewDetector(rtxProbe, logger),
		Manager:  fallback.NewManager(),
		StateDir: t.TempDir(),
	})

	m = press(t, m, "3", "r")
	if m.lastError != "Diagnostics unavailable" {
		t.Errorf("lastError = %q", m.lastError)
	}
}
