package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gpuguard/internal/diag"
	"gpuguard/internal/gpu"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff")).MarginBottom(1)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd700")).MarginTop(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af"))
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	descStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).PaddingLeft(2)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).MarginTop(1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#00d7ff")).Bold(true)
)

// renderMenu renders the main menu screen
func (m Model) renderMenu() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("gpuguard - Main Menu"))
	b.WriteString("\n\n")

	for i, item := range DefaultMenuItems() {
		text := fmt.Sprintf("[%s] %s", item.Key, item.Label)
		if i == m.selection {
			b.WriteString(selectedStyle.Render(text))
		} else {
			b.WriteString(valueStyle.Render(text))
		}
		b.WriteString("\n")
		b.WriteString(descStyle.Render(item.Description))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Navigate: ↑/↓ or numbers | Select: Enter/Space | Back: Esc | Quit: q"))
	b.WriteString("\n")

	m.writeFooter(&b)
	return b.String()
}

// renderDevicesScreen lists detected GPUs with their compatibility verdict
func (m Model) renderDevicesScreen() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("GPU Devices"))
	b.WriteString("\n\n")

	if !m.hasDetection || len(m.detection.Devices) == 0 {
		reason := "no GPU devices detected"
		if m.detection.FallbackReason != nil {
			reason = *m.detection.FallbackReason
		}
		b.WriteString(errorStyle.Render("No GPU: " + reason))
		b.WriteString("\n")
		b.WriteString(valueStyle.Render("Workloads will run on the CPU."))
		b.WriteString("\n")
	}

	for i, device := range m.detection.Devices {
		marker := "  "
		if m.detection.RecommendedDevice != nil && *m.detection.RecommendedDevice == i {
			marker = "★ "
		}
		b.WriteString(sectionStyle.Render(fmt.Sprintf("%s#%d %s", marker, device.DeviceID, device.DisplayName())))
		b.WriteString("\n")
		writeField(&b, "Vendor", string(device.Vendor))
		writeField(&b, "Architecture", device.Arch().DisplayName())
		writeField(&b, "VRAM", formatVRAM(device))
		writeField(&b, "Driver", optional(device.DriverVersion))
		writeField(&b, "CUDA", optional(device.RuntimeVersion))

		if device.Vendor == gpu.VendorNvidia {
			compat := gpu.CheckCompatibility(device)
			if compat.Compatible {
				b.WriteString(okStyle.Render("  ✓ compatible"))
			} else {
				b.WriteString(errorStyle.Render("  ✗ requires CUDA " + compat.RequiredVersion))
			}
			b.WriteString("\n")
		}

		rec := gpu.RecommendConfig(device)
		writeField(&b, "Profile", fmt.Sprintf("%d threads, %d MB, batch %d (%s)", rec.Threads, rec.MemoryLimitMB, rec.BatchSize, rec.Reason))
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Press 'r' to refresh, Esc to return to menu, 'q' to quit"))
	b.WriteString("\n")

	m.writeFooter(&b)
	return b.String()
}

// renderFallbackScreen shows the active compute device and fallback history
func (m Model) renderFallbackScreen() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Fallback Status"))
	b.WriteString("\n\n")

	status := m.manager.StatusSummary()
	writeField(&b, "Current device", status.CurrentDevice.String())
	writeField(&b, "Auto-fallback", onOff(status.AutoFallbackEnabled))
	writeField(&b, "Fallback count", fmt.Sprintf("%d", status.FallbackCount))

	history := m.manager.History()
	b.WriteString(sectionStyle.Render("History"))
	b.WriteString("\n")
	if len(history) == 0 {
		b.WriteString(descStyle.Render("no fallback events"))
		b.WriteString("\n")
	}
	for i := len(history) - 1; i >= 0; i-- {
		ev := history[i]
		line := fmt.Sprintf("%s  %s → %s  %s", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.FromDevice, ev.ToDevice, ev.Reason)
		b.WriteString(valueStyle.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("'g' GPU | 'c' CPU | 'f' trigger fallback | 'a' toggle auto | Esc menu | 'q' quit"))
	b.WriteString("\n")

	m.writeFooter(&b)
	return b.String()
}

// renderDiagnosticsScreen renders the last generated diagnostic report
func (m Model) renderDiagnosticsScreen() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Diagnostics"))
	b.WriteString("\n\n")

	if m.report == nil {
		b.WriteString(valueStyle.Render("No report generated yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(diag.RenderText(*m.report))
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Press 'r' or Enter to generate, Esc to return to menu, 'q' to quit"))
	b.WriteString("\n")

	m.writeFooter(&b)
	return b.String()
}

// renderHelpScreen renders the help screen
func (m Model) renderHelpScreen() string {
	var b strings.Builder

	keyStyle := labelStyle.Bold(true)

	b.WriteString(titleStyle.Render("Help - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		title string
		keys  [][2]string
	}{
		{"Navigation", [][2]string{
			{"1-3, ?      ", "Quick menu selection by key"},
			{"↑ / ↓       ", "Navigate menu items"},
			{"Enter/Space ", "Select highlighted item"},
			{"Esc         ", "Return to main menu"},
			{"q / Ctrl+C  ", "Quit gpuguard"},
		}},
		{"Devices Screen", [][2]string{
			{"r           ", "Re-run GPU detection"},
		}},
		{"Fallback Screen", [][2]string{
			{"g           ", "Switch to the recommended GPU"},
			{"c           ", "Switch to CPU"},
			{"f           ", "Trigger a manual fallback"},
			{"a           ", "Toggle auto-fallback"},
		}},
		{"Diagnostics Screen", [][2]string{
			{"r / Enter   ", "Generate a report"},
		}},
	}

	for _, s := range sections {
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, k := range s.keys {
			b.WriteString(keyStyle.Render(k[0]))
			b.WriteString(valueStyle.Render(k[1]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Press Esc to return to menu"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) writeFooter(b *strings.Builder) {
	if m.statusMessage != "" {
		b.WriteString("\n")
		b.WriteString(okStyle.Render(m.statusMessage))
		b.WriteString("\n")
	}
	if m.lastError != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("⚠ " + m.lastError))
		b.WriteString("\n")
	}
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %-15s", label+":")))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func optional(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}

func formatVRAM(d gpu.DeviceRecord) string {
	if d.MemoryMB == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d MB", *d.MemoryMB)
}

// navigateUp moves selection up in the menu
func (m Model) navigateUp() Model {
	if m.selection > 0 {
		m.selection--
	} else {
		// Wrap to bottom
		m.selection = len(DefaultMenuItems()) - 1
	}
	return m
}

// navigateDown moves selection down in the menu
func (m Model) navigateDown() Model {
	maxIndex := len(DefaultMenuItems()) - 1
	if m.selection < maxIndex {
		m.selection++
	} else {
		m.selection = 0
	}
	return m
}

// selectMenuItem handles menu item selection
func (m Model) selectMenuItem() Model {
	menuItems := DefaultMenuItems()
	if m.selection >= 0 && m.selection < len(menuItems) {
		m.currentScreen = menuItems[m.selection].Screen
		m.lastError = ""
		m.statusMessage = ""
	}
	return m
}

// selectMenuByKey handles direct menu selection by key press
func (m Model) selectMenuByKey(key string) Model {
	for i, item := range DefaultMenuItems() {
		if item.Key == key {
			m.selection = i
			m.currentScreen = item.Screen
			m.lastError = ""
			m.statusMessage = ""
			break
		}
	}
	return m
}

// returnToMenu returns to the main menu
func (m Model) returnToMenu() Model {
	m.currentScreen = ScreenMenu
	m.lastError = ""
	m.statusMessage = ""
	return m
}
