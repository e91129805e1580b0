package diag

import (
	"fmt"
	"strings"
)

const (
	reportHeader = "========== Diagnostic Report =========="
	reportFooter = "======================================="
)

// RenderText renders a report as plain text with the sections System Info,
// GPU Info, Runtime Info and, when there are any, Recent Errors.
func RenderText(r Report) string {
	var b strings.Builder

	b.WriteString(reportHeader + "\n\n")
	fmt.Fprintf(&b, "Report ID: %s\n", r.ID)
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("--- System Info ---\n")
	fmt.Fprintf(&b, "OS: %s %s\n", r.System.OS, r.System.OSVersion)
	fmt.Fprintf(&b, "CPU: %s\n", r.System.CPU)
	fmt.Fprintf(&b, "Memory: %d MB\n\n", r.System.MemoryMB)

	b.WriteString("--- GPU Info ---\n")
	for i, d := range r.Devices {
		fmt.Fprintf(&b, "GPU %d: %s\n", i, d.DisplayName())
		fmt.Fprintf(&b, "  Vendor: %s\n", d.Vendor)
		if d.Architecture != nil {
			fmt.Fprintf(&b, "  Architecture: %s\n", d.Architecture.DisplayName())
		}
		if d.MemoryMB != nil {
			fmt.Fprintf(&b, "  VRAM: %d MB\n", *d.MemoryMB)
		}
		if d.DriverVersion != nil {
			fmt.Fprintf(&b, "  Driver: %s\n", *d.DriverVersion)
		}
		if d.RuntimeVersion != nil {
			fmt.Fprintf(&b, "  CUDA: %s\n", *d.RuntimeVersion)
		}
	}
	b.WriteString("\n")

	b.WriteString("--- Runtime Info ---\n")
	fmt.Fprintf(&b, "App version: %s\n", r.Runtime.AppVersion)
	fmt.Fprintf(&b, "Compute device: %s\n", r.Runtime.ComputeDevice)
	fmt.Fprintf(&b, "Fallback count: %d\n", r.Runtime.FallbackCount)
	fmt.Fprintf(&b, "Uptime: %d seconds\n\n", r.Runtime.UptimeSeconds)

	if len(r.RecentErrors) > 0 {
		b.WriteString("--- Recent Errors ---\n")
		for _, e := range r.RecentErrors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}

	b.WriteString("\n" + reportFooter + "\n")
	return b.String()
}
