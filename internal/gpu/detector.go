package gpu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gpuguard/internal/fsutil"
	"gpuguard/internal/logging"
	"gpuguard/internal/probe"
)

const noDeviceReason = "no GPU devices detected"

// Detector handles GPU detection and reporting
type Detector struct {
	probe  probe.Probe
	logger *logging.Logger
}

// NewDetector creates a detector reading raw facts from p
func NewDetector(p probe.Probe, logger *logging.Logger) *Detector {
	return &Detector{
		probe:  p,
		logger: logger,
	}
}

// EnumerateDevices lists the display adapters reported by the probe.
// Probe failures degrade to an empty list.
func (d *Detector) EnumerateDevices(ctx context.Context) []DeviceRecord {
	out, err := d.probe.Query(ctx, probe.QueryAdapters)
	if err != nil {
		d.logger.Warn("gpu.enumerate.failed", "Adapter query failed", map[string]interface{}{
			"error": err.Error(),
		})
		return []DeviceRecord{}
	}

	devices := ParseAdapterList(out)
	for _, dev := range devices {
		d.logger.Info("gpu.device.detected", "GPU device detected", map[string]interface{}{
			"device_id": dev.DeviceID,
			"name":      dev.DisplayName(),
			"vendor":    string(dev.Vendor),
			"memory_mb": dev.VRAM(),
		})
	}
	return devices
}

// ParseAdapterList parses CSV adapter output (header line first, then
// Node,AdapterRAM,Name rows) into device records. Exact duplicate names
// keep only their first occurrence.
func ParseAdapterList(text string) []DeviceRecord {
	devices := make([]DeviceRecord, 0)
	seen := make(map[string]bool)

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}

		name := strings.TrimSpace(parts[2])
		if name == "" || strings.EqualFold(name, "name") || seen[name] {
			continue
		}
		seen[name] = true

		vendor := ClassifyVendor(name)
		record := DeviceRecord{
			Available:  true,
			Name:       ptr(name),
			DeviceID:   int32(len(devices)), // #nosec G115 -- adapter counts are tiny
			Vendor:     vendor,
			IsDiscrete: vendor.IsDiscrete(),
		}

		if bytes, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64); err == nil {
			if mb := bytes / 1024 / 1024; mb > 0 {
				record.MemoryMB = ptr(mb)
			}
		}

		if vendor == VendorNvidia {
			record.Architecture = ptr(ClassifyArchitecture(name))
		}

		devices = append(devices, record)
	}

	return devices
}

// Detect enumerates devices, enriches NVIDIA devices with driver and CUDA
// versions and picks the recommended device.
func (d *Detector) Detect(ctx context.Context) DetectionResult {
	d.logger.Info("gpu.detect.start", "Starting GPU detection", nil)

	devices := d.EnumerateDevices(ctx)
	if len(devices) == 0 {
		d.logger.Warn("gpu.detect.none", "No GPU devices detected", nil)
		return DetectionResult{
			Devices:        devices,
			FallbackReason: ptr(noDeviceReason),
		}
	}

	var driver, cuda *string
	queried := false
	for i := range devices {
		if devices[i].Vendor != VendorNvidia {
			continue
		}
		if !queried {
			driver = d.DriverVersion(ctx)
			cuda = d.RuntimeVersion(ctx)
			queried = true
		}
		devices[i].DriverVersion = driver
		devices[i].RuntimeVersion = cuda
	}

	result := DetectionResult{Devices: devices}
	if idx, ok := SelectRecommended(devices); ok {
		result.RecommendedDevice = ptr(idx)
		result.GPUAvailable = true
		d.logger.Info("gpu.detect.complete", "GPU detection complete", map[string]interface{}{
			"count":       len(devices),
			"recommended": devices[idx].DisplayName(),
		})
	} else {
		result.FallbackReason = ptr(noDeviceReason)
	}

	return result
}

// DriverVersion queries the NVIDIA driver version.
func (d *Detector) DriverVersion(ctx context.Context) *string {
	out, err := d.probe.Query(ctx, probe.QueryDriverVersion)
	if err != nil {
		d.logger.Debug("gpu.driver.version.failed", "Failed to get driver version", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if v := firstLine(out); v != "" && v != "N/A" {
		return ptr(v)
	}
	return nil
}

// RuntimeVersion queries the CUDA version, falling back to the
// "CUDA Version: X.Y" line of the nvidia-smi banner.
func (d *Detector) RuntimeVersion(ctx context.Context) *string {
	if out, err := d.probe.Query(ctx, probe.QueryCUDAVersion); err == nil {
		if v := firstLine(out); v != "" && v != "N/A" {
			return ptr(v)
		}
	}

	out, err := d.probe.Query(ctx, probe.QueryCUDABanner)
	if err != nil {
		d.logger.Debug("gpu.cuda.version.failed", "Failed to get CUDA version", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if v := ParseCUDABanner(out); v != "" {
		return ptr(v)
	}
	return nil
}

// ParseCUDABanner extracts the version following "CUDA Version:".
func ParseCUDABanner(banner string) string {
	for _, line := range strings.Split(banner, "\n") {
		_, after, found := strings.Cut(line, "CUDA Version:")
		if !found {
			continue
		}
		if fields := strings.Fields(after); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// SaveReport saves the detection result to a JSON file
func (d *Detector) SaveReport(result DetectionResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := fsutil.AtomicWriteFile(path, data, fsutil.DefaultFilePermissions, d.logger); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	d.logger.Info("gpu.report.saved", "GPU report saved", map[string]interface{}{
		"filepath": path,
	})

	return nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
