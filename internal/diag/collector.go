package diag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gpuguard/internal/fallback"
	"gpuguard/internal/gpu"
	"gpuguard/internal/logging"
	"gpuguard/internal/probe"
)

const unknown = "Unknown"

// Collector gathers diagnostic artifacts
type Collector struct {
	config   *Config
	probe    probe.Probe
	detector *gpu.Detector
	redactor *Redactor
	logger   *logging.Logger
	started  time.Time
	now      func() time.Time
}

// NewCollector creates a new diagnostic collector reading host facts from p
func NewCollector(config *Config, p probe.Probe, logger *logging.Logger) *Collector {
	started := config.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	return &Collector{
		config:   config,
		probe:    p,
		detector: gpu.NewDetector(p, logger),
		redactor: NewRedactor(),
		logger:   logger,
		started:  started,
		now:      time.Now,
	}
}

// Collect builds a report. m may be nil when no fallback manager exists.
func (c *Collector) Collect(ctx context.Context, m *fallback.Manager) Report {
	c.logger.Info("diag.collect.start", "Generating diagnostic report", nil)

	report := Report{
		ID:           uuid.New().String(),
		GeneratedAt:  c.now().UTC(),
		System:       c.CollectSystemInfo(ctx),
		Devices:      c.detector.Detect(ctx).Devices,
		Runtime:      c.CollectRuntimeInfo(m),
		RecentErrors: c.recentErrors(m),
	}

	c.logger.Info("diag.collect.complete", "Diagnostic report generated", map[string]interface{}{
		"report_id":     report.ID,
		"gpu_count":     len(report.Devices),
		"recent_errors": len(report.RecentErrors),
	})
	return report
}

// CollectSystemInfo queries OS version, CPU name and physical memory.
// Missing facts read as "Unknown" or 0.
func (c *Collector) CollectSystemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{
		OS:        runtime.GOOS,
		OSVersion: unknown,
		CPU:       unknown,
	}

	if out, err := c.probe.Query(ctx, probe.QueryOSVersion); err == nil {
		if v := strings.TrimSpace(out); v != "" {
			info.OSVersion = v
		}
	}

	if out, err := c.probe.Query(ctx, probe.QueryCPUName); err == nil {
		if v, ok := valueLine(out, "Name="); ok && v != "" {
			info.CPU = v
		}
	}

	if out, err := c.probe.Query(ctx, probe.QueryTotalMemory); err == nil {
		if v, ok := valueLine(out, "TotalPhysicalMemory="); ok {
			if bytes, err := strconv.ParseUint(v, 10, 64); err == nil {
				info.MemoryMB = bytes / 1024 / 1024
			}
		}
	}

	return info
}

// CollectRuntimeInfo reports version, current device, fallback count and uptime.
func (c *Collector) CollectRuntimeInfo(m *fallback.Manager) RuntimeInfo {
	info := RuntimeInfo{
		AppVersion:    c.config.Version,
		ComputeDevice: unknown,
		UptimeSeconds: uint64(c.now().Sub(c.started).Seconds()),
	}
	if m != nil {
		info.ComputeDevice = m.CurrentDevice().String()
		info.FallbackCount = m.FallbackCount()
	}
	return info
}

// recentErrors lists the newest fallbacks, oldest first, from the journal
// and the manager's own history.
func (c *Collector) recentErrors(m *fallback.Manager) []string {
	errs := make([]string, 0)
	if m == nil && c.config.JournalPath == "" {
		return errs
	}

	limit := c.config.RecentErrors
	if limit <= 0 {
		limit = 5
	}

	var session []fallback.Event
	if m != nil {
		session = m.History()
	}
	events := mergeEvents(c.journaledEvents(), session)
	if len(events) > limit {
		events = events[len(events)-limit:]
	}

	for _, e := range events {
		line := fmt.Sprintf("%s: %s", e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Reason)
		errs = append(errs, c.redactor.Redact(line))
	}
	return errs
}

// journaledEvents returns every fallback in the journal, oldest first.
func (c *Collector) journaledEvents() []fallback.Event {
	if c.config.JournalPath == "" {
		return nil
	}
	events, err := fallback.NewJournal(c.config.JournalPath, c.logger).Load(0)
	if err != nil {
		c.logger.Warn("diag.journal.read_failed", "Failed to read fallback journal", map[string]interface{}{
			"path":  c.config.JournalPath,
			"error": err.Error(),
		})
	}
	return events
}

// mergeEvents appends the session events that the journal does not already hold.
func mergeEvents(journaled, session []fallback.Event) []fallback.Event {
	merged := append([]fallback.Event(nil), journaled...)
	for _, ev := range session {
		seen := false
		for _, j := range journaled {
			if j.Timestamp.Equal(ev.Timestamp) && j.Reason == ev.Reason && j.FromDevice == ev.FromDevice {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, ev)
		}
	}
	return merged
}

func valueLine(text, prefix string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

// CollectLogs gathers *.log files below the log directory
func (c *Collector) CollectLogs() (map[string][]byte, error) {
	if !c.config.IncludeLogs {
		return nil, nil
	}

	files := make(map[string][]byte)

	if _, err := os.Stat(c.config.LogDir); os.IsNotExist(err) {
		c.logger.Warn("diag.collect.logs.missing", "Log directory not found", map[string]interface{}{
			"path": c.config.LogDir,
		})
		return files, nil
	}

	err := filepath.Walk(c.config.LogDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			c.logger.Warn("diag.collect.logs.walk_error", "Error accessing file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}

		if info.IsDir() || filepath.Ext(path) != ".log" {
			return nil
		}

		content, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- walking the configured log directory
		if err != nil {
			c.logger.Warn("diag.collect.logs.read_error", "Failed to read log file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}

		relPath, err := filepath.Rel(c.config.LogDir, path)
		if err != nil {
			relPath = filepath.Base(path)
		}

		files["logs/"+filepath.ToSlash(relPath)] = []byte(c.redactor.Redact(string(content)))
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to walk log directory: %w", err)
	}

	c.logger.Info("diag.collect.logs.complete", "Log collection complete", map[string]interface{}{
		"file_count": len(files),
	})

	return files, nil
}

// CollectConfig gathers and redacts the configuration file
func (c *Collector) CollectConfig() (map[string][]byte, error) {
	if !c.config.IncludeConfig {
		return nil, nil
	}

	files := make(map[string][]byte)

	if _, err := os.Stat(c.config.ConfigPath); os.IsNotExist(err) {
		c.logger.Warn("diag.collect.config.missing", "Config file not found", map[string]interface{}{
			"path": c.config.ConfigPath,
		})
		return files, nil
	}

	content, err := os.ReadFile(filepath.Clean(c.config.ConfigPath))
	if err != nil {
		c.logger.Error("diag.collect.config.read_error", "Failed to read config file", map[string]interface{}{
			"path":  c.config.ConfigPath,
			"error": err.Error(),
		})
		return files, fmt.Errorf("failed to read config: %w", err)
	}

	files["config/config.yaml"] = []byte(c.redactor.Redact(string(content)))

	c.logger.Info("diag.collect.config.complete", "Config collection complete", map[string]interface{}{
		"redacted": true,
	})

	return files, nil
}

// CalculateSHA256 computes SHA256 hash of data
func CalculateSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
