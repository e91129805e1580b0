package diag

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"gpuguard/internal/fallback"
	"gpuguard/internal/fsutil"
	"gpuguard/internal/logging"
)

// SealedSuffix is appended to the output path of sealed packages.
const SealedSuffix = ".sealed"

// Packager creates diagnostic ZIP packages
type Packager struct {
	config    *Config
	collector *Collector
	manager   *fallback.Manager
	logger    *logging.Logger
}

// NewPackager creates a new diagnostic packager. manager may be nil.
func NewPackager(config *Config, collector *Collector, manager *fallback.Manager, logger *logging.Logger) *Packager {
	return &Packager{
		config:    config,
		collector: collector,
		manager:   manager,
		logger:    logger,
	}
}

// CreatePackage creates a complete diagnostic package and returns its path
func (p *Packager) CreatePackage(ctx context.Context) (string, error) {
	p.logger.Info("diag.package.start", "Creating diagnostic package", map[string]interface{}{
		"output": p.config.OutputPath,
	})

	report := p.collector.Collect(ctx, p.manager)

	allFiles := make(map[string][]byte)

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	allFiles["report.json"] = reportJSON
	allFiles["report.txt"] = []byte(RenderText(report))

	logs, err := p.collector.CollectLogs()
	if err != nil {
		p.logger.Error("diag.package.logs_error", "Failed to collect logs", map[string]interface{}{
			"error": err.Error(),
		})
	}
	for path, content := range logs {
		allFiles[path] = content
	}

	cfg, err := p.collector.CollectConfig()
	if err != nil {
		p.logger.Error("diag.package.config_error", "Failed to collect config", map[string]interface{}{
			"error": err.Error(),
		})
	}
	for path, content := range cfg {
		allFiles[path] = content
	}

	manifestJSON, err := json.MarshalIndent(p.createManifest(report.ID, allFiles), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	allFiles["diag_manifest.json"] = manifestJSON

	archive, err := p.createZIP(allFiles)
	if err != nil {
		return "", fmt.Errorf("failed to create ZIP: %w", err)
	}

	outputPath := p.config.OutputPath
	if p.config.Passphrase != "" {
		archive, err = Seal(archive, p.config.Passphrase)
		if err != nil {
			return "", fmt.Errorf("failed to seal package: %w", err)
		}
		outputPath += SealedSuffix
	}

	if err := fsutil.AtomicWriteFile(outputPath, archive, fsutil.DefaultFilePermissions, p.logger); err != nil {
		return "", fmt.Errorf("failed to write package: %w", err)
	}

	p.logger.Info("diag.package.complete", "Diagnostic package created", map[string]interface{}{
		"output":     outputPath,
		"file_count": len(allFiles),
		"sealed":     p.config.Passphrase != "",
	})

	return outputPath, nil
}

func (p *Packager) createManifest(reportID string, files map[string][]byte) *Manifest {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	manifest := &Manifest{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Host:      hostname,
		ReportID:  reportID,
		Version:   p.config.Version,
		Files:     make([]ManifestFile, 0, len(files)),
	}

	for _, path := range sortedKeys(files) {
		content := files[path]
		manifest.Files = append(manifest.Files, ManifestFile{
			Path:      path,
			SizeBytes: int64(len(content)),
			SHA256:    CalculateSHA256(content),
		})
	}

	return manifest
}

func (p *Packager) createZIP(files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	for _, path := range sortedKeys(files) {
		writer, err := zipWriter.Create(path)
		if err != nil {
			p.logger.Warn("diag.package.zip.file_error", "Failed to add file to ZIP", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}

		if _, err := writer.Write(files[path]); err != nil {
			p.logger.Warn("diag.package.zip.write_error", "Failed to write file to ZIP", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ZIP writer: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys(files map[string][]byte) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
