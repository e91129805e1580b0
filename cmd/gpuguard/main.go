package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olekukonko/tablewriter"

	"gpuguard/internal/config"
	"gpuguard/internal/diag"
	"gpuguard/internal/fallback"
	"gpuguard/internal/fsutil"
	"gpuguard/internal/gpu"
	"gpuguard/internal/gpulock"
	"gpuguard/internal/gpuerr"
	"gpuguard/internal/logging"
	"gpuguard/internal/probe"
	"gpuguard/internal/tui"
)

const (
	version = "0.1.0-dev"

	cudaVisibleDevices = "CUDA_VISIBLE_DEVICES"
	gpuBusyReason      = "GPU busy"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries the per-invocation wiring shared by every command.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg    config.Config
	logger *logging.Logger
	probe  probe.Probe
}

type handler func(a *app, args []string) int

func run(args []string, stdout, stderr io.Writer) int {
	command := "tui"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	switch command {
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	case "version":
		fmt.Fprintf(stdout, "gpuguard version %s\n", version)
		return 0
	}

	h, ok := commandHandlers()[command]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}

	a, err := newApp(stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	defer func() {
		if err := a.logger.Close(); err != nil {
			fmt.Fprintf(stderr, "Failed to close log file: %v\n", err)
		}
	}()

	return h(a, args)
}

func commandHandlers() map[string]handler {
	return map[string]handler{
		"detect":   runDetect,
		"compat":   runCompat,
		"classify": runClassify,
		"exec":     runExec,
		"diag":     runDiag,
		"tui":      runTUI,
		"config":   runConfig,
	}
}

func newApp(stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return nil, err
	}

	p, err := buildProbe(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &app{stdout: stdout, stderr: stderr, cfg: cfg, logger: logger, probe: p}, nil
}

func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.File != "" {
		return logging.NewFileLogger(level, cfg.File)
	}
	return logging.NewWriterLogger(level, logging.Format(cfg.Format), stderr), nil
}

// buildProbe maps the configured probe name onto a backend. "auto" asks NVML
// first when it is compiled in and falls through to platform commands.
func buildProbe(cfg config.Config, logger *logging.Logger) (probe.Probe, error) {
	commands := probe.NewCommandProbe(probe.DefaultCommands())

	switch cfg.Probe {
	case config.ProbeStatic:
		return probe.LoadStatic(cfg.ProbeFixture)
	case config.ProbeCommand:
		return commands, nil
	case config.ProbeNVML:
		return probe.NewNVMLProbe()
	}

	nvmlProbe, err := probe.NewNVMLProbe()
	if err != nil {
		logger.Debug("probe.nvml.unavailable", "NVML probe unavailable, using commands", map[string]interface{}{
			"error": err.Error(),
		})
		return commands, nil
	}
	return probe.Chain(nvmlProbe, commands), nil
}

func (a *app) detector() *gpu.Detector {
	return gpu.NewDetector(a.probe, a.logger)
}

// newManager starts on the recommended GPU when one exists and the
// configuration asks for it. Fallbacks are appended to the journal so a later
// diag run can list them.
func (a *app) newManager(result gpu.DetectionResult) *fallback.Manager {
	opts := []fallback.Option{
		fallback.WithLogger(a.logger),
		fallback.WithHistoryLimit(a.cfg.Fallback.HistoryLimit),
		fallback.WithAutoFallback(a.cfg.Fallback.AutoFallback),
		fallback.WithJournal(fallback.NewJournal(fallback.DefaultJournalPath(), a.logger)),
	}

	if rec, ok := result.Recommended(); ok && a.cfg.Fallback.StartOnGPU {
		return fallback.NewManagerWithGPU(rec.DeviceID, rec.DisplayName(), opts...)
	}
	return fallback.NewManager(opts...)
}

func (a *app) diagConfig() *diag.Config {
	cfg := diag.NewConfig(version)
	cfg.LogDir = a.cfg.Diagnostics.LogDir
	cfg.ConfigPath = config.SystemConfigPath()
	cfg.RecentErrors = a.cfg.Diagnostics.RecentErrors
	cfg.JournalPath = fallback.DefaultJournalPath()
	cfg.OutputPath = filepath.Join(a.cfg.Diagnostics.OutputDir, cfg.OutputPath)
	return cfg
}

func runDetect(a *app, args []string) int {
	var savePath string
	asJSON := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--save":
			if i+1 >= len(args) {
				fmt.Fprintln(a.stderr, "Usage: gpuguard detect [--json] [--save PATH]")
				return 1
			}
			savePath = args[i+1]
			i++
		case "--json":
			asJSON = true
		}
	}

	detector := a.detector()
	result := detector.Detect(context.Background())

	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(a.stderr, "❌ Failed to encode detection result: %v\n", err)
			return 1
		}
		fmt.Fprintln(a.stdout, string(data))
	} else {
		printDeviceTable(a.stdout, result)
	}

	if savePath != "" {
		if err := detector.SaveReport(result, savePath); err != nil {
			fmt.Fprintf(a.stderr, "❌ Failed to save detection report: %v\n", err)
			return 1
		}
		fmt.Fprintf(a.stdout, "✓ Detection report saved to %s\n", savePath)
	}

	return 0
}

func printDeviceTable(w io.Writer, result gpu.DetectionResult) {
	if !result.GPUAvailable {
		reason := "no GPU devices detected"
		if result.FallbackReason != nil {
			reason = *result.FallbackReason
		}
		fmt.Fprintf(w, "❌ No GPU available: %s\n", reason)
		fmt.Fprintln(w, "   Workloads will run on the CPU.")
		return
	}

	data := make([][]string, 0, len(result.Devices))
	for i, d := range result.Devices {
		marker := ""
		if result.RecommendedDevice != nil && *result.RecommendedDevice == i {
			marker = "*"
		}
		vram := "-"
		if d.MemoryMB != nil {
			vram = fmt.Sprintf("%d MB", *d.MemoryMB)
		}
		data = append(data, []string{
			fmt.Sprintf("%d%s", d.DeviceID, marker),
			d.DisplayName(),
			string(d.Vendor),
			d.Arch().DisplayName(),
			vram,
			orDash(d.DriverVersion),
			orDash(d.RuntimeVersion),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "NAME", "VENDOR", "ARCHITECTURE", "VRAM", "DRIVER", "CUDA"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "* recommended device")
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func runCompat(a *app, _ []string) int {
	result := a.detector().Detect(context.Background())
	if len(result.Devices) == 0 {
		fmt.Fprintln(a.stdout, "No GPU devices detected.")
		printRecommendation(a.stdout, gpu.UnavailableDevice())
		return 0
	}

	incompatible := false
	for i, d := range result.Devices {
		if i > 0 {
			fmt.Fprintln(a.stdout)
		}
		fmt.Fprintln(a.stdout, gpu.CompatibilityReport(d))
		printRecommendation(a.stdout, d)

		if d.Vendor == gpu.VendorNvidia && !gpu.CheckCompatibility(d).Compatible {
			incompatible = true
		}
	}

	if incompatible {
		return 2
	}
	return 0
}

func printRecommendation(w io.Writer, d gpu.DeviceRecord) {
	rec := gpu.RecommendConfig(d)
	fmt.Fprintf(w, "Recommended runtime: %d threads, %d MB memory limit, batch size %d (%s)\n",
		rec.Threads, rec.MemoryLimitMB, rec.BatchSize, rec.Reason)
}

func runClassify(a *app, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: gpuguard classify MESSAGE...")
		return 1
	}

	structured := gpuerr.FromMessage(strings.Join(args, " "))
	structured.Log(a.logger)

	data, err := json.MarshalIndent(structured.UserResponse(), "", "  ")
	if err != nil {
		fmt.Fprintf(a.stderr, "❌ Failed to encode response: %v\n", err)
		return 1
	}
	fmt.Fprintln(a.stdout, string(data))
	return 0
}

// runExec runs a command on the recommended GPU and reruns it with the GPU
// hidden when the first attempt fails.
func runExec(a *app, args []string) int {
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: gpuguard exec -- COMMAND [ARGS...]")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	manager := a.newManager(a.detector().Detect(ctx))

	if a.cfg.Fallback.ExclusiveGPU && manager.IsUsingGPU() {
		release := a.leaseGPU(manager)
		defer release()
	}

	runWith := func(visible string) func(context.Context) (time.Duration, error) {
		return func(ctx context.Context) (time.Duration, error) {
			cmd := exec.CommandContext(ctx, args[0], args[1:]...) // #nosec G204 -- the user asked for this command
			cmd.Env = append(os.Environ(), cudaVisibleDevices+"="+visible)
			cmd.Stdin = os.Stdin
			cmd.Stdout = a.stdout
			cmd.Stderr = a.stderr
			start := time.Now()
			err := cmd.Run()
			return time.Since(start), err
		}
	}

	gpuRun := func(ctx context.Context) (time.Duration, error) {
		device := manager.CurrentDevice()
		elapsed, err := runWith(strconv.Itoa(int(device.DeviceID)))(ctx)
		if err != nil {
			gpuerr.FromMessage(err.Error()).WithDeviceID(device.DeviceID).Log(a.logger)
		}
		return elapsed, err
	}

	elapsed, usedGPU, err := fallback.ExecuteContext(ctx, manager, gpuRun, runWith(""))

	if !usedGPU && manager.FallbackCount() > 0 && manager.StatusSummary().LastFallback.Reason == fallback.ExecutionFailedReason {
		last := manager.StatusSummary().LastFallback
		fmt.Fprintf(a.stderr, "⚠️  GPU run failed, retried on CPU (%s → %s)\n", last.FromDevice, last.ToDevice)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(a.stderr, "❌ %v\n", err)
		}
		return exitCode(err)
	}

	a.logger.Info("exec.complete", "Command finished", map[string]interface{}{
		"command":     args[0],
		"device":      manager.CurrentDevice().String(),
		"used_gpu":    usedGPU,
		"duration_ms": elapsed.Milliseconds(),
	})
	return 0
}

// leaseGPU takes the lease on the manager's device. When another process
// holds it the manager falls back to the CPU before anything runs.
func (a *app) leaseGPU(manager *fallback.Manager) func() {
	device := manager.CurrentDevice()
	leases := gpulock.NewManager(fsutil.GetStateDir(fsutil.DefaultStateDir), a.logger)
	holder := fmt.Sprintf("exec:%d", os.Getpid())

	if err := leases.Acquire(device.DeviceID, holder); err != nil {
		details := err.Error()
		manager.TriggerFallback(gpuBusyReason, &details)
		fmt.Fprintf(a.stderr, "⚠️  %s, running on CPU\n", details)
		return func() {}
	}

	return func() {
		if err := leases.Release(device.DeviceID, holder); err != nil {
			a.logger.Warn("gpu.lock.release_failed", "Failed to release GPU lease", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

type diagOptions struct {
	text           bool
	output         string
	passphraseFile string
	noLogs         bool
	noConfig       bool
}

func parseDiagOptions(args []string) (diagOptions, error) {
	var opts diagOptions
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--text":
			opts.text = true
		case "--no-logs":
			opts.noLogs = true
		case "--no-config":
			opts.noConfig = true
		case "--output", "--seal-passphrase-file", "--passphrase-file":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", arg)
			}
			if arg == "--output" {
				opts.output = args[i+1]
			} else {
				opts.passphraseFile = args[i+1]
			}
			i++
		default:
			return opts, fmt.Errorf("unknown option: %s", arg)
		}
	}
	return opts, nil
}

func readPassphrase(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase file: %w", err)
	}
	passphrase := strings.TrimRight(string(data), "\r\n")
	if passphrase == "" {
		return "", errors.New("passphrase file is empty")
	}
	return passphrase, nil
}

func runDiag(a *app, args []string) int {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			printDiagUsage(a.stdout)
			return 0
		}
	}
	if len(args) > 0 && args[0] == "unseal" {
		return runDiagUnseal(a, args[1:])
	}

	opts, err := parseDiagOptions(args)
	if err != nil {
		fmt.Fprintf(a.stderr, "❌ %v\n", err)
		printDiagUsage(a.stderr)
		return 1
	}

	ctx := context.Background()
	cfg := a.diagConfig()
	cfg.IncludeLogs = !opts.noLogs
	cfg.IncludeConfig = !opts.noConfig
	if opts.output != "" {
		cfg.OutputPath = opts.output
	}
	if opts.passphraseFile != "" {
		if cfg.Passphrase, err = readPassphrase(opts.passphraseFile); err != nil {
			fmt.Fprintf(a.stderr, "❌ %v\n", err)
			return 1
		}
	}

	collector := diag.NewCollector(cfg, a.probe, a.logger)
	manager := a.newManager(a.detector().Detect(ctx))

	if opts.text {
		fmt.Fprint(a.stdout, diag.RenderText(collector.Collect(ctx, manager)))
		return 0
	}

	fmt.Fprintln(a.stdout, "Creating diagnostic package...")
	fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)
	fmt.Fprintf(a.stdout, "  Logs: %v\n", cfg.IncludeLogs)
	fmt.Fprintf(a.stdout, "  Config: %v\n", cfg.IncludeConfig)
	fmt.Fprintf(a.stdout, "  Sealed: %v\n", cfg.Passphrase != "")
	fmt.Fprintln(a.stdout)

	path, err := diag.NewPackager(cfg, collector, manager, a.logger).CreatePackage(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "❌ Failed to create diagnostic package: %v\n", err)
		return 1
	}

	fmt.Fprintln(a.stdout, "✓ Diagnostic package created successfully")
	fmt.Fprintf(a.stdout, "  Path: %s\n", path)
	if info, err := os.Stat(path); err == nil {
		fmt.Fprintf(a.stdout, "  Size: %s\n", formatBytes(info.Size()))
	}
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "All sensitive data has been redacted.")
	return 0
}

func runDiagUnseal(a *app, args []string) int {
	if len(args) == 0 {
		printDiagUsage(a.stderr)
		return 1
	}
	input := args[0]

	opts, err := parseDiagOptions(args[1:])
	if err != nil || opts.passphraseFile == "" {
		fmt.Fprintln(a.stderr, "❌ unseal requires --passphrase-file")
		printDiagUsage(a.stderr)
		return 1
	}

	passphrase, err := readPassphrase(opts.passphraseFile)
	if err != nil {
		fmt.Fprintf(a.stderr, "❌ %v\n", err)
		return 1
	}

	sealed, err := os.ReadFile(filepath.Clean(input))
	if err != nil {
		fmt.Fprintf(a.stderr, "❌ Failed to read package: %v\n", err)
		return 1
	}

	archive, err := diag.Open(sealed, passphrase)
	if err != nil {
		fmt.Fprintf(a.stderr, "❌ %v\n", err)
		return 1
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, diag.SealedSuffix)
		if output == input {
			output = input + ".zip"
		}
	}

	if err := fsutil.AtomicWriteFile(output, archive, fsutil.DefaultFilePermissions, a.logger); err != nil {
		fmt.Fprintf(a.stderr, "❌ Failed to write package: %v\n", err)
		return 1
	}

	fmt.Fprintf(a.stdout, "✓ Package unsealed to %s\n", output)
	return 0
}

func printDiagUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: gpuguard diag [--text] [--output PATH] [--no-logs] [--no-config] [--seal-passphrase-file FILE]")
	fmt.Fprintln(w, "       gpuguard diag unseal PACKAGE --passphrase-file FILE [--output PATH]")
}

func runTUI(a *app, _ []string) int {
	startTime := time.Now()
	a.logger.Info("app.started", "Application started", map[string]interface{}{
		"version": version,
		"ts":      startTime.UTC().Format(time.RFC3339),
	})

	detector := a.detector()
	manager := a.newManager(detector.Detect(context.Background()))

	cfg := a.diagConfig()
	cfg.StartedAt = startTime

	model := tui.NewModel(tui.Deps{
		Logger:    a.logger,
		Detector:  detector,
		Manager:   manager,
		Collector: diag.NewCollector(cfg, a.probe, a.logger),
		StateDir:  fsutil.GetStateDir(fsutil.DefaultStateDir),
	})

	exitReason := "normal"
	if _, err := tea.NewProgram(model).Run(); err != nil {
		exitReason = "error"
		a.logger.Error("app.error", "Application error", map[string]interface{}{
			"error": err.Error(),
		})
		fmt.Fprintf(a.stderr, "Error running TUI: %v\n", err)
	}

	a.logger.Info("app.exited", "Application exited", map[string]interface{}{
		"reason":      exitReason,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	if exitReason != "normal" {
		return 1
	}
	return 0
}

func runConfig(a *app, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: gpuguard config <subcommand>")
		fmt.Fprintln(a.stderr, "Subcommands:")
		fmt.Fprintln(a.stderr, "  test [path]  Test configuration file for validity")
		fmt.Fprintln(a.stderr, "  show         Print the effective configuration")
		return 1
	}

	switch strings.ToLower(args[0]) {
	case "test":
		return runConfigTest(a, args[1:])
	case "show":
		data, err := config.Marshal(a.cfg)
		if err != nil {
			fmt.Fprintf(a.stderr, "❌ %v\n", err)
			return 1
		}
		fmt.Fprint(a.stdout, string(data))
		return 0
	default:
		fmt.Fprintf(a.stderr, "Unknown config subcommand: %s\n", args[0])
		fmt.Fprintln(a.stderr, "Valid subcommands: test, show")
		return 1
	}
}

func runConfigTest(a *app, args []string) int {
	var cfg config.Config
	var err error

	if len(args) > 0 {
		fmt.Fprintf(a.stdout, "Testing configuration file: %s\n", args[0])
		cfg, err = config.LoadFrom(args[0])
	} else {
		fmt.Fprintln(a.stdout, "Testing configuration (system + user merge):")
		fmt.Fprintf(a.stdout, "  System config: %s\n", config.SystemConfigPath())
		if userPath := config.UserConfigPath(); userPath != "" {
			fmt.Fprintf(a.stdout, "  User config:   %s\n", userPath)
		}
		fmt.Fprintln(a.stdout)
		cfg, err = config.Load()
	}

	if err != nil {
		fmt.Fprintln(a.stderr, "❌ Configuration validation FAILED:")
		fmt.Fprintf(a.stderr, "   %v\n", err)
		a.logger.Error("config.validation.error", "Configuration validation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return 1
	}

	fmt.Fprintln(a.stdout, "✓ Configuration is VALID")
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Configuration Summary:")
	fmt.Fprintf(a.stdout, "  Probe:                %s\n", cfg.Probe)
	fmt.Fprintf(a.stdout, "  Log Level:            %s\n", cfg.Logging.Level)
	fmt.Fprintf(a.stdout, "  Log Format:           %s\n", cfg.Logging.Format)
	fmt.Fprintf(a.stdout, "  Auto-fallback:        %t\n", cfg.Fallback.AutoFallback)
	fmt.Fprintf(a.stdout, "  History Limit:        %d\n", cfg.Fallback.HistoryLimit)
	fmt.Fprintf(a.stdout, "  Start on GPU:         %t\n", cfg.Fallback.StartOnGPU)
	fmt.Fprintf(a.stdout, "  Diagnostics Output:   %s\n", cfg.Diagnostics.OutputDir)

	a.logger.Info("config.validation.ok", "Configuration validation passed", map[string]interface{}{
		"probe": cfg.Probe,
	})
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "gpuguard - GPU detection, compatibility checks and CPU fallback")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gpuguard                     Start the interactive console")
	fmt.Fprintln(w, "  gpuguard detect [--json] [--save PATH]")
	fmt.Fprintln(w, "                               List GPUs and the recommended device")
	fmt.Fprintln(w, "  gpuguard compat              Check CUDA compatibility per device")
	fmt.Fprintln(w, "  gpuguard classify MESSAGE... Map an error message to an error code")
	fmt.Fprintln(w, "  gpuguard exec -- CMD...      Run CMD on the GPU, rerun on CPU if it fails")
	fmt.Fprintln(w, "  gpuguard diag [options]      Create a diagnostic package (see diag --help)")
	fmt.Fprintln(w, "  gpuguard diag unseal FILE --passphrase-file F")
	fmt.Fprintln(w, "  gpuguard tui                 Start the interactive console")
	fmt.Fprintln(w, "  gpuguard config test [PATH]  Validate configuration")
	fmt.Fprintln(w, "  gpuguard config show         Print the effective configuration")
	fmt.Fprintln(w, "  gpuguard version             Print version")
	fmt.Fprintln(w, "  gpuguard help                Show this help")
}
