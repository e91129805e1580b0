// Package gpuerr is the closed taxonomy of GPU errors: stable codes, user
// facing descriptions and remediation advice, and keyword classification of
// free-form error messages.
package gpuerr

import (
	"fmt"
	"strings"
)

// Code identifies a class of GPU failure
type Code int

const (
	Unknown Code = iota
	DetectionFailed
	RuntimeVersionIncompatible
	DriverOutdated
	InsufficientMemory
	PlatformInitFailed
	ModelLoadFailed
	ExecutionFailed
)

const driverDownloadURL = "https://www.nvidia.com/drivers"

type codeInfo struct {
	code        string
	description string
	suggestion  string
	docLink     string
}

var codes = map[Code]codeInfo{
	DetectionFailed: {
		code:        "GPU_DETECTION_FAILED",
		description: "GPU detection failed, no graphics device could be identified",
		suggestion: "1. Check that the graphics card is installed correctly\n" +
			"2. Make sure the graphics driver is installed\n" +
			"3. Restart the computer",
	},
	RuntimeVersionIncompatible: {
		code:        "CUDA_VERSION_INCOMPATIBLE",
		description: "CUDA version is incompatible with the GPU architecture",
		suggestion: "1. Download the latest driver from the NVIDIA driver page\n" +
			"2. Install the latest NVIDIA driver\n" +
			"3. Restart the computer and run the application again",
		docLink: driverDownloadURL,
	},
	DriverOutdated: {
		code:        "DRIVER_OUTDATED",
		description: "Graphics driver is outdated and needs an update",
		suggestion: "1. Download the latest driver from " + driverDownloadURL + "\n" +
			"2. Or let GeForce Experience update the driver\n" +
			"3. Restart the computer after installation",
		docLink: driverDownloadURL,
	},
	InsufficientMemory: {
		code:        "INSUFFICIENT_MEMORY",
		description: "Not enough GPU memory to load the model",
		suggestion: "1. Close other programs using GPU memory (games, video editors)\n" +
			"2. Lower the batch size\n" +
			"3. Or switch to CPU mode",
	},
	PlatformInitFailed: {
		code:        "DIRECTML_INIT_FAILED",
		description: "DirectML initialization failed, the Windows version may be too old",
		suggestion: "1. Make sure Windows is version 1903 (May 2019 Update) or newer\n" +
			"2. Update Windows to the latest version\n" +
			"3. Install the latest graphics driver",
		docLink: "https://docs.microsoft.com/windows/ai/directml/",
	},
	ModelLoadFailed: {
		code:        "MODEL_LOAD_FAILED",
		description: "Model loading failed, check that the model files are complete",
		suggestion: "1. Check that the model files exist and are complete\n" +
			"2. Download the model again\n" +
			"3. Check that there is enough free disk space",
	},
	ExecutionFailed: {
		code:        "GPU_EXECUTION_FAILED",
		description: "An error occurred during GPU execution",
		suggestion: "1. Restart the application\n" +
			"2. Check whether the GPU is overheating\n" +
			"3. Switch to CPU mode",
	},
	Unknown: {
		code:        "UNKNOWN_ERROR",
		description: "An unknown error occurred",
		suggestion: "1. Check the log files for error details\n" +
			"2. Restart the application\n" +
			"3. Contact support if the problem persists",
	},
}

// AllCodes lists every code in declaration order.
var AllCodes = []Code{
	DetectionFailed,
	RuntimeVersionIncompatible,
	DriverOutdated,
	InsufficientMemory,
	PlatformInitFailed,
	ModelLoadFailed,
	ExecutionFailed,
	Unknown,
}

func (c Code) info() codeInfo {
	if info, ok := codes[c]; ok {
		return info
	}
	return codes[Unknown]
}

// String returns the stable code string, e.g. "GPU_DETECTION_FAILED".
func (c Code) String() string {
	return c.info().code
}

// Description is the user facing title
func (c Code) Description() string {
	return c.info().description
}

// Suggestion lists numbered remediation steps
func (c Code) Suggestion() string {
	return c.info().suggestion
}

// DocLink returns the documentation URL, if the code has one.
func (c Code) DocLink() (string, bool) {
	link := c.info().docLink
	return link, link != ""
}

// Display renders "[CODE] description".
func (c Code) Display() string {
	return fmt.Sprintf("[%s] %s", c, c.Description())
}

// MarshalText encodes the stable code string.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a stable code string; unrecognised strings map to Unknown.
func (c *Code) UnmarshalText(text []byte) error {
	*c = ParseCode(string(text))
	return nil
}

// ParseCode maps a stable code string back to its Code.
func ParseCode(s string) Code {
	for _, c := range AllCodes {
		if c.String() == s {
			return c
		}
	}
	return Unknown
}

type classifyRule struct {
	code  Code
	match func(msg string) bool
}

func containsAny(keywords ...string) func(string) bool {
	return func(msg string) bool {
		for _, kw := range keywords {
			if strings.Contains(msg, kw) {
				return true
			}
		}
		return false
	}
}

// Evaluated in order; the first matching rule decides.
var classifyRules = []classifyRule{
	{DetectionFailed, containsAny("detection", "检测", "not found")},
	{RuntimeVersionIncompatible, func(msg string) bool {
		return strings.Contains(msg, "cuda") && containsAny("version", "版本")(msg)
	}},
	{DriverOutdated, containsAny("driver", "驱动")},
	{InsufficientMemory, containsAny("memory", "显存", "out of memory")},
	{PlatformInitFailed, containsAny("directml", "dml")},
	{ModelLoadFailed, containsAny("model", "模型", "load")},
	{ExecutionFailed, containsAny("execution", "执行", "runtime")},
}

// Classify infers a Code from a free-form error message.
func Classify(message string) Code {
	msg := strings.ToLower(message)
	for _, rule := range classifyRules {
		if rule.match(msg) {
			return rule.code
		}
	}
	return Unknown
}
