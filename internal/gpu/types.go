package gpu

// Vendor identifies the GPU manufacturer
type Vendor string

const (
	VendorNvidia  Vendor = "Nvidia"
	VendorAmd     Vendor = "Amd"
	VendorIntel   Vendor = "Intel"
	VendorUnknown Vendor = "Unknown"
)

// IsDiscrete reports whether GPUs of this vendor are treated as discrete cards.
func (v Vendor) IsDiscrete() bool {
	return v == VendorNvidia || v == VendorAmd
}

// Architecture is the NVIDIA hardware generation
type Architecture string

const (
	ArchTuring      Architecture = "Turing"
	ArchAmpere      Architecture = "Ampere"
	ArchAdaLovelace Architecture = "AdaLovelace"
	ArchBlackwell   Architecture = "Blackwell"
	ArchUnknown     Architecture = "Unknown"
)

// DisplayName returns the human readable architecture name.
func (a Architecture) DisplayName() string {
	switch a {
	case ArchTuring, ArchAmpere, ArchBlackwell:
		return string(a)
	case ArchAdaLovelace:
		return "Ada Lovelace"
	default:
		return "Unknown"
	}
}

// DeviceRecord describes one detected display adapter.
// Data contract: gpu_report.json "devices" entries.
type DeviceRecord struct {
	Available     bool    `json:"available"`
	Name          *string `json:"name"`
	MemoryMB      *uint64 `json:"memory_mb"`
	DriverVersion *string `json:"driver_version"`
	// RuntimeVersion is the CUDA runtime version reported by the driver.
	RuntimeVersion *string       `json:"runtime_version"`
	DeviceID       int32         `json:"device_id"`
	Vendor         Vendor        `json:"vendor"`
	Architecture   *Architecture `json:"architecture"`
	IsDiscrete     bool          `json:"is_discrete"`
}

// UnavailableDevice is the placeholder used when no GPU could be detected.
func UnavailableDevice() DeviceRecord {
	return DeviceRecord{Vendor: VendorUnknown}
}

// DisplayName returns the device name or "Unknown".
func (d DeviceRecord) DisplayName() string {
	if d.Name == nil || *d.Name == "" {
		return "Unknown"
	}
	return *d.Name
}

// Arch returns the architecture, ArchUnknown when unset.
func (d DeviceRecord) Arch() Architecture {
	if d.Architecture == nil {
		return ArchUnknown
	}
	return *d.Architecture
}

// VRAM returns the memory in MB, 0 when unknown.
func (d DeviceRecord) VRAM() uint64 {
	if d.MemoryMB == nil {
		return 0
	}
	return *d.MemoryMB
}

// DetectionResult is the outcome of one detection pass
type DetectionResult struct {
	Devices           []DeviceRecord `json:"devices"`
	RecommendedDevice *int           `json:"recommended_device"`
	GPUAvailable      bool           `json:"gpu_available"`
	FallbackReason    *string        `json:"fallback_reason"`
}

// Recommended returns the recommended device, if any.
func (r DetectionResult) Recommended() (DeviceRecord, bool) {
	if r.RecommendedDevice == nil || *r.RecommendedDevice < 0 || *r.RecommendedDevice >= len(r.Devices) {
		return DeviceRecord{}, false
	}
	return r.Devices[*r.RecommendedDevice], true
}

func ptr[T any](v T) *T {
	return &v
}
