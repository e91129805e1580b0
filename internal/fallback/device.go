package fallback

import (
	"encoding/json"
	"fmt"
)

// Kind tags a ComputeDevice. The zero value is KindCPU.
type Kind uint8

const (
	KindCPU Kind = iota
	KindGPU
)

func (k Kind) String() string {
	if k == KindGPU {
		return "gpu"
	}
	return "cpu"
}

// ComputeDevice is where a workload runs: a specific GPU or the CPU.
// The zero value is the CPU.
type ComputeDevice struct {
	Kind     Kind
	DeviceID int32
	Name     string
}

// CPU returns the CPU device
func CPU() ComputeDevice {
	return ComputeDevice{}
}

// GPU returns a GPU device
func GPU(id int32, name string) ComputeDevice {
	return ComputeDevice{Kind: KindGPU, DeviceID: id, Name: name}
}

// IsGPU reports whether the device is a GPU
func (d ComputeDevice) IsGPU() bool {
	return d.Kind == KindGPU
}

// String renders "GPU:<id> (<name>)" or "CPU".
func (d ComputeDevice) String() string {
	if d.IsGPU() {
		return fmt.Sprintf("GPU:%d (%s)", d.DeviceID, d.Name)
	}
	return "CPU"
}

type deviceJSON struct {
	Type     string  `json:"type"`
	DeviceID *int32  `json:"device_id,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// MarshalJSON encodes {"type":"gpu","device_id":0,"name":"..."} or {"type":"cpu"}.
func (d ComputeDevice) MarshalJSON() ([]byte, error) {
	out := deviceJSON{Type: d.Kind.String()}
	if d.IsGPU() {
		id, name := d.DeviceID, d.Name
		out.DeviceID = &id
		out.Name = &name
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (d *ComputeDevice) UnmarshalJSON(data []byte) error {
	var in deviceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.Type {
	case "cpu":
		*d = CPU()
	case "gpu":
		*d = ComputeDevice{Kind: KindGPU}
		if in.DeviceID != nil {
			d.DeviceID = *in.DeviceID
		}
		if in.Name != nil {
			d.Name = *in.Name
		}
	default:
		return fmt.Errorf("unknown compute device type %q", in.Type)
	}
	return nil
}
