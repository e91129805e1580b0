package gpulock

import (
	"errors"
	"time"
)

// ErrHeld is returned when another holder owns a live lease on the device.
var ErrHeld = errors.New("GPU lease held")

// LockInfo is the content of a device lease file
type LockInfo struct {
	DeviceID int32     `json:"device_id"`
	Holder   string    `json:"holder"`
	PID      int       `json:"pid"`
	SinceTS  time.Time `json:"since_ts"`
}

// Age returns how long the lease has been held at now.
func (l LockInfo) Age(now time.Time) time.Duration {
	return now.Sub(l.SinceTS)
}
