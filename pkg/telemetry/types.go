// Package telemetry defines the samples exchanged between flight tasks.
package telemetry

import "time"

// BaroSample is one barometric reading.
type BaroSample struct {
	// Pressure in hPa.
	Pressure float32 `json:"pressure"`
	// Temperature in degrees Celsius.
	Temperature float32 `json:"temperature"`
	// Timestamp in microseconds, see Micros.
	Timestamp uint32 `json:"timestamp"`
}

// IMUSample is one 9-axis inertial reading.
type IMUSample struct {
	Accel     [3]float32 `json:"accel"`
	Gyro      [3]float32 `json:"gyro"`
	Mag       [3]float32 `json:"mag"`
	Timestamp uint32     `json:"timestamp"`
}

// Encoded sizes accounted by the logger per sample.
const (
	BaroSampleSize = 12
	IMUSampleSize  = 40
)

// Micros converts the monotonic scheduler time into the free-running
// microsecond counter. The counter wraps at 2^32.
func Micros(d time.Duration) uint32 {
	return uint32(uint64(d / time.Microsecond))
}
