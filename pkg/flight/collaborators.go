package flight

import (
	"math"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/telemetry"
)

// Storage is the non-volatile storage behind the logging task.
type Storage interface {
	Flush() error
}

// Recorder is optionally implemented by Storage to receive every
// drained sample.
type Recorder interface {
	RecordBaro(telemetry.BaroSample)
	RecordIMU(telemetry.IMUSample)
}

// NopStorage discards everything.
type NopStorage struct{}

// Flush implements Storage.
func (NopStorage) Flush() error { return nil }

// Guidance consumes filtered altitude in the control task.
type Guidance interface {
	HandleAltitude(altitude float32)
}

// GuidanceFunc is the func form of Guidance.
type GuidanceFunc func(float32)

// HandleAltitude implements Guidance.
func (f GuidanceFunc) HandleAltitude(altitude float32) {
	f(altitude)
}

// LogGuidance only traces altitude.
var LogGuidance = GuidanceFunc(func(altitude float32) {
	glog.V(1).Infof("altitude %.2f m", altitude)
})

// AltitudeTracker is a Guidance remembering the latest altitude. It can
// be read from any goroutine.
type AltitudeTracker struct {
	Next Guidance

	bits  atomic.Uint32
	count atomic.Uint64
}

// HandleAltitude implements Guidance.
func (t *AltitudeTracker) HandleAltitude(altitude float32) {
	t.bits.Store(math.Float32bits(altitude))
	t.count.Add(1)
	if t.Next != nil {
		t.Next.HandleAltitude(altitude)
	}
}

// Latest returns the latest altitude and how many were received.
func (t *AltitudeTracker) Latest() (float32, uint64) {
	return math.Float32frombits(t.bits.Load()), t.count.Load()
}
