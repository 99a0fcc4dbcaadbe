package hal

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robotalks/avionics.go/pkg/filter"
	"github.com/robotalks/avionics.go/pkg/framework"
)

// StaticBarometer always reports the same reading.
type StaticBarometer struct {
	Pressure    float32
	Temperature float32
}

// NewStaticBarometer creates a StaticBarometer at standard sea level.
func NewStaticBarometer() *StaticBarometer {
	return &StaticBarometer{Pressure: filter.SeaLevelPressure, Temperature: 25.0}
}

// ReadBaro implements Barometer.
func (b *StaticBarometer) ReadBaro() (float32, float32, error) {
	return b.Pressure, b.Temperature, nil
}

// StaticIMU always reports the same reading.
type StaticIMU struct {
	Accel [3]float32
	Gyro  [3]float32
	Mag   [3]float32
}

// NewStaticIMU creates a StaticIMU at rest, level.
func NewStaticIMU() *StaticIMU {
	return &StaticIMU{Accel: [3]float32{0, 0, 9.81}}
}

// ReadIMU implements IMU.
func (m *StaticIMU) ReadIMU() (accel, gyro, mag [3]float32, err error) {
	return m.Accel, m.Gyro, m.Mag, nil
}

// Profile gives the altitude (m) at a point in time.
type Profile func(t time.Duration) float32

// ConstantAltitude is a Profile holding h.
func ConstantAltitude(h float32) Profile {
	return func(time.Duration) float32 { return h }
}

// Climb is a Profile climbing at rate (m/s) until apogee, then
// descending at the same rate back to the ground.
func Climb(rate, apogee float32) Profile {
	return func(t time.Duration) float32 {
		h := rate * float32(t.Seconds())
		if h <= apogee {
			return h
		}
		if h = 2*apogee - h; h < 0 {
			return 0
		}
		return h
	}
}

// ProfileBarometer simulates a barometer flying a Profile, with
// gaussian noise (hPa) added to the pressure.
type ProfileBarometer struct {
	Clock       framework.TimeSource
	Profile     Profile
	Noise       float32
	Temperature float32

	rnd  *rand.Rand
	lock sync.Mutex
}

// NewProfileBarometer creates a ProfileBarometer with a seeded noise source.
func NewProfileBarometer(clock framework.TimeSource, profile Profile, noise float32, seed int64) *ProfileBarometer {
	return &ProfileBarometer{
		Clock:       clock,
		Profile:     profile,
		Noise:       noise,
		Temperature: 25.0,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

// ReadBaro implements Barometer.
func (b *ProfileBarometer) ReadBaro() (float32, float32, error) {
	p := filter.AltitudeToPressure(b.Profile(b.Clock.Now()))
	if b.Noise > 0 {
		b.lock.Lock()
		p += float32(b.rnd.NormFloat64()) * b.Noise
		b.lock.Unlock()
	}
	return p, b.Temperature, nil
}

// LED is a simulated Indicator counting level changes.
type LED struct {
	on      atomic.Bool
	toggles atomic.Uint64
}

// Set implements Indicator.
func (l *LED) Set(on bool) {
	if l.on.Swap(on) != on {
		l.toggles.Add(1)
	}
}

// On returns the current level.
func (l *LED) On() bool {
	return l.on.Load()
}

// Toggles returns the number of level changes.
func (l *LED) Toggles() uint64 {
	return l.toggles.Load()
}
