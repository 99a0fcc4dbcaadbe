package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/avionics.go/pkg/filter"
	"github.com/robotalks/avionics.go/pkg/framework"
)

func TestStaticDevices(t *testing.T) {
	p, temp, err := NewStaticBarometer().ReadBaro()
	require.NoError(t, err)
	require.Equal(t, float32(1013.25), p)
	require.Equal(t, float32(25), temp)

	accel, gyro, mag, err := NewStaticIMU().ReadIMU()
	require.NoError(t, err)
	require.Equal(t, [3]float32{0, 0, 9.81}, accel)
	require.Zero(t, gyro)
	require.Zero(t, mag)
}

func TestClimbProfile(t *testing.T) {
	profile := Climb(10, 100)
	require.Equal(t, float32(0), profile(0))
	require.Equal(t, float32(50), profile(5*time.Second))
	require.Equal(t, float32(100), profile(10*time.Second))
	require.Equal(t, float32(80), profile(12*time.Second))
	require.Equal(t, float32(0), profile(30*time.Second))
}

func TestProfileBarometer(t *testing.T) {
	clock := framework.NewVirtualClock()
	b := NewProfileBarometer(clock, Climb(10, 1000), 0, 1)
	clock.Advance(10 * time.Second)
	p, _, err := b.ReadBaro()
	require.NoError(t, err)
	require.InDelta(t, 100, filter.PressureToAltitude(p), 0.1)

	noisy := NewProfileBarometer(clock, ConstantAltitude(0), 0.5, 1)
	var sum float32
	for n := 0; n < 1000; n++ {
		p, _, _ := noisy.ReadBaro()
		sum += p
	}
	require.InDelta(t, filter.SeaLevelPressure, sum/1000, 0.1)
}

func TestLED(t *testing.T) {
	var led LED
	led.Set(true)
	led.Set(true)
	led.Set(false)
	require.False(t, led.On())
	require.Equal(t, uint64(2), led.Toggles())
}

func TestLEDEmbedded(t *testing.T) {
	// a 32-bit field in front leaves a plain uint64 unaligned on 386/arm
	var board struct {
		id  uint32
		led LED
	}
	require.NotPanics(t, func() {
		board.led.Set(true)
		board.led.Set(false)
	})
	require.Equal(t, uint64(2), board.led.Toggles())
}
