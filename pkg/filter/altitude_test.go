package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPressureToAltitude(t *testing.T) {
	require.InDelta(t, 0, PressureToAltitude(SeaLevelPressure), 1e-3)
	require.InDelta(t, 110.9, PressureToAltitude(1000), 0.5)
	require.InDelta(t, 5574, PressureToAltitude(500), 5)
	for _, h := range []float32{0, 100, 1500, 8000} {
		require.InDelta(t, h, PressureToAltitude(AltitudeToPressure(h)), 0.1)
	}
}

func TestMovingAverageConverges(t *testing.T) {
	var f MovingAverage
	p := AltitudeToPressure(1000)
	var out float32
	for n := 1; n <= WindowSize; n++ {
		out = f.Update(p)
		require.InDelta(t, 1000*float32(n)/WindowSize, out, 0.5)
	}
	require.InDelta(t, 1000, f.Update(p), 0.5)

	f.Reset()
	for n := 0; n < WindowSize; n++ {
		out = f.Update(SeaLevelPressure)
	}
	require.InDelta(t, 0, out, 1e-3)
}

func TestMovingAverageOutlier(t *testing.T) {
	var f MovingAverage
	for n := 0; n < WindowSize; n++ {
		f.Update(SeaLevelPressure)
	}
	outlier := float32(900)
	got := f.Update(outlier)
	require.InDelta(t, PressureToAltitude(outlier)/WindowSize, got, 0.01)

	// the outlier leaves the window after WindowSize more samples
	for n := 0; n < WindowSize-1; n++ {
		require.NotZero(t, f.Update(SeaLevelPressure))
	}
	require.InDelta(t, 0, f.Update(SeaLevelPressure), 1e-3)
}
