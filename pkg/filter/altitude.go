// Package filter converts barometric pressure into smoothed altitude.
package filter

import "math"

// SeaLevelPressure is the standard atmosphere reference in hPa.
const SeaLevelPressure = 1013.25

// WindowSize is the number of samples averaged by MovingAverage.
const WindowSize = 10

// PressureToAltitude converts pressure (hPa) to altitude (m) with the
// international standard atmosphere approximation.
func PressureToAltitude(p float32) float32 {
	return float32(44330.0 * (1.0 - math.Pow(float64(p)/SeaLevelPressure, 1.0/5.255)))
}

// AltitudeToPressure is the inverse of PressureToAltitude.
func AltitudeToPressure(h float32) float32 {
	return float32(SeaLevelPressure * math.Pow(1.0-float64(h)/44330.0, 5.255))
}

// MovingAverage smooths altitude over the last WindowSize samples.
// The window starts filled with zeros, so the first outputs ramp up.
type MovingAverage struct {
	window [WindowSize]float32
	head   int
}

// Update converts p to altitude, replaces the oldest sample with it and
// returns the mean of the window.
func (f *MovingAverage) Update(p float32) float32 {
	f.window[f.head] = PressureToAltitude(p)
	f.head = (f.head + 1) % WindowSize
	return f.Mean()
}

// Mean returns the current mean of the window.
func (f *MovingAverage) Mean() float32 {
	var sum float32
	for _, h := range f.window {
		sum += h
	}
	return sum / WindowSize
}

// Reset zeroes the window.
func (f *MovingAverage) Reset() {
	*f = MovingAverage{}
}
