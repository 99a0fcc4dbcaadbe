// Package hal defines the peripherals used by flight tasks and provides
// simulated implementations for bench and host builds.
package hal

// Barometer reads pressure (hPa) and temperature (°C).
type Barometer interface {
	ReadBaro() (pressure, temperature float32, err error)
}

// IMU reads accelerometer, gyroscope and magnetometer axes.
type IMU interface {
	ReadIMU() (accel, gyro, mag [3]float32, err error)
}

// Indicator is a binary output, e.g. a status LED.
type Indicator interface {
	Set(on bool)
}

// BarometerFunc is the func form of Barometer.
type BarometerFunc func() (float32, float32, error)

// ReadBaro implements Barometer.
func (f BarometerFunc) ReadBaro() (float32, float32, error) {
	return f()
}

// IMUFunc is the func form of IMU.
type IMUFunc func() (accel, gyro, mag [3]float32, err error)

// ReadIMU implements IMU.
func (f IMUFunc) ReadIMU() (accel, gyro, mag [3]float32, err error) {
	return f()
}
