package flight

import (
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/channel"
	"github.com/robotalks/avionics.go/pkg/filter"
	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/hal"
	"github.com/robotalks/avionics.go/pkg/telemetry"
)

// Task names in spawn order.
const (
	TaskControl = "control"
	TaskBaro    = "baro"
	TaskIMU     = "imu"
	TaskLog     = "log"
)

// AcquisitionStats are the counters of a sampling task.
type AcquisitionStats struct {
	Samples    uint64 `json:"samples"`
	ReadErrors uint64 `json:"read_errors"`
	Recovered  uint64 `json:"recovered"`
	Dropped    uint64 `json:"dropped"`
}

type acquisitionCounters struct {
	samples    atomic.Uint64
	readErrors atomic.Uint64
	recovered  atomic.Uint64
	dropped    atomic.Uint64
}

func (c *acquisitionCounters) stats() AcquisitionStats {
	return AcquisitionStats{
		Samples:    c.samples.Load(),
		ReadErrors: c.readErrors.Load(),
		Recovered:  c.recovered.Load(),
		Dropped:    c.dropped.Load(),
	}
}

func publish[T any](tc framework.TaskContext, ch channel.Sender[T], v T, timeout time.Duration, c *acquisitionCounters) error {
	outcome, err := channel.Publish(tc, ch, v, timeout)
	switch outcome {
	case channel.Recovered:
		c.recovered.Add(1)
	case channel.Dropped:
		if err == nil {
			c.dropped.Add(1)
		}
	}
	return err
}

// runPeriodic runs cycle then sleeps period, until the scheduler stops.
func runPeriodic(tc framework.TaskContext, period time.Duration, cycle func(framework.TaskContext) error) error {
	for {
		if err := cycle(tc); err != nil {
			return err
		}
		if err := tc.Sleep(period); err != nil {
			return err
		}
	}
}

// BaroTask samples the barometer, publishes the raw sample, filters
// altitude and publishes it.
type BaroTask struct {
	Sensor   hal.Barometer
	Raw      channel.Sender[telemetry.BaroSample]
	Altitude channel.Sender[float32]
	Period   time.Duration
	Timeout  time.Duration

	filter   filter.MovingAverage
	counters acquisitionCounters
}

// RunTask implements framework.Task.
func (t *BaroTask) RunTask(tc framework.TaskContext) error {
	return runPeriodic(tc, t.Period, t.cycle)
}

// Stats returns the counters.
func (t *BaroTask) Stats() AcquisitionStats {
	return t.counters.stats()
}

func (t *BaroTask) cycle(tc framework.TaskContext) error {
	p, temp, err := t.Sensor.ReadBaro()
	if err != nil {
		glog.Errorf("%s: read barometer: %v", tc.Name(), err)
		t.counters.readErrors.Add(1)
		return nil
	}
	sample := telemetry.BaroSample{
		Pressure:    p,
		Temperature: temp,
		Timestamp:   telemetry.Micros(tc.Now()),
	}
	t.counters.samples.Add(1)
	glog.V(2).Infof("%s: %.2f hPa %.2f C @%d", tc.Name(), p, temp, sample.Timestamp)
	if err := publish(tc, t.Raw, sample, t.Timeout, &t.counters); err != nil {
		return err
	}
	altitude := t.filter.Update(p)
	glog.V(2).Infof("%s: altitude %.2f m", tc.Name(), altitude)
	return publish(tc, t.Altitude, altitude, t.Timeout, &t.counters)
}

// IMUTask samples the IMU and publishes the raw sample.
type IMUTask struct {
	Sensor  hal.IMU
	Raw     channel.Sender[telemetry.IMUSample]
	Period  time.Duration
	Timeout time.Duration

	counters acquisitionCounters
}

// RunTask implements framework.Task.
func (t *IMUTask) RunTask(tc framework.TaskContext) error {
	return runPeriodic(tc, t.Period, t.cycle)
}

// Stats returns the counters.
func (t *IMUTask) Stats() AcquisitionStats {
	return t.counters.stats()
}

func (t *IMUTask) cycle(tc framework.TaskContext) error {
	accel, gyro, mag, err := t.Sensor.ReadIMU()
	if err != nil {
		glog.Errorf("%s: read IMU: %v", tc.Name(), err)
		t.counters.readErrors.Add(1)
		return nil
	}
	sample := telemetry.IMUSample{
		Accel:     accel,
		Gyro:      gyro,
		Mag:       mag,
		Timestamp: telemetry.Micros(tc.Now()),
	}
	t.counters.samples.Add(1)
	glog.V(2).Infof("%s: accel %v gyro %v mag %v @%d", tc.Name(), accel, gyro, mag, sample.Timestamp)
	return publish(tc, t.Raw, sample, t.Timeout, &t.counters)
}

// ControlStats are the counters of the control task.
type ControlStats struct {
	Cycles    uint64 `json:"cycles"`
	Altitudes uint64 `json:"altitudes"`
}

// ControlTask runs the actuation step and polls filtered altitude
// without ever waiting for it.
type ControlTask struct {
	Indicator hal.Indicator
	Altitude  channel.Receiver[float32]
	Guidance  Guidance
	Period    time.Duration

	level     bool
	cycles    atomic.Uint64
	altitudes atomic.Uint64
}

// RunTask implements framework.Task.
func (t *ControlTask) RunTask(tc framework.TaskContext) error {
	return runPeriodic(tc, t.Period, t.cycle)
}

// Stats returns the counters.
func (t *ControlTask) Stats() ControlStats {
	return ControlStats{Cycles: t.cycles.Load(), Altitudes: t.altitudes.Load()}
}

func (t *ControlTask) cycle(tc framework.TaskContext) error {
	t.cycles.Add(1)
	t.level = !t.level
	t.Indicator.Set(t.level)
	altitude, err := t.Altitude.TryReceive()
	if err != nil {
		return nil
	}
	t.altitudes.Add(1)
	t.Guidance.HandleAltitude(altitude)
	return nil
}

// LogStats are the counters of the logging task.
type LogStats struct {
	BaroSamples uint64 `json:"baro_samples"`
	IMUSamples  uint64 `json:"imu_samples"`
	Bytes       uint64 `json:"bytes"`
	Flushes     uint64 `json:"flushes"`
	FlushErrors uint64 `json:"flush_errors"`
	Index       uint16 `json:"index"`
	Paused      bool   `json:"paused"`
}

// LogTask drains the raw channels into storage and flushes storage
// every Budget.Threshold bytes. A zero BaroSize or IMUSize accounts the
// default record size.
type LogTask struct {
	Baro     channel.Receiver[telemetry.BaroSample]
	IMU      channel.Receiver[telemetry.IMUSample]
	Storage  Storage
	Period   time.Duration
	Budget   Budget
	BaroSize uint16
	IMUSize  uint16

	paused      atomic.Bool
	index       atomic.Uint32
	baroSamples atomic.Uint64
	imuSamples  atomic.Uint64
	bytes       atomic.Uint64
	flushes     atomic.Uint64
	flushErrors atomic.Uint64
}

// RunTask implements framework.Task.
func (t *LogTask) RunTask(tc framework.TaskContext) error {
	return runPeriodic(tc, t.Period, t.cycle)
}

// Pause stops draining while the task keeps its cadence, letting the
// raw channels overflow.
func (t *LogTask) Pause(paused bool) {
	t.paused.Store(paused)
}

// Stats returns the counters.
func (t *LogTask) Stats() LogStats {
	return LogStats{
		BaroSamples: t.baroSamples.Load(),
		IMUSamples:  t.imuSamples.Load(),
		Bytes:       t.bytes.Load(),
		Flushes:     t.flushes.Load(),
		FlushErrors: t.flushErrors.Load(),
		Index:       uint16(t.index.Load()),
		Paused:      t.paused.Load(),
	}
}

func (t *LogTask) cycle(tc framework.TaskContext) error {
	if t.paused.Load() {
		return nil
	}
	rec, _ := t.Storage.(Recorder)
	baroSize, imuSize := t.BaroSize, t.IMUSize
	if baroSize == 0 {
		baroSize = telemetry.BaroSampleSize
	}
	if imuSize == 0 {
		imuSize = telemetry.IMUSampleSize
	}
	for {
		sample, err := t.Baro.TryReceive()
		if err != nil {
			break
		}
		glog.V(2).Infof("%s: baro %.2f hPa @%d", tc.Name(), sample.Pressure, sample.Timestamp)
		t.account(baroSize)
		t.baroSamples.Add(1)
		if rec != nil {
			rec.RecordBaro(sample)
		}
	}
	for {
		sample, err := t.IMU.TryReceive()
		if err != nil {
			break
		}
		glog.V(2).Infof("%s: imu accel %v @%d", tc.Name(), sample.Accel, sample.Timestamp)
		t.account(imuSize)
		t.imuSamples.Add(1)
		if rec != nil {
			rec.RecordIMU(sample)
		}
	}
	if t.Budget.Due() {
		if err := t.Storage.Flush(); err != nil {
			glog.Errorf("%s: flush: %v", tc.Name(), err)
			t.flushErrors.Add(1)
		}
		t.Budget.Settle()
		t.flushes.Add(1)
	}
	t.index.Store(uint32(t.Budget.Index()))
	return nil
}

func (t *LogTask) account(size uint16) {
	t.Budget.Add(size)
	t.bytes.Add(uint64(size))
}
