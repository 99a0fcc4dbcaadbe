package flight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/avionics.go/pkg/channel"
	"github.com/robotalks/avionics.go/pkg/filter"
	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/hal"
	"github.com/robotalks/avionics.go/pkg/telemetry"
)

type testStorage struct {
	baro    []telemetry.BaroSample
	imu     []telemetry.IMUSample
	flushes int
	err     error
}

func (s *testStorage) RecordBaro(sample telemetry.BaroSample) {
	s.baro = append(s.baro, sample)
}

func (s *testStorage) RecordIMU(sample telemetry.IMUSample) {
	s.imu = append(s.imu, sample)
}

func (s *testStorage) Flush() error {
	s.flushes++
	return s.err
}

func newTestCore(t *testing.T, p Peripherals) (*Core, *framework.Scheduler) {
	if p.Barometer == nil {
		p.Barometer = hal.NewStaticBarometer()
	}
	if p.IMU == nil {
		p.IMU = hal.NewStaticIMU()
	}
	core, err := NewConfig().NewCore(p)
	require.NoError(t, err)
	s := framework.NewScheduler(framework.NewVirtualClock())
	require.NoError(t, s.Add(core))
	return core, s
}

func TestCoreLogging(t *testing.T) {
	storage := &testStorage{}
	core, s := newTestCore(t, Peripherals{Storage: storage})
	require.NoError(t, s.RunUntil(context.Background(), 10*time.Second))
	require.NoError(t, s.Shutdown())

	// 21 samples per sensor, 52 bytes per pair.
	require.Len(t, storage.baro, 21)
	require.Len(t, storage.imu, 21)
	require.Equal(t, 4, storage.flushes)
	st := core.Stats()
	require.Equal(t, uint64(21*52), st.Log.Bytes)
	require.Equal(t, uint64(4), st.Log.Flushes)
	require.Equal(t, uint16(21*52-4*256), st.Log.Index)
	require.Zero(t, st.Baro.Recovered)
	require.Zero(t, st.IMU.Dropped)

	for n, sample := range storage.baro {
		require.Equal(t, float32(1013.25), sample.Pressure)
		require.Equal(t, uint32(n*500000), sample.Timestamp)
	}
	require.Equal(t, [3]float32{0, 0, 9.81}, storage.imu[0].Accel)
}

func TestCoreFlushErrors(t *testing.T) {
	storage := &testStorage{err: errors.New("sd card removed")}
	core, s := newTestCore(t, Peripherals{Storage: storage})
	require.NoError(t, s.RunUntil(context.Background(), 10*time.Second))
	require.NoError(t, s.Shutdown())
	st := core.Log.Stats()
	require.Equal(t, uint64(4), st.Flushes)
	require.Equal(t, uint64(4), st.FlushErrors)
	require.Equal(t, uint16(68), st.Index)
}

func TestCoreControlCadence(t *testing.T) {
	led := &hal.LED{}
	tracker := &AltitudeTracker{}
	core, s := newTestCore(t, Peripherals{
		Indicator: led,
		Guidance:  tracker,
		Barometer: hal.BarometerFunc(func() (float32, float32, error) {
			return 0, 0, errors.New("no response")
		}),
	})
	require.NoError(t, s.RunUntil(context.Background(), time.Second))
	require.NoError(t, s.Shutdown())

	// no altitude ever arrives, control keeps its 100ms cadence
	st := core.Stats()
	require.Equal(t, uint64(11), st.Control.Cycles)
	require.Zero(t, st.Control.Altitudes)
	require.Equal(t, uint64(11), led.Toggles())
	require.Equal(t, uint64(3), st.Baro.ReadErrors)
	require.Zero(t, st.Baro.Samples)
	_, count := tracker.Latest()
	require.Zero(t, count)
}

func TestCoreAltitude(t *testing.T) {
	clock := framework.NewVirtualClock()
	tracker := &AltitudeTracker{}
	core, err := NewConfig().NewCore(Peripherals{
		Barometer: hal.NewProfileBarometer(clock, hal.ConstantAltitude(100), 0, 1),
		IMU:       hal.NewStaticIMU(),
		Guidance:  tracker,
	})
	require.NoError(t, err)
	s := framework.NewScheduler(clock)
	require.NoError(t, s.Add(core))
	require.NoError(t, s.RunUntil(context.Background(), 6*time.Second))
	require.NoError(t, s.Shutdown())

	// the sample taken at 6s is still queued
	altitude, count := tracker.Latest()
	require.Equal(t, uint64(12), count)
	require.InDelta(t, 100, altitude, 0.1)
	require.Equal(t, 1, core.AltitudeCh.Len())

	// same 100ms cadence as without altitude
	st := core.Stats()
	require.Equal(t, uint64(61), st.Control.Cycles)
	require.Equal(t, uint64(12), st.Control.Altitudes)
}

func TestCoreOverflow(t *testing.T) {
	core, s := newTestCore(t, Peripherals{})
	core.Log.Pause(true)
	require.NoError(t, s.RunUntil(context.Background(), 5*time.Second))
	require.NoError(t, s.Shutdown())

	// 11 samples into 4 slots: cleared on the 5th and 9th
	for _, ch := range []channel.Stats{core.BaroCh.Stats(), core.IMUCh.Stats()} {
		require.Equal(t, uint64(2), ch.Cleared, ch.Name)
		require.Equal(t, uint64(8), ch.Discarded, ch.Name)
		require.Equal(t, 3, ch.Len, ch.Name)
	}
	st := core.Stats()
	require.Equal(t, uint64(2), st.Baro.Recovered)
	require.Equal(t, uint64(2), st.IMU.Recovered)
	require.Zero(t, st.Baro.Dropped)
	require.True(t, st.Log.Paused)
	require.Zero(t, st.Log.Bytes)

	v, err := core.BaroCh.TryReceive()
	require.NoError(t, err)
	require.Equal(t, uint32(4000000), v.Timestamp)
}

func TestCoreSpawnFailure(t *testing.T) {
	core, err := NewConfig().NewCore(Peripherals{
		Barometer: hal.NewStaticBarometer(),
		IMU:       hal.NewStaticIMU(),
	})
	require.NoError(t, err)
	s := framework.NewScheduler(framework.NewVirtualClock())
	s.MaxTasks = 3
	err = s.Add(core)
	require.True(t, errors.Is(err, framework.ErrTaskPoolFull))

	_, err = NewConfig().NewCore(Peripherals{})
	require.Error(t, err)
}

func TestPressureFilterInBaroTask(t *testing.T) {
	raw := channel.New[telemetry.BaroSample]("raw", 4)
	alt := channel.New[float32]("alt", 4)
	task := &BaroTask{
		Sensor:   hal.NewStaticBarometer(),
		Raw:      raw,
		Altitude: alt,
		Period:   time.Millisecond,
		Timeout:  time.Millisecond,
	}
	s := framework.NewScheduler(framework.NewVirtualClock())
	require.NoError(t, s.Spawn(TaskBaro, task))
	require.NoError(t, s.RunUntil(context.Background(), 0))
	require.NoError(t, s.Shutdown())
	v, err := alt.TryReceive()
	require.NoError(t, err)
	require.InDelta(t, filter.PressureToAltitude(filter.SeaLevelPressure), v, 1e-3)
	require.Equal(t, 1, raw.Len())
}
