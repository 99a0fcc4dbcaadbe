// Package flight composes the flight tasks: barometric and inertial
// acquisition, control and logging, connected by bounded channels.
package flight

import (
	"errors"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/channel"
	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/hal"
	"github.com/robotalks/avionics.go/pkg/telemetry"
)

// Peripherals are the collaborators of the flight core.
// Indicator, Storage and Guidance are optional.
type Peripherals struct {
	Barometer hal.Barometer
	IMU       hal.IMU
	Indicator hal.Indicator
	Storage   Storage
	Guidance  Guidance
}

// Core owns the channels and tasks of the flight computer.
type Core struct {
	BaroCh     *channel.Channel[telemetry.BaroSample]
	AltitudeCh *channel.Channel[float32]
	IMUCh      *channel.Channel[telemetry.IMUSample]

	Control *ControlTask
	Baro    *BaroTask
	IMU     *IMUTask
	Log     *LogTask
}

// Stats is a snapshot of all counters of the core.
type Stats struct {
	Channels []channel.Stats  `json:"channels"`
	Baro     AcquisitionStats `json:"baro"`
	IMU      AcquisitionStats `json:"imu"`
	Control  ControlStats     `json:"control"`
	Log      LogStats         `json:"log"`
}

// NewCore creates the channels and tasks.
func (c *Config) NewCore(p Peripherals) (*Core, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if p.Barometer == nil || p.IMU == nil {
		return nil, errors.New("barometer and IMU are required")
	}
	if p.Indicator == nil {
		p.Indicator = &hal.LED{}
	}
	if p.Storage == nil {
		p.Storage = NopStorage{}
	}
	if p.Guidance == nil {
		p.Guidance = LogGuidance
	}
	core := &Core{
		BaroCh:     channel.New[telemetry.BaroSample]("baro", c.BaroCapacity),
		AltitudeCh: channel.New[float32]("altitude", c.AltitudeCapacity),
		IMUCh:      channel.New[telemetry.IMUSample]("imu", c.IMUCapacity),
	}
	core.Control = &ControlTask{
		Indicator: p.Indicator,
		Altitude:  core.AltitudeCh,
		Guidance:  p.Guidance,
		Period:    c.ControlPeriod,
	}
	core.Baro = &BaroTask{
		Sensor:   p.Barometer,
		Raw:      core.BaroCh,
		Altitude: core.AltitudeCh,
		Period:   c.BaroPeriod,
		Timeout:  c.BaroTimeout,
	}
	core.IMU = &IMUTask{
		Sensor:  p.IMU,
		Raw:     core.IMUCh,
		Period:  c.IMUPeriod,
		Timeout: c.IMUTimeout,
	}
	core.Log = &LogTask{
		Baro:     core.BaroCh,
		IMU:      core.IMUCh,
		Storage:  p.Storage,
		Period:   c.LogPeriod,
		Budget:   NewBudget(uint16(c.FlushThreshold)),
		BaroSize: uint16(c.BaroRecordSize),
		IMUSize:  uint16(c.IMURecordSize),
	}
	return core, nil
}

// MustNewCore creates the core and fails on error.
func (c *Config) MustNewCore(p Peripherals) *Core {
	core, err := c.NewCore(p)
	if err != nil {
		log.Fatalln(err)
	}
	return core
}

// AddToScheduler implements framework.SchedulerAdder.
func (c *Core) AddToScheduler(s *framework.Scheduler) error {
	glog.Info("flight core starting")
	tasks := []struct {
		name string
		task framework.Task
	}{
		{TaskControl, c.Control},
		{TaskBaro, c.Baro},
		{TaskIMU, c.IMU},
		{TaskLog, c.Log},
	}
	for _, t := range tasks {
		if err := s.Spawn(t.name, t.task); err != nil {
			return err
		}
	}
	glog.Info("all tasks spawned")
	return nil
}

// Channels returns the stats of all channels.
func (c *Core) Channels() []channel.Stats {
	return []channel.Stats{c.BaroCh.Stats(), c.AltitudeCh.Stats(), c.IMUCh.Stats()}
}

// Stats returns a snapshot of all counters.
func (c *Core) Stats() Stats {
	return Stats{
		Channels: c.Channels(),
		Baro:     c.Baro.Stats(),
		IMU:      c.IMU.Stats(),
		Control:  c.Control.Stats(),
		Log:      c.Log.Stats(),
	}
}
