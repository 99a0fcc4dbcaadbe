package sh

import (
	"context"
	"strconv"
	"time"

	"github.com/robotalks/avionics.go/pkg/flight"
	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/hal"
	"github.com/robotalks/avionics.go/pkg/storage"
)

// Bench is a flight core with simulated peripherals on a virtual clock.
type Bench struct {
	Clock     *framework.VirtualClock
	Scheduler *framework.Scheduler
	Core      *flight.Core
	Journal   *storage.Journal
	Tracker   *flight.AltitudeTracker
	LED       *hal.LED
}

// BenchOptions defines the simulated flight.
type BenchOptions struct {
	ClimbRate float32
	Apogee    float32
	Noise     float32
	Seed      int64
	Sink      storage.Sink
}

// NewBench creates a Bench. Nothing runs until Run.
func NewBench(conf *flight.Config, opts BenchOptions) (*Bench, error) {
	b := &Bench{
		Clock:   framework.NewVirtualClock(),
		Journal: storage.NewJournal(opts.Sink),
		Tracker: &flight.AltitudeTracker{Next: flight.LogGuidance},
		LED:     &hal.LED{},
	}
	b.Scheduler = framework.NewScheduler(b.Clock)
	core, err := conf.NewCore(flight.Peripherals{
		Barometer: hal.NewProfileBarometer(b.Clock, hal.Climb(opts.ClimbRate, opts.Apogee), opts.Noise, opts.Seed),
		IMU:       hal.NewStaticIMU(),
		Indicator: b.LED,
		Storage:   b.Journal,
		Guidance:  b.Tracker,
	})
	if err != nil {
		return nil, err
	}
	b.Core = core
	if err := b.Scheduler.Add(core); err != nil {
		return nil, err
	}
	return b, nil
}

// Now returns the bench time.
func (b *Bench) Now() time.Duration {
	return b.Clock.Now()
}

// Run advances the bench by d.
func (b *Bench) Run(d time.Duration) error {
	return b.Scheduler.RunFor(context.Background(), d)
}

// Close stops all tasks.
func (b *Bench) Close() error {
	return b.Scheduler.Shutdown()
}

func parseFloat32(v *float32) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		*v = float32(f)
		return nil
	}
}
