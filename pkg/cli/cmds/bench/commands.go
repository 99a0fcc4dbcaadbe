package bench

import (
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/dustin/go-humanize"

	"github.com/robotalks/avionics.go/pkg/cli/sh"
	"github.com/robotalks/avionics.go/pkg/storage"
)

type altitudeReport struct {
	Time     float64 `json:"time"`
	Altitude float32 `json:"altitude"`
	Count    uint64  `json:"count"`
	LED      bool    `json:"led"`
}

type statsReport struct {
	Time    float64              `json:"time"`
	Core    interface{}          `json:"core"`
	Journal storage.JournalStats `json:"journal"`
}

var (
	// RunCmd advances the bench clock.
	RunCmd = ishell.Cmd{
		Name:    "run",
		Aliases: []string{"r"},
		Help:    "DURATION (e.g. 10s)",
		Func: sh.WithBench(func(c *ishell.Context, b *sh.Bench) {
			d := time.Second
			if len(c.Args) > 0 {
				var err error
				if d, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(fmt.Errorf("Invalid DURATION: %v", err))
					return
				}
			}
			if err := b.Run(d); err != nil {
				c.Err(err)
				return
			}
			printAltitude(c, b)
		}),
	}

	// AltitudeCmd prints the latest filtered altitude.
	AltitudeCmd = ishell.Cmd{
		Name:    "altitude",
		Aliases: []string{"alt"},
		Help:    "",
		Func:    sh.WithBench(printAltitude),
	}

	// StatsCmd prints channel and task counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: sh.WithBench(func(c *ishell.Context, b *sh.Bench) {
			st := b.Core.Stats()
			js := b.Journal.Stats()
			sh.Output(c, &statsReport{Time: b.Now().Seconds(), Core: st, Journal: js}, func() {
				for _, ch := range st.Channels {
					c.Printf("%-8s %d/%d sent=%d recv=%d full=%d cleared=%d discarded=%d timeouts=%d\n",
						ch.Name, ch.Len, ch.Cap, ch.Sent, ch.Received, ch.Full, ch.Cleared, ch.Discarded, ch.Timeouts)
				}
				c.Printf("baro     samples=%d errors=%d recovered=%d dropped=%d\n",
					st.Baro.Samples, st.Baro.ReadErrors, st.Baro.Recovered, st.Baro.Dropped)
				c.Printf("imu      samples=%d errors=%d recovered=%d dropped=%d\n",
					st.IMU.Samples, st.IMU.ReadErrors, st.IMU.Recovered, st.IMU.Dropped)
				c.Printf("control  cycles=%d altitudes=%d\n", st.Control.Cycles, st.Control.Altitudes)
				c.Printf("log      %s accounted, %d flushes (%d failed), budget %d, paused=%v\n",
					humanize.Bytes(st.Log.Bytes), st.Log.Flushes, st.Log.FlushErrors, st.Log.Index, st.Log.Paused)
				c.Printf("journal  %s blocks, %s records, %s encoded\n",
					humanize.Comma(int64(js.Blocks)), humanize.Comma(int64(js.Records)), humanize.Bytes(js.Bytes))
			})
		}),
	}

	// TasksCmd lists scheduler tasks.
	TasksCmd = ishell.Cmd{
		Name: "tasks",
		Help: "",
		Func: sh.WithBench(func(c *ishell.Context, b *sh.Bench) {
			tasks := b.Scheduler.Tasks()
			sh.Output(c, tasks, func() {
				for _, t := range tasks {
					c.Printf("%-8s %-8s resumed %s times\n", t.Name, t.State, humanize.Comma(int64(t.Resumes)))
				}
			})
		}),
	}

	// LogPauseCmd stops the logger draining, overflowing the raw channels.
	LogPauseCmd = ishell.Cmd{
		Name: "log.pause",
		Help: "",
		Func: sh.WithBench(func(c *ishell.Context, b *sh.Bench) {
			b.Core.Log.Pause(true)
		}),
	}

	// LogResumeCmd resumes the logger.
	LogResumeCmd = ishell.Cmd{
		Name: "log.resume",
		Help: "",
		Func: sh.WithBench(func(c *ishell.Context, b *sh.Bench) {
			b.Core.Log.Pause(false)
		}),
	}
)

func printAltitude(c *ishell.Context, b *sh.Bench) {
	altitude, count := b.Tracker.Latest()
	report := &altitudeReport{Time: b.Now().Seconds(), Altitude: altitude, Count: count, LED: b.LED.On()}
	sh.Output(c, report, func() {
		c.Printf("T+%.3fs altitude %.2f m (%d samples)\n", report.Time, report.Altitude, report.Count)
	})
}

func init() {
	sh.AddCmds(
		&RunCmd,
		&AltitudeCmd,
		&StatsCmd,
		&TasksCmd,
		&LogPauseCmd,
		&LogResumeCmd,
	)
}
