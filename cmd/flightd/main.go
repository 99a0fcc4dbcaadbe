package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/downlink"
	"github.com/robotalks/avionics.go/pkg/flight"
	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/hal"
	"github.com/robotalks/avionics.go/pkg/metrics"
	"github.com/robotalks/avionics.go/pkg/storage"
)

var (
	configFile string
	logFile    string
	dbFile     string
	mqttURL    string
	httpAddr   string
	climbRate  float64
	apogee     float64
	noise      float64
)

func init() {
	if val := os.Getenv("AVIONICS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flight.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "YAML config overlaid on flags.")
	flag.StringVar(&logFile, "log-file", logFile, "Append flushed blocks to this file.")
	flag.StringVar(&dbFile, "db", dbFile, "Store flushed blocks in this SQLite database.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL for downlink, e.g. mqtt://localhost:1883/avionics/.")
	flag.StringVar(&httpAddr, "http", httpAddr, "Serve /metrics and /telemetry on this address.")
	flag.Float64Var(&climbRate, "climb-rate", climbRate, "Simulated climb rate (m/s), 0 keeps the barometer static.")
	flag.Float64Var(&apogee, "apogee", 1000, "Simulated apogee (m).")
	flag.Float64Var(&noise, "noise", 0.05, "Simulated barometer noise (hPa).")
}

func loadConfig() *flight.Config {
	if configFile == "" {
		return flight.NewConfig()
	}
	return flight.MustLoadConfig(configFile)
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		glog.Errorf("flight computer stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
}

func run() error {
	conf := loadConfig()
	clock := framework.NewMonotonicClock()
	sched := framework.NewScheduler(clock)
	runner := framework.NewRunner().HandleSignals()

	var sinks storage.MultiSink
	journal := storage.NewJournal(&sinks)
	defer func() {
		if err := journal.Close(); err != nil {
			glog.Errorf("journal close: %v", err)
		}
		js := journal.Stats()
		glog.Infof("journal closed, %d blocks %d records", js.Blocks, js.Records)
	}()

	if logFile != "" {
		f, err := storage.OpenFileSink(logFile)
		if err != nil {
			return err
		}
		sinks = append(sinks, f)
	}
	if dbFile != "" {
		sinks = append(sinks, storage.NewSQLiteSink(dbFile))
	}
	if mqttURL != "" {
		q, err := downlink.NewQueueFromURL(mqttURL)
		if err != nil {
			return fmt.Errorf("downlink: %w", err)
		}
		link := downlink.NewLink(q, downlink.Meta{
			Unit:    downlink.UnitID(),
			Started: time.Now(),
			Config:  conf,
		})
		sinks = append(sinks, link)
		runner.Go(link)
	}
	var hub *downlink.Hub
	if httpAddr != "" {
		hub = downlink.NewHub()
		sinks = append(sinks, hub)
	}

	baro := hal.Barometer(hal.NewStaticBarometer())
	if climbRate > 0 {
		baro = hal.NewProfileBarometer(clock, hal.Climb(float32(climbRate), float32(apogee)), float32(noise), time.Now().UnixNano())
	}
	core, err := conf.NewCore(flight.Peripherals{
		Barometer: baro,
		IMU:       hal.NewStaticIMU(),
		Storage:   journal,
		Guidance:  &flight.AltitudeTracker{Next: flight.LogGuidance},
	})
	if err != nil {
		runner.Stop()
		return fmt.Errorf("flight core: %w", err)
	}
	if err := sched.Add(core); err != nil {
		runner.Stop()
		return fmt.Errorf("spawn: %w", err)
	}

	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(metrics.NewCollector(core, sched)))
		mux.Handle("/telemetry", hub.Handler())
		runner.Go(framework.HTTPServer(httpAddr, mux))
	}

	glog.Infof("flight computer starting, %d sinks", len(sinks))
	runner.Go(framework.NamedRun("scheduler", sched))
	return runner.Wait()
}
