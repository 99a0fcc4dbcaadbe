package flight

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/avionics.go/pkg/telemetry"
)

// Config defines the timing and sizing of the flight core.
type Config struct {
	BaroCapacity     int           `yaml:"baroCapacity"`
	AltitudeCapacity int           `yaml:"altitudeCapacity"`
	IMUCapacity      int           `yaml:"imuCapacity"`
	BaroPeriod       time.Duration `yaml:"baroPeriod"`
	IMUPeriod        time.Duration `yaml:"imuPeriod"`
	ControlPeriod    time.Duration `yaml:"controlPeriod"`
	LogPeriod        time.Duration `yaml:"logPeriod"`
	BaroTimeout      time.Duration `yaml:"baroTimeout"`
	IMUTimeout       time.Duration `yaml:"imuTimeout"`
	FlushThreshold   int           `yaml:"flushThreshold"`
	BaroRecordSize   int           `yaml:"baroRecordSize"`
	IMURecordSize    int           `yaml:"imuRecordSize"`
}

var defaultConfig = Config{
	BaroCapacity:     4,
	AltitudeCapacity: 4,
	IMUCapacity:      4,
	BaroPeriod:       500 * time.Millisecond,
	IMUPeriod:        500 * time.Millisecond,
	ControlPeriod:    100 * time.Millisecond,
	LogPeriod:        50 * time.Millisecond,
	BaroTimeout:      200 * time.Millisecond,
	IMUTimeout:       50 * time.Millisecond,
	FlushThreshold:   256,
	BaroRecordSize:   telemetry.BaroSampleSize,
	IMURecordSize:    telemetry.IMUSampleSize,
}

func init() {
	envDuration("AVIONICS_BARO_PERIOD", &defaultConfig.BaroPeriod)
	envDuration("AVIONICS_IMU_PERIOD", &defaultConfig.IMUPeriod)
	envDuration("AVIONICS_CONTROL_PERIOD", &defaultConfig.ControlPeriod)
	envDuration("AVIONICS_LOG_PERIOD", &defaultConfig.LogPeriod)
	if val := os.Getenv("AVIONICS_FLUSH_THRESHOLD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			defaultConfig.FlushThreshold = n
		}
	}
}

func envDuration(name string, d *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			*d = parsed
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.BaroCapacity, "baro-cap", defaultConfig.BaroCapacity, "Capacity of raw barometric channel.")
	flag.IntVar(&defaultConfig.AltitudeCapacity, "alt-cap", defaultConfig.AltitudeCapacity, "Capacity of filtered altitude channel.")
	flag.IntVar(&defaultConfig.IMUCapacity, "imu-cap", defaultConfig.IMUCapacity, "Capacity of raw inertial channel.")
	flag.DurationVar(&defaultConfig.BaroPeriod, "baro-period", defaultConfig.BaroPeriod, "Barometer sampling period.")
	flag.DurationVar(&defaultConfig.IMUPeriod, "imu-period", defaultConfig.IMUPeriod, "IMU sampling period.")
	flag.DurationVar(&defaultConfig.ControlPeriod, "control-period", defaultConfig.ControlPeriod, "Control loop period.")
	flag.DurationVar(&defaultConfig.LogPeriod, "log-period", defaultConfig.LogPeriod, "Logging period.")
	flag.DurationVar(&defaultConfig.BaroTimeout, "baro-timeout", defaultConfig.BaroTimeout, "Send timeout on barometric channels after overflow.")
	flag.DurationVar(&defaultConfig.IMUTimeout, "imu-timeout", defaultConfig.IMUTimeout, "Send timeout on inertial channel after overflow.")
	flag.IntVar(&defaultConfig.FlushThreshold, "flush-threshold", defaultConfig.FlushThreshold, "Logged bytes triggering a storage flush.")
	flag.IntVar(&defaultConfig.BaroRecordSize, "baro-record-size", defaultConfig.BaroRecordSize, "Logged bytes accounted per barometric sample.")
	flag.IntVar(&defaultConfig.IMURecordSize, "imu-record-size", defaultConfig.IMURecordSize, "Logged bytes accounted per inertial sample.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadConfig overlays the YAML file at path on the default config.
func LoadConfig(path string) (*Config, error) {
	conf := NewConfig()
	if path == "" {
		return conf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := conf.Overlay(data); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// MustLoadConfig loads config and fails on error.
func MustLoadConfig(path string) *Config {
	conf, err := LoadConfig(path)
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// Overlay applies YAML data on c and validates the result.
// Unknown keys are rejected.
func (c *Config) Overlay(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return c.Validate()
}

// MaxDrain is the number of bytes the logger can drain in one cycle.
func (c *Config) MaxDrain() int {
	return c.BaroCapacity*c.BaroRecordSize + c.IMUCapacity*c.IMURecordSize
}

// Validate checks the config can run without overflowing any counter.
func (c *Config) Validate() error {
	counts := []struct {
		name string
		n    int
	}{
		{"baroCapacity", c.BaroCapacity},
		{"altitudeCapacity", c.AltitudeCapacity},
		{"imuCapacity", c.IMUCapacity},
		{"flushThreshold", c.FlushThreshold},
		{"baroRecordSize", c.BaroRecordSize},
		{"imuRecordSize", c.IMURecordSize},
	}
	for _, v := range counts {
		if v.n < 1 || v.n > 0xffff {
			return fmt.Errorf("%s out of range: %d", v.name, v.n)
		}
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"baroPeriod", c.BaroPeriod},
		{"imuPeriod", c.IMUPeriod},
		{"controlPeriod", c.ControlPeriod},
		{"logPeriod", c.LogPeriod},
		{"baroTimeout", c.BaroTimeout},
		{"imuTimeout", c.IMUTimeout},
	}
	for _, v := range durations {
		if v.d <= 0 {
			return fmt.Errorf("%s must be positive: %v", v.name, v.d)
		}
	}
	drain := c.MaxDrain()
	if drain > c.FlushThreshold {
		return fmt.Errorf("a single log cycle drains up to %d bytes, more than flushThreshold %d", drain, c.FlushThreshold)
	}
	if c.FlushThreshold-1+drain > 0xffff {
		return fmt.Errorf("flushThreshold %d overflows the log byte budget", c.FlushThreshold)
	}
	return nil
}
