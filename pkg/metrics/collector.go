// Package metrics exports flight core counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/avionics.go/pkg/flight"
	"github.com/robotalks/avionics.go/pkg/framework"
)

const namespace = "avionics"

func newDesc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

var (
	channelLen       = newDesc("channel_length", "Values queued in a channel.", "channel")
	channelCap       = newDesc("channel_capacity", "Capacity of a channel.", "channel")
	channelSent      = newDesc("channel_sent_total", "Values accepted by a channel.", "channel")
	channelReceived  = newDesc("channel_received_total", "Values taken from a channel.", "channel")
	channelFull      = newDesc("channel_full_total", "Sends rejected by a full channel.", "channel")
	channelCleared   = newDesc("channel_cleared_total", "Times a channel was cleared.", "channel")
	channelDiscarded = newDesc("channel_discarded_total", "Values discarded by clearing.", "channel")
	channelTimeouts  = newDesc("channel_timeouts_total", "Blocking operations timed out.", "channel")

	samples    = newDesc("samples_total", "Sensor samples taken.", "task")
	readErrors = newDesc("read_errors_total", "Failed sensor reads.", "task")
	recovered  = newDesc("overflow_recovered_total", "Samples sent after clearing a full channel.", "task")
	dropped    = newDesc("overflow_dropped_total", "Samples dropped after clearing a full channel.", "task")

	controlCycles    = newDesc("control_cycles_total", "Control cycles run.")
	controlAltitudes = newDesc("control_altitudes_total", "Filtered altitudes consumed by control.")

	logBytes       = newDesc("log_bytes_total", "Bytes accounted by the logger.")
	logFlushes     = newDesc("log_flushes_total", "Storage flushes.")
	logFlushErrors = newDesc("log_flush_errors_total", "Failed storage flushes.")
	logBudget      = newDesc("log_budget_bytes", "Bytes accounted since the last flush.")

	taskResumes = newDesc("task_resumes_total", "Times the scheduler resumed a task.", "task")
)

// Collector implements prometheus.Collector over a flight core.
// Values are read at scrape time.
type Collector struct {
	Core      *flight.Core
	Scheduler *framework.Scheduler
}

// NewCollector creates a Collector. sched is optional.
func NewCollector(core *flight.Core, sched *framework.Scheduler) *Collector {
	return &Collector{Core: core, Scheduler: sched}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range []*prometheus.Desc{
		channelLen, channelCap, channelSent, channelReceived, channelFull,
		channelCleared, channelDiscarded, channelTimeouts,
		samples, readErrors, recovered, dropped,
		controlCycles, controlAltitudes,
		logBytes, logFlushes, logFlushErrors, logBudget,
		taskResumes,
	} {
		ch <- desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.Core.Stats()
	for _, cs := range st.Channels {
		ch <- gauge(channelLen, float64(cs.Len), cs.Name)
		ch <- gauge(channelCap, float64(cs.Cap), cs.Name)
		ch <- counter(channelSent, cs.Sent, cs.Name)
		ch <- counter(channelReceived, cs.Received, cs.Name)
		ch <- counter(channelFull, cs.Full, cs.Name)
		ch <- counter(channelCleared, cs.Cleared, cs.Name)
		ch <- counter(channelDiscarded, cs.Discarded, cs.Name)
		ch <- counter(channelTimeouts, cs.Timeouts, cs.Name)
	}
	for task, as := range map[string]flight.AcquisitionStats{
		flight.TaskBaro: st.Baro,
		flight.TaskIMU:  st.IMU,
	} {
		ch <- counter(samples, as.Samples, task)
		ch <- counter(readErrors, as.ReadErrors, task)
		ch <- counter(recovered, as.Recovered, task)
		ch <- counter(dropped, as.Dropped, task)
	}
	ch <- counter(controlCycles, st.Control.Cycles)
	ch <- counter(controlAltitudes, st.Control.Altitudes)
	ch <- counter(logBytes, st.Log.Bytes)
	ch <- counter(logFlushes, st.Log.Flushes)
	ch <- counter(logFlushErrors, st.Log.FlushErrors)
	ch <- gauge(logBudget, float64(st.Log.Index))
	if c.Scheduler != nil {
		for _, info := range c.Scheduler.Tasks() {
			ch <- counter(taskResumes, info.Resumes, info.Name)
		}
	}
}

func gauge(desc *prometheus.Desc, v float64, labels ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
}

func counter(desc *prometheus.Desc, v uint64, labels ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
}

// Handler registers collectors on a new registry and serves it.
func Handler(collectors ...prometheus.Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(collectors...)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
