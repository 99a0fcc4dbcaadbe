package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/avionics.go/pkg/flight"
	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/hal"
)

func newTestCollector(t *testing.T) *Collector {
	core, err := flight.NewConfig().NewCore(flight.Peripherals{
		Barometer: hal.NewStaticBarometer(),
		IMU:       hal.NewStaticIMU(),
	})
	require.NoError(t, err)
	s := framework.NewScheduler(framework.NewVirtualClock())
	require.NoError(t, s.Add(core))
	require.NoError(t, s.RunUntil(context.Background(), 10*time.Second))
	require.NoError(t, s.Shutdown())
	return NewCollector(core, s)
}

func TestCollector(t *testing.T) {
	c := newTestCollector(t)
	// 3 channels * 8 + 2 tasks * 4 + 6 + 4 scheduler tasks
	require.Equal(t, 42, testutil.CollectAndCount(c))

	expected := `
# HELP avionics_log_flushes_total Storage flushes.
# TYPE avionics_log_flushes_total counter
avionics_log_flushes_total 4
# HELP avionics_log_budget_bytes Bytes accounted since the last flush.
# TYPE avionics_log_budget_bytes gauge
avionics_log_budget_bytes 68
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"avionics_log_flushes_total", "avionics_log_budget_bytes"))
}

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(Handler(newTestCollector(t)))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `avionics_channel_sent_total{channel="baro"} 21`)
	require.Contains(t, string(body), `avionics_task_resumes_total{task="log"}`)
}
