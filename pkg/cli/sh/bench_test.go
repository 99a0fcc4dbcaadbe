package sh

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/avionics.go/pkg/flight"
	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/storage"
)

func TestBench(t *testing.T) {
	var blocks []*storage.Block
	b, err := NewBench(flight.NewConfig(), BenchOptions{
		ClimbRate: 10,
		Apogee:    1000,
		Sink: storage.SinkFunc(func(block *storage.Block) error {
			blocks = append(blocks, block)
			return nil
		}),
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Run(10*time.Second))
	require.Equal(t, 10*time.Second, b.Now())
	altitude, count := b.Tracker.Latest()
	require.Equal(t, uint64(20), count)
	// mean of the samples taken from 5s to 9.5s
	require.InDelta(t, 72.5, altitude, 0.5)

	st := b.Core.Stats()
	require.Equal(t, uint64(4), st.Log.Flushes)
	require.Len(t, blocks, 4)
	var records int
	for _, block := range blocks {
		decoded, err := block.Decode()
		require.NoError(t, err)
		records += len(decoded)
	}
	require.Equal(t, 40, records)
	require.Equal(t, 2, b.Journal.Stats().Staged)

	require.NoError(t, b.Run(time.Second))
	require.Equal(t, 11*time.Second, b.Now())
}

func TestResetBench(t *testing.T) {
	s := &Shell{Config: flight.NewConfig(), Options: BenchOptions{ClimbRate: 10, Apogee: 100}}
	require.NoError(t, s.resetBench())
	first := s.Bench
	require.NoError(t, first.Scheduler.Spawn("faulty", framework.TaskFunc(func(framework.TaskContext) error {
		return errors.New("sensor bus fault")
	})))
	require.NoError(t, first.Run(time.Second))

	// the failure reported on close doesn't keep the shell from resetting
	require.NoError(t, s.resetBench())
	require.NotSame(t, first, s.Bench)
	require.Zero(t, s.Bench.Now())
	for _, task := range first.Scheduler.Tasks() {
		require.Equal(t, "finished", task.State, task.Name)
	}
	require.NoError(t, s.Bench.Close())
}
