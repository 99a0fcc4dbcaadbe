package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMicros(t *testing.T) {
	require.Equal(t, uint32(0), Micros(0))
	require.Equal(t, uint32(500000), Micros(500*time.Millisecond))
	require.Equal(t, uint32(1), Micros(1999*time.Nanosecond))
	// wraps after ~71.6 minutes
	require.Equal(t, uint32(5), Micros((1<<32+5)*time.Microsecond))
}
