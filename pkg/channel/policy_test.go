package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/avionics.go/pkg/framework"
)

type testTaskContext struct{}

func (testTaskContext) Name() string              { return "test" }
func (testTaskContext) Now() time.Duration        { return 0 }
func (testTaskContext) Context() context.Context  { return context.Background() }
func (testTaskContext) Sleep(time.Duration) error { return nil }
func (testTaskContext) Wait(*framework.WaitQueue, time.Duration) error {
	return framework.ErrTimeout
}

type testSender struct {
	trySendErr     error
	sendTimeoutErr error
	clears         int
	sent           []int
	timeout        time.Duration
}

func (s *testSender) TrySend(v int) error {
	if s.trySendErr != nil {
		return s.trySendErr
	}
	s.sent = append(s.sent, v)
	return nil
}

func (s *testSender) SendTimeout(tc framework.TaskContext, v int, timeout time.Duration) error {
	s.timeout = timeout
	if s.sendTimeoutErr != nil {
		return s.sendTimeoutErr
	}
	s.sent = append(s.sent, v)
	return nil
}

func (s *testSender) Clear() {
	s.clears++
}

func TestPublish(t *testing.T) {
	cases := []struct {
		name           string
		trySendErr     error
		sendTimeoutErr error
		outcome        Outcome
		err            error
		clears         int
		sent           []int
	}{
		{name: "delivered", outcome: Delivered, sent: []int{1}},
		{name: "recovered", trySendErr: ErrFull, outcome: Recovered, clears: 1, sent: []int{1}},
		{name: "dropped", trySendErr: ErrFull, sendTimeoutErr: ErrTimeout, outcome: Dropped, clears: 1},
		{name: "stopped", trySendErr: ErrFull, sendTimeoutErr: framework.ErrStopped,
			outcome: Dropped, err: framework.ErrStopped, clears: 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := &testSender{trySendErr: c.trySendErr, sendTimeoutErr: c.sendTimeoutErr}
			outcome, err := Publish[int](testTaskContext{}, s, 1, 200*time.Millisecond)
			require.Equal(t, c.outcome, outcome)
			require.Equal(t, c.err, err)
			require.Equal(t, c.clears, s.clears)
			require.Equal(t, c.sent, s.sent)
			if c.clears > 0 {
				require.Equal(t, 200*time.Millisecond, s.timeout)
			}
		})
	}
}

func TestPublishFreshness(t *testing.T) {
	c := New[int]("fresh", 4)
	for n := 0; n < 4; n++ {
		outcome, err := Publish[int](testTaskContext{}, c, n, 50*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, Delivered, outcome)
	}
	outcome, err := Publish[int](testTaskContext{}, c, 4, 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, Recovered, outcome)
	require.Equal(t, 1, c.Len())
	v, err := c.TryReceive()
	require.NoError(t, err)
	require.Equal(t, 4, v)
}
