package channel

import (
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/framework"
)

// Outcome is the result of Publish.
type Outcome int

// Outcomes of Publish.
const (
	// Delivered means the value was accepted without contention.
	Delivered Outcome = iota
	// Recovered means the channel was full, cleared and the value was
	// accepted afterwards.
	Recovered
	// Dropped means the channel was cleared but the value still didn't
	// fit before the timeout.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Recovered:
		return "recovered"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// Publish sends v with the freshness-first overflow policy: when the
// channel is full, all stale values are discarded and one timed send is
// attempted. A timeout drops v silently; only ErrStopped is returned.
func Publish[T any](tc framework.TaskContext, ch Sender[T], v T, timeout time.Duration) (Outcome, error) {
	err := ch.TrySend(v)
	if err == nil {
		return Delivered, nil
	}
	if !errors.Is(err, ErrFull) {
		return Dropped, err
	}
	ch.Clear()
	err = ch.SendTimeout(tc, v, timeout)
	switch {
	case err == nil:
		glog.Warningf("%s: channel full, cleared", tc.Name())
		return Recovered, nil
	case errors.Is(err, ErrTimeout):
		glog.Warningf("%s: channel full, sample dropped", tc.Name())
		return Dropped, nil
	}
	return Dropped, err
}
