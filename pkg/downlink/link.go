package downlink

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/storage"
)

// Topics under the unit.
const (
	TopicLog    = "log"
	TopicMeta   = "meta"
	TopicStatus = "status"
)

// Unit status payloads.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ErrNotConnected indicates the broker isn't reachable.
var ErrNotConnected = errors.New("downlink not connected")

// Meta describes the unit, published retained on connect.
type Meta struct {
	Unit    string            `json:"unit"`
	Started time.Time         `json:"started"`
	Config  interface{}       `json:"config,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Link publishes flushed blocks to <prefix><unit>/log. It never waits
// for the broker, so writing a block can't stall the logging task.
type Link struct {
	Queue *Queue
	Meta  Meta

	published atomic.Uint64
	dropped   atomic.Uint64
}

// LinkStats are the counters of a Link.
type LinkStats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// NewLink creates a Link on q.
func NewLink(q *Queue, meta Meta) *Link {
	l := &Link{Queue: q, Meta: meta}
	q.OnConnect = l.publishMeta
	return l
}

// Topic returns the topic of the unit.
func (l *Link) Topic(name string) string {
	return l.Meta.Unit + "/" + name
}

// Name implements framework.Named.
func (l *Link) Name() string {
	return "downlink"
}

// Run implements framework.Runnable.
func (l *Link) Run(ctx context.Context) error {
	opts := l.Queue.Client.OptionsReader()
	glog.Infof("downlink connecting %v as %s", opts.Servers(), l.Meta.Unit)
	if token := l.Queue.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	<-ctx.Done()
	l.Queue.PubWith(l.Topic(TopicStatus), []byte(StatusOffline), 1, true).WaitTimeout(time.Second)
	l.Queue.Close()
	return ctx.Err()
}

// WriteBlock implements storage.Sink.
func (l *Link) WriteBlock(block *storage.Block) error {
	if !l.Queue.Client.IsConnectionOpen() {
		l.dropped.Add(1)
		return ErrNotConnected
	}
	l.Queue.Pub(l.Topic(TopicLog), block.Marshal())
	l.published.Add(1)
	return nil
}

// Stats returns the counters.
func (l *Link) Stats() LinkStats {
	return LinkStats{Published: l.published.Load(), Dropped: l.dropped.Load()}
}

func (l *Link) publishMeta(q *Queue) {
	meta, err := json.Marshal(&l.Meta)
	if err != nil {
		glog.Errorf("downlink meta: %v", err)
		return
	}
	q.PubWith(l.Topic(TopicMeta), meta, 1, true)
	q.PubWith(l.Topic(TopicStatus), []byte(StatusOnline), 1, true)
}
