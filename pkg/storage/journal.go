package storage

import (
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"

	"github.com/robotalks/avionics.go/pkg/framework"
	"github.com/robotalks/avionics.go/pkg/telemetry"
)

// JournalStats are the counters of a Journal.
type JournalStats struct {
	Blocks  uint64 `json:"blocks"`
	Records uint64 `json:"records"`
	Bytes   uint64 `json:"bytes"`
	Errors  uint64 `json:"errors"`
	Staged  int    `json:"staged"`
}

// Journal stages drained samples and writes them as one Block to the
// Sink on every flush. A block failing to write is lost.
type Journal struct {
	Sink Sink

	enc   Encoder
	seq   uint64
	stats JournalStats
	lock  sync.Mutex
}

// NewJournal creates a Journal writing to sink.
func NewJournal(sink Sink) *Journal {
	if sink == nil {
		sink = Discard
	}
	return &Journal{Sink: sink}
}

// RecordBaro stages a barometric sample.
func (j *Journal) RecordBaro(s telemetry.BaroSample) {
	j.lock.Lock()
	defer j.lock.Unlock()
	if err := j.enc.EncodeBaro(s); err != nil {
		glog.Errorf("journal: encode baro: %v", err)
	}
}

// RecordIMU stages an inertial sample.
func (j *Journal) RecordIMU(s telemetry.IMUSample) {
	j.lock.Lock()
	defer j.lock.Unlock()
	if err := j.enc.EncodeIMU(s); err != nil {
		glog.Errorf("journal: encode imu: %v", err)
	}
}

// Flush writes the staged records as a block.
func (j *Journal) Flush() error {
	j.lock.Lock()
	block := &Block{Seq: j.seq, Records: j.enc.Records(), Data: j.enc.Take()}
	j.seq++
	j.lock.Unlock()

	err := j.Sink.WriteBlock(block)

	j.lock.Lock()
	defer j.lock.Unlock()
	if err != nil {
		j.stats.Errors++
		return err
	}
	j.stats.Blocks++
	j.stats.Records += uint64(block.Records)
	j.stats.Bytes += uint64(len(block.Data))
	glog.V(1).Infof("journal: block %d, %d records, %s (total %s)",
		block.Seq, block.Records, humanize.Bytes(uint64(len(block.Data))), humanize.Bytes(j.stats.Bytes))
	return nil
}

// Close flushes the staged records, if any, and closes the sink when it
// implements io.Closer.
func (j *Journal) Close() error {
	var errs framework.AggregatedError
	j.lock.Lock()
	staged := j.enc.Records()
	j.lock.Unlock()
	if staged > 0 {
		errs.Add(j.Flush())
	}
	if closer, ok := j.Sink.(io.Closer); ok {
		errs.Add(closer.Close())
	}
	return errs.Aggregate()
}

// Stats returns a snapshot of the counters.
func (j *Journal) Stats() JournalStats {
	j.lock.Lock()
	defer j.lock.Unlock()
	st := j.stats
	st.Staged = j.enc.Records()
	return st
}
