package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/avionics.go/pkg/telemetry"
)

var (
	testBaro = telemetry.BaroSample{Pressure: 1013.25, Temperature: 25, Timestamp: 500000}
	testIMU  = telemetry.IMUSample{
		Accel:     [3]float32{0, 0, 9.81},
		Gyro:      [3]float32{0.1, -0.2, 0.3},
		Mag:       [3]float32{21.5, -3, 40},
		Timestamp: 1000000,
	}
)

func TestRecordCodec(t *testing.T) {
	var enc Encoder
	require.NoError(t, enc.EncodeBaro(testBaro))
	require.NoError(t, enc.EncodeIMU(testIMU))
	require.NoError(t, enc.EncodeBaro(testBaro))
	require.Equal(t, 3, enc.Records())
	// baro: 2 + 3*5, imu: 2 + 5 + 3*14
	require.Equal(t, 17+49+17, enc.Len())

	records, err := DecodeRecords(enc.Take())
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, testBaro, *records[0].Baro)
	require.Nil(t, records[0].IMU)
	require.Equal(t, testIMU, *records[1].IMU)
	require.Equal(t, testBaro, *records[2].Baro)
	require.Zero(t, enc.Len())
	require.Zero(t, enc.Records())
}

func TestDecodeMalformed(t *testing.T) {
	var enc Encoder
	require.NoError(t, enc.EncodeIMU(testIMU))
	data := enc.Take()
	_, err := DecodeRecords(data[:len(data)-3])
	require.Error(t, err)

	_, err = DecodeRecords([]byte{0x08, 0x01})
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestBlockFraming(t *testing.T) {
	var buf bytes.Buffer
	w := &BlockWriter{W: &buf}
	var enc Encoder
	require.NoError(t, enc.EncodeBaro(testBaro))
	require.NoError(t, w.WriteBlock(&Block{Seq: 7, Records: 1, Data: enc.Take()}))
	require.NoError(t, w.WriteBlock(&Block{Seq: 8, Data: []byte{}}))

	r := &BlockReader{R: &buf}
	block, err := r.ReadBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(7), block.Seq)
	records, err := block.Decode()
	require.NoError(t, err)
	require.Equal(t, testBaro, *records[0].Baro)
	block, err = r.ReadBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(8), block.Seq)
	require.Empty(t, block.Data)
	_, err = r.ReadBlock()
	require.Error(t, err)
}

func TestJournal(t *testing.T) {
	var blocks []*Block
	var failure error
	j := NewJournal(SinkFunc(func(block *Block) error {
		if failure != nil {
			return failure
		}
		blocks = append(blocks, block)
		return nil
	}))
	j.RecordBaro(testBaro)
	j.RecordIMU(testIMU)
	require.Equal(t, 2, j.Stats().Staged)
	require.NoError(t, j.Flush())
	require.Len(t, blocks, 1)
	require.Equal(t, uint64(0), blocks[0].Seq)
	require.Equal(t, 2, blocks[0].Records)

	failure = errors.New("write protected")
	j.RecordBaro(testBaro)
	require.Equal(t, failure, j.Flush())

	failure = nil
	j.RecordIMU(testIMU)
	require.NoError(t, j.Flush())
	require.Len(t, blocks, 2)
	require.Equal(t, uint64(2), blocks[1].Seq)
	records, err := blocks[1].Decode()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].IMU)

	st := j.Stats()
	require.Equal(t, uint64(2), st.Blocks)
	require.Equal(t, uint64(3), st.Records)
	require.Equal(t, uint64(1), st.Errors)
	require.Zero(t, st.Staged)
}

func TestMultiSink(t *testing.T) {
	var count int
	counter := SinkFunc(func(*Block) error {
		count++
		return nil
	})
	failure := errors.New("offline")
	sink := MultiSink{counter, SinkFunc(func(*Block) error { return failure }), counter}
	err := sink.WriteBlock(&Block{})
	require.True(t, errors.Is(err, failure))
	require.Equal(t, 2, count)
	require.NoError(t, MultiSink{counter, Discard}.WriteBlock(&Block{}))
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.log")
	sink, err := OpenFileSink(path)
	require.NoError(t, err)
	j := NewJournal(sink)
	for n := 0; n < 3; n++ {
		j.RecordBaro(testBaro)
		require.NoError(t, j.Flush())
	}
	require.NoError(t, sink.Close())

	blocks, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for n, block := range blocks {
		require.Equal(t, uint64(n), block.Seq)
		require.Equal(t, 1, block.Records)
	}
}

type testCloser struct {
	Sink
	closed int
}

func (c *testCloser) Close() error {
	c.closed++
	return nil
}

func TestJournalClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.log")
	file, err := OpenFileSink(path)
	require.NoError(t, err)
	other := &testCloser{Sink: Discard}
	j := NewJournal(MultiSink{file, other, Discard})
	j.RecordBaro(testBaro)
	require.NoError(t, j.Flush())
	j.RecordBaro(testBaro)
	j.RecordIMU(testIMU)
	require.NoError(t, j.Close())
	require.Equal(t, 1, other.closed)
	require.Zero(t, j.Stats().Staged)

	blocks, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, 2, blocks[1].Records)
	require.Error(t, file.WriteBlock(&Block{}))

	// nothing staged, nothing written
	empty := &testCloser{Sink: SinkFunc(func(*Block) error {
		t.Fatal("unexpected block")
		return nil
	})}
	require.NoError(t, NewJournal(empty).Close())
	require.Equal(t, 1, empty.closed)
}

func TestSQLiteSink(t *testing.T) {
	sink := NewSQLiteSink(filepath.Join(t.TempDir(), "flight.db"))
	defer sink.Close()
	j := NewJournal(sink)
	j.RecordBaro(testBaro)
	j.RecordIMU(testIMU)
	require.NoError(t, j.Flush())
	j.RecordIMU(testIMU)
	require.NoError(t, j.Flush())

	blocks, err := sink.ReadBlocks(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, uint64(1), blocks[1].Seq)
	records, err := blocks[0].Decode()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, testIMU, *records[1].IMU)
}
