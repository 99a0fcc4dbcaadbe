package storage

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/robotalks/avionics.go/pkg/framework"
)

// Sink receives flushed blocks.
type Sink interface {
	WriteBlock(*Block) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func(*Block) error

// WriteBlock implements Sink.
func (f SinkFunc) WriteBlock(block *Block) error {
	return f(block)
}

// Discard drops all blocks.
var Discard = SinkFunc(func(*Block) error { return nil })

// MultiSink writes every block to all sinks.
type MultiSink []Sink

// WriteBlock implements Sink.
func (s MultiSink) WriteBlock(block *Block) error {
	var errs framework.AggregatedError
	for _, sink := range s {
		errs.Add(sink.WriteBlock(block))
	}
	return errs.Aggregate()
}

// Close closes every sink implementing io.Closer.
func (s MultiSink) Close() error {
	var errs framework.AggregatedError
	for _, sink := range s {
		if closer, ok := sink.(io.Closer); ok {
			errs.Add(closer.Close())
		}
	}
	return errs.Aggregate()
}

// FileSink appends blocks to a file.
type FileSink struct {
	path   string
	file   *os.File
	writer BlockWriter
	lock   sync.Mutex
}

// OpenFileSink opens or creates the file at path for appending.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileSink{path: path, file: f, writer: BlockWriter{W: f}}, nil
}

// WriteBlock implements Sink.
func (s *FileSink) WriteBlock(block *Block) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.writer.WriteBlock(block); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Close closes the file.
func (s *FileSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.file.Close()
}

// ReadFile reads all blocks from a file written by FileSink.
func ReadFile(path string) ([]*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var blocks []*Block
	r := &BlockReader{R: f}
	for {
		block, err := r.ReadBlock()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, block)
	}
}
