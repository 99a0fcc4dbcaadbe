package storage

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/protobuf/proto"
)

// Block is the unit written to a Sink on every flush.
type Block struct {
	Seq     uint64 `json:"seq"`
	Records int    `json:"records"`
	Data    []byte `json:"data"`
}

const (
	fieldBlockSeq     = 1
	fieldBlockRecords = 2
	fieldBlockData    = 3
)

// Marshal encodes the block in protobuf wire format.
func (b *Block) Marshal() []byte {
	var buf proto.Buffer
	buf.EncodeVarint(wireKey(fieldBlockSeq, proto.WireVarint))
	buf.EncodeVarint(b.Seq)
	buf.EncodeVarint(wireKey(fieldBlockRecords, proto.WireVarint))
	buf.EncodeVarint(uint64(b.Records))
	buf.EncodeVarint(wireKey(fieldBlockData, proto.WireBytes))
	buf.EncodeRawBytes(b.Data)
	return buf.Bytes()
}

// UnmarshalBlock decodes a block encoded by Block.Marshal.
func UnmarshalBlock(data []byte) (*Block, error) {
	block := &Block{}
	err := decodeFields(data, func(field int, b *proto.Buffer, wire uint64) error {
		switch {
		case field == fieldBlockSeq && wire == proto.WireVarint:
			v, err := b.DecodeVarint()
			block.Seq = v
			return err
		case field == fieldBlockRecords && wire == proto.WireVarint:
			v, err := b.DecodeVarint()
			block.Records = int(v)
			return err
		case field == fieldBlockData && wire == proto.WireBytes:
			v, err := b.DecodeRawBytes(true)
			block.Data = v
			return err
		}
		return fmt.Errorf("%w: block field %d wire type %d", ErrMalformed, field, wire)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// Decode decodes the records in the block.
func (b *Block) Decode() ([]Record, error) {
	return DecodeRecords(b.Data)
}

// BlockWriter writes blocks to a stream.
// Each block is prefixed by 4-byte (little-endian) indicate the length.
type BlockWriter struct {
	W io.Writer
}

// WriteBlock implements Sink.
func (w *BlockWriter) WriteBlock(block *Block) error {
	data := block.Marshal()
	if err := binary.Write(w.W, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.W.Write(data)
	return err
}

// BlockReader reads blocks written by BlockWriter.
type BlockReader struct {
	R io.Reader
}

// ReadBlock reads the next block. It returns io.EOF at the end of the
// stream.
func (r *BlockReader) ReadBlock() (*Block, error) {
	var size uint32
	if err := binary.Read(r.R, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r.R, data); err != nil {
		return nil, err
	}
	return UnmarshalBlock(data)
}
