// Package storage implements the storage behind the logging task: a
// journal encoding drained samples into blocks, and sinks persisting or
// forwarding the blocks.
package storage

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/avionics.go/pkg/telemetry"
)

// Records are encoded in protobuf wire format:
//
//	message Record { oneof { Baro baro = 1; IMU imu = 2; } }
//	message Baro { fixed32 timestamp = 1; float pressure = 2; float temperature = 3; }
//	message IMU { fixed32 timestamp = 1; repeated float accel = 2 [packed]; gyro = 3; mag = 4; }
const (
	fieldBaro = 1
	fieldIMU  = 2

	fieldTimestamp   = 1
	fieldPressure    = 2
	fieldTemperature = 3
	fieldAccel       = 2
	fieldGyro        = 3
	fieldMag         = 4
)

// ErrMalformed indicates encoded data can't be decoded.
var ErrMalformed = errors.New("malformed record")

// Record is a decoded sample. Exactly one of Baro and IMU is set.
type Record struct {
	Baro *telemetry.BaroSample `json:"baro,omitempty"`
	IMU  *telemetry.IMUSample  `json:"imu,omitempty"`
}

func wireKey(field, wire int) uint64 {
	return uint64(field)<<3 | uint64(wire)
}

// Encoder appends records to a buffer.
type Encoder struct {
	buf     proto.Buffer
	msg     proto.Buffer
	records int
}

// EncodeBaro appends a barometric record.
func (e *Encoder) EncodeBaro(s telemetry.BaroSample) error {
	e.msg.Reset()
	e.fixed32(fieldTimestamp, s.Timestamp)
	e.fixed32(fieldPressure, math.Float32bits(s.Pressure))
	e.fixed32(fieldTemperature, math.Float32bits(s.Temperature))
	return e.flushMsg(fieldBaro)
}

// EncodeIMU appends an inertial record.
func (e *Encoder) EncodeIMU(s telemetry.IMUSample) error {
	e.msg.Reset()
	e.fixed32(fieldTimestamp, s.Timestamp)
	e.floats(fieldAccel, s.Accel)
	e.floats(fieldGyro, s.Gyro)
	e.floats(fieldMag, s.Mag)
	return e.flushMsg(fieldIMU)
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf.Bytes())
}

// Records returns the number of encoded records.
func (e *Encoder) Records() int {
	return e.records
}

// Take returns a copy of the encoded bytes and resets the encoder.
func (e *Encoder) Take() []byte {
	data := append([]byte(nil), e.buf.Bytes()...)
	e.buf.Reset()
	e.records = 0
	return data
}

// proto.Buffer encoders only append to a slice and never fail.
func (e *Encoder) fixed32(field int, v uint32) {
	e.msg.EncodeVarint(wireKey(field, proto.WireFixed32))
	e.msg.EncodeFixed32(uint64(v))
}

func (e *Encoder) floats(field int, v [3]float32) {
	var packed proto.Buffer
	for _, f := range v {
		packed.EncodeFixed32(uint64(math.Float32bits(f)))
	}
	e.msg.EncodeVarint(wireKey(field, proto.WireBytes))
	e.msg.EncodeRawBytes(packed.Bytes())
}

func (e *Encoder) flushMsg(field int) error {
	if err := e.buf.EncodeVarint(wireKey(field, proto.WireBytes)); err != nil {
		return err
	}
	if err := e.buf.EncodeRawBytes(e.msg.Bytes()); err != nil {
		return err
	}
	e.records++
	return nil
}

// DecodeRecords decodes all records in data.
func DecodeRecords(data []byte) ([]Record, error) {
	var records []Record
	b := proto.NewBuffer(data)
	for len(b.Unread()) > 0 {
		field, msg, err := nextMessage(b)
		if err != nil {
			return records, err
		}
		switch field {
		case fieldBaro:
			s, err := decodeBaro(msg)
			if err != nil {
				return records, err
			}
			records = append(records, Record{Baro: s})
		case fieldIMU:
			s, err := decodeIMU(msg)
			if err != nil {
				return records, err
			}
			records = append(records, Record{IMU: s})
		}
	}
	return records, nil
}

func nextMessage(b *proto.Buffer) (int, []byte, error) {
	key, err := b.DecodeVarint()
	if err != nil {
		return 0, nil, err
	}
	if key&7 != proto.WireBytes {
		return 0, nil, fmt.Errorf("%w: wire type %d", ErrMalformed, key&7)
	}
	msg, err := b.DecodeRawBytes(false)
	return int(key >> 3), msg, err
}

type fieldFunc func(field int, b *proto.Buffer, wire uint64) error

func decodeFields(msg []byte, fn fieldFunc) error {
	b := proto.NewBuffer(msg)
	for len(b.Unread()) > 0 {
		key, err := b.DecodeVarint()
		if err != nil {
			return err
		}
		if err := fn(int(key>>3), b, key&7); err != nil {
			return err
		}
	}
	return nil
}

func decodeFixed32(b *proto.Buffer, wire uint64) (uint32, error) {
	if wire != proto.WireFixed32 {
		return 0, fmt.Errorf("%w: wire type %d", ErrMalformed, wire)
	}
	v, err := b.DecodeFixed32()
	return uint32(v), err
}

func decodeFloats(b *proto.Buffer, wire uint64, out *[3]float32) error {
	if wire != proto.WireBytes {
		return fmt.Errorf("%w: wire type %d", ErrMalformed, wire)
	}
	packed, err := b.DecodeRawBytes(false)
	if err != nil {
		return err
	}
	if len(packed) != 12 {
		return fmt.Errorf("%w: %d packed bytes", ErrMalformed, len(packed))
	}
	pb := proto.NewBuffer(packed)
	for n := range out {
		v, err := pb.DecodeFixed32()
		if err != nil {
			return err
		}
		out[n] = math.Float32frombits(uint32(v))
	}
	return nil
}

func decodeBaro(msg []byte) (*telemetry.BaroSample, error) {
	s := &telemetry.BaroSample{}
	err := decodeFields(msg, func(field int, b *proto.Buffer, wire uint64) error {
		v, err := decodeFixed32(b, wire)
		if err != nil {
			return err
		}
		switch field {
		case fieldTimestamp:
			s.Timestamp = v
		case fieldPressure:
			s.Pressure = math.Float32frombits(v)
		case fieldTemperature:
			s.Temperature = math.Float32frombits(v)
		}
		return nil
	})
	return s, err
}

func decodeIMU(msg []byte) (*telemetry.IMUSample, error) {
	s := &telemetry.IMUSample{}
	err := decodeFields(msg, func(field int, b *proto.Buffer, wire uint64) error {
		switch field {
		case fieldTimestamp:
			v, err := decodeFixed32(b, wire)
			s.Timestamp = v
			return err
		case fieldAccel:
			return decodeFloats(b, wire, &s.Accel)
		case fieldGyro:
			return decodeFloats(b, wire, &s.Gyro)
		case fieldMag:
			return decodeFloats(b, wire, &s.Mag)
		}
		return fmt.Errorf("%w: unknown field %d", ErrMalformed, field)
	})
	return s, err
}
