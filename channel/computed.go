package channel

import (
	"errors"

	"github.com/netdaq-go/netdaq/wire"
)

// Computed type-code words, grounded on
// original_source/lib/config/enums.py's DAQComputedMeasurementType.
// AminusAvg uses 0x00008003: the original draft's
// DAQComputedAminusAvgChannel.write() reuses AminusB's 0x00008002,
// which spec.md's own Open Questions resolution calls out as
// superseded by 0x00008003 — this port uses the corrected code.
const (
	typeAverage   uint32 = 0x00008001
	typeAminusB   uint32 = 0x00008002
	typeAminusAvg uint32 = 0x00008003
	typeEquation  uint32 = 0x00008004
)

// ErrEmptyEquation is returned when an Equation channel is constructed
// with no program bytes.
var ErrEmptyEquation = errors.New("channel: equation channel requires a non-empty program")

// Average is a computed channel reporting the average of the channels
// named in ChannelBitmask (one bit per channel index).
type Average struct {
	ChannelBitmask uint32
	Trailer        Trailer
}

func NewAverage(bitmask uint32, trailer Trailer) *Average {
	return &Average{ChannelBitmask: bitmask, Trailer: trailer}
}

func (c *Average) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	e.Uint32(typeAverage).Zero32().Zero32().Zero32().Uint32(c.ChannelBitmask)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// AminusB is a computed channel reporting ChannelA's value minus
// ChannelB's value.
type AminusB struct {
	ChannelA uint32
	ChannelB uint32
	Trailer  Trailer
}

func NewAminusB(channelA, channelB uint32, trailer Trailer) *AminusB {
	return &AminusB{ChannelA: channelA, ChannelB: channelB, Trailer: trailer}
}

func (c *AminusB) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	e.Uint32(typeAminusB).Zero32().Uint32(c.ChannelA).Zero32().Uint32(c.ChannelB)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// AminusAvg is a computed channel reporting ChannelA's value minus the
// average of the channels named in ChannelBitmask.
type AminusAvg struct {
	ChannelA       uint32
	ChannelBitmask uint32
	Trailer        Trailer
}

func NewAminusAvg(channelA, bitmask uint32, trailer Trailer) *AminusAvg {
	return &AminusAvg{ChannelA: channelA, ChannelBitmask: bitmask, Trailer: trailer}
}

func (c *AminusAvg) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	e.Uint32(typeAminusAvg).Zero32().Uint32(c.ChannelA).Zero32().Uint32(c.ChannelBitmask)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// Equation is a computed channel driven by a compiled stack-machine
// program (the `equation` package's Builder.Encode output). The
// program is written into the configuration's auxiliary region; the
// record's fifth head field carries that region's running byte offset
// at assembly time.
type Equation struct {
	Program []byte
	Trailer Trailer
}

// NewEquation validates and constructs an equation channel. program
// must be a non-empty, already-validated stack-machine bytecode
// stream (see equation.Builder.Encode).
func NewEquation(program []byte, trailer Trailer) (*Equation, error) {
	if len(program) == 0 {
		return nil, ErrEmptyEquation
	}
	return &Equation{Program: program, Trailer: trailer}, nil
}

func (c *Equation) Encode(auxOffset uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	e.Uint32(typeEquation).Zero32().Zero32().Zero32().Uint32(auxOffset)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, c.Program
}
