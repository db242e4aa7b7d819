// Package daq is the instrument façade: it wraps a transport.Session
// with the driver's typed operations (ping, configuration, time sync,
// acquisition control, spy/monitor, reading retrieval), grounded on
// original_source/lib/netdaq.py's NetDAQ class and spec.md §4.7.
// Operations follow rob-gra-go-iecp5's asdu/csys.go and
// asdu/cproc.go idiom of one function per command, collapsed here onto
// methods of a single *Client since this driver owns exactly one
// session rather than routing many ASDU types to many addresses.
package daq

import (
	"errors"
	"fmt"
	"time"

	"github.com/netdaq-go/netdaq/wire"
)

// chunkHeaderSize is the 28-byte per-chunk header: a 0x10 marker word,
// packed time (8 bytes), u16 DIO, 2 bytes unused, u32 alarm-1, u32
// alarm-2, u32 totalizer. See DESIGN.md's "Resolved
// discrepancy: GET_READINGS chunk layout" for why this is 28 bytes
// and not the 32 spec.md's prose states.
const chunkHeaderSize = 28

const chunkMarker uint32 = 0x10

// ErrBadChunkMarker is a protocol error: a GET_READINGS chunk's
// leading marker word was not 0x10.
var ErrBadChunkMarker = errors.New("daq: get_readings chunk has unexpected marker")

// UnsupportedLayoutError reports a GET_READINGS response whose
// declared chunk length does not leave room for a whole number of
// 4-byte channel floats after the fixed header — a layout this driver
// cannot decode.
type UnsupportedLayoutError struct {
	ChunkLength uint32
}

func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("daq: get_readings chunk length %d is not decodable with a %d-byte header", e.ChunkLength, chunkHeaderSize)
}

// Reading is one decoded sample: a timestamp, the digital I/O word,
// both alarm bitmasks, the totalizer count, and the per-channel float
// list in the order the instrument emitted them.
type Reading struct {
	Time       time.Time
	DIO        uint16
	Alarm1Mask uint32
	Alarm2Mask uint32
	Totalizer  uint32
	Channels   []float32
}

// ReadingBatch is the decoded GET_READINGS response: the readings in
// the order received plus the instrument's remaining queue depth.
type ReadingBatch struct {
	Readings      []Reading
	RemainingInQueue uint32
}

// DigitalOutputStatus reports whether digital I/O line index is set.
func (r Reading) DigitalOutputStatus(index int) bool {
	return r.DIO&(1<<uint(index)) != 0
}

// Alarm1 reports whether channel index is in alarm-1 state.
func (r Reading) Alarm1(index int) bool {
	return r.Alarm1Mask&(1<<uint(index)) != 0
}

// Alarm2 reports whether channel index is in alarm-2 state. The
// original driver's is_channel_alarm2 reads alarm1_bitmask instead of
// alarm2_bitmask; this is a bug in the original fixed here, since
// nothing calls for reproducing it and doing so would silently
// misreport every alarm-2 channel.
func (r Reading) Alarm2(index int) bool {
	return r.Alarm2Mask&(1<<uint(index)) != 0
}

// decodeReadings parses a GET_READINGS payload: a 12-byte header
// (chunk-length, chunk-count, remaining-queue) followed by chunk-count
// chunks, each chunk-length bytes long.
func decodeReadings(payload []byte, now time.Time) (ReadingBatch, error) {
	d := wire.NewDecoder(payload)
	chunkLength := d.Uint32()
	chunkCount := d.Uint32()
	remaining := d.Uint32()
	if d.Err() != nil {
		return ReadingBatch{}, d.Err()
	}
	if chunkLength < chunkHeaderSize || (chunkLength-chunkHeaderSize)%4 != 0 {
		return ReadingBatch{}, &UnsupportedLayoutError{ChunkLength: chunkLength}
	}
	numChannels := int(chunkLength-chunkHeaderSize) / 4

	readings := make([]Reading, 0, chunkCount)
	for i := uint32(0); i < chunkCount; i++ {
		chunk := d.Raw(int(chunkLength))
		if d.Err() != nil {
			return ReadingBatch{}, d.Err()
		}
		r, err := decodeChunk(chunk, numChannels, now)
		if err != nil {
			return ReadingBatch{}, err
		}
		readings = append(readings, r)
	}
	return ReadingBatch{Readings: readings, RemainingInQueue: remaining}, nil
}

func decodeChunk(chunk []byte, numChannels int, now time.Time) (Reading, error) {
	d := wire.NewDecoder(chunk)
	marker := d.Uint32()
	if marker != chunkMarker {
		return Reading{}, ErrBadChunkMarker
	}
	t := d.Time(now)
	dio := d.Uint16()
	d.Skip(2) // unused
	alarm1 := d.Uint32()
	alarm2 := d.Uint32()
	totalizer := d.Uint32()

	channels := make([]float32, numChannels)
	for i := range channels {
		channels[i] = d.Float32()
	}
	if d.Err() != nil {
		return Reading{}, d.Err()
	}
	return Reading{
		Time: t, DIO: dio, Alarm1Mask: alarm1, Alarm2Mask: alarm2,
		Totalizer: totalizer, Channels: channels,
	}, nil
}
