// Package channel implements the fixed-width per-channel records that
// make up a SET_CONFIG payload: one variant per analog measurement
// family, one per computed family, and the disabled placeholder used
// to pad shorter channel lists. Grounded on
// _examples/rob-gra-go-iecp5/asdu/information.go's typed-record style
// (InfoObjAddr/SinglePoint-shaped structs with their own encode
// methods) and on original_source/lib/config/channels/*.py, which
// defines the same family split (DAQAnalogChannel/DAQComputedChannel)
// over a shared DAQChannel base carrying the alarm trailer.
package channel

import (
	"errors"
	"fmt"

	"github.com/netdaq-go/netdaq/wire"
)

// RecordSize is the fixed width of every encoded channel record: five
// 32-bit head fields plus the 28-byte common trailer.
const RecordSize = 48

// AlarmMode selects how a channel's alarm threshold is interpreted.
type AlarmMode byte

const (
	AlarmOff  AlarmMode = 0x00
	AlarmHigh AlarmMode = 0x01
	AlarmLow  AlarmMode = 0x02
)

// Trailer is the 28-byte common trailer appended to every channel
// record (§4.2): alarm participation/mode bits, the two alarm
// thresholds, their optional digital-output indices, and the y = m·x + b
// linear scaling pair.
type Trailer struct {
	UseAsAlarmTrigger bool
	Alarm1Mode        AlarmMode
	Alarm2Mode        AlarmMode
	Alarm1Level       float32
	Alarm2Level       float32
	Alarm1Digital     *int
	Alarm2Digital     *int
	Multiplier        float32
	Offset            float32
}

// DefaultTrailer returns the trailer defaults used when a channel is
// constructed without explicit alarm/scaling configuration: alarm
// trigger participation on, both alarms off, identity scaling.
func DefaultTrailer() Trailer {
	return Trailer{UseAsAlarmTrigger: true, Multiplier: 1.0}
}

func (t Trailer) alarmBits() uint32 {
	var bits uint32
	if t.UseAsAlarmTrigger {
		bits |= 0x01
	}
	bits |= uint32(t.Alarm1Mode) << 1
	bits |= uint32(t.Alarm2Mode) << 3
	return bits
}

func (t Trailer) encode(e *wire.Encoder) {
	e.Uint32(t.alarmBits()).
		Float32(t.Alarm1Level).
		Float32(t.Alarm2Level).
		OptionalBit(t.Alarm1Digital).
		OptionalBit(t.Alarm2Digital).
		Float32(t.Multiplier).
		Float32(t.Offset)
}

// Channel is implemented by every analog and computed channel variant
// plus Disabled. Encode writes the channel's fixed-width record and
// returns any auxiliary bytes (only non-empty for equation channels)
// that must be appended to the configuration's auxiliary region;
// auxOffset is the byte offset that region will have at the time this
// channel's record is emitted.
type Channel interface {
	Encode(auxOffset uint32) (record [RecordSize]byte, aux []byte)
}

// Disabled is the placeholder channel written into slots not used by
// the caller's configuration. Its record is all zero words except the
// trailer, which still carries its own (default) alarm configuration —
// matching original_source's DAQDisabledChannel, which still emits
// write_common_trailer().
type Disabled struct {
	Trailer Trailer
}

func (d Disabled) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	e.Zero32().Zero32().Zero32().Zero32().Zero32()
	d.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// ErrInvalidRange is returned when a range code is not valid for the
// channel family (or sub-mode) it was given to.
var ErrInvalidRange = errors.New("channel: invalid range for this channel")

// ErrOutOfBounds is returned when a numeric parameter (α, R₀, shunt
// resistance, ...) falls outside its documented bounds.
var ErrOutOfBounds = errors.New("channel: value out of bounds")

func boundsErr(field string, got, lo, hi float64) error {
	return fmt.Errorf("%w: %s = %v, want %v..%v", ErrOutOfBounds, field, got, lo, hi)
}
