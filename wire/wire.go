// Package wire implements the primitive big-endian encoders and decoders
// shared by the rest of this driver: the channel, config, equation,
// transport and daq packages all build their payloads on top of an
// Encoder, and daq reads responses back with a Decoder.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// ErrTruncated is returned by Decoder methods when fewer bytes remain
// than the value being decoded requires.
var ErrTruncated = errors.New("wire: truncated buffer")

// Encoder appends big-endian encoded values to an internal buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with buf as its backing buffer, for
// callers that want to pre-size or reuse an allocation.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Len reports the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Bytes returns the accumulated buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Uint16 appends a big-endian 16 bit unsigned integer.
func (e *Encoder) Uint16(v uint16) *Encoder {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
	return e
}

// Uint32 appends a big-endian 32 bit unsigned integer.
func (e *Encoder) Uint32(v uint32) *Encoder {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
	return e
}

// Zero32 appends a single 4-byte zero word; channel records and the
// configuration header are full of reserved/unused 32-bit fields.
func (e *Encoder) Zero32() *Encoder {
	return e.Uint32(0)
}

// Float32 appends an IEEE-754 big-endian single precision float.
func (e *Encoder) Float32(v float32) *Encoder {
	return e.Uint32(math.Float32bits(v))
}

// Float64 appends an IEEE-754 big-endian double precision float.
func (e *Encoder) Float64(v float64) *Encoder {
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v))
	return e
}

// OptionalBit appends the "optional indexed bit" encoding used by alarm
// digital-output references: nil encodes as the 4-byte zero word, and a
// non-nil index i encodes as 1<<i.
func (e *Encoder) OptionalBit(index *int) *Encoder {
	if index == nil {
		return e.Zero32()
	}
	return e.Uint32(1 << uint(*index))
}

// Time packs t into the eight-byte layout from §4.1: hour, minute,
// second, month, an unused byte, day, year-mod-100, a second unused
// byte. Milliseconds are not part of this field; callers append them
// separately with Uint32 when the protocol calls for it (SET_TIME).
func (e *Encoder) Time(t time.Time) *Encoder {
	e.buf = append(e.buf,
		byte(t.Hour()),
		byte(t.Minute()),
		byte(t.Second()),
		byte(t.Month()),
		0x00, // unused
		byte(t.Day()),
		byte(t.Year()%100),
		0x00, // unused
	)
	return e
}

// TimeDelta appends a timedelta as four big-endian integers: whole
// hours, minutes component, seconds component, milliseconds component.
func (e *Encoder) TimeDelta(d time.Duration) *Encoder {
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total / 60) % 60
	seconds := total % 60
	millis := (d % time.Second) / time.Millisecond
	return e.Uint32(uint32(hours)).Uint32(uint32(minutes)).Uint32(uint32(seconds)).Uint32(uint32(millis))
}

// Raw appends raw bytes verbatim (used for the equation auxiliary
// region and padding).
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Pad appends n zero bytes.
func (e *Encoder) Pad(n int) *Encoder {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
	return e
}

// Decoder reads big-endian encoded values off a byte slice, advancing
// an internal cursor and reporting truncation.
type Decoder struct {
	buf []byte
	pos int
	err error
}

// NewDecoder returns a Decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Err returns the first error encountered, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Remaining reports how many bytes are left to consume.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.pos+n > len(d.buf) {
		d.err = ErrTruncated
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

// Uint16 decodes a big-endian 16 bit unsigned integer.
func (d *Decoder) Uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// Uint32 decodes a big-endian 32 bit unsigned integer.
func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Float32 decodes an IEEE-754 big-endian single precision float.
func (d *Decoder) Float32() float32 {
	return math.Float32frombits(d.Uint32())
}

// Float64 decodes an IEEE-754 big-endian double precision float.
func (d *Decoder) Float64() float64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// OptionalBit decodes the optional-indexed-bit encoding: a zero word
// decodes to nil, any other value decodes to the index of its lowest
// set bit.
func (d *Decoder) OptionalBit() *int {
	v := d.Uint32()
	if d.err != nil || v == 0 {
		return nil
	}
	for i := 0; i < 32; i++ {
		if v&(1<<uint(i)) != 0 {
			idx := i
			return &idx
		}
	}
	return nil
}

// Time unpacks the eight-byte packed time layout written by Encoder.Time,
// recovering the century from now (the host clock) per §4.1: if the
// decoded month is December and now's month is January, the century is
// taken from the previous year.
func (d *Decoder) Time(now time.Time) time.Time {
	b := d.take(8)
	if b == nil {
		return time.Time{}
	}
	hour, minute, second, month, day, yearMod := int(b[0]), int(b[1]), int(b[2]), int(b[3]), int(b[5]), int(b[6])

	decadesYear := now.Year()
	if month == 12 && now.Month() == time.January {
		decadesYear--
	}
	decadesYear -= decadesYear % 100

	return time.Date(decadesYear+yearMod, time.Month(month), day, hour, minute, second, 0, now.Location())
}

// Skip advances the cursor by n bytes without interpreting them.
func (d *Decoder) Skip(n int) {
	d.take(n)
}

// Raw returns the next n bytes verbatim.
func (d *Decoder) Raw(n int) []byte {
	return d.take(n)
}
