// Package transport implements the instrument's request/response
// framing and session lifecycle over TCP: a fixed 16-byte header
// ("FELX" magic plus sequence id, command/status code and total
// length) followed by the payload, demultiplexed by sequence id so
// multiple callers can have requests in flight concurrently. Framing
// is grounded on spec.md §4.6/§6; the fixed-header-plus-length shape
// follows rob-gra-go-iecp5/cs104/apci.go's APCI, and the
// sequence-keyed request/response matching follows
// other_examples/c4233bf9_rolfl-modbus__client.go.go's query()/trans
// pattern, adapted from modbus's single in-flight transaction to a
// concurrent map of pending responses per §9's Go concurrency note.
package transport

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/netdaq-go/netdaq/wire"
)

const magic = "FELX"

// HeaderSize is the fixed length of a frame header, included in the
// header's own total-length field.
const HeaderSize = 16

// ErrBadMagic is returned when a frame's first four bytes are not "FELX".
var ErrBadMagic = errors.New("transport: bad frame magic")

// ErrBadLength is returned when a frame's declared total length is
// shorter than the header it was read from.
var ErrBadLength = errors.New("transport: frame length shorter than header")

// Frame is one wire frame: a sequence id, a command (in a request) or
// status (in a response) code, and a payload.
type Frame struct {
	Seq     uint32
	Code    uint32
	Payload []byte
}

func writeFrame(w io.Writer, f Frame) error {
	e := wire.NewEncoder(make([]byte, 0, HeaderSize+len(f.Payload)))
	e.Raw([]byte(magic)).Uint32(f.Seq).Uint32(f.Code).Uint32(uint32(HeaderSize + len(f.Payload))).Raw(f.Payload)
	_, err := w.Write(e.Bytes())
	return err
}

func readFrame(r io.Reader) (Frame, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	if string(header[0:4]) != magic {
		return Frame{}, ErrBadMagic
	}
	seq := binary.BigEndian.Uint32(header[4:8])
	code := binary.BigEndian.Uint32(header[8:12])
	total := binary.BigEndian.Uint32(header[12:16])
	if total < HeaderSize {
		return Frame{}, ErrBadLength
	}
	payload := make([]byte, total-HeaderSize)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Seq: seq, Code: code, Payload: payload}, nil
}
