package daq

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdaq-go/netdaq/channel"
	"github.com/netdaq-go/netdaq/config"
	"github.com/netdaq-go/netdaq/transport"
	"github.com/netdaq-go/netdaq/wire"
)

// testFrame is a minimal, test-local mirror of transport's wire frame
// (magic + seq + code + length + payload), used only to play the
// server side of the protocol in these façade tests.
type testFrame struct {
	Seq     uint32
	Code    uint32
	Payload []byte
}

func readTestFrame(r io.Reader) (testFrame, error) {
	header := make([]byte, transport.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return testFrame{}, err
	}
	seq := binary.BigEndian.Uint32(header[4:8])
	code := binary.BigEndian.Uint32(header[8:12])
	total := binary.BigEndian.Uint32(header[12:16])
	payload := make([]byte, total-uint32(transport.HeaderSize))
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return testFrame{}, err
		}
	}
	return testFrame{Seq: seq, Code: code, Payload: payload}, nil
}

func writeTestFrame(w io.Writer, seq, code uint32, payload []byte) error {
	buf := make([]byte, 0, transport.HeaderSize+len(payload))
	buf = append(buf, "FELX"...)
	buf = binary.BigEndian.AppendUint32(buf, seq)
	buf = binary.BigEndian.AppendUint32(buf, code)
	buf = binary.BigEndian.AppendUint32(buf, uint32(transport.HeaderSize+len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// newTestClient starts a loopback TCP listener, hands the one
// accepted connection to serve, and returns a connected Client.
func newTestClient(t *testing.T, serve func(conn net.Conn)) *Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		serve(conn)
	}()

	c := NewClient(transport.New(nil))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx, ln.Addr().String()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// replyZeroToEverything answers every request with a zero-status,
// empty-payload response, except it forwards the SET_CONFIG payload
// length to gotPayloadLen when non-nil.
func replyZeroToEverything(gotPayloadLen *int) func(net.Conn) {
	return func(conn net.Conn) {
		defer conn.Close()
		for {
			req, err := readTestFrame(conn)
			if err != nil {
				return
			}
			if gotPayloadLen != nil && req.Code == uint32(transport.SetConfig) {
				*gotPayloadLen = len(req.Payload)
			}
			if err := writeTestFrame(conn, req.Seq, 0, nil); err != nil {
				return
			}
		}
	}
}

func TestGetReadingsDecodesScenario5(t *testing.T) {
	e := wire.NewEncoder(nil)
	e.Uint32(0x10)
	e.Time(time.Date(2024, time.March, 4, 12, 34, 56, 0, time.UTC))
	e.Uint16(0x00FF)
	e.Pad(2)
	e.Uint32(0)
	e.Uint32(0)
	e.Uint32(7)
	e.Float32(1.0).Float32(1.0).Float32(1.0).Float32(1.0)
	chunk := e.Bytes()

	respPayload := wire.NewEncoder(nil).
		Uint32(uint32(len(chunk))).
		Uint32(1).
		Uint32(0).
		Raw(chunk).
		Bytes()

	c := newTestClient(t, func(conn net.Conn) {
		defer conn.Close()
		req, err := readTestFrame(conn)
		if err != nil {
			return
		}
		_ = writeTestFrame(conn, req.Seq, 0, respPayload)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	batch, err := c.GetReadings(ctx, 255)
	require.NoError(t, err)

	require.Len(t, batch.Readings, 1)
	assert.Equal(t, uint32(0), batch.RemainingInQueue)

	r := batch.Readings[0]
	assert.Equal(t, uint16(0x00FF), r.DIO)
	assert.Equal(t, uint32(0), r.Alarm1Mask)
	assert.Equal(t, uint32(0), r.Alarm2Mask)
	assert.True(t, r.DigitalOutputStatus(0))
	assert.False(t, r.Alarm1(0))
	assert.False(t, r.Alarm2(0))
	assert.Equal(t, uint32(7), r.Totalizer)
	assert.Equal(t, []float32{1.0, 1.0, 1.0, 1.0}, r.Channels)
	assert.Equal(t, time.March, r.Time.Month())
	assert.Equal(t, 4, r.Time.Day())
	assert.Equal(t, 12, r.Time.Hour())
	assert.Equal(t, 34, r.Time.Minute())
	assert.Equal(t, 56, r.Time.Second())
}

func TestSetConfigMinimalProducesFullEnvelope(t *testing.T) {
	var gotPayloadLen int
	c := newTestClient(t, replyZeroToEverything(&gotPayloadLen))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.SetConfig(ctx, config.Config{}))
	assert.Equal(t, config.EnvelopeSize, gotPayloadLen)
}

func TestSetConfigWrapsInterleavedLayoutError(t *testing.T) {
	c := newTestClient(t, func(conn net.Conn) {
		defer conn.Close()
		req, err := readTestFrame(conn)
		if err != nil {
			return
		}
		_ = writeTestFrame(conn, req.Seq, 0x09, []byte("config rejected"))
	})

	vdc, err := channel.NewVDC(channel.VDC3V, channel.DefaultTrailer())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = c.SetConfig(ctx, config.Config{AnalogChannels: []channel.Channel{nil, vdc}})

	require.Error(t, err)
	var layoutErr *transport.InterleavedLayoutError
	require.ErrorAs(t, err, &layoutErr)
}

func TestPingSucceedsOnZeroStatus(t *testing.T) {
	c := newTestClient(t, func(conn net.Conn) {
		defer conn.Close()
		req, err := readTestFrame(conn)
		if err != nil {
			return
		}
		_ = writeTestFrame(conn, req.Seq, 0, nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.Ping(ctx))
}
