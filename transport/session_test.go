package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipedSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	s := New(nil)
	s.adopt(client)
	t.Cleanup(func() { _ = server.Close() })
	return s, server
}

func TestSendAndWaitRoundTrip(t *testing.T) {
	s, server := newPipedSession(t)

	go func() {
		f, err := readFrame(server)
		if err != nil {
			return
		}
		_ = writeFrame(server, Frame{Seq: f.Seq, Code: 0, Payload: []byte{0xAA, 0xBB}})
	}()

	payload, err := s.SendAndWait(context.Background(), Ping, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, payload)
}

func TestSendAndWaitSurfacesInstrumentError(t *testing.T) {
	s, server := newPipedSession(t)

	go func() {
		f, err := readFrame(server)
		if err != nil {
			return
		}
		_ = writeFrame(server, Frame{Seq: f.Seq, Code: 0x05, Payload: []byte("bad")})
	}()

	_, err := s.SendAndWait(context.Background(), StatusQuery, nil)
	require.Error(t, err)
	var instErr *InstrumentError
	require.ErrorAs(t, err, &instErr)
	assert.Equal(t, uint32(0x05), instErr.Code)
}

func TestSendAndWaitHonorsContextCancellation(t *testing.T) {
	s, server := newPipedSession(t)

	// Drain the request so the client's write does not block forever,
	// but never reply, so the wait genuinely times out.
	go func() {
		for {
			if _, err := readFrame(server); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.SendAndWait(ctx, Ping, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSequenceIdsStartAtTwoAndIncrement(t *testing.T) {
	s, server := newPipedSession(t)

	seqs := make(chan uint32, 2)
	go func() {
		for i := 0; i < 2; i++ {
			f, err := readFrame(server)
			if err != nil {
				return
			}
			seqs <- f.Seq
			_ = writeFrame(server, Frame{Seq: f.Seq, Code: 0, Payload: nil})
		}
	}()

	_, err := s.SendAndWait(context.Background(), Ping, nil)
	require.NoError(t, err)
	_, err = s.SendAndWait(context.Background(), Ping, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(2), <-seqs)
	assert.Equal(t, uint32(3), <-seqs)
}

func TestCloseSendsTeardownCommandsBeforeClosingStream(t *testing.T) {
	s, server := newPipedSession(t)

	seenCodes := make(chan uint32, 4)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		for {
			f, err := readFrame(server)
			if err != nil {
				return
			}
			seenCodes <- f.Code
		}
	}()

	require.NoError(t, s.Close())

	assert.Equal(t, uint32(ClearMonitorChannel), <-seenCodes)
	assert.Equal(t, uint32(Stop), <-seenCodes)
	assert.Equal(t, uint32(DisableSpy), <-seenCodes)
	assert.Equal(t, uint32(Close), <-seenCodes)

	select {
	case <-serverDone:
	case <-time.After(time.Second):
		t.Fatal("server side never observed stream close")
	}
}

func TestSendAndWaitFailsWhenNotConnected(t *testing.T) {
	s := New(nil)
	_, err := s.SendAndWait(context.Background(), Ping, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}
