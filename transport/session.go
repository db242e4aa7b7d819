package transport

import (
	"context"
	"net"
	"sync"

	"github.com/netdaq-go/netdaq/netlog"
)

type sessionState int

const (
	disconnected sessionState = iota
	connected
	closing
)

type response struct {
	payload []byte
	err     error
}

// Session owns one instrument connection: sequence allocation, the
// pending-response table, and the reader goroutine that demultiplexes
// frames back to their caller. The single-threaded actor model in
// spec.md §5 assumes a cooperative scheduler; Go has real goroutines,
// so this instead guards seq/pending/state with a mutex, and a pending
// entry is registered under it before its frame is written. The write
// itself happens after the mutex is released, as one conn.Write per
// frame from the calling goroutine; writes are not serialized, so
// frames from concurrent callers can reach the wire in a different
// order from their sequence ids.
type Session struct {
	logger *netlog.Logger

	mu      sync.Mutex
	conn    net.Conn
	state   sessionState
	seq     uint32
	pending map[uint32]chan response
	done    chan struct{}
}

// New returns a disconnected Session. logger may be nil, in which
// case a disabled default logger is used.
func New(logger *netlog.Logger) *Session {
	if logger == nil {
		logger = netlog.New("netdaq: ")
	}
	return &Session{logger: logger, state: disconnected}
}

// Connect closes any prior session, dials addr over TCP, and starts
// the reader goroutine.
func (s *Session) Connect(ctx context.Context, addr string) error {
	if err := s.Close(); err != nil {
		s.logger.Warn("transport: error closing prior session before reconnect: %v", err)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	s.adopt(conn)
	return nil
}

// adopt wires an already-connected net.Conn into the session and
// starts its reader goroutine. Connect uses it after dialing;
// session_test.go calls it directly with a net.Pipe end to drive the
// session without a real listener.
func (s *Session) adopt(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.state = connected
	s.seq = 2
	s.pending = make(map[uint32]chan response)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.readLoop(conn, done)
}

func (s *Session) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)
	for {
		f, err := readFrame(conn)
		if err != nil {
			s.logger.Error("transport: reader closing session after read error: %v", err)
			return
		}

		s.mu.Lock()
		ch, ok := s.pending[f.Seq]
		if ok {
			delete(s.pending, f.Seq)
		}
		s.mu.Unlock()

		if !ok {
			s.logger.Debug("transport: discarding response for unknown or cancelled sequence %d", f.Seq)
			continue
		}
		if f.Code != 0 {
			ch <- response{err: &InstrumentError{Code: f.Code, Payload: f.Payload}}
		} else {
			ch <- response{payload: f.Payload}
		}
	}
}

// allocateLocked allocates the next sequence id and, if wait is true,
// registers a pending-response channel for it. Must be called with
// s.mu held.
func (s *Session) allocateLocked(wait bool) (uint32, chan response) {
	seq := s.seq
	s.seq++
	var ch chan response
	if wait {
		ch = make(chan response, 1)
		s.pending[seq] = ch
	}
	return seq, ch
}

// Send writes command with payload and returns as soon as the bytes
// are flushed, without waiting for (or registering a completion for)
// a response. Used for best-effort teardown commands during Close.
func (s *Session) Send(command Command, payload []byte) error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	conn := s.conn
	seq, _ := s.allocateLocked(false)
	s.mu.Unlock()

	return writeFrame(conn, Frame{Seq: seq, Code: uint32(command), Payload: payload})
}

// SendAndWait writes command with payload, registers a completion
// keyed by the allocated sequence id before flushing the bytes, and
// blocks until the reader goroutine delivers a response or ctx is
// done. A non-zero response status surfaces as *InstrumentError.
func (s *Session) SendAndWait(ctx context.Context, command Command, payload []byte) ([]byte, error) {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := s.conn
	seq, ch := s.allocateLocked(true)
	s.mu.Unlock()

	if err := writeFrame(conn, Frame{Seq: seq, Code: uint32(command), Payload: payload}); err != nil {
		s.mu.Lock()
		delete(s.pending, seq)
		s.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp.payload, resp.err
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, seq)
		s.mu.Unlock()
		return nil, ctx.Err()
	case <-s.doneChan():
		return nil, ErrSessionClosed
	}
}

func (s *Session) doneChan() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Close best-effort sends CLEAR_MONITOR_CHANNEL, STOP, DISABLE_SPY and
// CLOSE without waiting for replies, then closes the underlying
// stream and waits for the reader goroutine to exit. It is a no-op if
// the session is already disconnected.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	if conn == nil {
		s.mu.Unlock()
		return nil
	}
	s.state = closing
	s.mu.Unlock()

	_ = s.Send(ClearMonitorChannel, nil)
	_ = s.Send(Stop, nil)
	_ = s.Send(DisableSpy, nil)
	_ = s.Send(Close, nil)

	err := conn.Close()
	<-done

	s.mu.Lock()
	s.conn = nil
	s.state = disconnected
	s.mu.Unlock()
	return err
}
