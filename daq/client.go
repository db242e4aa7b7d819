package daq

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/netdaq-go/netdaq/config"
	"github.com/netdaq-go/netdaq/transport"
	"github.com/netdaq-go/netdaq/wire"
)

// idleBit is the top bit of a STATUS_QUERY response word; it clears
// once the instrument is idle.
const idleBit uint32 = 0x80000000

// Client is the instrument façade: a *transport.Session plus the
// typed operations built on top of it.
type Client struct {
	session *transport.Session
}

// NewClient wraps an already-constructed Session.
func NewClient(session *transport.Session) *Client {
	return &Client{session: session}
}

// Connect dials addr and starts the session.
func (c *Client) Connect(ctx context.Context, addr string) error {
	return c.session.Connect(ctx, addr)
}

// Handshake is a connectivity check, grounded on the original driver's
// one-line handshake wrapper around ping, called right after Connect.
func (c *Client) Handshake(ctx context.Context) error {
	return c.Ping(ctx)
}

// Close tears down the session (§4.6's best-effort teardown sequence).
func (c *Client) Close() error {
	return c.session.Close()
}

// Ping succeeds on any 0-status response.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.session.SendAndWait(ctx, transport.Ping, nil)
	return err
}

// GetBaseChannel returns the instrument's base channel number.
func (c *Client) GetBaseChannel(ctx context.Context) (uint32, error) {
	payload, err := c.session.SendAndWait(ctx, transport.GetBaseChannel, nil)
	if err != nil {
		return 0, err
	}
	return wire.NewDecoder(payload).Uint32(), nil
}

// GetVersionInfo returns the instrument's version info as an ordered
// list of NUL-separated strings.
func (c *Client) GetVersionInfo(ctx context.Context) ([]string, error) {
	return c.getStringList(ctx, transport.GetVersionInfo)
}

// GetLCVersion returns the line-card version info the same way.
func (c *Client) GetLCVersion(ctx context.Context) ([]string, error) {
	return c.getStringList(ctx, transport.GetLCVersion)
}

func (c *Client) getStringList(ctx context.Context, cmd transport.Command) ([]string, error) {
	payload, err := c.session.SendAndWait(ctx, cmd, nil)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(payload), "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// StatusWord returns the raw STATUS_QUERY response word.
func (c *Client) StatusWord(ctx context.Context) (uint32, error) {
	payload, err := c.session.SendAndWait(ctx, transport.StatusQuery, nil)
	if err != nil {
		return 0, err
	}
	return wire.NewDecoder(payload).Uint32(), nil
}

// WaitForIdle polls STATUS_QUERY at idlePollInterval until the
// instrument's top status bit clears, or ctx is done.
func (c *Client) WaitForIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for {
		status, err := c.StatusWord(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Join(ErrIdleTimeout, err)
			}
			return err
		}
		if status&idleBit == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(ErrIdleTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// SetTime packs t (time.Now() if zero) and waits for idle.
func (c *Client) SetTime(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		t = time.Now()
	}
	e := wire.NewEncoder(make([]byte, 0, 12))
	e.Time(t).Uint32(uint32(t.Nanosecond() / int(time.Millisecond)))
	if _, err := c.session.SendAndWait(ctx, transport.SetTime, e.Bytes()); err != nil {
		return err
	}
	return c.WaitForIdle(ctx)
}

// SetConfig assembles cfg per config.Assemble, sends SET_CONFIG, and
// waits for idle. If the instrument returns an error and the
// configuration's channel layout interleaves a disabled slot before
// an enabled one, the error is wrapped with the interleaved-layout
// advisory (§4.3, §4.7, §8 scenario 6).
func (c *Client) SetConfig(ctx context.Context, cfg config.Config) error {
	payload, interleaved, err := config.Assemble(cfg)
	if err != nil {
		return err
	}
	if _, err := c.session.SendAndWait(ctx, transport.SetConfig, payload); err != nil {
		var instErr *transport.InstrumentError
		if interleaved && errors.As(err, &instErr) {
			return &transport.InterleavedLayoutError{Err: err}
		}
		return err
	}
	return c.WaitForIdle(ctx)
}

// StartOptions controls the payload sent with START. The historical
// instrument variant that instead sends a future wall-clock time is
// exposed via At; the default (At zero) sends sixteen zero bytes.
type StartOptions struct {
	At time.Time
}

// Start begins acquisition. See StartOptions for the timed variant.
func (c *Client) Start(ctx context.Context, opts StartOptions) error {
	var payload []byte
	if opts.At.IsZero() {
		payload = make([]byte, 16)
	} else {
		e := wire.NewEncoder(make([]byte, 0, 16))
		e.Time(opts.At).Pad(8)
		payload = e.Bytes()
	}
	_, err := c.session.SendAndWait(ctx, transport.Start, payload)
	return err
}

// Stop ends acquisition. Idle instruments respond to STOP with an
// error status; that response is swallowed.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.session.SendAndWait(ctx, transport.Stop, nil)
	var instErr *transport.InstrumentError
	if err != nil && !errors.As(err, &instErr) {
		return err
	}
	return nil
}

// ResetTotalizer resets the totalizer count.
func (c *Client) ResetTotalizer(ctx context.Context) error {
	_, err := c.session.SendAndWait(ctx, transport.ResetTotalizer, nil)
	return err
}

// EnableSpy turns on spy mode.
func (c *Client) EnableSpy(ctx context.Context) error {
	_, err := c.session.SendAndWait(ctx, transport.EnableSpy, nil)
	return err
}

// DisableSpy turns off spy mode.
func (c *Client) DisableSpy(ctx context.Context) error {
	_, err := c.session.SendAndWait(ctx, transport.DisableSpy, nil)
	return err
}

// StopSpy is DisableSpy under the original driver's other name; kept
// as a separate method since callers may depend on either verb.
func (c *Client) StopSpy(ctx context.Context) error {
	return c.DisableSpy(ctx)
}

// QuerySpy returns the live float value of channel ch.
func (c *Client) QuerySpy(ctx context.Context, ch uint16) (float32, error) {
	e := wire.NewEncoder(make([]byte, 0, 2))
	e.Uint16(ch)
	payload, err := c.session.SendAndWait(ctx, transport.QuerySpy, e.Bytes())
	if err != nil {
		return 0, err
	}
	return wire.NewDecoder(payload).Float32(), nil
}

// SetMonitorChannel sets the monitored channel; a non-positive ch
// clears monitoring.
func (c *Client) SetMonitorChannel(ctx context.Context, ch int16) error {
	if ch <= 0 {
		_, err := c.session.SendAndWait(ctx, transport.ClearMonitorChannel, nil)
		return err
	}
	e := wire.NewEncoder(make([]byte, 0, 2))
	e.Uint16(uint16(ch))
	_, err := c.session.SendAndWait(ctx, transport.SetMonitorChannel, e.Bytes())
	return err
}

// GetReadings retrieves up to max queued readings.
func (c *Client) GetReadings(ctx context.Context, max uint16) (ReadingBatch, error) {
	e := wire.NewEncoder(make([]byte, 0, 2))
	e.Uint16(max)
	payload, err := c.session.SendAndWait(ctx, transport.GetReadings, e.Bytes())
	if err != nil {
		return ReadingBatch{}, err
	}
	return decodeReadings(payload, time.Now())
}
