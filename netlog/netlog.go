// Package netlog provides the small pluggable logger used by the
// transport package to report session lifecycle events, reader-task
// errors, and discarded responses. Adapted from
// rob-gra-go-iecp5/clog's Provider/atomic-switch shape.
package netlog

import (
	"log"
	"os"
	"sync/atomic"
)

// Provider is implemented by anything that wants to receive the
// driver's log messages. Only three levels are used: the reader task
// exiting after a read error is Error, a failure closing the prior
// session before a reconnect is Warn, and a response discarded for an
// unknown or cancelled sequence id is Debug.
type Provider interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Logger gates calls to a Provider behind an atomic on/off switch, so
// logging has no cost in the default (disabled) state.
type Logger struct {
	provider Provider
	enabled  uint32
}

// New returns a Logger writing to the standard library logger with
// the given prefix. Logging starts disabled; call SetEnabled(true) to
// turn it on.
func New(prefix string) *Logger {
	return &Logger{provider: stdProvider{log.New(os.Stderr, prefix, log.LstdFlags)}}
}

// SetEnabled turns log output on or off.
func (l *Logger) SetEnabled(enabled bool) {
	if enabled {
		atomic.StoreUint32(&l.enabled, 1)
	} else {
		atomic.StoreUint32(&l.enabled, 0)
	}
}

// SetProvider replaces the destination for log messages.
func (l *Logger) SetProvider(p Provider) {
	if p != nil {
		l.provider = p
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&l.enabled) == 1 {
		l.provider.Error(format, v...)
	}
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&l.enabled) == 1 {
		l.provider.Warn(format, v...)
	}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&l.enabled) == 1 {
		l.provider.Debug(format, v...)
	}
}

type stdProvider struct{ *log.Logger }

var _ Provider = stdProvider{}

func (p stdProvider) Error(format string, v ...interface{}) { p.Printf("[E] "+format, v...) }
func (p stdProvider) Warn(format string, v ...interface{})  { p.Printf("[W] "+format, v...) }
func (p stdProvider) Debug(format string, v ...interface{}) { p.Printf("[D] "+format, v...) }
