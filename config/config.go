// Package config assembles the SET_CONFIG payload: the 52-byte global
// header, the fixed analog/computed channel slots, and the auxiliary
// region carrying equation bytecode. Grounded on
// original_source/lib/netdaq.py: set_config and spec.md §4.3, with the
// Config.WithDefaults/Validate shape carried over from the teacher's
// (now-adapted) cs104 Config pattern: a plain struct defaulted and
// validated before use, rather than a builder.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/netdaq-go/netdaq/channel"
	"github.com/netdaq-go/netdaq/wire"
)

// Speed selects the instrument's acquisition speed, which in turn
// forces drift correction on unless FAST (§4.3).
type Speed int

const (
	Slow Speed = iota
	Medium
	Fast
)

func (s Speed) bits() uint32 { return uint32(s) }

// Trigger selects what starts a reading cycle.
type Trigger int

const (
	TriggerInterval Trigger = iota
	TriggerAlarm
	TriggerExternal
)

const (
	bitFahrenheit        uint32 = 0x0004
	bitTriggerOut        uint32 = 0x0008
	bitTotalizerDebounce uint32 = 0x0020
	bitTriggerInterval   uint32 = 0x0040
	bitTriggerAlarm      uint32 = 0x0080
	bitTriggerExternal   uint32 = 0x0100
)

// unknown3Time is the constant word written at global-header offset
// 48 in every configuration; its meaning is undocumented by the
// instrument (spec.md's Open Questions calls it unknown3_time in
// later source drafts) and is not exposed as a Config field.
const unknown3Time uint32 = 0x00000064

// EnvelopeSize is the fixed length every SET_CONFIG payload is padded
// or rejected against.
const EnvelopeSize = 2492

const (
	maxAnalogChannels   = 20
	maxComputedChannels = 10
)

// ErrTooManyChannels is returned by Validate when more channels are
// supplied than the instrument has slots for.
var ErrTooManyChannels = errors.New("config: too many channels for available slots")

// ErrPayloadTooLarge is returned by Assemble if, after all channels
// and auxiliary bytes are written, the payload exceeds EnvelopeSize.
var ErrPayloadTooLarge = errors.New("config: assembled payload exceeds the fixed envelope length")

// Config describes one SET_CONFIG request. AnalogChannels and
// ComputedChannels are sparse by channel index: index 0 of the slice
// is channel 1. Missing or nil entries are written as Disabled.
type Config struct {
	Speed             Speed
	Trigger           Trigger
	Interval          time.Duration
	AlarmInterval     time.Duration
	Fahrenheit        bool
	TriggerOut        bool
	TotalizerDebounce bool
	AnalogChannels    []channel.Channel
	ComputedChannels  []channel.Channel
}

// WithDefaults returns a copy of cfg with zero-valued fields replaced
// by their documented defaults: SLOW speed, interval-trigger, a 1
// second reading interval, no alarm interval.
func (cfg Config) WithDefaults() Config {
	if cfg.Interval == 0 {
		cfg.Interval = time.Second
	}
	return cfg
}

// Validate checks channel-count limits. It does not re-validate
// individual channels: those are checked at construction time by the
// channel package's constructors.
func (cfg Config) Validate() error {
	if len(cfg.AnalogChannels) > maxAnalogChannels {
		return fmt.Errorf("%w: %d analog channels, %d slots", ErrTooManyChannels, len(cfg.AnalogChannels), maxAnalogChannels)
	}
	if len(cfg.ComputedChannels) > maxComputedChannels {
		return fmt.Errorf("%w: %d computed channels, %d slots", ErrTooManyChannels, len(cfg.ComputedChannels), maxComputedChannels)
	}
	return nil
}

func (cfg Config) bits() uint32 {
	bits := cfg.Speed.bits()
	if cfg.Speed != Fast {
		bits |= 0x0010 // drift correction
	}
	if cfg.Fahrenheit {
		bits |= bitFahrenheit
	}
	if cfg.TriggerOut {
		bits |= bitTriggerOut
	}
	if cfg.TotalizerDebounce {
		bits |= bitTotalizerDebounce
	}
	switch cfg.Trigger {
	case TriggerInterval:
		bits |= bitTriggerInterval
	case TriggerAlarm:
		bits |= bitTriggerAlarm
	case TriggerExternal:
		bits |= bitTriggerExternal
	}
	return bits
}

func splitSecondsMillis(d time.Duration) (seconds, millis uint32) {
	seconds = uint32(d / time.Second)
	millis = uint32((d % time.Second) / time.Millisecond)
	return
}

func (cfg Config) encodeHeader(e *wire.Encoder) {
	intervalSec, intervalMS := splitSecondsMillis(cfg.Interval)
	alarmSec, alarmMS := splitSecondsMillis(cfg.AlarmInterval)
	e.Uint32(cfg.bits()).
		Zero32().Zero32().
		Uint32(intervalSec).Uint32(intervalMS).
		Zero32().Zero32().
		Uint32(alarmSec).Uint32(alarmMS).
		Zero32().Zero32().Zero32().
		Uint32(unknown3Time)
}

// slot returns channels[i] if present and non-nil, else Disabled with
// default trailer.
func slot(channels []channel.Channel, i int) channel.Channel {
	if i < len(channels) && channels[i] != nil {
		return channels[i]
	}
	return channel.Disabled{Trailer: channel.DefaultTrailer()}
}

// hasInterleavedGap reports whether an enabled slot follows a disabled
// slot anywhere in channels[:n] (§4.3's tri-state detection — some
// firmware revisions reject such layouts).
func hasInterleavedGap(channels []channel.Channel, n int) bool {
	sawDisabled := false
	for i := 0; i < n; i++ {
		_, disabled := slot(channels, i).(channel.Disabled)
		if disabled {
			sawDisabled = true
			continue
		}
		if sawDisabled {
			return true
		}
	}
	return false
}
