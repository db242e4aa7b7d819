package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdaq-go/netdaq/channel"
)

func TestAssembleMinimalConfigIsExactEnvelopeSize(t *testing.T) {
	payload, interleaved, err := Assemble(Config{})
	require.NoError(t, err)
	assert.False(t, interleaved)
	assert.Len(t, payload, EnvelopeSize)

	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x50}, payload[0:4]) // drift-correction | interval-trigger bits
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, payload[12:16]) // default 1s interval
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x64}, payload[48:52]) // unknown3_time constant

	// Each disabled record is five zero head words followed by the
	// default trailer (alarm-trigger bit set, multiplier 1.0, everything
	// else zero).
	disabled, _ := channel.Disabled{Trailer: channel.DefaultTrailer()}.Encode(0)
	disabledRegionStart := 52
	for slot := 0; slot < 30; slot++ {
		start := disabledRegionStart + slot*channel.RecordSize
		assert.Equal(t, disabled[:], payload[start:start+channel.RecordSize])
	}

	disabledRegionEnd := disabledRegionStart + 30*channel.RecordSize
	for i := disabledRegionEnd; i < EnvelopeSize; i++ {
		assert.Zerof(t, payload[i], "padding byte %d should be zero", i)
	}
}

func TestAssembleRejectsTooManyAnalogChannels(t *testing.T) {
	channels := make([]channel.Channel, 21)
	for i := range channels {
		channels[i] = channel.Disabled{Trailer: channel.DefaultTrailer()}
	}
	_, _, err := Assemble(Config{AnalogChannels: channels})
	assert.ErrorIs(t, err, ErrTooManyChannels)
}

func TestAssembleDetectsInterleavedLayout(t *testing.T) {
	vdc, err := channel.NewVDC(channel.VDC3V, channel.DefaultTrailer())
	require.NoError(t, err)

	channels := []channel.Channel{nil, vdc} // slot 1 disabled, slot 2 enabled
	_, interleaved, err := Assemble(Config{AnalogChannels: channels})
	require.NoError(t, err)
	assert.True(t, interleaved)
}

func TestAssembleContiguousLayoutIsNotInterleaved(t *testing.T) {
	vdc, err := channel.NewVDC(channel.VDC3V, channel.DefaultTrailer())
	require.NoError(t, err)

	channels := []channel.Channel{vdc, vdc}
	_, interleaved, err := Assemble(Config{AnalogChannels: channels})
	require.NoError(t, err)
	assert.False(t, interleaved)
}

func TestAssembleCarriesEquationAuxBytesAtRecordedOffset(t *testing.T) {
	program := []byte{0x01, 0x00, 0x01, 0x01, 0x00, 0x02, 0x06, 0x00}
	eqChan, err := channel.NewEquation(program, channel.DefaultTrailer())
	require.NoError(t, err)

	computed := []channel.Channel{eqChan}
	payload, _, err := Assemble(Config{ComputedChannels: computed})
	require.NoError(t, err)

	auxRegionStart := 52 + 30*channel.RecordSize
	assert.Equal(t, program, payload[auxRegionStart:auxRegionStart+len(program)])
}
