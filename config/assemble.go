package config

import (
	"github.com/netdaq-go/netdaq/channel"
	"github.com/netdaq-go/netdaq/wire"
)

// Assemble builds the SET_CONFIG payload for cfg: the global header,
// the fixed analog and computed channel slots (absent entries written
// as Disabled), the auxiliary region holding any equation bytecode,
// then zero padding out to EnvelopeSize. The second return value
// reports whether the channel layout interleaves a disabled slot
// before an enabled one — callers use this to decide whether to wrap
// an instrument error with the advisory described in §4.3/§4.7.
func Assemble(cfg Config) ([]byte, bool, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}

	interleaved := hasInterleavedGap(cfg.AnalogChannels, maxAnalogChannels) ||
		hasInterleavedGap(cfg.ComputedChannels, maxComputedChannels)

	e := wire.NewEncoder(make([]byte, 0, EnvelopeSize))
	cfg.encodeHeader(e)

	records := make([][channel.RecordSize]byte, 0, maxAnalogChannels+maxComputedChannels)
	auxChunks := make([][]byte, 0)
	auxOffset := uint32(0)

	appendChannel := func(c channel.Channel) {
		record, aux := c.Encode(auxOffset)
		records = append(records, record)
		if len(aux) > 0 {
			auxChunks = append(auxChunks, aux)
			auxOffset += uint32(len(aux))
		}
	}

	for i := 0; i < maxAnalogChannels; i++ {
		appendChannel(slot(cfg.AnalogChannels, i))
	}
	for i := 0; i < maxComputedChannels; i++ {
		appendChannel(slot(cfg.ComputedChannels, i))
	}

	for _, r := range records {
		e.Raw(r[:])
	}
	for _, aux := range auxChunks {
		e.Raw(aux)
	}

	if e.Len() > EnvelopeSize {
		return nil, interleaved, ErrPayloadTooLarge
	}
	e.Pad(EnvelopeSize - e.Len())

	return e.Bytes(), interleaved, nil
}
