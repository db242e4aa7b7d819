package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledRecordSize(t *testing.T) {
	d := Disabled{Trailer: DefaultTrailer()}
	record, aux := d.Encode(0)
	assert.Len(t, record, RecordSize)
	assert.Nil(t, aux)
}

func TestOhmsTwoWireRejectsLowRanges(t *testing.T) {
	_, err := NewOhms(Ohms300, false, DefaultTrailer())
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewOhms(Ohms3k, false, DefaultTrailer())
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewOhms(Ohms300, true, DefaultTrailer())
	assert.NoError(t, err)

	_, err = NewOhms(Ohms30k, false, DefaultTrailer())
	assert.NoError(t, err)
}

func TestRTDCustomAlphaBounds(t *testing.T) {
	cases := []struct {
		alpha float32
		ok    bool
	}{
		{0.00374, true},
		{0.00393, true},
		{0.00373, false},
		{0.00394, false},
	}
	for _, c := range cases {
		_, err := NewRTD(RTDCustom385, c.alpha, 100, DefaultTrailer())
		if c.ok {
			assert.NoErrorf(t, err, "alpha=%v", c.alpha)
		} else {
			assert.ErrorIsf(t, err, ErrOutOfBounds, "alpha=%v", c.alpha)
		}
	}
}

func TestRTDFixedCurveForbidsAlpha(t *testing.T) {
	_, err := NewRTD(RTDFixed385, 0.00385, 100, DefaultTrailer())
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewRTD(RTDFixed385, 0, 100, DefaultTrailer())
	assert.NoError(t, err)
}

func TestRTDR0Bounds(t *testing.T) {
	cases := []struct {
		r0 float32
		ok bool
	}{
		{10, true},
		{1010, true},
		{9, false},
		{1011, false},
	}
	for _, c := range cases {
		_, err := NewRTD(RTDFixed385, 0, c.r0, DefaultTrailer())
		if c.ok {
			assert.NoErrorf(t, err, "r0=%v", c.r0)
		} else {
			assert.ErrorIsf(t, err, ErrOutOfBounds, "r0=%v", c.r0)
		}
	}
}

func TestCurrentShuntBounds(t *testing.T) {
	cases := []struct {
		shunt float32
		ok    bool
	}{
		{10, true},
		{250, true},
		{9, false},
		{251, false},
	}
	for _, c := range cases {
		_, err := NewCurrent(Current20mA, c.shunt, DefaultTrailer())
		if c.ok {
			assert.NoErrorf(t, err, "shunt=%v", c.shunt)
		} else {
			assert.ErrorIsf(t, err, ErrOutOfBounds, "shunt=%v", c.shunt)
		}
	}
}

func TestAllAnalogRecordsAreFixedWidth(t *testing.T) {
	ohms, err := NewOhms(Ohms30k, false, DefaultTrailer())
	require.NoError(t, err)
	vdc, err := NewVDC(VDC3V, DefaultTrailer())
	require.NoError(t, err)
	vac, err := NewVAC(VAC3V, DefaultTrailer())
	require.NoError(t, err)
	freq := NewFrequency(DefaultTrailer())
	rtd, err := NewRTD(RTDFixed385, 0, 100, DefaultTrailer())
	require.NoError(t, err)
	tc, err := NewThermocouple(TCK, true, DefaultTrailer())
	require.NoError(t, err)
	cur, err := NewCurrent(Current20mA, 100, DefaultTrailer())
	require.NoError(t, err)

	for _, c := range []Channel{ohms, vdc, vac, freq, rtd, tc, cur} {
		record, aux := c.Encode(0)
		assert.Len(t, record, RecordSize)
		assert.Nil(t, aux)
	}
}

func TestComputedAminusAvgUsesCorrectedTypeCode(t *testing.T) {
	c := NewAminusAvg(1, 0b110, DefaultTrailer())
	record, _ := c.Encode(0)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x03}, record[0:4])
}

func TestEquationChannelRejectsEmptyProgram(t *testing.T) {
	_, err := NewEquation(nil, DefaultTrailer())
	assert.ErrorIs(t, err, ErrEmptyEquation)
}

func TestEquationChannelCarriesAuxBytesAtOffset(t *testing.T) {
	program := []byte{0x01, 0x00, 0x01, 0x00}
	c, err := NewEquation(program, DefaultTrailer())
	require.NoError(t, err)

	record, aux := c.Encode(37)
	assert.Equal(t, program, aux)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x25}, record[16:20])
}
