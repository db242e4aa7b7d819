package channel

import (
	"github.com/netdaq-go/netdaq/wire"
)

// analogType values, the type-code word written into an analog
// channel's first head field (§4.2), grounded on
// original_source/lib/config/enums.py's DAQAnalogMeasuremenType.
const (
	typeOhms         uint32 = 0x00000001
	typeVDC          uint32 = 0x00000002
	typeVAC          uint32 = 0x00000004
	typeFrequency    uint32 = 0x00000008
	typeRTD          uint32 = 0x00000010
	typeThermocouple uint32 = 0x00000020
	typeCurrent      uint32 = 0x00010002
)

// OhmsRange selects a resistance measurement range.
type OhmsRange uint16

const (
	Ohms300  OhmsRange = 0x1001
	Ohms3k   OhmsRange = 0x1102
	Ohms30k  OhmsRange = 0x1204
	Ohms300k OhmsRange = 0x1308
	Ohms3M   OhmsRange = 0x1410
	OhmsAuto OhmsRange = 0x1520
)

// VDCRange selects a DC volts measurement range.
type VDCRange uint16

const (
	VDC90mV  VDCRange = 0x2001
	VDC300mV VDCRange = 0x2102
	VDC3V    VDCRange = 0x2308
	VDC30V   VDCRange = 0x2410
	VDCAuto  VDCRange = 0x2520
	VDC50V   VDCRange = 0x2640
)

// VACRange selects an AC volts measurement range.
type VACRange uint16

const (
	VAC300mV VACRange = 0x3001
	VAC3V    VACRange = 0x3102
	VAC30V   VACRange = 0x3204
	VACAuto  VACRange = 0x3308
)

// CurrentRange selects a current measurement range.
type CurrentRange uint16

const (
	Current20mA  CurrentRange = 0x2102
	Current100mA CurrentRange = 0x2520
)

// ThermocoupleRange selects a thermocouple type.
type ThermocoupleRange uint16

const (
	TCJ ThermocoupleRange = 0x6001
	TCK ThermocoupleRange = 0x6101
	TCE ThermocoupleRange = 0x6201
	TCT ThermocoupleRange = 0x6301
	TCR ThermocoupleRange = 0x6401
	TCS ThermocoupleRange = 0x6501
	TCB ThermocoupleRange = 0x6601
	TCC ThermocoupleRange = 0x6701
	TCN ThermocoupleRange = 0x6801
)

// RTDRange selects the RTD curve: a fixed alpha=0.00385 curve, or a
// custom alpha supplied by the caller.
type RTDRange uint16

const (
	RTDFixed385  RTDRange = 0x5020
	RTDCustom385 RTDRange = 0x5021
)

func analogHead(e *wire.Encoder, typeCode uint32, r uint16, aux1, aux2 float32, extraBits uint32) {
	e.Uint32(typeCode).Uint32(uint32(r)).Float32(aux1).Float32(aux2).Uint32(extraBits)
}

// Ohms is a resistance measurement channel.
type Ohms struct {
	Range    OhmsRange
	FourWire bool
	Trailer  Trailer
}

// NewOhms validates and constructs a resistance channel. Two-wire
// measurement rejects the 300 Ω and 3 kΩ ranges (§4.2, §8).
func NewOhms(r OhmsRange, fourWire bool, trailer Trailer) (*Ohms, error) {
	if !fourWire && (r == Ohms300 || r == Ohms3k) {
		return nil, ErrInvalidRange
	}
	return &Ohms{Range: r, FourWire: fourWire, Trailer: trailer}, nil
}

func (c *Ohms) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	extraBits := uint32(0x9000)
	if c.FourWire {
		extraBits |= 0x0001
	}
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	analogHead(e, typeOhms, uint16(c.Range), 0, 0, extraBits)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// VDC is a DC volts measurement channel.
type VDC struct {
	Range   VDCRange
	Trailer Trailer
}

func NewVDC(r VDCRange, trailer Trailer) (*VDC, error) {
	return &VDC{Range: r, Trailer: trailer}, nil
}

func (c *VDC) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	analogHead(e, typeVDC, uint16(c.Range), 0, 0, 0)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// VAC is an AC volts measurement channel.
type VAC struct {
	Range   VACRange
	Trailer Trailer
}

func NewVAC(r VACRange, trailer Trailer) (*VAC, error) {
	return &VAC{Range: r, Trailer: trailer}, nil
}

func (c *VAC) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	analogHead(e, typeVAC, uint16(c.Range), 0, 0, 0)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// Frequency is a frequency measurement channel. It has no range code.
type Frequency struct {
	Trailer Trailer
}

func NewFrequency(trailer Trailer) *Frequency {
	return &Frequency{Trailer: trailer}
}

func (c *Frequency) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	analogHead(e, typeFrequency, 0, 0, 0, 0)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// RTD is a resistance-temperature-detector channel.
type RTD struct {
	Range   RTDRange
	Alpha   float32 // only meaningful (and settable) for RTDCustom385
	R0      float32
	Trailer Trailer
}

// NewRTD validates and constructs an RTD channel. RTDFixed385 forbids
// setting Alpha; RTDCustom385 requires 0.00374 <= Alpha <= 0.00393.
// R0 must lie in 10..1010 Ω regardless of curve (§4.2, §8).
func NewRTD(r RTDRange, alpha, r0 float32, trailer Trailer) (*RTD, error) {
	switch r {
	case RTDFixed385:
		if alpha != 0 {
			return nil, ErrInvalidRange
		}
	case RTDCustom385:
		if alpha < 0.00374 || alpha > 0.00393 {
			return nil, boundsErr("alpha", float64(alpha), 0.00374, 0.00393)
		}
	default:
		return nil, ErrInvalidRange
	}
	if r0 < 10 || r0 > 1010 {
		return nil, boundsErr("r0", float64(r0), 10, 1010)
	}
	return &RTD{Range: r, Alpha: alpha, R0: r0, Trailer: trailer}, nil
}

func (c *RTD) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	e.Uint32(typeRTD).Uint32(uint32(c.Range)).Float32(c.Alpha).Float32(c.R0).Uint32(0x9001)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// Thermocouple is a thermocouple measurement channel.
type Thermocouple struct {
	Range      ThermocoupleRange
	OpenDetect bool
	Trailer    Trailer
}

func NewThermocouple(r ThermocoupleRange, openDetect bool, trailer Trailer) (*Thermocouple, error) {
	return &Thermocouple{Range: r, OpenDetect: openDetect, Trailer: trailer}, nil
}

func (c *Thermocouple) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	extraBits := uint32(0)
	if c.OpenDetect {
		extraBits |= 0x0001
	}
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	analogHead(e, typeThermocouple, uint16(c.Range), 0, 0, extraBits)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}

// Current is a current-loop measurement channel, sensed across an
// external shunt resistor.
type Current struct {
	Range   CurrentRange
	Shunt   float32 // ohms, 10..250
	Trailer Trailer
}

// NewCurrent validates and constructs a current channel. Shunt must
// lie in 10..250 Ω (§4.2, §8).
func NewCurrent(r CurrentRange, shunt float32, trailer Trailer) (*Current, error) {
	if shunt < 10 || shunt > 250 {
		return nil, boundsErr("shunt", float64(shunt), 10, 250)
	}
	return &Current{Range: r, Shunt: shunt, Trailer: trailer}, nil
}

func (c *Current) Encode(uint32) (record [RecordSize]byte, aux []byte) {
	extraBits := uint32(0x7000)
	if c.Range == Current100mA {
		extraBits |= 0x0001
	}
	e := wire.NewEncoder(make([]byte, 0, RecordSize))
	e.Uint32(typeCurrent).Uint32(uint32(c.Range)).Float32(c.Shunt).Float32(0).Uint32(extraBits)
	c.Trailer.encode(e)
	copy(record[:], e.Bytes())
	return record, nil
}
