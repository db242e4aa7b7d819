package transport

// Command identifies an outbound request, written as the status word
// of a request frame. Values grounded on spec.md §6.
type Command uint32

const (
	Ping                 Command = 0x00
	Close                Command = 0x01
	StatusQuery          Command = 0x02
	GetReadings          Command = 0x64
	Start                Command = 0x67
	Stop                 Command = 0x68
	SetTime              Command = 0x6A
	QuerySpy             Command = 0x6F
	ResetTotalizer       Command = 0x71
	GetVersionInfo       Command = 0x72
	SetMonitorChannel    Command = 0x75
	ClearMonitorChannel  Command = 0x76
	GetBaseChannel       Command = 0x77
	EnableSpy            Command = 0x7C
	DisableSpy           Command = 0x7D
	GetLCVersion         Command = 0x7F
	SetConfig            Command = 0x81
)
