package ds3231

const (
	Address = 0x68 // I2C address for DS3231

	RegTime    = 0x00 // Time registers starting with seconds, 7 bytes
	RegAlarm1  = 0x07 // Alarm 1 registers starting with seconds, 4 bytes
	RegAlarm2  = 0x0B // Alarm 2 registers starting with minutes, 3 bytes
	RegControl = 0x0E // Control register
	RegStatus  = 0x0F // Control/status register
	RegAging   = 0x10 // Aging offset register
	RegTemp    = 0x11 // Temperature registers, MSB then LSB
)

// Status register bits
const (
	StatusOscillatorStopped = 0x80
	Status32kHz             = 0x08
	StatusBusy              = 0x04
	StatusAlarm2            = 0x02
	StatusAlarm1            = 0x01
)

// Control register bits
const (
	ControlOscillator    = 0x80 // EOSC, active low
	ControlConvertTemp   = 0x20
	ControlAlarmInts     = 0x04 // INTCN
	ControlAlarm2Int     = 0x02
	ControlAlarm1Int     = 0x01
	controlSquareWaveSel = 0x18 // RS2 and RS1
)

// Alarm day/date register bits
const (
	alarmDay    = 0x40
	alarmNotSet = 0x80
)

// Time register bits
const (
	hour12Flag = 0x40
	hour12Mask = 0x1F
	hourPMFlag = 0x20
	monthMask  = 0x1F
)

const timeLen = 7
