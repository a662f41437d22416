// Package ds3231 implements a driver for the DS3231 extremely accurate Real-Time Clock (RTC). It covers reading and
// setting the time, both alarms and their interrupt/status flags, the square-wave and 32kHz outputs, the aging offset
// and the temperature sensor.
//
// The driver keeps no state besides the bus address: every call is a fresh register round trip and nothing is cached.
// Methods that read, modify and write a register are not atomic, so a Device shared between goroutines must be
// guarded by the caller.
//
// Datasheet: https://www.analog.com/media/en/technical-documentation/data-sheets/DS3231.pdf
package ds3231

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

type Device struct {
	bus     drivers.I2C
	Address uint8
}

type Config struct {
	Address uint8
}

// SquareWaveFrequency is the value of the RS2 and RS1 bits of the control register.
type SquareWaveFrequency uint8

const (
	SquareWave1Hz    SquareWaveFrequency = 0x00
	SquareWave1024Hz SquareWaveFrequency = 0x08
	SquareWave4096Hz SquareWaveFrequency = 0x10
	SquareWave8192Hz SquareWaveFrequency = 0x18
)

// New creates a new driver on the specified preconfigured I2C bus. The chip supports up to 400 kHz.
func New(i2c drivers.I2C) Device {
	return Device{
		bus:     i2c,
		Address: Address,
	}
}

func (d *Device) Configure(c Config) {
	if c.Address == 0 {
		c.Address = Address
	}
	d.Address = c.Address
}

// SetTime writes ct to the time registers in 24-hour mode. Nothing is written if ct is out of range.
func (d *Device) SetTime(ct CalendarTime) error {
	buf, err := encodeTime(ct)
	if err != nil {
		return err
	}
	return d.bus.WriteRegister(d.Address, RegTime, buf[:])
}

// ReadTime reads the time registers. Registers left in 12-hour mode by other software are converted to 24-hour time.
func (d *Device) ReadTime() (CalendarTime, error) {
	buf := [timeLen]byte{}
	err := d.bus.ReadRegister(d.Address, RegTime, buf[:])
	if err != nil {
		return CalendarTime{}, err
	}
	return decodeTime(buf[:])
}

// Set sets the clock to t, taken in t's own location. Pass UTC unless you want the RTC to hold local time.
func (d *Device) Set(t time.Time) error {
	return d.SetTime(FromTime(t))
}

// Now returns the time held by the RTC as a UTC time.Time.
func (d *Device) Now() (time.Time, error) {
	ct, err := d.ReadTime()
	if err != nil {
		return time.Time{}, err
	}
	return ct.Time(time.UTC), nil
}

// SetAlarm programs the alarm(s) selected by s.Target. It does not touch the alarm interrupt enables; see
// EnableAlarmInterrupts. A pending alarm flag should be cleared before enabling the interrupt or it fires at once.
func (d *Device) SetAlarm(s AlarmSpec) error {
	reg, buf, err := encodeAlarm(s)
	if err != nil {
		return err
	}
	return d.bus.WriteRegister(d.Address, reg, buf)
}

// OscillatorStopFlag reports whether the oscillator has stopped at some point, e.g. because power and battery were
// both lost. The time should be considered invalid while it is set.
func (d *Device) OscillatorStopFlag() (bool, error) {
	f, err := d.Flags(RegStatus, StatusOscillatorStopped)
	return f != 0, err
}

func (d *Device) ClearOscillatorStopFlag() error {
	return d.UpdateFlags(RegStatus, StatusOscillatorStopped, FlagClear)
}

// AlarmFlags returns which alarms have fired since their flags were last cleared.
func (d *Device) AlarmFlags() (Alarm, error) {
	f, err := d.Flags(RegStatus, uint8(AlarmBoth))
	return Alarm(f), err
}

func (d *Device) ClearAlarmFlags(a Alarm) error {
	if err := a.valid(); err != nil {
		return err
	}
	return d.UpdateFlags(RegStatus, uint8(a), FlagClear)
}

// EnableAlarmInterrupts switches the INT/SQW pin to interrupt mode and enables the interrupt of the selected alarms.
// The other alarm's enable bit is left alone.
func (d *Device) EnableAlarmInterrupts(a Alarm) error {
	if err := a.valid(); err != nil {
		return err
	}
	return d.UpdateFlags(RegControl, ControlAlarmInts|uint8(a), FlagSet)
}

// DisableAlarmInterrupts disables the interrupt of the selected alarms. The pin stays in interrupt mode, so this does
// not turn the square wave back on.
func (d *Device) DisableAlarmInterrupts(a Alarm) error {
	if err := a.valid(); err != nil {
		return err
	}
	return d.UpdateFlags(RegControl, uint8(a), FlagClear)
}

func (d *Device) Enable32kHz() error {
	return d.UpdateFlags(RegStatus, Status32kHz, FlagSet)
}

func (d *Device) Disable32kHz() error {
	return d.UpdateFlags(RegStatus, Status32kHz, FlagClear)
}

// EnableSquareWave switches the INT/SQW pin to square-wave output, which disables alarm interrupts.
func (d *Device) EnableSquareWave() error {
	return d.UpdateFlags(RegControl, ControlAlarmInts, FlagClear)
}

// DisableSquareWave switches the INT/SQW pin back to interrupt mode. Individual alarm interrupts still have to be
// enabled before they trigger.
func (d *Device) DisableSquareWave() error {
	return d.UpdateFlags(RegControl, ControlAlarmInts, FlagSet)
}

// SetSquareWaveFrequency selects the square-wave frequency without enabling the output. Other control bits are kept.
func (d *Device) SetSquareWaveFrequency(f SquareWaveFrequency) error {
	if uint8(f)&^controlSquareWaveSel != 0 {
		return fmt.Errorf("%w: square wave frequency code 0x%02X", ErrInvalidInput, uint8(f))
	}
	return d.update(RegControl, func(data uint8) uint8 {
		data &^= controlSquareWaveSel
		return data | uint8(f)
	})
}

// AgingOffset returns the aging offset, in steps of about 0.1ppm. Positive values slow the oscillator down.
func (d *Device) AgingOffset() (int8, error) {
	v, err := d.Flags(RegAging, 0xFF)
	return int8(v), err
}

func (d *Device) SetAgingOffset(offset int8) error {
	return d.bus.WriteRegister(d.Address, RegAging, []byte{uint8(offset)})
}
