package ds3231

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"tinygo.org/x/drivers/tester"
)

func newDevice(c *qt.C) (*Device, *tester.I2CDevice8) {
	bus := tester.NewI2CBus(c)
	fake := tester.NewI2CDevice8(c, Address)
	bus.AddDevice(fake)
	dev := New(bus)
	return &dev, fake
}

func TestSetAndReadTime(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)

	want := time.Date(2031, time.October, 9, 22, 7, 51, 0, time.UTC)
	c.Assert(dev.Set(want), qt.IsNil)
	c.Assert(fake.Writes(), qt.DeepEquals, []tester.Access{
		{Write: true, Reg: RegTime, Data: []byte{0x51, 0x07, 0x22, 0x05, 0x09, 0x10, 0x31}},
	})

	got, err := dev.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, want)

	ct, err := dev.ReadTime()
	c.Assert(err, qt.IsNil)
	c.Assert(ct.Weekday, qt.Equals, int(time.Thursday))
}

func TestReadTime12Hour(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	copy(fake.Registers[RegTime:], []byte{0x00, 0x00, hour12Flag | 0x01, 0x02, 0x01, 0x01, 0x24})

	got, err := dev.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
}

func TestReadTimeUnrepresentable(t *testing.T) {
	c := qt.New(t)
	dev, _ := newDevice(c)
	// all registers zero: weekday, day and month are out of range
	_, err := dev.ReadTime()
	c.Assert(err, qt.ErrorIs, ErrUnrepresentable)
}

func TestSetTimeInvalidDoesNotTouchBus(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	err := dev.Set(time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC))
	c.Assert(err, qt.ErrorIs, ErrInvalidInput)
	c.Assert(fake.Log, qt.HasLen, 0)
}

func TestSetAlarm(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)

	err := dev.SetAlarm(AlarmSpec{Target: Alarm2, Time2: alarmTime, Rate2: Alarm2MatchMinute})
	c.Assert(err, qt.IsNil)
	c.Assert(fake.Writes(), qt.DeepEquals, []tester.Access{
		{Write: true, Reg: RegAlarm2, Data: []byte{0x42, 0x80, 0x80}},
	})

	fake.Reset()
	err = dev.SetAlarm(AlarmSpec{
		Target: AlarmBoth,
		Time1:  alarmTime,
		Rate1:  Alarm1MatchDay,
		Time2:  alarmTime,
		Rate2:  Alarm2MatchHour,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(fake.Log, qt.HasLen, 1)
	c.Assert(fake.Registers[RegAlarm1:RegControl], qt.DeepEquals, []byte{0x15, 0x42, 0x08, 0x44, 0x42, 0x08, 0x80})

	fake.Reset()
	err = dev.SetAlarm(AlarmSpec{Target: AlarmNone})
	c.Assert(err, qt.ErrorIs, ErrInvalidInput)
	c.Assert(fake.Log, qt.HasLen, 0)
}

func TestOscillatorStopFlag(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegStatus] = StatusOscillatorStopped | Status32kHz | StatusAlarm1

	stopped, err := dev.OscillatorStopFlag()
	c.Assert(err, qt.IsNil)
	c.Assert(stopped, qt.IsTrue)

	c.Assert(dev.ClearOscillatorStopFlag(), qt.IsNil)
	c.Assert(fake.Registers[RegStatus], qt.Equals, uint8(Status32kHz|StatusAlarm1))

	stopped, err = dev.OscillatorStopFlag()
	c.Assert(err, qt.IsNil)
	c.Assert(stopped, qt.IsFalse)
}

func TestAlarmFlags(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegStatus] = StatusOscillatorStopped | StatusAlarm2 | StatusAlarm1

	fired, err := dev.AlarmFlags()
	c.Assert(err, qt.IsNil)
	c.Assert(fired, qt.Equals, AlarmBoth)

	c.Assert(dev.ClearAlarmFlags(Alarm1), qt.IsNil)
	c.Assert(fake.Registers[RegStatus], qt.Equals, uint8(StatusOscillatorStopped|StatusAlarm2))

	fired, err = dev.AlarmFlags()
	c.Assert(err, qt.IsNil)
	c.Assert(fired, qt.Equals, Alarm2)

	c.Assert(dev.ClearAlarmFlags(AlarmBoth), qt.IsNil)
	fired, err = dev.AlarmFlags()
	c.Assert(err, qt.IsNil)
	c.Assert(fired, qt.Equals, AlarmNone)
	c.Assert(fake.Registers[RegStatus], qt.Equals, uint8(StatusOscillatorStopped))
}

func TestAlarmInterrupts(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegControl] = uint8(SquareWave8192Hz)

	c.Assert(dev.EnableAlarmInterrupts(Alarm2), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(0x18|ControlAlarmInts|ControlAlarm2Int))

	c.Assert(dev.EnableAlarmInterrupts(Alarm1), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(0x18|ControlAlarmInts|ControlAlarm2Int|ControlAlarm1Int))

	// INTCN stays set so the square wave is not switched back on
	c.Assert(dev.DisableAlarmInterrupts(AlarmBoth), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(0x18|ControlAlarmInts))

	fake.Reset()
	c.Assert(dev.EnableAlarmInterrupts(AlarmNone), qt.ErrorIs, ErrInvalidInput)
	c.Assert(dev.DisableAlarmInterrupts(0x08), qt.ErrorIs, ErrInvalidInput)
	c.Assert(dev.ClearAlarmFlags(AlarmNone), qt.ErrorIs, ErrInvalidInput)
	c.Assert(fake.Log, qt.HasLen, 0)
}

func Test32kHz(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegStatus] = StatusAlarm2

	c.Assert(dev.Enable32kHz(), qt.IsNil)
	c.Assert(fake.Registers[RegStatus], qt.Equals, uint8(StatusAlarm2|Status32kHz))
	c.Assert(dev.Disable32kHz(), qt.IsNil)
	c.Assert(fake.Registers[RegStatus], qt.Equals, uint8(StatusAlarm2))
}

func TestSquareWave(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegControl] = ControlAlarmInts | ControlAlarm1Int

	c.Assert(dev.EnableSquareWave(), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(ControlAlarm1Int))
	c.Assert(dev.DisableSquareWave(), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(ControlAlarmInts|ControlAlarm1Int))
}

func TestSetSquareWaveFrequency(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegControl] = ControlOscillator | ControlAlarmInts | ControlAlarm1Int | uint8(SquareWave1024Hz)

	c.Assert(dev.SetSquareWaveFrequency(SquareWave4096Hz), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(ControlOscillator|ControlAlarmInts|ControlAlarm1Int|0x10))
	c.Assert(fake.Log, qt.DeepEquals, []tester.Access{
		{Reg: RegControl, Data: []byte{0x8D}},
		{Write: true, Reg: RegControl, Data: []byte{0x95}},
	})

	c.Assert(dev.SetSquareWaveFrequency(SquareWave1Hz), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(ControlOscillator|ControlAlarmInts|ControlAlarm1Int))

	fake.Reset()
	c.Assert(dev.SetSquareWaveFrequency(0x20), qt.ErrorIs, ErrInvalidInput)
	c.Assert(fake.Log, qt.HasLen, 0)
}

func TestUpdateFlags(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegControl] = 0x5A

	c.Assert(dev.UpdateFlags(RegControl, 0x81, FlagSet), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(0xDB))
	c.Assert(dev.UpdateFlags(RegControl, 0x81, FlagClear), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(0x5A))

	// clearing bits that are already clear changes nothing
	c.Assert(dev.UpdateFlags(RegControl, 0x81, FlagClear), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(0x5A))

	c.Assert(dev.UpdateFlags(RegControl, 0x1C, FlagReplace), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(0x1C))

	v, err := dev.Flags(RegControl, 0x0C)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint8(0x0C))

	fake.Reset()
	c.Assert(dev.UpdateFlags(RegControl, 0x01, FlagReplace+1), qt.ErrorIs, ErrInvalidInput)
	c.Assert(fake.Log, qt.HasLen, 0)
}

func TestUpdateFlagsWritesBack(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	c.Assert(dev.UpdateFlags(RegStatus, Status32kHz, FlagSet), qt.IsNil)
	c.Assert(fake.Log, qt.DeepEquals, []tester.Access{
		{Reg: RegStatus, Data: []byte{0x00}},
		{Write: true, Reg: RegStatus, Data: []byte{Status32kHz}},
	})
}

func TestTemperature(t *testing.T) {
	tests := []struct {
		name     string
		msb, lsb uint8
		raw      int16
		integer  int8
		float    float32
	}{
		{"25", 0x19, 0x00, 100, 25, 25},
		{"25.25", 0x19, 0x40, 101, 25, 25.25},
		{"25.75", 0x19, 0xC0, 103, 25, 25.75},
		{"zero", 0x00, 0x00, 0, 0, 0},
		{"-1", 0xFF, 0x00, -4, -1, -1},
		{"-0.25", 0xFF, 0xC0, -1, -1, -0.25},
		{"-18.5", 0xED, 0x80, -74, -19, -18.5},
		{"low bits ignored", 0x19, 0x3F, 100, 25, 25},
	}
	c := qt.New(t)
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			dev, fake := newDevice(c)
			fake.Registers[RegTemp] = test.msb
			fake.Registers[RegTemp+1] = test.lsb

			raw, err := dev.RawTemperature()
			c.Assert(err, qt.IsNil)
			c.Assert(raw, qt.Equals, test.raw)

			i, err := dev.TemperatureInteger()
			c.Assert(err, qt.IsNil)
			c.Assert(i, qt.Equals, test.integer)

			f, err := dev.Temperature()
			c.Assert(err, qt.IsNil)
			c.Assert(f, qt.Equals, test.float)
		})
	}
}

func TestConvertTemperature(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)
	fake.Registers[RegControl] = ControlAlarmInts
	fake.Registers[RegStatus] = StatusBusy

	c.Assert(dev.ConvertTemperature(), qt.IsNil)
	c.Assert(fake.Registers[RegControl], qt.Equals, uint8(ControlAlarmInts|ControlConvertTemp))

	busy, err := dev.TemperatureBusy()
	c.Assert(err, qt.IsNil)
	c.Assert(busy, qt.IsTrue)
}

func TestAgingOffset(t *testing.T) {
	c := qt.New(t)
	dev, fake := newDevice(c)

	c.Assert(dev.SetAgingOffset(-5), qt.IsNil)
	c.Assert(fake.Registers[RegAging], qt.Equals, uint8(0xFB))

	v, err := dev.AgingOffset()
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, int8(-5))
}

func TestConfigureAddress(t *testing.T) {
	c := qt.New(t)
	bus := tester.NewI2CBus(c)
	fake := tester.NewI2CDevice8(c, 0x57)
	bus.AddDevice(fake)
	fake.Registers[RegStatus] = StatusAlarm2

	dev := New(bus)
	dev.Configure(Config{Address: 0x57})
	fired, err := dev.AlarmFlags()
	c.Assert(err, qt.IsNil)
	c.Assert(fired, qt.Equals, Alarm2)

	dev.Configure(Config{})
	c.Assert(dev.Address, qt.Equals, uint8(Address))
}

func TestTransportErrorsPropagate(t *testing.T) {
	errBus := errors.New("bus nack")
	ops := map[string]func(d *Device) error{
		"SetTime": func(d *Device) error { return d.SetTime(FromTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))) },
		"ReadTime": func(d *Device) error {
			_, err := d.ReadTime()
			return err
		},
		"SetAlarm": func(d *Device) error { return d.SetAlarm(AlarmSpec{Target: Alarm1}) },
		"OscillatorStopFlag": func(d *Device) error {
			_, err := d.OscillatorStopFlag()
			return err
		},
		"ClearOscillatorStopFlag": func(d *Device) error { return d.ClearOscillatorStopFlag() },
		"AlarmFlags": func(d *Device) error {
			_, err := d.AlarmFlags()
			return err
		},
		"ClearAlarmFlags":        func(d *Device) error { return d.ClearAlarmFlags(AlarmBoth) },
		"EnableAlarmInterrupts":  func(d *Device) error { return d.EnableAlarmInterrupts(Alarm1) },
		"DisableAlarmInterrupts": func(d *Device) error { return d.DisableAlarmInterrupts(Alarm1) },
		"Enable32kHz":            func(d *Device) error { return d.Enable32kHz() },
		"EnableSquareWave":       func(d *Device) error { return d.EnableSquareWave() },
		"SetSquareWaveFrequency": func(d *Device) error { return d.SetSquareWaveFrequency(SquareWave1024Hz) },
		"Temperature": func(d *Device) error {
			_, err := d.Temperature()
			return err
		},
		"SetAgingOffset": func(d *Device) error { return d.SetAgingOffset(3) },
	}
	c := qt.New(t)
	for name, op := range ops {
		c.Run(name, func(c *qt.C) {
			dev, fake := newDevice(c)
			fake.Err = errBus
			c.Assert(op(dev), qt.Equals, errBus)
			// a failed read is never followed by a write
			c.Assert(fake.Log, qt.HasLen, 1)
		})
	}
}
