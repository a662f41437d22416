// Package tester contains fake buses and devices for testing drivers
// without hardware.
package tester

import (
	"fmt"
)

// Failer is implemented by *testing.T and *quicktest.C.
type Failer interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

// I2CBus is a fake I2C bus that routes register accesses to the devices
// added with AddDevice.
type I2CBus struct {
	c       Failer
	devices []*I2CDevice8
}

func NewI2CBus(c Failer) *I2CBus {
	return &I2CBus{c: c}
}

func (bus *I2CBus) AddDevice(d *I2CDevice8) {
	bus.devices = append(bus.devices, d)
}

// ReadRegister implements drivers.I2C.
func (bus *I2CBus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return bus.findDevice(addr).readRegister(r, buf)
}

// WriteRegister implements drivers.I2C.
func (bus *I2CBus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return bus.findDevice(addr).writeRegister(r, buf)
}

// Tx implements drivers.I2C. A write of one byte followed by a read is
// treated as a register read, a write of more than one byte as a register
// write.
func (bus *I2CBus) Tx(addr uint16, w, r []byte) error {
	dev := bus.findDevice(uint8(addr))
	switch {
	case len(w) == 1 && len(r) > 0:
		return dev.readRegister(w[0], r)
	case len(w) > 1 && len(r) == 0:
		return dev.writeRegister(w[0], w[1:])
	}
	bus.c.Helper()
	bus.c.Fatalf("unsupported Tx to device 0x%02X: %d bytes out, %d bytes in", addr, len(w), len(r))
	return nil
}

func (bus *I2CBus) findDevice(addr uint8) *I2CDevice8 {
	for _, d := range bus.devices {
		if d.Addr == addr {
			return d
		}
	}
	bus.c.Helper()
	bus.c.Fatalf("no device found at address 0x%02X", addr)
	return nil
}

// Access records one register access on a fake device.
type Access struct {
	Write bool
	Reg   uint8
	Data  []byte
}

func (a Access) String() string {
	op := "read"
	if a.Write {
		op = "write"
	}
	return fmt.Sprintf("%s 0x%02X % X", op, a.Reg, a.Data)
}

// I2CDevice8 is a fake device with 256 8-bit registers. Register
// addresses auto-increment within a burst and wrap at 0xFF.
type I2CDevice8 struct {
	c Failer

	Addr      uint8
	Registers [256]uint8

	// Err, when set, is returned by every access and the registers are
	// left untouched.
	Err error

	// Log holds every access in order, including failed ones.
	Log []Access
}

func NewI2CDevice8(c Failer, addr uint8) *I2CDevice8 {
	return &I2CDevice8{
		c:    c,
		Addr: addr,
	}
}

// Writes returns the write accesses in Log.
func (d *I2CDevice8) Writes() []Access {
	var out []Access
	for _, a := range d.Log {
		if a.Write {
			out = append(out, a)
		}
	}
	return out
}

// Reset clears Log.
func (d *I2CDevice8) Reset() {
	d.Log = nil
}

func (d *I2CDevice8) readRegister(r uint8, buf []byte) error {
	if d.Err != nil {
		d.Log = append(d.Log, Access{Reg: r})
		return d.Err
	}
	for i := range buf {
		buf[i] = d.Registers[r+uint8(i)]
	}
	d.Log = append(d.Log, Access{Reg: r, Data: append([]byte(nil), buf...)})
	return nil
}

func (d *I2CDevice8) writeRegister(r uint8, buf []byte) error {
	d.Log = append(d.Log, Access{Write: true, Reg: r, Data: append([]byte(nil), buf...)})
	if d.Err != nil {
		return d.Err
	}
	for i, b := range buf {
		d.Registers[r+uint8(i)] = b
	}
	return nil
}
