// Package periphbus adapts a Linux I2C adapter, opened through periph.io, to
// the drivers.I2C interface so the drivers in this repository can run on a
// Raspberry Pi or any other host with /dev/i2c-* devices.
package periphbus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Bus is a register-addressed view of an I2C bus.
type Bus struct {
	bus i2c.BusCloser
}

// Open initializes periph.io and opens the named I2C bus. An empty name
// opens the first bus found. The returned Bus must be closed.
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphbus: host init failed: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("periphbus: failed to open I2C bus %q: %w", name, err)
	}
	return New(b), nil
}

// New wraps an already opened bus.
func New(b i2c.BusCloser) *Bus {
	return &Bus{bus: b}
}

// SetSpeed changes the bus clock, in Hz.
func (b *Bus) SetSpeed(hz int64) error {
	return b.bus.SetSpeed(physic.Frequency(hz) * physic.Hertz)
}

// ReadRegister writes the register address and reads len(buf) bytes back
// in a single transaction with a repeated start.
func (b *Bus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.bus.Tx(uint16(addr), []byte{r}, buf)
}

// WriteRegister writes the register address followed by buf.
func (b *Bus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 1+len(buf))
	w[0] = r
	copy(w[1:], buf)
	return b.bus.Tx(uint16(addr), w, nil)
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.bus.Tx(addr, w, r)
}

func (b *Bus) String() string {
	return b.bus.String()
}

// Close releases the bus.
func (b *Bus) Close() error {
	return b.bus.Close()
}
