// Package drivers holds the bus interfaces shared by the device drivers in
// this repository. Each driver lives in its own package and accepts one of
// these interfaces, so the same driver runs on a microcontroller peripheral,
// a Linux I2C adapter, or a fake bus in tests.
package drivers

// I2C represents an I2C bus. It is notably implemented by the machine.I2C
// type under TinyGo and by periphbus.Bus on Linux.
type I2C interface {
	// ReadRegister reads len(buf) bytes starting at register r of the
	// device at addr.
	ReadRegister(addr uint8, r uint8, buf []byte) error

	// WriteRegister writes buf starting at register r of the device at
	// addr in a single burst.
	WriteRegister(addr uint8, r uint8, buf []byte) error

	Tx(addr uint16, w, r []byte) error
}
