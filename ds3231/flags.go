package ds3231

import "fmt"

// FlagMode selects how bits are applied to a register by UpdateFlags.
type FlagMode uint8

const (
	FlagSet     FlagMode = iota // OR the bits in
	FlagClear                   // AND the bits out
	FlagReplace                 // overwrite the register with the bits
)

func (m FlagMode) apply(data, bits uint8) uint8 {
	switch m {
	case FlagSet:
		return data | bits
	case FlagClear:
		return data &^ bits
	default:
		return bits
	}
}

// Flags reads register reg and returns only the bits in mask. Use a mask of
// 0xFF to get the whole register.
func (d *Device) Flags(reg, mask uint8) (uint8, error) {
	buf := [1]byte{}
	err := d.bus.ReadRegister(d.Address, reg, buf[:])
	if err != nil {
		return 0, err
	}
	return buf[0] & mask, nil
}

// UpdateFlags sets, clears or replaces bits in register reg with one read
// followed by one write. The pair is not atomic: callers sharing a device
// between goroutines must serialize access themselves.
func (d *Device) UpdateFlags(reg, bits uint8, mode FlagMode) error {
	if mode > FlagReplace {
		return fmt.Errorf("%w: flag mode %d", ErrInvalidInput, mode)
	}
	return d.update(reg, func(data uint8) uint8 {
		return mode.apply(data, bits)
	})
}

// update reads register reg, passes it through fn and writes the result
// back to the same register.
func (d *Device) update(reg uint8, fn func(uint8) uint8) error {
	buf := [1]byte{}
	err := d.bus.ReadRegister(d.Address, reg, buf[:])
	if err != nil {
		return err
	}
	buf[0] = fn(buf[0])
	return d.bus.WriteRegister(d.Address, reg, buf[:])
}
