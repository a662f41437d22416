package ds3231

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a caller supplied value cannot be
	// represented in the chip's registers. Nothing is sent to the bus.
	ErrInvalidInput = errors.New("ds3231: invalid input")

	// ErrUnrepresentable is returned when register contents do not decode
	// to a sane value.
	ErrUnrepresentable = errors.New("ds3231: unrepresentable register state")
)

// decToBcd converts an int in 0..99 to BCD
func decToBcd(dec int) (uint8, error) {
	if dec < 0 || dec > 99 {
		return 0, fmt.Errorf("%w: %d is not a two digit decimal", ErrInvalidInput, dec)
	}
	return uint8((dec/10)<<4 | dec%10), nil
}

// bcdToDec converts BCD to int. Both nibbles are taken as is.
func bcdToDec(bcd uint8) int {
	return int(bcd>>4)*10 + int(bcd&0x0F)
}

// validBcd reports whether both nibbles hold a decimal digit.
func validBcd(bcd uint8) bool {
	return bcd>>4 <= 9 && bcd&0x0F <= 9
}

// field encodes v as BCD after checking it against [lo, hi].
func field(name string, v, lo, hi int) (uint8, error) {
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s %d out of range %d..%d", ErrInvalidInput, name, v, lo, hi)
	}
	return decToBcd(v)
}

// unfield decodes a BCD byte and checks the result against [lo, hi].
func unfield(name string, b uint8, lo, hi int) (int, error) {
	if !validBcd(b) {
		return 0, fmt.Errorf("%w: %s byte 0x%02X is not BCD", ErrUnrepresentable, name, b)
	}
	v := bcdToDec(b)
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s %d out of range %d..%d", ErrUnrepresentable, name, v, lo, hi)
	}
	return v, nil
}
