package ds3231

// RawTemperature returns the temperature as a 10-bit signed fixed point value in quarter degrees Celsius.
func (d *Device) RawTemperature() (int16, error) {
	buf := [2]byte{}
	err := d.bus.ReadRegister(d.Address, RegTemp, buf[:])
	if err != nil {
		return 0, err
	}
	return rawTemperature(buf[0], buf[1]), nil
}

// TemperatureInteger returns the temperature in whole degrees Celsius, rounded towards negative infinity.
func (d *Device) TemperatureInteger() (int8, error) {
	raw, err := d.RawTemperature()
	if err != nil {
		return 0, err
	}
	return int8(raw >> 2), nil
}

// Temperature returns the temperature in degrees Celsius with a resolution of 0.25.
func (d *Device) Temperature() (float32, error) {
	raw, err := d.RawTemperature()
	if err != nil {
		return 0, err
	}
	return float32(raw) * 0.25, nil
}

// ConvertTemperature starts a temperature conversion. The chip converts every 64 seconds on its own; this only
// refreshes the reading sooner. TemperatureBusy reports when it is done.
func (d *Device) ConvertTemperature() error {
	return d.UpdateFlags(RegControl, ControlConvertTemp, FlagSet)
}

// TemperatureBusy reports whether a temperature conversion is in progress.
func (d *Device) TemperatureBusy() (bool, error) {
	f, err := d.Flags(RegStatus, StatusBusy)
	return f != 0, err
}

// rawTemperature combines the signed MSB with the two fractional bits at the top of the LSB.
func rawTemperature(msb, lsb uint8) int16 {
	return int16(int8(msb))<<2 | int16(lsb>>6)
}
