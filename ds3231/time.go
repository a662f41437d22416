package ds3231

import (
	"fmt"
	"time"
)

// CalendarTime is the broken-down time the chip stores. Fields follow the
// C struct tm conventions: Weekday counts from Sunday = 0 and Month from
// January = 0. Year is the full year and must be within 2000..2099.
type CalendarTime struct {
	Second  int
	Minute  int
	Hour    int // 0..23
	Weekday int // 0..6, Sunday = 0
	Day     int // 1..31
	Month   int // 0..11
	Year    int

	// IsDST is ignored when writing. The chip has no notion of daylight
	// saving time, so it is always false after a read.
	IsDST bool
}

// FromTime converts t to a CalendarTime, using t's location.
func FromTime(t time.Time) CalendarTime {
	return CalendarTime{
		Second:  t.Second(),
		Minute:  t.Minute(),
		Hour:    t.Hour(),
		Weekday: int(t.Weekday()),
		Day:     t.Day(),
		Month:   int(t.Month()) - 1,
		Year:    t.Year(),
	}
}

// Time returns the instant ct describes in loc. The weekday is derived from
// the date and not from ct.Weekday.
func (ct CalendarTime) Time(loc *time.Location) time.Time {
	return time.Date(ct.Year, time.Month(ct.Month+1), ct.Day, ct.Hour, ct.Minute, ct.Second, 0, loc)
}

func (ct CalendarTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d (%s)",
		ct.Year, ct.Month+1, ct.Day, ct.Hour, ct.Minute, ct.Second, time.Weekday(ct.Weekday%7))
}

// daysIn returns the number of days in the 0-indexed month of year.
func daysIn(month, year int) int {
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// encodeTime packs ct into the 7 time registers. The hour is always
// written in 24-hour mode and the century bit is left clear.
func encodeTime(ct CalendarTime) ([timeLen]byte, error) {
	var buf [timeLen]byte
	var err error

	if buf[0], err = field("second", ct.Second, 0, 59); err != nil {
		return buf, err
	}
	if buf[1], err = field("minute", ct.Minute, 0, 59); err != nil {
		return buf, err
	}
	if buf[2], err = field("hour", ct.Hour, 0, 23); err != nil {
		return buf, err
	}
	// the chip counts weekdays 1..7, keep Sunday first
	if buf[3], err = field("weekday", ct.Weekday+1, 1, 7); err != nil {
		return buf, err
	}
	if ct.Month < 0 || ct.Month > 11 {
		return buf, fmt.Errorf("%w: month %d out of range 0..11", ErrInvalidInput, ct.Month)
	}
	if ct.Year < 2000 || ct.Year > 2099 {
		return buf, fmt.Errorf("%w: year %d out of range 2000..2099", ErrInvalidInput, ct.Year)
	}
	if buf[4], err = field("day", ct.Day, 1, daysIn(ct.Month, ct.Year)); err != nil {
		return buf, err
	}
	if buf[5], err = decToBcd(ct.Month + 1); err != nil {
		return buf, err
	}
	if buf[6], err = decToBcd(ct.Year - 2000); err != nil {
		return buf, err
	}
	return buf, nil
}

// decodeTime unpacks the 7 time registers. Both 12 and 24-hour mode are
// accepted; the century bit of the month register is ignored.
func decodeTime(buf []byte) (CalendarTime, error) {
	var ct CalendarTime
	if len(buf) != timeLen {
		return ct, fmt.Errorf("%w: time image is %d bytes, want %d", ErrUnrepresentable, len(buf), timeLen)
	}

	var err error
	if ct.Second, err = unfield("second", buf[0], 0, 59); err != nil {
		return ct, err
	}
	if ct.Minute, err = unfield("minute", buf[1], 0, 59); err != nil {
		return ct, err
	}
	if ct.Hour, err = decodeHour(buf[2]); err != nil {
		return ct, err
	}
	wday, err := unfield("weekday", buf[3], 1, 7)
	if err != nil {
		return ct, err
	}
	ct.Weekday = wday - 1
	if ct.Day, err = unfield("day", buf[4], 1, 31); err != nil {
		return ct, err
	}
	month, err := unfield("month", buf[5]&monthMask, 1, 12)
	if err != nil {
		return ct, err
	}
	ct.Month = month - 1
	year, err := unfield("year", buf[6], 0, 99)
	if err != nil {
		return ct, err
	}
	ct.Year = year + 2000
	return ct, nil
}

// decodeHour returns the hour of the day in 0..23 from the hour register.
// A 12-hour register value h maps to h-1, plus 12 when PM is set.
func decodeHour(b uint8) (int, error) {
	if b&hour12Flag == 0 {
		return unfield("hour", b, 0, 23)
	}
	if b&0x80 != 0 {
		return 0, fmt.Errorf("%w: hour byte 0x%02X has bit 7 set", ErrUnrepresentable, b)
	}
	h, err := unfield("12-hour", b&hour12Mask, 1, 12)
	if err != nil {
		return 0, err
	}
	h--
	if b&hourPMFlag != 0 {
		h += 12
	}
	return h, nil
}
