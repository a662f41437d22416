package ds3231

import "fmt"

// Alarm selects one or both of the chip's alarms. The values double as the
// alarm bits of the status and control registers.
type Alarm uint8

const (
	AlarmNone Alarm = 0
	Alarm1    Alarm = StatusAlarm1
	Alarm2    Alarm = StatusAlarm2
	AlarmBoth Alarm = Alarm1 | Alarm2
)

func (a Alarm) String() string {
	switch a {
	case AlarmNone:
		return "none"
	case Alarm1:
		return "alarm1"
	case Alarm2:
		return "alarm2"
	case AlarmBoth:
		return "both"
	}
	return fmt.Sprintf("Alarm(%d)", uint8(a))
}

func (a Alarm) valid() error {
	if a == AlarmNone || a&^AlarmBoth != 0 {
		return fmt.Errorf("%w: alarm selection %v", ErrInvalidInput, a)
	}
	return nil
}

// Alarm1Rate is how much of the current time alarm 1 has to match to fire.
// Each step also matches every field of the steps before it. MatchDay and
// MatchDate are alternatives for the last field.
type Alarm1Rate uint8

const (
	Alarm1EverySecond Alarm1Rate = iota
	Alarm1MatchSecond
	Alarm1MatchMinute // seconds and minutes
	Alarm1MatchHour   // seconds, minutes and hours
	Alarm1MatchDay    // seconds, minutes, hours and day of the week
	Alarm1MatchDate   // seconds, minutes, hours and day of the month
)

// Alarm2Rate is how much of the current time alarm 2 has to match to fire.
// Alarm 2 has no seconds register and fires at second 00.
type Alarm2Rate uint8

const (
	Alarm2EveryMinute Alarm2Rate = iota
	Alarm2MatchMinute
	Alarm2MatchHour // minutes and hours
	Alarm2MatchDay  // minutes, hours and day of the week
	Alarm2MatchDate // minutes, hours and day of the month
)

// AlarmSpec describes the alarm(s) written by SetAlarm. Time1 and Rate1
// are used when Target includes Alarm1, Time2 and Rate2 when it includes
// Alarm2. Only the fields the rate matches on need to be filled in.
type AlarmSpec struct {
	Target Alarm
	Time1  CalendarTime
	Rate1  Alarm1Rate
	Time2  CalendarTime
	Rate2  Alarm2Rate
}

// alarmRule encodes one alarm register when match accepts the rate.
type alarmRule struct {
	match  func(rate uint8) bool
	encode func(ct CalendarTime) (uint8, error)
}

// alarmSlot is one alarm register. The first matching rule wins; when none
// matches the register holds alarmNotSet.
type alarmSlot []alarmRule

func atLeast(threshold uint8) func(uint8) bool {
	return func(rate uint8) bool { return rate >= threshold }
}

func exactly(want uint8) func(uint8) bool {
	return func(rate uint8) bool { return rate == want }
}

func encSecond(ct CalendarTime) (uint8, error) { return field("alarm second", ct.Second, 0, 59) }
func encMinute(ct CalendarTime) (uint8, error) { return field("alarm minute", ct.Minute, 0, 59) }
func encHour(ct CalendarTime) (uint8, error)   { return field("alarm hour", ct.Hour, 0, 23) }
func encDate(ct CalendarTime) (uint8, error)   { return field("alarm day", ct.Day, 1, 31) }

func encWeekday(ct CalendarTime) (uint8, error) {
	b, err := field("alarm weekday", ct.Weekday+1, 1, 7)
	return b | alarmDay, err
}

var alarm1Layout = []alarmSlot{
	{{atLeast(uint8(Alarm1MatchSecond)), encSecond}},
	{{atLeast(uint8(Alarm1MatchMinute)), encMinute}},
	{{atLeast(uint8(Alarm1MatchHour)), encHour}},
	{
		{exactly(uint8(Alarm1MatchDay)), encWeekday},
		{exactly(uint8(Alarm1MatchDate)), encDate},
	},
}

var alarm2Layout = []alarmSlot{
	{{atLeast(uint8(Alarm2MatchMinute)), encMinute}},
	{{atLeast(uint8(Alarm2MatchHour)), encHour}},
	{
		{exactly(uint8(Alarm2MatchDay)), encWeekday},
		{exactly(uint8(Alarm2MatchDate)), encDate},
	},
}

// encodeSlots appends the registers of layout for rate and ct to buf.
func encodeSlots(buf []byte, layout []alarmSlot, rate uint8, ct CalendarTime) ([]byte, error) {
	for _, slot := range layout {
		b := uint8(alarmNotSet)
		for _, rule := range slot {
			if !rule.match(rate) {
				continue
			}
			v, err := rule.encode(ct)
			if err != nil {
				return nil, err
			}
			b = v
			break
		}
		buf = append(buf, b)
	}
	return buf, nil
}

// encodeAlarm returns the register address and the register image for s.
// When both alarms are set the two images are written as one block
// starting at alarm 1, which directly precedes alarm 2.
func encodeAlarm(s AlarmSpec) (uint8, []byte, error) {
	if err := s.Target.valid(); err != nil {
		return 0, nil, err
	}

	buf := make([]byte, 0, len(alarm1Layout)+len(alarm2Layout))
	reg := uint8(RegAlarm1)
	var err error

	if s.Target&Alarm1 != 0 {
		if s.Rate1 > Alarm1MatchDate {
			return 0, nil, fmt.Errorf("%w: alarm 1 rate %d", ErrInvalidInput, s.Rate1)
		}
		buf, err = encodeSlots(buf, alarm1Layout, uint8(s.Rate1), s.Time1)
		if err != nil {
			return 0, nil, err
		}
	} else {
		reg = RegAlarm2
	}

	if s.Target&Alarm2 != 0 {
		if s.Rate2 > Alarm2MatchDate {
			return 0, nil, fmt.Errorf("%w: alarm 2 rate %d", ErrInvalidInput, s.Rate2)
		}
		buf, err = encodeSlots(buf, alarm2Layout, uint8(s.Rate2), s.Time2)
		if err != nil {
			return 0, nil, err
		}
	}

	return reg, buf, nil
}
