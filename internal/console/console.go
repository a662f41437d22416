// Package console interprets text commands against a DS3231. It backs both
// the interactive prompt and one-shot invocations of rtcctl.
package console

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"tinygo.org/x/drivers/ds3231"
	"tinygo.org/x/drivers/internal/rtc"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad arguments")
)

type command struct {
	usage string
	help  string
	run   func(c *Console, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":         {"help", "list commands", (*Console).help},
		"time":         {"time", "read the clock", (*Console).readTime},
		"set-time":     {"set-time <RFC3339|now>", "set the clock", (*Console).setTime},
		"alarm1":       {"alarm1 <every-second|second|minute|hour|day|date> [time]", "program alarm 1", (*Console).alarm1},
		"alarm2":       {"alarm2 <every-minute|minute|hour|day|date> [time]", "program alarm 2", (*Console).alarm2},
		"alarm-flags":  {"alarm-flags", "show fired alarms", (*Console).alarmFlags},
		"clear-alarms": {"clear-alarms <1|2|both>", "clear fired alarm flags", (*Console).clearAlarms},
		"alarm-int":    {"alarm-int <on|off> <1|2|both>", "enable or disable alarm interrupts", (*Console).alarmInt},
		"osf":          {"osf", "show the oscillator stop flag", (*Console).osf},
		"clear-osf":    {"clear-osf", "clear the oscillator stop flag", (*Console).clearOSF},
		"32khz":        {"32khz <on|off>", "switch the 32kHz output", (*Console).out32kHz},
		"sqw":          {"sqw <on|off>", "switch INT/SQW between square wave and interrupts", (*Console).sqw},
		"sqw-freq":     {"sqw-freq <1|1024|4096|8192>", "select the square wave frequency", (*Console).sqwFreq},
		"temp":         {"temp", "read the temperature", (*Console).temp},
		"temp-raw":     {"temp-raw", "read the raw temperature registers", (*Console).tempRaw},
		"convert":      {"convert", "start a temperature conversion", (*Console).convert},
		"aging":        {"aging [offset]", "read or set the aging offset", (*Console).aging},
	}
}

// Console runs commands against the device behind a session.
type Console struct {
	s   *rtc.Session
	out io.Writer

	// Now supplies the time used by "set-time now".
	Now func() time.Time
}

func New(s *rtc.Session, out io.Writer) *Console {
	return &Console{
		s:   s,
		out: out,
		Now: time.Now,
	}
}

// Execute splits line shell-style and runs the command it names. An empty
// line does nothing.
func (c *Console) Execute(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("%w: %s (type 'help' for commands)", ErrUnknownCommand, args[0])
	}
	err = cmd.run(c, args[1:])
	if errors.Is(err, ErrUsage) {
		return fmt.Errorf("%w; usage: %s", err, cmd.usage)
	}
	return err
}

func (c *Console) do(fn func(dev *ds3231.Device) error) error {
	return c.s.Do(fn)
}

func (c *Console) help(args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(c.out, "  %-60s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (c *Console) readTime(args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var ct ds3231.CalendarTime
	err := c.do(func(dev *ds3231.Device) (err error) {
		ct, err = dev.ReadTime()
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, ct.Time(time.UTC).Format(time.RFC3339), ct.Time(time.UTC).Weekday())
	return nil
}

func (c *Console) setTime(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	var t time.Time
	if args[0] == "now" {
		t = c.Now()
	} else {
		var err error
		t, err = time.Parse(time.RFC3339, args[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
	}
	// the chip keeps UTC
	t = t.UTC()
	err := c.do(func(dev *ds3231.Device) error {
		return dev.SetTime(ds3231.FromTime(t))
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "clock set to", t.Format(time.RFC3339))
	return nil
}

var alarm1Rates = map[string]ds3231.Alarm1Rate{
	"every-second": ds3231.Alarm1EverySecond,
	"second":       ds3231.Alarm1MatchSecond,
	"minute":       ds3231.Alarm1MatchMinute,
	"hour":         ds3231.Alarm1MatchHour,
	"day":          ds3231.Alarm1MatchDay,
	"date":         ds3231.Alarm1MatchDate,
}

var alarm2Rates = map[string]ds3231.Alarm2Rate{
	"every-minute": ds3231.Alarm2EveryMinute,
	"minute":       ds3231.Alarm2MatchMinute,
	"hour":         ds3231.Alarm2MatchHour,
	"day":          ds3231.Alarm2MatchDay,
	"date":         ds3231.Alarm2MatchDate,
}

// alarmTime parses the optional time argument of the alarm commands. It
// accepts RFC3339 or a bare "15:04:05" / "15:04" UTC clock time. Times with
// an offset are converted to UTC.
func alarmTime(args []string) (ds3231.CalendarTime, error) {
	if len(args) == 0 {
		return ds3231.CalendarTime{}, nil
	}
	if len(args) > 1 {
		return ds3231.CalendarTime{}, ErrUsage
	}
	for _, layout := range []string{time.RFC3339, "15:04:05", "15:04"} {
		t, err := time.Parse(layout, args[0])
		if err == nil {
			return ds3231.FromTime(t.UTC()), nil
		}
	}
	return ds3231.CalendarTime{}, fmt.Errorf("%w: cannot parse time %q", ErrUsage, args[0])
}

func (c *Console) alarm1(args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	rate, ok := alarm1Rates[args[0]]
	if !ok {
		return ErrUsage
	}
	ct, err := alarmTime(args[1:])
	if err != nil {
		return err
	}
	return c.setAlarm(ds3231.AlarmSpec{Target: ds3231.Alarm1, Time1: ct, Rate1: rate})
}

func (c *Console) alarm2(args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	rate, ok := alarm2Rates[args[0]]
	if !ok {
		return ErrUsage
	}
	ct, err := alarmTime(args[1:])
	if err != nil {
		return err
	}
	return c.setAlarm(ds3231.AlarmSpec{Target: ds3231.Alarm2, Time2: ct, Rate2: rate})
}

func (c *Console) setAlarm(spec ds3231.AlarmSpec) error {
	err := c.do(func(dev *ds3231.Device) error {
		return dev.SetAlarm(spec)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, spec.Target, "set")
	return nil
}

func parseAlarm(s string) (ds3231.Alarm, error) {
	switch s {
	case "1":
		return ds3231.Alarm1, nil
	case "2":
		return ds3231.Alarm2, nil
	case "both":
		return ds3231.AlarmBoth, nil
	}
	return ds3231.AlarmNone, ErrUsage
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, ErrUsage
}

func (c *Console) alarmFlags(args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var fired ds3231.Alarm
	err := c.do(func(dev *ds3231.Device) (err error) {
		fired, err = dev.AlarmFlags()
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "fired:", fired)
	return nil
}

func (c *Console) clearAlarms(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	a, err := parseAlarm(args[0])
	if err != nil {
		return err
	}
	return c.do(func(dev *ds3231.Device) error {
		return dev.ClearAlarmFlags(a)
	})
}

func (c *Console) alarmInt(args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	a, err := parseAlarm(args[1])
	if err != nil {
		return err
	}
	return c.do(func(dev *ds3231.Device) error {
		if on {
			return dev.EnableAlarmInterrupts(a)
		}
		return dev.DisableAlarmInterrupts(a)
	})
}

func (c *Console) osf(args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var stopped bool
	err := c.do(func(dev *ds3231.Device) (err error) {
		stopped, err = dev.OscillatorStopFlag()
		return err
	})
	if err != nil {
		return err
	}
	if stopped {
		fmt.Fprintln(c.out, "oscillator has stopped, time is not valid")
	} else {
		fmt.Fprintln(c.out, "oscillator running")
	}
	return nil
}

func (c *Console) clearOSF(args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return c.do(func(dev *ds3231.Device) error {
		return dev.ClearOscillatorStopFlag()
	})
}

func (c *Console) out32kHz(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return c.do(func(dev *ds3231.Device) error {
		if on {
			return dev.Enable32kHz()
		}
		return dev.Disable32kHz()
	})
}

func (c *Console) sqw(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return c.do(func(dev *ds3231.Device) error {
		if on {
			return dev.EnableSquareWave()
		}
		return dev.DisableSquareWave()
	})
}

var frequencies = map[string]ds3231.SquareWaveFrequency{
	"1":    ds3231.SquareWave1Hz,
	"1024": ds3231.SquareWave1024Hz,
	"4096": ds3231.SquareWave4096Hz,
	"8192": ds3231.SquareWave8192Hz,
}

func (c *Console) sqwFreq(args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	f, ok := frequencies[strings.TrimSuffix(strings.ToLower(args[0]), "hz")]
	if !ok {
		return ErrUsage
	}
	return c.do(func(dev *ds3231.Device) error {
		return dev.SetSquareWaveFrequency(f)
	})
}

func (c *Console) temp(args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var t float32
	err := c.do(func(dev *ds3231.Device) (err error) {
		t, err = dev.Temperature()
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%.2f °C\n", t)
	return nil
}

func (c *Console) tempRaw(args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var raw int16
	var whole int8
	err := c.do(func(dev *ds3231.Device) (err error) {
		if raw, err = dev.RawTemperature(); err != nil {
			return err
		}
		whole, err = dev.TemperatureInteger()
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "raw %d (%d °C)\n", raw, whole)
	return nil
}

func (c *Console) convert(args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return c.do(func(dev *ds3231.Device) error {
		return dev.ConvertTemperature()
	})
}

func (c *Console) aging(args []string) error {
	switch len(args) {
	case 0:
		var v int8
		err := c.do(func(dev *ds3231.Device) (err error) {
			v, err = dev.AgingOffset()
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "aging offset", v)
		return nil
	case 1:
		v, err := strconv.ParseInt(args[0], 0, 8)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return c.do(func(dev *ds3231.Device) error {
			return dev.SetAgingOffset(int8(v))
		})
	}
	return ErrUsage
}
