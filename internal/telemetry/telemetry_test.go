package telemetry

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/rs/zerolog"

	"tinygo.org/x/drivers/ds3231"
	"tinygo.org/x/drivers/internal/rtc"
	"tinygo.org/x/drivers/tester"
)

type message struct {
	topic    string
	payload  []byte
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, message{topic, payload, retained})
	return nil
}

func newReporter(c *qt.C, cfg Config) (*Reporter, *tester.I2CDevice8, *fakePublisher) {
	bus := tester.NewI2CBus(c)
	fake := tester.NewI2CDevice8(c, ds3231.Address)
	bus.AddDevice(fake)
	dev := ds3231.New(bus)
	pub := &fakePublisher{}
	r := NewReporter(rtc.NewSession(&dev), pub, cfg, zerolog.New(io.Discard))
	r.now = func() time.Time { return time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC) }

	copy(fake.Registers[ds3231.RegTime:], []byte{0x30, 0x59, 0x11, 0x02, 0x19, 0x10, 0x26})
	fake.Registers[ds3231.RegTemp] = 0x16
	fake.Registers[ds3231.RegTemp+1] = 0x80
	return r, fake, pub
}

func TestReportState(t *testing.T) {
	c := qt.New(t)
	r, _, pub := newReporter(c, Config{TopicPrefix: "rtc"})

	c.Assert(r.Report(), qt.IsNil)
	c.Assert(pub.msgs, qt.HasLen, 1)
	c.Assert(pub.msgs[0].topic, qt.Equals, "rtc/state")
	c.Assert(pub.msgs[0].retained, qt.IsTrue)

	var st State
	c.Assert(json.Unmarshal(pub.msgs[0].payload, &st), qt.IsNil)
	c.Assert(st, qt.DeepEquals, State{
		Time:        "2026-10-19T11:59:30Z",
		TimeValid:   true,
		Temperature: 22.5,
		AlarmsFired: "none",
		ReadAt:      "2026-10-19T12:00:00Z",
	})
}

func TestReportAlarmAndClear(t *testing.T) {
	c := qt.New(t)
	r, fake, pub := newReporter(c, Config{TopicPrefix: "rtc", ClearAlarms: true})
	fake.Registers[ds3231.RegStatus] = ds3231.Status32kHz | ds3231.StatusAlarm2

	c.Assert(r.Report(), qt.IsNil)
	c.Assert(pub.msgs, qt.HasLen, 2)
	c.Assert(pub.msgs[1].topic, qt.Equals, "rtc/alarm")
	c.Assert(pub.msgs[1].retained, qt.IsFalse)

	var ev AlarmEvent
	c.Assert(json.Unmarshal(pub.msgs[1].payload, &ev), qt.IsNil)
	c.Assert(ev.Alarm, qt.Equals, "alarm2")
	c.Assert(ev.RTC, qt.Equals, "2026-10-19T11:59:30Z")

	// only the alarm flag is cleared
	c.Assert(fake.Registers[ds3231.RegStatus], qt.Equals, uint8(ds3231.Status32kHz))

	pub.msgs = nil
	c.Assert(r.Report(), qt.IsNil)
	c.Assert(pub.msgs, qt.HasLen, 1)
}

func TestReportKeepsAlarmFlags(t *testing.T) {
	c := qt.New(t)
	r, fake, _ := newReporter(c, Config{TopicPrefix: "rtc"})
	fake.Registers[ds3231.RegStatus] = ds3231.StatusAlarm1

	c.Assert(r.Report(), qt.IsNil)
	c.Assert(fake.Registers[ds3231.RegStatus], qt.Equals, uint8(ds3231.StatusAlarm1))
}

func TestSnapshotInvalidTime(t *testing.T) {
	c := qt.New(t)
	r, fake, _ := newReporter(c, Config{})
	fake.Registers[ds3231.RegTime+4] = 0x00
	fake.Registers[ds3231.RegStatus] = ds3231.StatusOscillatorStopped

	st, err := r.Snapshot(false)
	c.Assert(err, qt.IsNil)
	c.Assert(st.Time, qt.Equals, "")
	c.Assert(st.TimeValid, qt.IsFalse)
	c.Assert(st.OscillatorStopped, qt.IsTrue)
	c.Assert(st.Temperature, qt.Equals, float32(22.5))
}

func TestSnapshotOscillatorStoppedInvalidatesTime(t *testing.T) {
	c := qt.New(t)
	r, fake, _ := newReporter(c, Config{})
	fake.Registers[ds3231.RegStatus] = ds3231.StatusOscillatorStopped

	st, err := r.Snapshot(false)
	c.Assert(err, qt.IsNil)
	c.Assert(st.Time, qt.Equals, "2026-10-19T11:59:30Z")
	c.Assert(st.TimeValid, qt.IsFalse)
}

func TestReportErrors(t *testing.T) {
	c := qt.New(t)
	r, fake, pub := newReporter(c, Config{TopicPrefix: "rtc"})

	errBus := errors.New("bus nack")
	fake.Err = errBus
	c.Assert(r.Report(), qt.ErrorIs, errBus)
	c.Assert(pub.msgs, qt.HasLen, 0)

	fake.Err = nil
	pub.err = errors.New("broker gone")
	c.Assert(r.Report(), qt.ErrorMatches, "telemetry: publish state: broker gone")
}

func TestStart(t *testing.T) {
	c := qt.New(t)
	r, _, _ := newReporter(c, Config{TopicPrefix: "rtc"})

	_, err := r.Start("whenever")
	c.Assert(err, qt.ErrorMatches, `telemetry: bad schedule "whenever": .*`)

	stop, err := r.Start("@every 1h")
	c.Assert(err, qt.IsNil)
	stop()
}
