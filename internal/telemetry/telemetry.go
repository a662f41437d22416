// Package telemetry periodically reads the RTC's state and publishes it.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tinygo.org/x/drivers/ds3231"
	"tinygo.org/x/drivers/internal/rtc"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// State is the JSON document published on <prefix>/state.
type State struct {
	// Time is empty when the time registers do not hold a valid time.
	Time              string  `json:"time,omitempty"`
	TimeValid         bool    `json:"time_valid"`
	OscillatorStopped bool    `json:"oscillator_stopped"`
	Temperature       float32 `json:"temperature"`
	AlarmsFired       string  `json:"alarms_fired"`
	ReadAt            string  `json:"read_at"`
}

// AlarmEvent is published on <prefix>/alarm when an alarm flag is found set.
type AlarmEvent struct {
	Alarm  string `json:"alarm"`
	RTC    string `json:"rtc_time,omitempty"`
	ReadAt string `json:"read_at"`
}

type Config struct {
	TopicPrefix string
	// ClearAlarms clears fired alarm flags after they have been published.
	ClearAlarms bool
}

// Reporter reads snapshots through a session and publishes them.
type Reporter struct {
	s      *rtc.Session
	pub    Publisher
	cfg    Config
	logger zerolog.Logger

	// now stamps read_at; replaced in tests.
	now func() time.Time
}

func NewReporter(s *rtc.Session, pub Publisher, cfg Config, logger zerolog.Logger) *Reporter {
	return &Reporter{
		s:      s,
		pub:    pub,
		cfg:    cfg,
		logger: logger.With().Str("component", "telemetry").Logger(),
		now:    time.Now,
	}
}

// Snapshot reads the current state. Fired alarm flags are cleared in the
// same locked section when clear is set, so no alarm can fire unseen
// between the read and the clear.
func (r *Reporter) Snapshot(clear bool) (State, error) {
	var st State
	err := r.s.Do(func(dev *ds3231.Device) error {
		ct, err := dev.ReadTime()
		switch {
		case err == nil:
			st.Time = ct.Time(time.UTC).Format(time.RFC3339)
			st.TimeValid = true
		case errors.Is(err, ds3231.ErrUnrepresentable):
			r.logger.Warn().Err(err).Msg("time registers hold no valid time")
		default:
			return err
		}

		if st.OscillatorStopped, err = dev.OscillatorStopFlag(); err != nil {
			return err
		}
		if st.OscillatorStopped {
			st.TimeValid = false
		}
		if st.Temperature, err = dev.Temperature(); err != nil {
			return err
		}
		fired, err := dev.AlarmFlags()
		if err != nil {
			return err
		}
		st.AlarmsFired = fired.String()
		if clear && fired != ds3231.AlarmNone {
			return dev.ClearAlarmFlags(fired)
		}
		return nil
	})
	st.ReadAt = r.now().UTC().Format(time.RFC3339)
	return st, err
}

// Report takes one snapshot and publishes it.
func (r *Reporter) Report() error {
	st, err := r.Snapshot(r.cfg.ClearAlarms)
	if err != nil {
		return fmt.Errorf("telemetry: read rtc: %w", err)
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := r.pub.Publish(r.cfg.TopicPrefix+"/state", payload, true); err != nil {
		return fmt.Errorf("telemetry: publish state: %w", err)
	}

	if st.AlarmsFired != ds3231.AlarmNone.String() {
		ev, err := json.Marshal(AlarmEvent{Alarm: st.AlarmsFired, RTC: st.Time, ReadAt: st.ReadAt})
		if err != nil {
			return err
		}
		if err := r.pub.Publish(r.cfg.TopicPrefix+"/alarm", ev, false); err != nil {
			return fmt.Errorf("telemetry: publish alarm: %w", err)
		}
	}

	r.logger.Debug().
		Str("time", st.Time).
		Float32("temperature", st.Temperature).
		Str("alarms", st.AlarmsFired).
		Msg("state published")
	return nil
}

// Start runs Report on schedule until the returned stop function is called.
// Stop waits for a running report to finish.
func (r *Reporter) Start(schedule string) (stop func(), err error) {
	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if err := r.Report(); err != nil {
			r.logger.Error().Err(err).Msg("report failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: bad schedule %q: %w", schedule, err)
	}
	c.Start()
	r.logger.Info().Str("schedule", schedule).Str("prefix", r.cfg.TopicPrefix).Msg("telemetry started")
	return func() {
		<-c.Stop().Done()
		r.logger.Info().Msg("telemetry stopped")
	}, nil
}
