// Package rtc serializes access to one DS3231 between the goroutines of a
// host process.
package rtc

import (
	"sync"

	"tinygo.org/x/drivers/ds3231"
)

// Session owns a device handle. Every driver call made through Do runs
// with the session lock held, so read-modify-write flag updates from the
// console and the telemetry scheduler cannot interleave.
type Session struct {
	mu  sync.Mutex
	dev *ds3231.Device
}

func NewSession(dev *ds3231.Device) *Session {
	return &Session{dev: dev}
}

// Do runs fn with exclusive access to the device.
func (s *Session) Do(fn func(dev *ds3231.Device) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.dev)
}
