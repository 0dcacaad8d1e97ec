package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// clock generates platform-style "<secs>.<microsecs>" timestamps that are
// monotonic within a process even when the wall clock doesn't advance
// between calls (a tight loop of addMessage calls, for instance). lastSecs/
// lastMicro record the previously emitted value so each new call can be
// bumped past it rather than folding a counter into the microsecond field,
// which would wrap backward every time the fold crossed a multiple of
// 1,000,000.
type clock struct {
	mu        sync.Mutex
	lastSecs  int64
	lastMicro int64
}

func newClock() *clock {
	return &clock{}
}

// Timestamp returns the next monotonic "<secs>.<microsecs>" value, strictly
// greater than every value previously returned by this clock.
func (c *clock) Timestamp() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	secs := now.Unix()
	micros := int64(now.Nanosecond() / 1000)

	if secs < c.lastSecs || (secs == c.lastSecs && micros <= c.lastMicro) {
		secs = c.lastSecs
		micros = c.lastMicro + 1
		if micros >= 1000000 {
			secs++
			micros = 0
		}
	}

	c.lastSecs = secs
	c.lastMicro = micros
	return fmt.Sprintf("%d.%06d", secs, micros)
}

func newID(prefix string) string {
	return prefix + uuid.NewString()
}

func newEnvelopeID() string  { return newID("env_") }
func newEventID() string     { return newID("evt_") }
func newTriggerID() string   { return newID("trig_") }
func newViewID() string      { return newID("view_") }
func newConnectionID() string { return newID("conn_") }

func nowMillis() int64 { return time.Now().UnixMilli() }
