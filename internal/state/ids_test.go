package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_TimestampStrictlyIncreasing(t *testing.T) {
	c := newClock()
	prev := c.Timestamp()
	for i := 0; i < 1_200_000; i++ {
		next := c.Timestamp()
		assert.Less(t, prev, next, "timestamp must strictly increase even across microsecond rollover")
		prev = next
	}
}
