package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, loc)
	c := NewManual(start)

	assert.True(t, c.Now().Equal(start))
	assert.Equal(t, time.UTC, c.Now().Location())

	got := c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second).UTC(), got)
	assert.Equal(t, got, c.Now())

	c.Set(start)
	assert.True(t, c.Now().Equal(start))
}

func TestReal(t *testing.T) {
	now := Real{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}
