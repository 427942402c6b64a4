package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func TestElapsedBeforeStart(t *testing.T) {
	var c PauseClock
	_, err := c.Elapsed(at(1))
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.False(t, c.Started())
}

func TestElapsedExcludesPauses(t *testing.T) {
	var c PauseClock
	c.Reset(at(0))

	elapsed, err := c.Elapsed(at(5))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, elapsed)

	// pause 10 -> 13
	assert.True(t, c.Toggle(at(10)))
	elapsed, err = c.Elapsed(at(12))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, elapsed, "frozen while paused")
	assert.False(t, c.Toggle(at(13)))
	assert.Equal(t, 3*time.Second, c.PausedTotal())

	// pause 20 -> 20.5
	c.Toggle(at(20))
	c.Toggle(at(20.5))

	elapsed, err = c.Elapsed(at(30))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second-3500*time.Millisecond, elapsed)
}

func TestPauseAddedOnce(t *testing.T) {
	var c PauseClock
	c.Reset(at(0))
	c.Toggle(at(1))
	c.Toggle(at(2))

	for _, s := range []float64{3, 4, 100} {
		elapsed, err := c.Elapsed(at(s))
		require.NoError(t, err)
		assert.Equal(t, at(s).Sub(at(1)), elapsed)
	}
	assert.Equal(t, time.Second, c.PausedTotal())
}

func TestResetClearsPausedTotal(t *testing.T) {
	var c PauseClock
	c.Reset(at(0))
	c.Toggle(at(1))
	c.Toggle(at(4))
	require.Equal(t, 3*time.Second, c.PausedTotal())

	c.Reset(at(10))
	assert.Equal(t, time.Duration(0), c.PausedTotal())
	elapsed, err := c.Elapsed(at(12))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, elapsed)
}

func TestResetWhilePaused(t *testing.T) {
	var c PauseClock
	c.Reset(at(0))
	c.Toggle(at(5))

	c.Reset(at(10))
	assert.True(t, c.Paused())

	c.Toggle(at(15))
	elapsed, err := c.Elapsed(at(20))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, elapsed, "the pause before the restart does not count")
}
