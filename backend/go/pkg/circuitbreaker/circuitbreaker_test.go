package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func ok() error   { return nil }

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(2, 1, 10*time.Second, WithClock(clock.Now))

	require.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(2, 1, time.Second)
	_ = b.Execute(fail)
	require.NoError(t, b.Execute(ok))
	_ = b.Execute(fail)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(1, 2, 5*time.Second, WithClock(clock.Now))

	_ = b.Execute(fail)
	require.Equal(t, Open, b.State())

	clock.Advance(5 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	require.NoError(t, b.Execute(ok))
	assert.Equal(t, HalfOpen, b.State())
	require.NoError(t, b.Execute(ok))
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(1, 1, time.Second, WithClock(clock.Now))

	_ = b.Execute(fail)
	clock.Advance(time.Second)
	require.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, Open, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Closed", Closed.String())
	assert.Equal(t, "Open", Open.String())
	assert.Equal(t, "Half-Open", HalfOpen.String())
	assert.Equal(t, "Unknown", State(9).String())
}
