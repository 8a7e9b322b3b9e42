package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestInterruptDriverRestoresItimer(t *testing.T) {
	// long enough that the alarm never fires during the test
	prior := unix.Itimerval{
		Interval: unix.NsecToTimeval(int64(300 * time.Second)),
		Value:    unix.NsecToTimeval(int64(200 * time.Second)),
	}
	_, err := unix.Setitimer(unix.ItimerReal, prior)
	require.NoError(t, err)
	defer unix.Setitimer(unix.ItimerReal, unix.Itimerval{})

	s := NewSource(nil, WithDriver(DriverInterrupt))
	require.NoError(t, s.Init(true))
	require.Equal(t, DriverInterrupt, s.DriverKind())

	armed, err := unix.Getitimer(unix.ItimerReal)
	require.NoError(t, err)
	assert.Equal(t, unix.NsecToTimeval(int64(TickInterval)), armed.Interval)

	require.Eventually(t, func() bool { return s.Current() >= 3 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Terminate(true))

	restored, err := unix.Getitimer(unix.ItimerReal)
	require.NoError(t, err)
	assert.Equal(t, prior.Interval, restored.Interval)
	left := time.Duration(restored.Value.Nano())
	assert.Greater(t, left, 190*time.Second)
	assert.LessOrEqual(t, left, 200*time.Second)
}

func TestInterruptDriverRestoresDisarmed(t *testing.T) {
	_, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{})
	require.NoError(t, err)

	s := NewSource(nil, WithDriver(DriverInterrupt))
	require.NoError(t, s.Init(true))
	require.NoError(t, s.Terminate(true))

	restored, err := unix.Getitimer(unix.ItimerReal)
	require.NoError(t, err)
	assert.Equal(t, unix.Itimerval{}, restored)
}
