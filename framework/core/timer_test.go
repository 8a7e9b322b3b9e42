package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fixkme/wintimer/clock"
	"github.com/fixkme/wintimer/framework/config"
	"github.com/fixkme/wintimer/msgq"
	"github.com/fixkme/wintimer/timer"
	"github.com/fixkme/wintimer/util/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTerminatePullMode(t *testing.T) {
	conf := &config.TimerConfig{UseSystemClock: false}
	require.NoError(t, InitTimerSubsystem(context.Background(), conf))
	defer TerminateTimerSubsystem(false)

	assert.NotNil(t, clock.Default())
	assert.NotNil(t, timer.Default())
	assert.False(t, TimerRegistry().IsClient())
	assert.Equal(t, clock.DriverKind(""), TimerSource().DriverKind())

	err := InitTimerSubsystem(context.Background(), conf)
	assert.ErrorIs(t, err, errs.ClockState)

	assert.Eventually(t, func() bool { return clock.TickCount() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, TerminateTimerSubsystem(false))
	assert.Nil(t, clock.Default())
	assert.Nil(t, timer.Default())
	assert.NoError(t, TerminateTimerSubsystem(false))
}

func TestSharedMemoryRoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tick")
	server := &config.TimerConfig{
		UseSystemClock: true,
		TickDriver:     string(clock.DriverTicker),
		MultiProcess:   true,
		Role:           config.RoleServer,
		SharedBackend:  config.BackendShm,
		ShmPath:        path,
	}
	require.NoError(t, InitTimerSubsystem(context.Background(), server))
	defer TerminateTimerSubsystem(true)

	client := *server
	client.Role = config.RoleClient
	counter, err := newTickCounter(context.Background(), &client)
	require.NoError(t, err)
	defer counter.Close()
	reader := clock.NewSource(counter, clock.ReadOnly())
	require.NoError(t, reader.Init(true))
	defer reader.Terminate(true)

	assert.Eventually(t, func() bool { return reader.Current() >= 3 }, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, reader.Current(), TimerSource().Current())
}

func TestTickCounterBackends(t *testing.T) {
	c, err := newTickCounter(context.Background(), &config.TimerConfig{})
	require.NoError(t, err)
	assert.IsType(t, &clock.LocalCounter{}, c)

	_, err = newTickCounter(context.Background(), &config.TimerConfig{MultiProcess: true, SharedBackend: "nfs"})
	assert.ErrorIs(t, err, errs.InvalidArgument)

	Redis = nil
	_, err = newTickCounter(context.Background(), &config.TimerConfig{MultiProcess: true, SharedBackend: config.BackendRedis})
	assert.ErrorIs(t, err, errs.InvalidArgument)

	assert.ErrorIs(t, InitTimerSubsystem(context.Background(), nil), errs.InvalidArgument)
}

func TestClientRegistryWakeTimeout(t *testing.T) {
	conf := &config.TimerConfig{
		MultiProcess:  true,
		Role:          config.RoleClient,
		SharedBackend: config.BackendShm,
		ShmPath:       filepath.Join(t.TempDir(), "tick"),
	}
	require.NoError(t, InitTimerSubsystem(context.Background(), conf))
	defer TerminateTimerSubsystem(false)
	assert.True(t, TimerRegistry().IsClient())

	q := msgq.New()
	go q.Run(nil)
	defer func() {
		q.Close()
		<-q.Done()
	}()
	require.NoError(t, q.Call(context.Background(), func() {
		w := q.CreateWindow()
		require.NoError(t, timer.Register(w, 1, 25, nil))
	}))
	assert.Equal(t, 250*time.Millisecond, q.WakeTimeout())
}

func TestTimerModule(t *testing.T) {
	conf := &config.TimerConfig{UseSystemClock: true, TickDriver: string(clock.DriverTicker)}
	require.NoError(t, InitTimerModule("timer", conf, nil))
	require.NoError(t, Timer.OnInit())
	go Timer.Run()

	fired := make(chan uint64, 4)
	q := Timer.Desktop()
	require.NoError(t, q.Call(context.Background(), func() {
		w := q.CreateWindow()
		require.NoError(t, timer.Register(w, 1, 3, func(_ timer.Window, _ int64, tick uint64) bool {
			fired <- tick
			return false
		}))
	}))
	select {
	case tick := <-fired:
		assert.GreaterOrEqual(t, tick, uint64(3))
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	Timer.Destroy()
	assert.Nil(t, TimerSource())
	assert.Nil(t, timer.Default())
}
