package core

import (
	"context"
	"sync"
	"time"

	"github.com/fixkme/wintimer/clock"
	"github.com/fixkme/wintimer/framework/config"
	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/msgq"
	"github.com/fixkme/wintimer/timer"
	"github.com/fixkme/wintimer/util/errs"
)

type timerSubsystem struct {
	source   *clock.Source
	registry *timer.Registry
}

var (
	subsysMu sync.Mutex
	subsys   *timerSubsystem
)

// InitTimerSubsystem builds the tick source and registry from conf, starts
// the source and installs both as package defaults.
func InitTimerSubsystem(ctx context.Context, conf *config.TimerConfig) error {
	if conf == nil {
		return errs.InvalidArgument.Print("timer config is nil")
	}
	subsysMu.Lock()
	defer subsysMu.Unlock()
	if subsys != nil {
		return errs.ClockState.Print("timer subsystem already initialized")
	}

	counter, err := newTickCounter(ctx, conf)
	if err != nil {
		return err
	}
	opts := []clock.Option{clock.WithDriver(clock.DriverKind(conf.TickDriver))}
	if conf.IsClient() {
		opts = append(opts, clock.ReadOnly())
	}
	src := clock.NewSource(counter, opts...)
	if err = src.Init(conf.UseSystemClock); err != nil {
		counter.Close()
		return err
	}

	regOpts := []timer.Option{timer.WithTickDuration(src.Interval())}
	if conf.IsClient() {
		regOpts = append(regOpts, timer.AsClient())
	}
	reg := timer.NewRegistry(src, msgq.CurrentQueue, regOpts...)

	clock.SetDefault(src)
	timer.SetDefault(reg)
	subsys = &timerSubsystem{source: src, registry: reg}
	mlog.Infof("timer subsystem up, multi_process=%v role=%s system_clock=%v",
		conf.MultiProcess, conf.Role, conf.UseSystemClock)
	return nil
}

func newTickCounter(ctx context.Context, conf *config.TimerConfig) (clock.Counter, error) {
	if !conf.MultiProcess {
		return clock.NewLocalCounter(), nil
	}
	switch conf.SharedBackend {
	case config.BackendRedis:
		if Redis == nil {
			return nil, errs.InvalidArgument.Print("redis backend selected but redis not initialized")
		}
		c, err := clock.NewRedisCounter(ctx, Redis.GetCmdable(), clock.RedisCounterOptions{
			Key:     conf.RedisKey,
			Writer:  !conf.IsClient(),
			Period:  time.Duration(conf.RedisSyncMs) * time.Millisecond,
			LockTTL: time.Duration(conf.LockTTLMs) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendShm, "":
		c, err := clock.OpenShmCounter(conf.ShmPath)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, errs.InvalidArgument.Printf("unknown shared backend %q", conf.SharedBackend)
}

// TerminateTimerSubsystem stops the tick source and releases the counter.
func TerminateTimerSubsystem(useSystemClock bool) error {
	subsysMu.Lock()
	defer subsysMu.Unlock()
	if subsys == nil {
		return nil
	}
	s := subsys
	subsys = nil
	timer.SetDefault(nil)
	clock.SetDefault(nil)

	err := s.source.Terminate(useSystemClock)
	if cerr := s.source.Counter().Close(); cerr != nil && err == nil {
		err = cerr
	}
	mlog.Info("timer subsystem down")
	return err
}

// TimerSource returns the running tick source, nil before init.
func TimerSource() *clock.Source {
	subsysMu.Lock()
	defer subsysMu.Unlock()
	if subsys == nil {
		return nil
	}
	return subsys.source
}

func TimerRegistry() *timer.Registry {
	subsysMu.Lock()
	defer subsysMu.Unlock()
	if subsys == nil {
		return nil
	}
	return subsys.registry
}
