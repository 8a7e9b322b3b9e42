package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/util/errs"
)

// TickInterval is the nominal length of one tick.
const TickInterval = 10 * time.Millisecond

// DriverKind selects how the counter advances when a system clock is used.
type DriverKind string

const (
	DriverInterrupt DriverKind = "interrupt" // setitimer + SIGALRM
	DriverTicker    DriverKind = "ticker"    // dedicated goroutine
)

// Notifier receives the tick-pending signal from Advance. It must only set a
// flag: Advance runs on the tick path.
type Notifier interface {
	SetTickPending()
}

type notifierBox struct{ n Notifier }

type driver interface {
	start(advance func(), interval time.Duration) error
	stop() error
	kind() DriverKind
}

var processEpoch = time.Now()

type Source struct {
	counter  Counter
	interval time.Duration
	kind     DriverKind
	readOnly bool
	target   atomic.Pointer[notifierBox]
	pull     atomic.Bool
	pullBase atomic.Int64 // ns since processEpoch at Init

	mu      sync.Mutex
	running bool
	drv     driver
}

type Option func(*Source)

func WithInterval(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithDriver(kind DriverKind) Option {
	return func(s *Source) {
		if kind != "" {
			s.kind = kind
		}
	}
}

// ReadOnly makes the source a pure reader of a shared counter: Init neither
// resets the counter nor installs a driver.
func ReadOnly() Option {
	return func(s *Source) { s.readOnly = true }
}

func NewSource(counter Counter, opts ...Option) *Source {
	if counter == nil {
		counter = NewLocalCounter()
	}
	s := &Source{
		counter:  counter,
		interval: TickInterval,
		kind:     DriverInterrupt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Interval() time.Duration { return s.interval }
func (s *Source) Counter() Counter        { return s.counter }

// Current returns the tick count. In pull mode it is derived from the wall
// clock elapsed since Init.
func (s *Source) Current() uint64 {
	if s.pull.Load() {
		elapsed := time.Since(processEpoch) - time.Duration(s.pullBase.Load())
		v := uint64(elapsed / s.interval)
		s.counter.Store(v)
		return v
	}
	return s.counter.Load()
}

// Advance bumps the counter by one and flags the target queue. It takes no
// lock and allocates nothing.
func (s *Source) Advance() {
	s.counter.Inc()
	if b := s.target.Load(); b != nil {
		b.n.SetTickPending()
	}
}

// SetTarget sets the queue alerted on every tick, nil clears it.
func (s *Source) SetTarget(n Notifier) {
	if n == nil {
		s.target.Store(nil)
		return
	}
	s.target.Store(&notifierBox{n: n})
}

func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// DriverKind reports the installed driver, empty in pull or read-only mode.
func (s *Source) DriverKind() DriverKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drv == nil {
		return ""
	}
	return s.drv.kind()
}

// Init resets the counter and, with useSystemClock, installs the periodic
// driver. Without a system clock the source runs in pull mode.
func (s *Source) Init(useSystemClock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errs.ClockState.Print("tick source already initialized")
	}
	if s.readOnly {
		s.running = true
		mlog.Infof("tick source attached read-only at tick %d", s.counter.Load())
		return nil
	}
	s.counter.Store(0)
	if !useSystemClock {
		s.pullBase.Store(int64(time.Since(processEpoch)))
		s.pull.Store(true)
		s.running = true
		mlog.Infof("tick source in pull mode, interval %v", s.interval)
		return nil
	}

	drv := newDriver(s.kind)
	err := drv.start(s.Advance, s.interval)
	if err != nil && drv.kind() == DriverInterrupt {
		mlog.Warnf("interrupt tick driver unavailable (%v), falling back to ticker", err)
		drv = &tickerDriver{}
		err = drv.start(s.Advance, s.interval)
	}
	if err != nil {
		return err
	}
	s.drv = drv
	s.running = true
	mlog.Infof("tick source started, driver %s, interval %v", drv.kind(), s.interval)
	return nil
}

// Terminate uninstalls the driver and restores whatever was installed before
// Init. Calling it on a stopped source is a no-op.
func (s *Source) Terminate(useSystemClock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.pull.Store(false)
	if s.drv == nil {
		return nil
	}
	if !useSystemClock {
		mlog.Warnf("tick source terminated without system clock flag, stopping %s driver anyway", s.drv.kind())
	}
	err := s.drv.stop()
	mlog.Infof("tick source stopped, driver %s", s.drv.kind())
	s.drv = nil
	return err
}

func newDriver(kind DriverKind) driver {
	if kind == DriverTicker {
		return &tickerDriver{}
	}
	return newInterruptDriver()
}
