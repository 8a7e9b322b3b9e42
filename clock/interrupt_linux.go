package clock

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// interruptDriver arms ITIMER_REAL and advances on every SIGALRM. The
// itimer found at start is restored on stop.
type interruptDriver struct {
	sigch chan os.Signal
	old   unix.Itimerval
	quit  chan struct{}
	done  chan struct{}
}

func newInterruptDriver() driver {
	return &interruptDriver{}
}

func (d *interruptDriver) kind() DriverKind { return DriverInterrupt }

func (d *interruptDriver) start(advance func(), interval time.Duration) error {
	// one slot: alarms that arrive while the previous one is pending are
	// coalesced, the same as an unserviced signal
	d.sigch = make(chan os.Signal, 1)
	signal.Notify(d.sigch, syscall.SIGALRM)

	tv := unix.NsecToTimeval(interval.Nanoseconds())
	old, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{Interval: tv, Value: tv})
	if err != nil {
		signal.Stop(d.sigch)
		return err
	}
	d.old = old
	d.quit = make(chan struct{})
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		for {
			select {
			case <-d.quit:
				return
			case <-d.sigch:
				advance()
			}
		}
	}()
	return nil
}

func (d *interruptDriver) stop() error {
	// disarm before releasing the signal so no alarm reaches the default handler
	_, err := unix.Setitimer(unix.ItimerReal, d.old)
	signal.Stop(d.sigch)
	close(d.quit)
	<-d.done
	return err
}
