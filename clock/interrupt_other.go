//go:build !linux

package clock

import (
	"time"

	"github.com/fixkme/wintimer/util/errs"
)

type interruptDriver struct{}

func newInterruptDriver() driver {
	return &interruptDriver{}
}

func (d *interruptDriver) kind() DriverKind { return DriverInterrupt }

func (d *interruptDriver) start(func(), time.Duration) error {
	return errs.ClockUnsupported.Print("no periodic interrupt on this platform")
}

func (d *interruptDriver) stop() error { return nil }
