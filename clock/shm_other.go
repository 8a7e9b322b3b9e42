//go:build !linux && !darwin

package clock

import "github.com/fixkme/wintimer/util/errs"

type ShmCounter struct{ LocalCounter }

func OpenShmCounter(path string) (*ShmCounter, error) {
	return nil, errs.ClockUnsupported.Printf("shared memory counter %s", path)
}

func (c *ShmCounter) Path() string { return "" }
