package timer

import (
	"github.com/fixkme/wintimer/mlog"
	"github.com/fixkme/wintimer/util/errs"
)

// ScanExpired marks every due slot of q pending and returns how many became
// pending. q nil means the calling goroutine's queue. A due timer moves
// forward by exactly one interval per scan, so a timer that fell several
// periods behind fires on consecutive scans until it has caught up.
//
// Only the goroutine owning q may call it.
func (r *Registry) ScanExpired(q Queue, delta uint64) (int, error) {
	if delta == 0 {
		return 0, nil
	}
	if q == nil {
		q = r.current()
		if q == nil {
			mlog.Warnf("scan expired timers: called for non message goroutine")
			return 0, errs.NoQueue
		}
	}

	now := r.ticks.Current()
	table := q.TimerSlots()
	nr := 0
	for i := 0; i < table.cap; i++ {
		rec := table.slots[i]
		if rec == nil || now < rec.NextFire {
			continue
		}
		// setting one bit needs no queue lock
		q.SetTimerPending(i)
		rec.NextFire += rec.Interval
		rec.LastFired = now
		nr++
	}
	return nr, nil
}
