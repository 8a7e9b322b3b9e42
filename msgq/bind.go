package msgq

import (
	"github.com/fixkme/wintimer/lock"
	"github.com/fixkme/wintimer/timer"
	"github.com/fixkme/wintimer/util"
)

var (
	bindLock = lock.NewSpinLock()
	bound    = make(map[int64]*MsgQueue)
)

// Current returns the queue bound to the calling goroutine, or nil.
func Current() *MsgQueue {
	gid := util.GoroutineID()
	bindLock.Lock()
	q := bound[gid]
	bindLock.Unlock()
	return q
}

// CurrentQueue is Current as a timer.Queue, for timer.NewRegistry.
func CurrentQueue() timer.Queue {
	if q := Current(); q != nil {
		return q
	}
	return nil
}

// Attach binds q to the calling goroutine.
func (q *MsgQueue) Attach() error {
	gid := util.GoroutineID()
	if gid == 0 {
		return errNoGoroutine
	}
	bindLock.Lock()
	defer bindLock.Unlock()
	if other, ok := bound[gid]; ok {
		if other == q {
			return nil
		}
		return errAlreadyBound
	}
	if !q.owner.CompareAndSwap(0, gid) {
		return errOwnedElsewhere
	}
	bound[gid] = q
	return nil
}

// Detach unbinds q from its goroutine.
func (q *MsgQueue) Detach() {
	gid := q.owner.Swap(0)
	if gid == 0 {
		return
	}
	bindLock.Lock()
	if bound[gid] == q {
		delete(bound, gid)
	}
	bindLock.Unlock()
}
